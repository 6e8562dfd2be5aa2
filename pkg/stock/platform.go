package stock

import (
	"errors"
	"fmt"
	"strings"
)

// Platform is the stock marketplace the metadata is prepared for.
type Platform int

const (
	// General is the generic schema used when no marketplace is selected.
	General Platform = iota
	AdobeStock
	Shutterstock
	Freepik
)

var platformNames = map[Platform]string{
	General:      "general",
	AdobeStock:   "adobestock",
	Shutterstock: "shutterstock",
	Freepik:      "freepik",
}

// String returns the lower-case name of the platform.
func (p Platform) String() string {
	if name, ok := platformNames[p]; ok {
		return name
	}

	return fmt.Sprintf("platform(%d)", int(p))
}

// UsesDescription reports whether the platform has a description field.
// Freepik only takes a title and a prompt.
func (p Platform) UsesDescription() bool {
	return p != Freepik
}

// ErrUnknownPlatform is returned when a platform name is not recognized.
var ErrUnknownPlatform = errors.New("unknown platform")

// ParsePlatform parses a platform name.  Matching ignores case, spaces,
// dashes and underscores so "Adobe Stock" and "adobe-stock" both work.  An
// empty name selects General.
func ParsePlatform(name string) (Platform, error) {
	normalized := strings.NewReplacer(" ", "", "-", "", "_", "").Replace(strings.ToLower(name))

	if normalized == "" || normalized == "generic" {
		return General, nil
	}

	for p, n := range platformNames {
		if n == normalized {
			return p, nil
		}
	}

	return General, fmt.Errorf("%q: %w", name, ErrUnknownPlatform)
}

// Mode selects what the AI model is asked to produce.
type Mode string

const (
	// ModeMetadata asks for a title, description and keywords as JSON.
	ModeMetadata = Mode("metadata")

	// ModeImageToPrompt asks for a free-form prompt that would recreate the image.
	ModeImageToPrompt = Mode("image-to-prompt")
)

// ErrUnknownMode is returned when a mode name is not recognized.
var ErrUnknownMode = errors.New("unknown mode")

// ParseMode parses a mode name.  An empty name selects ModeMetadata.
func ParseMode(name string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(name))) {
	case "", ModeMetadata:
		return ModeMetadata, nil
	case ModeImageToPrompt, "prompt":
		return ModeImageToPrompt, nil
	}

	return ModeMetadata, fmt.Errorf("%q: %w", name, ErrUnknownMode)
}
