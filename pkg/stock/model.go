// Package stock holds the data model shared by the analysis, embedding and
// export stages: the generated metadata, the source files it describes, and
// the per-file state a batch moves through.
package stock

import (
	"fmt"
	"strings"
	"time"
)

// Result is the metadata generated for a single file.  It is the output of AI
// analysis and the input of every downstream consumer.
type Result struct {
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`

	// Prompt is set in image-to-prompt mode and for Freepik.
	Prompt string `json:"prompt,omitempty"`

	// BaseModel is only requested for Freepik.
	BaseModel string `json:"baseModel,omitempty"`

	// Categories holds the category labels AdobeStock and Shutterstock use.
	Categories []string `json:"categories,omitempty"`

	// Category is the numeric video category, 1 through 21.  Zero means it
	// has not been computed yet.
	Category int `json:"category,omitempty"`
}

// UniqueKeywords returns the keywords with blanks and case-insensitive
// duplicates removed, keeping the first occurrence of each.
func (r *Result) UniqueKeywords() []string {
	if r == nil {
		return nil
	}

	return DedupeKeywords(r.Keywords)
}

// DedupeKeywords trims every keyword and drops blanks and case-insensitive
// duplicates, preserving order.
func DedupeKeywords(keywords []string) []string {
	seen := make(map[string]bool, len(keywords))
	out := make([]string, 0, len(keywords))

	for _, k := range keywords {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}

		key := strings.ToLower(k)
		if seen[key] {
			continue
		}

		seen[key] = true
		out = append(out, k)
	}

	return out
}

// Author is written into the author slots at embed time.  It is blank on
// purpose; generated metadata never claims authorship.
const Author = ""

// Rating is the star rating written into every embedded file.
const Rating = 5

// Copyright returns the copyright notice embedded into files created at t.
func Copyright(t time.Time) string {
	return fmt.Sprintf("© %d All Rights Reserved", t.Year())
}

// SourceFile is a file handed to the core.  The core only reads Data and
// derives new buffers from it.
type SourceFile struct {
	Name     string
	MIMEType string
	Data     []byte
}

// IsImage reports whether the file has an image MIME type.
func (s SourceFile) IsImage() bool {
	return strings.HasPrefix(s.MIMEType, "image/")
}

// IsVideo reports whether the file has a video MIME type.
func (s SourceFile) IsVideo() bool {
	return strings.HasPrefix(s.MIMEType, "video/")
}
