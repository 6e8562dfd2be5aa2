package metagen

import (
	"errors"
	"fmt"
	"strings"

	"github.com/SethCurry/stocktag/pkg/stock"
)

// FreepikBaseModel is the value Freepik results always carry in baseModel.
const FreepikBaseModel = "Midjourney 6"

// Options controls what Analyze asks for and how it post-processes the
// response.
type Options struct {
	Mode     stock.Mode
	Platform stock.Platform
	Keywords KeywordRange

	// TitleWords is the upper bound on title length, in words.  Zero
	// leaves it to the model.
	TitleWords int

	// MinDescriptionWords rejects results whose description is shorter.
	// Zero disables the check.
	MinDescriptionWords int

	// MaxFileSize rejects larger files before any request is sent.
	MaxFileSize int64
}

// DefaultMaxFileSize is the largest file sent inline to a provider.
const DefaultMaxFileSize = 20 << 20

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Mode:                stock.ModeMetadata,
		Platform:            stock.General,
		Keywords:            DefaultKeywordRange,
		TitleWords:          15,
		MinDescriptionWords: 0,
		MaxFileSize:         DefaultMaxFileSize,
	}
}

// ErrNegativeOption is returned when a numeric option is negative.
var ErrNegativeOption = errors.New("option must not be negative")

// Validate checks the options before a batch starts.
func (o Options) Validate() error {
	if _, err := stock.ParseMode(string(o.Mode)); err != nil {
		return err
	}

	if err := o.Keywords.Validate(); err != nil {
		return err
	}

	if o.TitleWords < 0 || o.MinDescriptionWords < 0 || o.MaxFileSize < 0 {
		return fmt.Errorf("title words %d, description words %d, max file size %d: %w",
			o.TitleWords, o.MinDescriptionWords, o.MaxFileSize, ErrNegativeOption)
	}

	return nil
}

// BuildPrompt returns the prompt sent with the file.
func BuildPrompt(opts Options, file stock.SourceFile) string {
	if opts.Mode == stock.ModeImageToPrompt {
		return imageToPrompt(file)
	}

	return metadataPrompt(opts, file)
}

func subject(file stock.SourceFile) string {
	if file.IsVideo() {
		return "video"
	}

	return "image"
}

func imageToPrompt(file stock.SourceFile) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Describe this %s as a detailed prompt for an AI image generator. ", subject(file))
	b.WriteString("Cover the subject, composition, lighting, colors, mood, camera angle and artistic style. ")
	b.WriteString("Write a single paragraph of plain text. Do not use JSON, markdown, headings or lists, ")
	b.WriteString("and do not add any introduction or explanation.")

	return b.String()
}

func metadataPrompt(opts Options, file stock.SourceFile) string {
	var b strings.Builder

	kind := subject(file)

	fmt.Fprintf(&b, "You are an expert in stock media metadata. Analyze this %s and write metadata for %s.\n",
		kind, platformLabel(opts.Platform))
	b.WriteString("Respond with a single JSON object and nothing else, using exactly these keys:\n")

	if opts.Platform == stock.Freepik {
		b.WriteString(`{"title": string, "prompt": string, "keywords": [string], "baseModel": string}` + "\n")
		fmt.Fprintf(&b, "- prompt: a detailed AI image generation prompt that would recreate this %s.\n", kind)
		fmt.Fprintf(&b, "- baseModel: always exactly %q.\n", FreepikBaseModel)
	} else {
		b.WriteString(`{"title": string, "description": string, "keywords": [string]`)

		if opts.Platform == stock.AdobeStock || opts.Platform == stock.Shutterstock {
			b.WriteString(`, "categories": [string]`)
		}

		b.WriteString("}\n")
		fmt.Fprintf(&b, "- description: one or two factual sentences describing the %s", kind)

		if opts.MinDescriptionWords > 0 {
			fmt.Fprintf(&b, ", at least %d words", opts.MinDescriptionWords)
		}

		b.WriteString(".\n")

		if opts.Platform == stock.AdobeStock || opts.Platform == stock.Shutterstock {
			b.WriteString("- categories: one or two category names used by the platform.\n")
		}
	}

	b.WriteString("- title: a concise, descriptive title with no trademarks or brand names")

	if opts.TitleWords > 0 {
		fmt.Fprintf(&b, ", at most %d words", opts.TitleWords)
	}

	b.WriteString(".\n")
	fmt.Fprintf(&b, "- keywords: between %d and %d single-word or short-phrase keywords, ", opts.Keywords.Min, opts.Keywords.Max)
	b.WriteString("most important first, no duplicates, all lowercase.\n")

	return b.String()
}

func platformLabel(p stock.Platform) string {
	switch p {
	case stock.AdobeStock:
		return "Adobe Stock"
	case stock.Shutterstock:
		return "Shutterstock"
	case stock.Freepik:
		return "Freepik"
	}

	return "stock marketplaces"
}
