package metagen

import (
	"fmt"
	"strings"

	"github.com/SethCurry/stocktag/pkg/stock"
)

// FallbackKeywords pads results whose model output has too few keywords.
// Terms are used in order, skipping any the result already has.
var FallbackKeywords = []string{
	"stock",
	"photo",
	"image",
	"background",
	"concept",
	"design",
	"creative",
	"modern",
	"color",
	"detail",
	"closeup",
	"nobody",
	"horizontal",
	"high quality",
	"beautiful",
	"natural",
	"bright",
	"daylight",
	"outdoor",
	"indoor",
	"texture",
	"style",
	"lifestyle",
	"composition",
	"copy space",
	"scene",
	"vibrant",
	"simple",
	"elegant",
	"professional",
}

// NormalizeKeywords deduplicates the keywords and fits them into the range:
// extra keywords are dropped from the end, and missing ones are filled from
// FallbackKeywords.  Once the vocabulary runs out, numbered terms are used.
func NormalizeKeywords(keywords []string, bounds KeywordRange) []string {
	out := stock.DedupeKeywords(keywords)

	if len(out) > bounds.Max {
		out = out[:bounds.Max]
	}

	if len(out) >= bounds.Min {
		return out
	}

	seen := make(map[string]bool, bounds.Min)
	for _, k := range out {
		seen[strings.ToLower(k)] = true
	}

	add := func(k string) {
		if len(out) < bounds.Min && !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}

	for _, k := range FallbackKeywords {
		add(k)
	}

	for i := 1; len(out) < bounds.Min; i++ {
		add(fmt.Sprintf("stock %d", i))
	}

	return out
}

// PostProcess applies the option driven fixes to a parsed result: keyword
// bounds, the Freepik base model, and the description length check.
func PostProcess(result *stock.Result, opts Options) error {
	result.Keywords = NormalizeKeywords(result.Keywords, opts.Keywords)

	if opts.Platform == stock.Freepik {
		result.BaseModel = FreepikBaseModel
		result.Description = ""

		return nil
	}

	return CheckDescription(result.Description, opts.MinDescriptionWords)
}
