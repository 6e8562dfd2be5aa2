package embed

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/SethCurry/stocktag/internal/bufutil"
	"github.com/SethCurry/stocktag/pkg/stock"
)

// filenameKeywords is how many keywords go into a descriptive filename.
const filenameKeywords = 3

func safeTitle(r *stock.Result) string {
	if r == nil {
		return bufutil.SanitizeFilename("")
	}

	return bufutil.SanitizeFilename(r.Title)
}

// StockReadyFilename names a JPEG that carries embedded metadata.
func StockReadyFilename(r *stock.Result) string {
	return safeTitle(r) + "_stock_ready.jpeg"
}

// NoMetadataFilename names a JPEG whose metadata could not be embedded.
func NoMetadataFilename(r *stock.Result) string {
	return safeTitle(r) + "_no_metadata.jpeg"
}

// DescriptiveFilename names a file that cannot carry metadata after its
// title and first keywords, keeping the original extension.
func DescriptiveFilename(r *stock.Result, original string) string {
	parts := []string{safeTitle(r)}

	if r != nil {
		for _, k := range r.UniqueKeywords() {
			if len(parts) > filenameKeywords {
				break
			}

			k = strings.Join(strings.Fields(bufutil.SanitizeFilename(k)), "-")
			if k != "" && k != "untitled" {
				parts = append(parts, k)
			}
		}
	}

	return strings.Join(parts, "_") + strings.ToLower(filepath.Ext(original))
}

// uniqueNames hands out names that have not been used yet by appending _2,
// _3 and so on before the extension.
type uniqueNames map[string]bool

func (u uniqueNames) next(name string) string {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)

	candidate := name
	for i := 2; u[candidate]; i++ {
		candidate = fmt.Sprintf("%s_%d%s", base, i, ext)
	}

	u[candidate] = true

	return candidate
}
