// Package csvexport renders analysis results as the CSV files stock
// platforms accept for bulk metadata upload.
//
// Every field is quoted, quotes are doubled, and keywords go into a single
// comma separated field.  Rows are separated by a bare "\n".
package csvexport

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/SethCurry/stocktag/internal/bufutil"
	"github.com/SethCurry/stocktag/pkg/stock"
)

// KeywordSeparator joins keywords inside the keywords field.
const KeywordSeparator = ", "

type column struct {
	name  string
	value func(*stock.Record) string
}

var (
	filenameColumn = column{"Filename", func(r *stock.Record) string { return r.Name }}
	titleColumn    = column{"Title", func(r *stock.Record) string { return r.Result.Title }}
	descColumn     = column{"Description", func(r *stock.Record) string { return r.Result.Description }}
	promptColumn   = column{"Prompt", func(r *stock.Record) string { return r.Result.Prompt }}
	keywordsColumn = column{"Keywords", func(r *stock.Record) string {
		return strings.Join(r.Result.UniqueKeywords(), KeywordSeparator)
	}}
	categoryColumn = column{"Category", func(r *stock.Record) string {
		return strconv.Itoa(Categorize(r.Result))
	}}
)

var schemas = map[stock.Platform][]column{
	stock.General:      {filenameColumn, titleColumn, descColumn, keywordsColumn},
	stock.AdobeStock:   {filenameColumn, titleColumn, keywordsColumn},
	stock.Shutterstock: {filenameColumn, descColumn, keywordsColumn},
	stock.Freepik:      {filenameColumn, titleColumn, promptColumn, keywordsColumn},
}

var videoSchema = []column{filenameColumn, titleColumn, keywordsColumn, categoryColumn}

// Header returns the header line for the platform.
func Header(platform stock.Platform) string {
	return header(schemaFor(platform))
}

// Format renders the image records for the platform.  Records that are not
// complete, or have no result, are left out.
func Format(records []*stock.Record, platform stock.Platform) string {
	return render(records, schemaFor(platform))
}

// FormatVideo renders video records.  The category is computed from the
// title and keywords when the record does not carry one.
func FormatVideo(records []*stock.Record) string {
	return render(records, videoSchema)
}

// ExportFilename names a CSV export for the platform created at t.
func ExportFilename(platform stock.Platform, video bool, t time.Time) string {
	kind := "images"
	if video {
		kind = "videos"
	}

	return fmt.Sprintf("%s_%s_%s.csv", platform, kind, t.Format("2006-01-02"))
}

func schemaFor(platform stock.Platform) []column {
	schema, ok := schemas[platform]
	if !ok {
		return schemas[stock.General]
	}

	return schema
}

func header(schema []column) string {
	fields := make([]string, len(schema))
	for i, c := range schema {
		fields[i] = bufutil.QuoteCSV(c.name)
	}

	return strings.Join(fields, ",")
}

func render(records []*stock.Record, schema []column) string {
	lines := []string{header(schema)}

	for _, r := range records {
		if !r.Exportable() {
			continue
		}

		fields := make([]string, len(schema))
		for i, c := range schema {
			fields[i] = bufutil.QuoteCSV(c.value(r))
		}

		lines = append(lines, strings.Join(fields, ","))
	}

	return strings.Join(lines, "\n")
}
