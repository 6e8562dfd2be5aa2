package exif_test

import (
	"bytes"
	"strings"
	"testing"
	"unicode/utf8"

	goexif "github.com/dsoprea/go-exif/v3"
	exifcommon "github.com/dsoprea/go-exif/v3/common"
	"github.com/dsoprea/go-iptc"
	photoshopinfo "github.com/dsoprea/go-photoshop-info-format"
	rwexif "github.com/rwcarlsen/goexif/exif"

	"github.com/SethCurry/stocktag/internal/exif"
	"github.com/SethCurry/stocktag/pkg/stock"
)

func encodedSample(t *testing.T) []byte {
	t.Helper()

	table := exif.BuildTagTable(fieldsFor(&stock.Result{
		Title:       "Red fox",
		Description: "A red fox crossing a snowy field",
		Keywords:    []string{"fox", "snow", "winter"},
	}))

	data, err := exif.EncodeExif(table)
	if err != nil {
		t.Fatalf("failed to encode: %v", err)
	}

	return data
}

func TestEncodeExifReadableByGoExif(t *testing.T) {
	data := encodedSample(t)

	im, err := exifcommon.NewIfdMappingWithStandard()
	if err != nil {
		t.Fatalf("failed to create mapping: %v", err)
	}

	_, index, err := goexif.Collect(im, goexif.NewTagIndex(), data)
	if err != nil {
		t.Fatalf("failed to collect: %v", err)
	}

	testCases := []struct {
		tag      uint16
		expected string
	}{
		{exif.TagImageDescription, "A red fox crossing a snowy field"},
		{exif.TagDocumentName, "Red fox"},
		{exif.TagArtist, "Red fox"},
	}

	for _, tc := range testCases {
		results, err := index.RootIfd.FindTagWithId(tc.tag)
		if err != nil || len(results) == 0 {
			t.Errorf("tag 0x%04x not found: %v", tc.tag, err)
			continue
		}

		value, err := results[0].Value()
		if err != nil {
			t.Errorf("tag 0x%04x has no value: %v", tc.tag, err)
			continue
		}

		if value != tc.expected {
			t.Errorf("tag 0x%04x: got %v want %s", tc.tag, value, tc.expected)
		}
	}
}

func TestEncodeExifReadableByRwcarlsen(t *testing.T) {
	x, err := rwexif.Decode(bytes.NewReader(encodedSample(t)))
	if err != nil {
		t.Fatalf("failed to decode: %v", err)
	}

	tag, err := x.Get(rwexif.Artist)
	if err != nil {
		t.Fatalf("Artist missing: %v", err)
	}

	if got, _ := tag.StringVal(); got != "Red fox" {
		t.Errorf("Artist: got %q", got)
	}

	dt, err := x.DateTime()
	if err != nil {
		t.Fatalf("DateTime missing: %v", err)
	}

	if dt.Year() != 2026 || dt.Month() != 10 || dt.Day() != 16 {
		t.Errorf("DateTime: got %v", dt)
	}
}

func TestEncodeExifCarriesRating(t *testing.T) {
	// Big endian IFD entry: tag 0x4746, SHORT, count 1, value 5.
	entry := []byte{0x47, 0x46, 0x00, 0x03, 0x00, 0x00, 0x00, 0x01, 0x00, 0x05}

	if !bytes.Contains(encodedSample(t), entry) {
		t.Error("encoded Exif has no Rating=5 entry")
	}
}

func TestEncodeIPTCRepeatsKeywords(t *testing.T) {
	table := exif.BuildTagTable(fieldsFor(&stock.Result{
		Title:    "Red fox",
		Keywords: []string{"fox", "snow", "winter"},
	}))

	resources, err := photoshopinfo.ReadPhotoshop30Info(bytes.NewReader(exif.EncodeIPTC(table)))
	if err != nil {
		t.Fatalf("failed to read image resources: %v", err)
	}

	record, ok := resources[0x0404]
	if !ok {
		t.Fatal("no IPTC resource")
	}

	tags, err := iptc.ParseStream(bytes.NewReader(record.Data))
	if err != nil {
		t.Fatalf("failed to parse IPTC stream: %v", err)
	}

	keywords := tags[iptc.StreamTagKey{RecordNumber: 2, DatasetNumber: exif.IptcKeywords}]
	if len(keywords) != 3 {
		t.Fatalf("got %d keyword datasets want 3", len(keywords))
	}

	for i, want := range []string{"fox", "snow", "winter"} {
		if got := string(keywords[i]); got != want {
			t.Errorf("keyword %d: got %q want %q", i, got, want)
		}
	}

	headline := tags[iptc.StreamTagKey{RecordNumber: 2, DatasetNumber: exif.IptcHeadline}]
	if len(headline) != 1 || string(headline[0]) != "Red fox" {
		t.Errorf("Headline: got %q", headline)
	}
}

func TestEncodeIPTCLimitsDatasetLength(t *testing.T) {
	// "ü" is two bytes, so an odd byte limit lands inside a character.
	keyword := strings.Repeat("ü", 40)
	caption := strings.Repeat("日", 700)

	table := exif.BuildTagTable(fieldsFor(&stock.Result{
		Title:       strings.Repeat("é", 40),
		Description: caption,
		Keywords:    []string{keyword, "fox"},
	}))

	resources, err := photoshopinfo.ReadPhotoshop30Info(bytes.NewReader(exif.EncodeIPTC(table)))
	if err != nil {
		t.Fatalf("failed to read image resources: %v", err)
	}

	tags, err := iptc.ParseStream(bytes.NewReader(resources[0x0404].Data))
	if err != nil {
		t.Fatalf("failed to parse IPTC stream: %v", err)
	}

	testCases := []struct {
		name    string
		dataset uint8
		limit   int
		prefix  string
	}{
		{"Keywords", exif.IptcKeywords, 64, "ü"},
		{"ObjectName", exif.IptcObjectName, 64, "é"},
		{"Caption", exif.IptcCaption, 2000, "日"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			values := tags[iptc.StreamTagKey{RecordNumber: 2, DatasetNumber: tc.dataset}]
			if len(values) == 0 {
				t.Fatal("dataset missing")
			}

			got := string(values[0])
			if len(got) > tc.limit {
				t.Errorf("got %d bytes want at most %d", len(got), tc.limit)
			}

			if !utf8.ValidString(got) {
				t.Errorf("value was cut inside a character: %q", got)
			}

			if got == "" || !strings.HasPrefix(got, tc.prefix) {
				t.Errorf("got %q", got)
			}
		})
	}

	keywords := tags[iptc.StreamTagKey{RecordNumber: 2, DatasetNumber: exif.IptcKeywords}]
	if len(keywords) != 2 || string(keywords[1]) != "fox" {
		t.Errorf("short keywords must be untouched: %q", keywords)
	}
}

func TestTruncateUTF8(t *testing.T) {
	testCases := []struct {
		input    string
		limit    int
		expected string
	}{
		{"fox", 64, "fox"},
		{"fox", 2, "fo"},
		{"aü", 2, "a"},
		{"aü", 3, "aü"},
		{"日本", 4, "日"},
		{"日本", 2, ""},
	}

	for _, tc := range testCases {
		if got := exif.TruncateUTF8(tc.input, tc.limit); got != tc.expected {
			t.Errorf("TruncateUTF8(%q, %d): got %q want %q", tc.input, tc.limit, got, tc.expected)
		}
	}
}
