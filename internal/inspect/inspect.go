// Package inspect reads back the metadata stocktag writes, so embedded files
// can be checked before they are uploaded.
package inspect

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"

	iptc "github.com/dsoprea/go-iptc"
	photoshopinfo "github.com/dsoprea/go-photoshop-info-format"
	pis "github.com/dsoprea/go-png-image-structure/v2"
	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"

	"github.com/SethCurry/stocktag/internal/splice"
	"github.com/SethCurry/stocktag/pkg/stock"
)

// iptcResourceID is the Photoshop image resource holding IPTC-IIM data.
const iptcResourceID = 0x0404

// pngXMPKeyword is the iTXt keyword XMP packets are stored under in PNGs.
const pngXMPKeyword = "XML:com.adobe.xmp"

// Field is a single named metadata value.
type Field struct {
	Name  string
	Value string
}

// Report is the metadata found in one file.
type Report struct {
	Name     string
	MIMEType string

	// Exif fields sorted by name.
	Exif []Field

	// XMP is the raw packet, empty when the file has none.
	XMP string

	// IPTC values keyed by "record:dataset", e.g. "2:25" for keywords.
	IPTC map[string][]string
}

type exifWalker struct {
	fields *[]Field
}

func (w exifWalker) Walk(name exif.FieldName, tag *tiff.Tag) error {
	val := tag.String()
	if len(val) >= 2 && val[0] == '"' && val[len(val)-1] == '"' {
		val = val[1 : len(val)-1]
	}

	*w.fields = append(*w.fields, Field{Name: string(name), Value: val})

	return nil
}

// File inspects a file's bytes.  The name is only used to help detect the
// MIME type.  Files of other types produce a report with only the type set.
func File(name string, data []byte) (*Report, error) {
	report := &Report{
		Name:     name,
		MIMEType: stock.DetectMIMEType(name, data),
	}

	var err error

	switch report.MIMEType {
	case "image/jpeg":
		err = report.readJPEG(data)
	case "image/png":
		err = report.readPNG(data)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to inspect %s: %w", name, err)
	}

	return report, nil
}

func (r *Report) readJPEG(data []byte) error {
	r.Exif = decodeExif(data)

	packet, ok, err := splice.ExtractXMP(data)
	if err != nil {
		return err
	}

	if ok {
		r.XMP = packet
	}

	resources, ok, err := splice.ExtractIPTC(data)
	if err != nil {
		return err
	}

	if !ok {
		return nil
	}

	r.IPTC, err = decodeIPTC(resources)

	return err
}

func (r *Report) readPNG(data []byte) error {
	parsed, err := pis.NewPngMediaParser().ParseBytes(data)
	if err != nil {
		return fmt.Errorf("failed to parse PNG: %w", err)
	}

	cs, ok := parsed.(*pis.ChunkSlice)
	if !ok {
		return fmt.Errorf("failed to convert parsed png to ChunkSlice: unexpected type %T", parsed)
	}

	for _, chunk := range cs.Chunks() {
		switch chunk.Type {
		case "eXIf":
			r.Exif = decodeExif(chunk.Data)
		case "iTXt":
			if packet, ok := pngXMP(chunk.Data); ok {
				r.XMP = packet
			}
		}
	}

	return nil
}

// decodeExif returns nil when the data carries no readable Exif.
func decodeExif(data []byte) []Field {
	x, err := exif.Decode(bytes.NewReader(data))
	if x == nil || (err != nil && exif.IsCriticalError(err)) {
		return nil
	}

	var fields []Field

	_ = x.Walk(exifWalker{fields: &fields})

	sort.Slice(fields, func(i, j int) bool {
		return fields[i].Name < fields[j].Name
	})

	return fields
}

func decodeIPTC(resources []byte) (map[string][]string, error) {
	info, err := photoshopinfo.ReadPhotoshop30Info(bytes.NewReader(resources))
	if err != nil {
		return nil, fmt.Errorf("failed to read image resources: %w", err)
	}

	record, found := info[iptcResourceID]
	if !found {
		return nil, nil
	}

	tags, err := iptc.ParseStream(bytes.NewReader(record.Data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse IPTC: %w", err)
	}

	values := make(map[string][]string, len(tags))

	for key, entries := range tags {
		name := fmt.Sprintf("%d:%d", key.RecordNumber, key.DatasetNumber)

		for _, entry := range entries {
			values[name] = append(values[name], string(entry))
		}
	}

	return values, nil
}

// pngXMP unpacks an uncompressed iTXt chunk holding an XMP packet.  The
// chunk is keyword, NUL, compression flag, method, language tag, NUL,
// translated keyword, NUL, then the text.
func pngXMP(data []byte) (string, bool) {
	keyword, rest, ok := bytes.Cut(data, []byte{0})
	if !ok || string(keyword) != pngXMPKeyword || len(rest) < 2 || rest[0] != 0 {
		return "", false
	}

	_, rest, ok = bytes.Cut(rest[2:], []byte{0})
	if !ok {
		return "", false
	}

	_, text, ok := bytes.Cut(rest, []byte{0})
	if !ok {
		return "", false
	}

	return string(text), true
}

// Keywords returns the IPTC keywords, in file order.
func (r *Report) Keywords() []string {
	return r.IPTC["2:25"]
}

// Write prints the report in a human readable form.
func (r *Report) Write(w io.Writer) error {
	var b strings.Builder

	fmt.Fprintf(&b, "%s (%s)\n", r.Name, r.MIMEType)

	if len(r.Exif) > 0 {
		b.WriteString("  Exif:\n")

		for _, f := range r.Exif {
			fmt.Fprintf(&b, "    %s: %s\n", f.Name, f.Value)
		}
	}

	if len(r.IPTC) > 0 {
		b.WriteString("  IPTC:\n")

		keys := make([]string, 0, len(r.IPTC))
		for k := range r.IPTC {
			keys = append(keys, k)
		}

		sort.Strings(keys)

		for _, k := range keys {
			fmt.Fprintf(&b, "    %s: %s\n", k, strings.Join(r.IPTC[k], "; "))
		}
	}

	if r.XMP != "" {
		fmt.Fprintf(&b, "  XMP: %d bytes\n", len(r.XMP))
	}

	if len(r.Exif) == 0 && len(r.IPTC) == 0 && r.XMP == "" {
		b.WriteString("  no metadata\n")
	}

	_, err := io.WriteString(w, b.String())

	return err
}
