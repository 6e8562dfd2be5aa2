package exif

import (
	"strings"

	"github.com/SethCurry/stocktag/internal/bufutil"
	"github.com/SethCurry/stocktag/pkg/stock"
)

// IFD0 tag numbers.
const (
	TagDocumentName     = uint16(0x010d)
	TagImageDescription = uint16(0x010e)
	TagDateTime         = uint16(0x0132)
	TagArtist           = uint16(0x013b)
	TagRating           = uint16(0x4746)
	TagCopyright        = uint16(0x8298)
	TagXPTitle          = uint16(0x9c9b)
	TagXPComment        = uint16(0x9c9c)
	TagXPAuthor         = uint16(0x9c9d)
	TagXPKeywords       = uint16(0x9c9e)
	TagXPSubject        = uint16(0x9c9f)

	// TagKeywordsFallback is a private IFD0 tag holding the keywords as one
	// comma-joined ASCII string for readers that skip the XP tags.
	TagKeywordsFallback = uint16(0xfde8)
)

// Exif sub-IFD tag numbers.
const (
	TagUserComment = uint16(0x9286)
)

// IPTC IIM record 2 dataset numbers.
const (
	IptcObjectName          = uint8(5)
	IptcKeywords            = uint8(25)
	IptcSpecialInstructions = uint8(40)
	IptcDateCreated         = uint8(55)
	IptcByLine              = uint8(80)
	IptcHeadline            = uint8(105)
	IptcCopyrightNotice     = uint8(116)
	IptcCaption             = uint8(120)
)

// Undefined is a raw value written with the EXIF UNDEFINED type.
type Undefined []byte

// TagTable maps tag numbers to values for the three places metadata is
// written: IFD0, the Exif sub-IFD and the IPTC record.
//
// Zeroth and Exif values are string (ASCII), []byte (BYTE), []uint16 (SHORT)
// or Undefined.  Every IPTC dataset holds a list so keywords can repeat.
type TagTable struct {
	Zeroth map[uint16]any
	Exif   map[uint16]any
	Iptc   map[uint8][]string
}

var userCommentHeader = []byte("UNICODE\x00")

const (
	exifDateLayout = "2006:01:02 15:04:05"
	iptcDateLayout = "20060102"
)

// BuildTagTable lays the fields out across every tag slot the common
// readers look at.  The same value is written to several slots on purpose;
// Windows, stock marketplaces and IPTC readers each check different ones.
// Absent values are skipped, so this never fails.
func BuildTagTable(f stock.EmbedFields) TagTable {
	table := TagTable{
		Zeroth: map[uint16]any{},
		Exif:   map[uint16]any{},
		Iptc:   map[uint8][]string{},
	}

	table.Zeroth[TagRating] = []uint16{uint16(f.Rating)}
	table.Zeroth[TagDateTime] = f.Time.Format(exifDateLayout)
	table.Iptc[IptcDateCreated] = []string{f.Time.Format(iptcDateLayout)}

	if f.Title != "" {
		table.Zeroth[TagDocumentName] = f.Title
		table.Zeroth[TagImageDescription] = f.Title
		table.Zeroth[TagXPTitle] = bufutil.EncodeUTF16LE(f.Title)
		table.Zeroth[TagXPSubject] = bufutil.EncodeUTF16LE(f.Title)
		table.Zeroth[TagArtist] = f.Title
		table.Zeroth[TagXPComment] = bufutil.EncodeUTF16LE(f.Title)

		table.Iptc[IptcObjectName] = []string{f.Title}
		table.Iptc[IptcHeadline] = []string{f.Title}
		table.Iptc[IptcSpecialInstructions] = []string{f.Title}

		if f.Description == "" {
			table.Iptc[IptcCaption] = []string{f.Title}
		}
	}

	// The description takes ImageDescription and XPSubject over from the title.
	if f.Description != "" {
		table.Zeroth[TagImageDescription] = f.Description
		table.Zeroth[TagXPSubject] = bufutil.EncodeUTF16LE(f.Description)
		table.Iptc[IptcCaption] = []string{f.Description}
	}

	if len(f.Keywords) > 0 {
		table.Zeroth[TagXPKeywords] = bufutil.EncodeUTF16LE(strings.Join(f.Keywords, "; "))
		table.Zeroth[TagKeywordsFallback] = strings.Join(f.Keywords, ",")

		table.Iptc[IptcKeywords] = append([]string(nil), f.Keywords...)
	}

	if comment := userComment(f); comment != "" {
		table.Exif[TagUserComment] = encodeUserComment(comment)
	}

	if f.Author != "" {
		table.Iptc[IptcByLine] = []string{f.Author}
		table.Zeroth[TagXPAuthor] = bufutil.EncodeUTF16LE(f.Author)
	}

	if f.Copyright != "" {
		table.Iptc[IptcCopyrightNotice] = []string{f.Copyright}
		table.Zeroth[TagCopyright] = f.Copyright
	}

	return table
}

func userComment(f stock.EmbedFields) string {
	text := f.Description
	if text == "" {
		text = f.Title
	}

	if len(f.Keywords) == 0 {
		return text
	}

	if text == "" {
		return "Keywords: " + strings.Join(f.Keywords, ", ")
	}

	return text + " - Keywords: " + strings.Join(f.Keywords, ", ")
}

// encodeUserComment writes the UNICODE header followed by each character's
// low byte and a zero high byte.  Characters above U+00FF lose their high
// byte.
func encodeUserComment(s string) Undefined {
	out := make([]byte, 0, len(userCommentHeader)+2*len(s))
	out = append(out, userCommentHeader...)

	for _, r := range s {
		out = append(out, byte(r&0xff), 0x00)
	}

	return Undefined(out)
}
