package exif

import (
	"bytes"
	"encoding/binary"
	"sort"
	"unicode/utf8"
)

const (
	iimTagMarker = 0x1c

	iimEnvelopeRecord    = 1
	iimApplicationRecord = 2

	iimCodedCharacterSet = 90
	iimRecordVersion     = 0

	// Standard datasets use a 15 bit length; longer values need the
	// extended form, which readers handle poorly.
	iimMaxDatasetLength = 0x7fff

	// photoshopIptcResource is the image resource id that carries IPTC-NAA
	// records inside a Photoshop 3.0 APP13 segment.
	photoshopIptcResource = 0x0404
)

// iimMaxLengths holds the IIM limit, in bytes, of each application record
// dataset.  Datasets not listed use iimMaxDatasetLength.
var iimMaxLengths = map[uint8]int{
	IptcObjectName:          64,
	IptcKeywords:            64,
	IptcSpecialInstructions: 256,
	IptcDateCreated:         8,
	IptcByLine:              32,
	IptcHeadline:            256,
	IptcCopyrightNotice:     128,
	IptcCaption:             2000,
}

var (
	// utf8CharacterSet is the ISO 2022 escape sequence that marks the record
	// as UTF-8.
	utf8CharacterSet = []byte{0x1b, 0x25, 0x47}

	photoshopResourceType = []byte("8BIM")
)

// EncodeIPTC serializes the IPTC section of the table as IIM records wrapped
// in a Photoshop image resource block, ready to be placed after the
// "Photoshop 3.0\0" header of an APP13 segment.  Each keyword becomes its
// own repeated dataset.
func EncodeIPTC(table TagTable) []byte {
	var iim bytes.Buffer

	writeDataset(&iim, iimEnvelopeRecord, iimCodedCharacterSet, utf8CharacterSet)
	writeDataset(&iim, iimApplicationRecord, iimRecordVersion, []byte{0x00, 0x04})

	datasets := make([]int, 0, len(table.Iptc))
	for ds := range table.Iptc {
		datasets = append(datasets, int(ds))
	}

	sort.Ints(datasets)

	for _, ds := range datasets {
		for _, value := range table.Iptc[uint8(ds)] {
			value = TruncateUTF8(value, datasetLimit(uint8(ds)))
			writeDataset(&iim, iimApplicationRecord, uint8(ds), []byte(value))
		}
	}

	return imageResourceBlock(photoshopIptcResource, iim.Bytes())
}

func datasetLimit(dataset uint8) int {
	if limit, ok := iimMaxLengths[dataset]; ok {
		return limit
	}

	return iimMaxDatasetLength
}

// TruncateUTF8 shortens s to at most limit bytes without splitting a
// multi-byte character.
func TruncateUTF8(s string, limit int) string {
	if len(s) <= limit {
		return s
	}

	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}

	return s[:cut]
}

func writeDataset(buf *bytes.Buffer, record, dataset uint8, value []byte) {
	buf.WriteByte(iimTagMarker)
	buf.WriteByte(record)
	buf.WriteByte(dataset)
	_ = binary.Write(buf, binary.BigEndian, uint16(len(value)))
	buf.Write(value)
}

// imageResourceBlock builds one "8BIM" resource with an empty name.
func imageResourceBlock(id uint16, data []byte) []byte {
	var buf bytes.Buffer

	buf.Write(photoshopResourceType)
	_ = binary.Write(&buf, binary.BigEndian, id)

	// Empty Pascal string, padded to an even length.
	buf.Write([]byte{0x00, 0x00})

	_ = binary.Write(&buf, binary.BigEndian, uint32(len(data)))
	buf.Write(data)

	if len(data)%2 == 1 {
		buf.WriteByte(0x00)
	}

	return buf.Bytes()
}
