package exif

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/dsoprea/go-exif/v3"
	exifcommon "github.com/dsoprea/go-exif/v3/common"
)

const (
	rootIfdPath = "IFD"
	exifIfdPath = "IFD/Exif"

	// exifPointerTag is where the Exif sub-IFD hangs off IFD0.  Tags are
	// added around it so IFD0 stays in ascending tag order.
	exifPointerTag = uint16(0x8769)
)

var byteOrder = binary.BigEndian

// EncodeExif serializes the IFD0 and Exif sections of the table into a TIFF
// structure, ready to be placed after the "Exif\0\0" header of an APP1
// segment.
func EncodeExif(table TagTable) ([]byte, error) {
	im, err := exifcommon.NewIfdMappingWithStandard()
	if err != nil {
		return nil, fmt.Errorf("failed to create new exif mapping: %w", err)
	}

	ti := exif.NewTagIndex()
	rootIb := exif.NewIfdBuilder(im, ti, exifcommon.IfdStandardIfdIdentity, byteOrder)

	zerothIDs := sortedTagIDs(table.Zeroth)
	split := sort.Search(len(zerothIDs), func(i int) bool { return zerothIDs[i] > exifPointerTag })

	err = addTags(rootIb, rootIfdPath, table.Zeroth, zerothIDs[:split])
	if err != nil {
		return nil, fmt.Errorf("failed to build IFD0: %w", err)
	}

	if len(table.Exif) > 0 {
		exifIb, err := exif.GetOrCreateIbFromRootIb(rootIb, exifIfdPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create Exif ib: %w", err)
		}

		err = addTags(exifIb, exifIfdPath, table.Exif, sortedTagIDs(table.Exif))
		if err != nil {
			return nil, fmt.Errorf("failed to build Exif IFD: %w", err)
		}
	}

	err = addTags(rootIb, rootIfdPath, table.Zeroth, zerothIDs[split:])
	if err != nil {
		return nil, fmt.Errorf("failed to build IFD0: %w", err)
	}

	ibe := exif.NewIfdByteEncoder()

	data, err := ibe.EncodeToExif(rootIb)
	if err != nil {
		return nil, fmt.Errorf("failed to encode Exif data: %w", err)
	}

	return data, nil
}

func addTags(ib *exif.IfdBuilder, ifdPath string, values map[uint16]any, ids []uint16) error {
	for _, id := range ids {
		typeID, raw, err := encodeValue(values[id])
		if err != nil {
			return fmt.Errorf("failed to encode tag 0x%04x: %w", id, err)
		}

		bt := exif.NewBuilderTag(ifdPath, id, typeID, exif.NewIfdBuilderTagValueFromBytes(raw), byteOrder)

		err = ib.Add(bt)
		if err != nil {
			return fmt.Errorf("failed to add tag 0x%04x: %w", id, err)
		}
	}

	return nil
}

// encodeValue maps a table value onto its EXIF type and raw bytes.  Values
// are encoded here rather than through the tag index so private tags and
// Windows tags are written the same way as the standard ones.
func encodeValue(value any) (exifcommon.TagTypePrimitive, []byte, error) {
	switch v := value.(type) {
	case string:
		raw := make([]byte, 0, len(v)+1)
		raw = append(raw, bytes.ReplaceAll([]byte(v), []byte{0}, nil)...)
		raw = append(raw, 0)

		return exifcommon.TypeAscii, raw, nil
	case []byte:
		return exifcommon.TypeByte, v, nil
	case Undefined:
		return exifcommon.TypeUndefined, v, nil
	case []uint16:
		raw := make([]byte, 2*len(v))
		for i, n := range v {
			byteOrder.PutUint16(raw[2*i:], n)
		}

		return exifcommon.TypeShort, raw, nil
	}

	return 0, nil, fmt.Errorf("unsupported value type %T", value)
}

func sortedTagIDs(values map[uint16]any) []uint16 {
	ids := make([]uint16, 0, len(values))
	for id := range values {
		ids = append(ids, id)
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return ids
}
