package splice

import (
	"bytes"
	"fmt"

	"github.com/SethCurry/stocktag/internal/bufutil"
)

// Identifiers that open the payload of each metadata segment.
const (
	XMPIdentifier       = "http://ns.adobe.com/xap/1.0/"
	ExifIdentifier      = "Exif\x00"
	PhotoshopIdentifier = "Photoshop 3.0"
)

// XMP inserts an APP1 segment carrying the XMP packet into a JPEG buffer.
// The segment goes right after the APP0 segment, or right after SOI when
// there is no APP0.
func XMP(data []byte, packet string) ([]byte, error) {
	seg, err := BuildSegment(MarkerAPP1, XMPIdentifier, []byte(packet))
	if err != nil {
		return nil, err
	}

	pos, err := InsertPosition(data)
	if err != nil {
		return nil, err
	}

	return Splice(data, pos, seg), nil
}

// Exif inserts an APP1 segment carrying a TIFF structure into a JPEG buffer,
// replacing any Exif segment already present.  It is placed at the same
// position as XMP, so when both are inserted Exif ends up in front and is
// the first APP1 that readers find.
func Exif(data []byte, tiff []byte) ([]byte, error) {
	// The Exif identifier is followed by a second null pad byte.
	seg, err := BuildSegment(MarkerAPP1, ExifIdentifier, tiff)
	if err != nil {
		return nil, err
	}

	stripped, err := remove(data, isExifSegment)
	if err != nil {
		return nil, err
	}

	pos, err := InsertPosition(stripped)
	if err != nil {
		return nil, err
	}

	return Splice(stripped, pos, seg), nil
}

// IPTC inserts an APP13 segment carrying Photoshop image resources into a
// JPEG buffer, replacing any Photoshop segment already present.
func IPTC(data []byte, resources []byte) ([]byte, error) {
	seg, err := BuildSegment(MarkerAPP13, PhotoshopIdentifier, resources)
	if err != nil {
		return nil, err
	}

	stripped, err := remove(data, isPhotoshopSegment)
	if err != nil {
		return nil, err
	}

	pos, err := InsertPosition(stripped)
	if err != nil {
		return nil, err
	}

	return Splice(stripped, pos, seg), nil
}

// InsertXMP is XMP for a base64 data URI.  The returned URI keeps the MIME
// prefix of the input.
func InsertXMP(packet string, dataURI string) (string, error) {
	return withDataURI(dataURI, func(data []byte) ([]byte, error) {
		return XMP(data, packet)
	})
}

// InsertExif is Exif for a base64 data URI.
func InsertExif(tiff []byte, dataURI string) (string, error) {
	return withDataURI(dataURI, func(data []byte) ([]byte, error) {
		return Exif(data, tiff)
	})
}

// InsertIPTC is IPTC for a base64 data URI.
func InsertIPTC(resources []byte, dataURI string) (string, error) {
	return withDataURI(dataURI, func(data []byte) ([]byte, error) {
		return IPTC(data, resources)
	})
}

func withDataURI(dataURI string, fn func([]byte) ([]byte, error)) (string, error) {
	mime, data, err := bufutil.DecodeDataURI(dataURI)
	if err != nil {
		return "", err
	}

	out, err := fn(data)
	if err != nil {
		return "", err
	}

	return bufutil.EncodeDataURI(mime, out), nil
}

// ExtractXMP returns the packet of the first XMP segment, or false when the
// buffer has none.
func ExtractXMP(data []byte) (string, bool, error) {
	payload, ok, err := find(data, MarkerAPP1, XMPIdentifier)
	return string(payload), ok, err
}

// ExtractExif returns the TIFF structure of the first Exif segment.
func ExtractExif(data []byte) ([]byte, bool, error) {
	return find(data, MarkerAPP1, ExifIdentifier)
}

// ExtractIPTC returns the Photoshop image resources of the first APP13
// segment.
func ExtractIPTC(data []byte) ([]byte, bool, error) {
	return find(data, MarkerAPP13, PhotoshopIdentifier)
}

func find(data []byte, marker byte, identifier string) ([]byte, bool, error) {
	segments, err := Segments(data)
	if err != nil && len(segments) == 0 {
		return nil, false, fmt.Errorf("failed to walk JPEG segments: %w", err)
	}

	prefix := append([]byte(identifier), 0x00)

	for _, s := range segments {
		if s.Marker != marker || !bytes.HasPrefix(s.Payload, prefix) {
			continue
		}

		return s.Payload[len(prefix):], true, nil
	}

	return nil, false, nil
}

func isExifSegment(s Segment) bool {
	return s.Marker == MarkerAPP1 && bytes.HasPrefix(s.Payload, []byte("Exif\x00\x00"))
}

func isPhotoshopSegment(s Segment) bool {
	return s.Marker == MarkerAPP13 && bytes.HasPrefix(s.Payload, []byte(PhotoshopIdentifier+"\x00"))
}

// remove drops every segment in front of the image data that matches.
func remove(data []byte, match func(Segment) bool) ([]byte, error) {
	segments, err := Segments(data)
	if err != nil {
		return nil, fmt.Errorf("failed to walk JPEG segments: %w", err)
	}

	out := make([]byte, 0, len(data))
	out = append(out, data[:2]...)

	last := 2
	for _, s := range segments {
		if !match(s) {
			continue
		}

		out = append(out, data[last:s.Offset]...)
		last = s.End()
	}

	return append(out, data[last:]...), nil
}
