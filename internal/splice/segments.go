// Package splice inserts metadata segments into a JPEG byte stream.
//
// It only understands the marker structure in front of the image data: it
// walks the segments between SOI and SOS, and never touches the entropy
// coded data that follows.
package splice

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// JPEG marker bytes, the second byte of each 0xFFxx marker.
const (
	MarkerSOI   = byte(0xd8)
	MarkerEOI   = byte(0xd9)
	MarkerSOS   = byte(0xda)
	MarkerAPP0  = byte(0xe0)
	MarkerAPP1  = byte(0xe1)
	MarkerAPP13 = byte(0xed)
	MarkerTEM   = byte(0x01)
	MarkerRST0  = byte(0xd0)
	MarkerRST7  = byte(0xd7)
)

// maxSegmentPayload is the largest payload that fits the two byte length
// field, which also counts itself.
const maxSegmentPayload = 0xffff - 2

var (
	// ErrNotJPEG is returned when the data does not start with SOI.
	ErrNotJPEG = errors.New("data does not start with a JPEG SOI marker")

	// ErrTruncated is returned when a segment runs past the end of the data.
	ErrTruncated = errors.New("JPEG segment runs past the end of the data")

	// ErrSegmentTooLarge is returned when a payload does not fit in a segment.
	ErrSegmentTooLarge = errors.New("payload does not fit in a single JPEG segment")
)

// Segment is one marker segment found in front of the image data.
type Segment struct {
	Marker byte

	// Offset is the position of the 0xFF byte that starts the marker.
	Offset int

	// Length is the value of the length field: the payload size plus the
	// two length bytes themselves.  It is zero for markers without a payload.
	Length int

	Payload []byte
}

// End returns the offset just past the segment.
func (s Segment) End() int {
	if s.Length == 0 {
		return s.Offset + 2
	}

	return s.Offset + 2 + s.Length
}

func hasSOI(data []byte) bool {
	return len(data) >= 2 && data[0] == 0xff && data[1] == MarkerSOI
}

func standalone(marker byte) bool {
	return marker == MarkerTEM || (marker >= MarkerRST0 && marker <= MarkerRST7)
}

// Segments walks the marker segments that follow SOI, stopping after SOS or
// EOI.  The SOS segment is included so callers can see where the image data
// begins.
func Segments(data []byte) ([]Segment, error) {
	if !hasSOI(data) {
		return nil, ErrNotJPEG
	}

	var segments []Segment

	pos := 2
	for pos < len(data) {
		if data[pos] != 0xff {
			return segments, fmt.Errorf("expected marker at offset %d, found 0x%02x", pos, data[pos])
		}

		// Markers may be preceded by any number of 0xFF fill bytes.
		for pos < len(data) && data[pos] == 0xff {
			pos++
		}

		if pos >= len(data) {
			return segments, ErrTruncated
		}

		marker := data[pos]
		start := pos - 1
		pos++

		if marker == MarkerEOI {
			segments = append(segments, Segment{Marker: marker, Offset: start})
			return segments, nil
		}

		if standalone(marker) {
			segments = append(segments, Segment{Marker: marker, Offset: start})
			continue
		}

		if pos+2 > len(data) {
			return segments, ErrTruncated
		}

		length := int(binary.BigEndian.Uint16(data[pos : pos+2]))
		if length < 2 || start+2+length > len(data) {
			return segments, fmt.Errorf("segment 0x%02x at offset %d: %w", marker, start, ErrTruncated)
		}

		segments = append(segments, Segment{
			Marker:  marker,
			Offset:  start,
			Length:  length,
			Payload: data[pos+2 : start+2+length],
		})

		pos = start + 2 + length

		if marker == MarkerSOS {
			return segments, nil
		}
	}

	return segments, ErrTruncated
}

// InsertPosition returns where new application segments go: right after the
// first APP0 (JFIF) segment when there is one, otherwise right after SOI.
func InsertPosition(data []byte) (int, error) {
	if !hasSOI(data) {
		return 0, ErrNotJPEG
	}

	segments, err := Segments(data)

	for _, s := range segments {
		if s.Marker == MarkerAPP0 {
			return s.End(), nil
		}
	}

	if err != nil {
		return 0, fmt.Errorf("failed to walk JPEG segments: %w", err)
	}

	return 2, nil
}

// BuildSegment builds a marker segment: 0xFF, the marker, the big endian
// length, the null terminated identifier and the payload.
func BuildSegment(marker byte, identifier string, payload []byte) ([]byte, error) {
	size := len(identifier) + 1 + len(payload)
	if size > maxSegmentPayload {
		return nil, fmt.Errorf("%d byte payload for marker 0x%02x: %w", size, marker, ErrSegmentTooLarge)
	}

	seg := make([]byte, 0, 4+size)
	seg = append(seg, 0xff, marker)
	seg = binary.BigEndian.AppendUint16(seg, uint16(size+2))
	seg = append(seg, identifier...)
	seg = append(seg, 0x00)
	seg = append(seg, payload...)

	return seg, nil
}

// Splice returns a new buffer with seg inserted at pos.
func Splice(data []byte, pos int, seg []byte) []byte {
	out := make([]byte, 0, len(data)+len(seg))
	out = append(out, data[:pos]...)
	out = append(out, seg...)
	out = append(out, data[pos:]...)

	return out
}
