// Package bufutil holds the small conversions the embedding and export code
// share: data URIs, CSV field quoting, filename sanitization and UTF-16 text.
package bufutil

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	xunicode "golang.org/x/text/encoding/unicode"
)

// ErrInvalidDataURI is returned when a string is not a base64 data URI.
var ErrInvalidDataURI = errors.New("invalid base64 data URI")

// DataURIPrefix returns the prefix of a base64 data URI for the MIME type,
// e.g. "data:image/jpeg;base64,".
func DataURIPrefix(mime string) string {
	return "data:" + mime + ";base64,"
}

// EncodeDataURI encodes data as a base64 data URI.
func EncodeDataURI(mime string, data []byte) string {
	return DataURIPrefix(mime) + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURI splits a base64 data URI into its MIME type and payload.
func DecodeDataURI(uri string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", nil, fmt.Errorf("missing data: scheme: %w", ErrInvalidDataURI)
	}

	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("missing payload separator: %w", ErrInvalidDataURI)
	}

	mime, ok := strings.CutSuffix(header, ";base64")
	if !ok {
		return "", nil, fmt.Errorf("payload is not base64: %w", ErrInvalidDataURI)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("failed to decode base64 payload: %w", err)
	}

	return mime, data, nil
}

// EscapeCSV doubles every double quote in s.  Since every field is always
// wrapped in quotes, nothing else needs escaping.
func EscapeCSV(s string) string {
	return strings.ReplaceAll(s, `"`, `""`)
}

// QuoteCSV escapes s and wraps it in double quotes.
func QuoteCSV(s string) string {
	return `"` + EscapeCSV(s) + `"`
}

const maxFilenameRunes = 100

var illegalFilenameChars = strings.NewReplacer(
	"<", "", ">", "", ":", "", `"`, "", "/", "", `\`, "", "|", "", "?", "", "*", "",
)

// SanitizeFilename removes characters that are illegal in filenames on common
// filesystems, collapses runs of whitespace and caps the length.  It returns
// "untitled" when nothing usable is left.
func SanitizeFilename(s string) string {
	s = illegalFilenameChars.Replace(s)

	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}

		return r
	}, s)

	s = strings.Join(strings.Fields(s), " ")

	if utf8.RuneCountInString(s) > maxFilenameRunes {
		s = strings.TrimSpace(string([]rune(s)[:maxFilenameRunes]))
	}

	s = strings.Trim(s, ". ")
	if s == "" {
		return "untitled"
	}

	return s
}

// EncodeUTF16LE encodes s as UTF-16 little endian followed by a two byte null
// terminator, the encoding Windows uses for its XP* EXIF tags.
func EncodeUTF16LE(s string) []byte {
	encoder := xunicode.UTF16(xunicode.LittleEndian, xunicode.IgnoreBOM).NewEncoder()

	encoded, err := encoder.Bytes([]byte(strings.ToValidUTF8(s, "�")))
	if err != nil {
		// The input is valid UTF-8 at this point, so the encoder cannot fail.
		encoded = nil
	}

	return append(encoded, 0x00, 0x00)
}
