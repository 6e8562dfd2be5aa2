package bufutil_test

import (
	"bytes"
	"encoding/csv"
	"errors"
	"strings"
	"testing"

	"github.com/SethCurry/stocktag/internal/bufutil"
)

func TestDataURIRoundTrip(t *testing.T) {
	data := []byte{0xFF, 0xD8, 0x00, 0x01, 0xFF, 0xD9}

	uri := bufutil.EncodeDataURI("image/jpeg", data)
	if !strings.HasPrefix(uri, "data:image/jpeg;base64,") {
		t.Fatalf("unexpected prefix in %q", uri)
	}

	mime, got, err := bufutil.DecodeDataURI(uri)
	if err != nil {
		t.Fatalf("failed to decode: %v", err)
	}

	if mime != "image/jpeg" {
		t.Errorf("got mime %q want image/jpeg", mime)
	}

	if !bytes.Equal(got, data) {
		t.Errorf("got %x want %x", got, data)
	}
}

func TestDecodeDataURIRejectsGarbage(t *testing.T) {
	testCases := []string{
		"image/jpeg;base64,AAAA",
		"data:image/jpeg;base64",
		"data:image/jpeg,AAAA",
	}

	for _, tc := range testCases {
		t.Run(tc, func(t *testing.T) {
			if _, _, err := bufutil.DecodeDataURI(tc); !errors.Is(err, bufutil.ErrInvalidDataURI) {
				t.Errorf("got %v want ErrInvalidDataURI", err)
			}
		})
	}
}

func TestEscapeCSV(t *testing.T) {
	if got := bufutil.EscapeCSV(`a"b`); got != `a""b` {
		t.Errorf("got %s want a\"\"b", got)
	}
}

func TestQuoteCSVSurvivesReparse(t *testing.T) {
	inputs := []string{`a"b`, `say "hi", then leave`, `already ""doubled""`, "line\nbreak", ""}

	for _, in := range inputs {
		// Quoting twice must still parse back to the once-quoted text.
		for _, field := range []string{in, bufutil.EscapeCSV(in)} {
			record, err := csv.NewReader(strings.NewReader(bufutil.QuoteCSV(field))).Read()
			if err != nil {
				t.Fatalf("failed to parse quoted %q: %v", field, err)
			}

			if len(record) != 1 || record[0] != field {
				t.Errorf("got %q want %q", record, field)
			}
		}
	}
}

func TestSanitizeFilename(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"Plain", "Sunset over the sea", "Sunset over the sea"},
		{"Illegal characters", `a<b>c:d"e/f\g|h?i*j`, "abcdefghij"},
		{"Whitespace collapsed", "  a \t b\n c  ", "a b c"},
		{"Only illegal", `<>:"/\|?*`, "untitled"},
		{"Trailing dots", "title...", "title"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := bufutil.SanitizeFilename(tc.input); got != tc.expected {
				t.Errorf("got %q want %q", got, tc.expected)
			}
		})
	}
}

func TestSanitizeFilenameCapsLength(t *testing.T) {
	got := bufutil.SanitizeFilename(strings.Repeat("x", 500))

	if len(got) != 100 {
		t.Errorf("got length %d want 100", len(got))
	}
}

func TestEncodeUTF16LE(t *testing.T) {
	got := bufutil.EncodeUTF16LE("Aé")
	want := []byte{'A', 0x00, 0xE9, 0x00, 0x00, 0x00}

	if !bytes.Equal(got, want) {
		t.Errorf("got %x want %x", got, want)
	}
}
