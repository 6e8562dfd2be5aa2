package stock

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Status is the processing state of a single file.
type Status string

const (
	StatusPending    = Status("pending")
	StatusProcessing = Status("processing")
	StatusComplete   = Status("complete")
	StatusError      = Status("error")
)

// Record tracks one file through a batch.
type Record struct {
	// Path is where the source file was read from.
	Path     string `json:"path"`
	Name     string `json:"name"`
	MIMEType string `json:"mimeType"`
	Status   Status `json:"status"`

	Result *Result `json:"result,omitempty"`
	Error  string  `json:"error,omitempty"`
}

// IsVideo reports whether the record describes a video file.
func (r *Record) IsVideo() bool {
	return strings.HasPrefix(r.MIMEType, "video/")
}

// Exportable reports whether the record finished successfully and carries a
// result.  Pending and failed records are never exported.
func (r *Record) Exportable() bool {
	return r != nil && r.Status == StatusComplete && r.Result != nil
}

// ReadRecords parses a results file written by WriteRecords.
func ReadRecords(path string) ([]*Record, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open results file %q: %w", path, err)
	}

	defer fd.Close()

	var records []*Record

	err = json.NewDecoder(fd).Decode(&records)
	if err != nil {
		return nil, fmt.Errorf("failed to parse JSON in results file %q: %w", path, err)
	}

	return records, nil
}

// WriteRecords writes the records as indented JSON so they can be reviewed
// and edited by hand before export.
func WriteRecords(path string, records []*Record) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal records: %w", err)
	}

	err = os.WriteFile(path, data, 0o644)
	if err != nil {
		return fmt.Errorf("failed to write results file %q: %w", path, err)
	}

	return nil
}
