package embed

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/SethCurry/stocktag/pkg/stock"
)

// BatchReport counts what happened to each record in a batch.
type BatchReport struct {
	// Embedded files carry at least part of their metadata.
	Embedded int

	// NotEmbedded files were written without metadata: JPEGs whose
	// embedding failed and formats that cannot carry metadata.
	NotEmbedded int

	// Failed records could not be written at all.
	Failed int

	// Skipped records were not complete, or had no result.
	Skipped int
}

// Written returns the number of files added to the archive.
func (b BatchReport) Written() int {
	return b.Embedded + b.NotEmbedded
}

// EmbedBatch embeds every exportable record and writes the files into a ZIP
// archive.  A record that fails is counted and the batch moves on; only
// errors writing the archive itself are returned.
func (e *Embedder) EmbedBatch(records []*stock.Record, w io.Writer) (BatchReport, error) {
	var report BatchReport

	archive := zip.NewWriter(w)
	names := uniqueNames{}

	for _, record := range records {
		if !record.Exportable() {
			report.Skipped++
			continue
		}

		out, err := e.embedRecord(record)
		if err != nil {
			e.logger.Error("failed to embed file", zap.String("file", record.Name), zap.Error(err))
			report.Failed++

			continue
		}

		name := names.next(out.Filename)

		fw, err := archive.Create(name)
		if err != nil {
			return report, fmt.Errorf("failed to add %q to archive: %w", name, err)
		}

		_, err = fw.Write(out.Data)
		if err != nil {
			return report, fmt.Errorf("failed to write %q to archive: %w", name, err)
		}

		if out.MetadataEmbedded {
			report.Embedded++
		} else {
			report.NotEmbedded++
		}

		e.logger.Debug("added file to archive",
			zap.String("file", record.Name),
			zap.String("name", name),
			zap.Bool("metadata_embedded", out.MetadataEmbedded))
	}

	err := archive.Close()
	if err != nil {
		return report, fmt.Errorf("failed to finish archive: %w", err)
	}

	return report, nil
}

func (e *Embedder) embedRecord(record *stock.Record) (*EmbeddedFile, error) {
	file, err := record.Source()
	if err != nil {
		return nil, err
	}

	return e.Embed(file, record.Result)
}

// ErrOutputExists is returned when every candidate name in the directory
// is taken.
var ErrOutputExists = errors.New("output file already exists")

// maxNameAttempts bounds the suffixes CreateUnique tries.
const maxNameAttempts = 1000

// CreateUnique creates a new file named name in dir.  An existing file is
// never overwritten; a numeric suffix is added instead.
func CreateUnique(dir, name string) (*os.File, error) {
	names := uniqueNames{}

	for i := 0; i < maxNameAttempts; i++ {
		path := filepath.Join(dir, names.next(name))

		fd, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}

		if err != nil {
			return nil, fmt.Errorf("failed to create output file %q: %w", path, err)
		}

		return fd, nil
	}

	return nil, fmt.Errorf("%s in %q: %w", name, dir, ErrOutputExists)
}

// WriteSingle writes one embedded file into dir and returns its path.
func WriteSingle(dir string, out *EmbeddedFile) (string, error) {
	return WriteUnique(dir, out.Filename, out.Data)
}

// WriteUnique writes data to a new file in dir and returns its path.
func WriteUnique(dir, name string, data []byte) (string, error) {
	fd, err := CreateUnique(dir, name)
	if err != nil {
		return "", err
	}

	_, err = fd.Write(data)
	if err != nil {
		fd.Close()
		return "", fmt.Errorf("failed while writing to output file %q: %w", fd.Name(), err)
	}

	err = fd.Close()
	if err != nil {
		return "", fmt.Errorf("failed to close output file %q: %w", fd.Name(), err)
	}

	return fd.Name(), nil
}
