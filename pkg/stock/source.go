package stock

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentLoads bounds how many files LoadSourceFiles reads at once.
const maxConcurrentLoads = 8

// DetectMIMEType returns the MIME type a file declares through its
// extension, falling back to sniffing the content when the extension is
// unknown.  Parameters such as charset are dropped.
func DetectMIMEType(name string, data []byte) string {
	declared := mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
	if declared == "" {
		declared = mimetype.Detect(data).String()
	}

	media, _, err := mime.ParseMediaType(declared)
	if err != nil {
		return declared
	}

	return media
}

// ReadSourceFile reads a file from disk.
func ReadSourceFile(path string) (SourceFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SourceFile{}, fmt.Errorf("failed to read %q: %w", path, err)
	}

	name := filepath.Base(path)

	return SourceFile{
		Name:     name,
		MIMEType: DetectMIMEType(name, data),
		Data:     data,
	}, nil
}

// LoadSourceFiles reads every path concurrently, returning the files in the
// same order as the paths.  Reading stops at the first error.
func LoadSourceFiles(ctx context.Context, paths []string) ([]SourceFile, error) {
	files := make([]SourceFile, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentLoads)

	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			f, err := ReadSourceFile(path)
			if err != nil {
				return err
			}

			files[i] = f

			return nil
		})
	}

	err := g.Wait()
	if err != nil {
		return nil, err
	}

	return files, nil
}

// NewRecord creates a pending record for a file read from path.
func NewRecord(path string, f SourceFile) *Record {
	return &Record{
		Path:     path,
		Name:     f.Name,
		MIMEType: f.MIMEType,
		Status:   StatusPending,
	}
}

// Source reads the record's file back from disk, keeping the MIME type the
// record was created with.
func (r *Record) Source() (SourceFile, error) {
	data, err := os.ReadFile(r.Path)
	if err != nil {
		return SourceFile{}, fmt.Errorf("failed to read %q: %w", r.Path, err)
	}

	return SourceFile{
		Name:     r.Name,
		MIMEType: r.MIMEType,
		Data:     data,
	}, nil
}
