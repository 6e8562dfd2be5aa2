// Package embed writes generated stock metadata into image files.
//
// JPEG files get the full treatment: an XMP packet plus Exif and IPTC
// segments built from the same fields.  Other raster formats cannot carry
// the metadata, so they are normalized and the metadata only shows up in
// the output filename.
package embed

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	jis "github.com/dsoprea/go-jpeg-image-structure/v2"
	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
	_ "golang.org/x/image/webp"

	"github.com/SethCurry/stocktag/internal/bufutil"
	"github.com/SethCurry/stocktag/internal/exif"
	"github.com/SethCurry/stocktag/internal/splice"
	"github.com/SethCurry/stocktag/internal/xmp"
	"github.com/SethCurry/stocktag/pkg/stock"
)

var (
	// ErrNoMetadata is returned when there is no result to embed.
	ErrNoMetadata = errors.New("no metadata to embed")

	// ErrNotImage is returned for files that are not images at all.
	ErrNotImage = errors.New("file is not an image")

	// ErrMislabeledJPEG is the cause recorded when a file declared as JPEG
	// does not sniff as one.
	ErrMislabeledJPEG = errors.New("file is labeled as JPEG but its content is not")
)

const mimeJPEG = "image/jpeg"

// Warning says how far embedding got.  The file is returned either way.
type Warning int

const (
	// WarningNone means every segment was written.
	WarningNone Warning = iota

	// WarningXMPSkipped means the XMP packet could not be written, only Exif
	// and IPTC were.
	WarningXMPSkipped

	// WarningExifSkipped means only the XMP packet was written.
	WarningExifSkipped

	// WarningNotEmbedded means nothing was written and the original bytes
	// are returned.
	WarningNotEmbedded

	// WarningUnsupported means the format cannot carry metadata, so it is
	// conveyed through the filename only.
	WarningUnsupported
)

var warningMessages = map[Warning]string{
	WarningNone:        "",
	WarningXMPSkipped:  "XMP could not be written; Exif and IPTC metadata were embedded",
	WarningExifSkipped: "Exif and IPTC could not be written; XMP metadata was embedded",
	WarningNotEmbedded: "metadata could not be embedded; the original file was kept",
	WarningUnsupported: "this format cannot carry embedded metadata; it is described by the filename instead",
}

// String returns the advisory message for the warning.
func (w Warning) String() string {
	return warningMessages[w]
}

// EmbeddedFile is the output of Embed.
type EmbeddedFile struct {
	Data     []byte
	Filename string
	MIMEType string

	MetadataEmbedded bool
	Warning          Warning

	// Cause holds the first error that made embedding degrade, if any.
	Cause error
}

// Embedder writes metadata into files.  The zero value is not usable, use
// New.
type Embedder struct {
	logger *zap.Logger
	now    func() time.Time
}

// Option configures an Embedder.
type Option func(*Embedder)

// WithLogger sets the logger used to report degraded embedding.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Embedder) {
		e.logger = logger
	}
}

// WithClock sets the clock that stamps dates and the copyright year.
func WithClock(now func() time.Time) Option {
	return func(e *Embedder) {
		e.now = now
	}
}

// New creates an Embedder.
func New(opts ...Option) *Embedder {
	e := &Embedder{
		logger: zap.NewNop(),
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Embed writes the result into the file.  It only returns an error when
// there is nothing to do: no result, or a file that is not an image.  Every
// problem while writing segments degrades the output instead, and is
// reported through the returned Warning.
func (e *Embedder) Embed(file stock.SourceFile, result *stock.Result) (*EmbeddedFile, error) {
	if result == nil {
		return nil, ErrNoMetadata
	}

	if file.MIMEType == mimeJPEG {
		return e.embedJPEG(file, result), nil
	}

	if !file.IsImage() {
		return nil, fmt.Errorf("%s has type %q: %w", file.Name, file.MIMEType, ErrNotImage)
	}

	return e.reencode(file, result)
}

func (e *Embedder) embedJPEG(file stock.SourceFile, result *stock.Result) *EmbeddedFile {
	logger := e.logger.With(zap.String("file", file.Name))

	original := &EmbeddedFile{
		Data:     file.Data,
		Filename: NoMetadataFilename(result),
		MIMEType: mimeJPEG,
		Warning:  WarningNotEmbedded,
	}

	uri := bufutil.EncodeDataURI(mimetype.Detect(file.Data).String(), file.Data)
	if !strings.HasPrefix(uri, bufutil.DataURIPrefix(mimeJPEG)) {
		logger.Warn("refusing to embed into mislabeled file", zap.Error(ErrMislabeledJPEG))
		original.Cause = ErrMislabeledJPEG

		return original
	}

	fields := stock.NewEmbedFields(result, e.now())

	withXMP, xmpErr := e.stage(uri, func(data []byte) ([]byte, error) {
		return splice.XMP(data, xmp.Build(fields))
	})
	if xmpErr != nil {
		logger.Warn("failed to embed XMP, falling back to Exif only", zap.Error(xmpErr))
	} else {
		uri = withXMP
	}

	withTags, tagErr := e.stage(uri, func(data []byte) ([]byte, error) {
		return insertTags(data, exif.BuildTagTable(fields))
	})
	if tagErr != nil {
		logger.Warn("failed to embed Exif and IPTC", zap.Error(tagErr))
	} else {
		uri = withTags
	}

	if xmpErr != nil && tagErr != nil {
		original.Cause = xmpErr
		return original
	}

	_, data, err := bufutil.DecodeDataURI(uri)
	if err != nil {
		original.Cause = err
		return original
	}

	out := &EmbeddedFile{
		Data:             data,
		Filename:         StockReadyFilename(result),
		MIMEType:         mimeJPEG,
		MetadataEmbedded: true,
		Warning:          WarningNone,
	}

	switch {
	case xmpErr != nil:
		out.Warning = WarningXMPSkipped
		out.Cause = xmpErr
	case tagErr != nil:
		out.Warning = WarningExifSkipped
		out.Cause = tagErr
	}

	return out
}

// stage applies one insertion to the data URI.  The output must still parse
// as a JPEG, otherwise the stage is discarded.
func (e *Embedder) stage(uri string, insert func([]byte) ([]byte, error)) (string, error) {
	mime, data, err := bufutil.DecodeDataURI(uri)
	if err != nil {
		return "", err
	}

	out, err := insert(data)
	if err != nil {
		return "", err
	}

	_, err = jis.NewJpegMediaParser().ParseBytes(out)
	if err != nil {
		return "", fmt.Errorf("failed to parse JPEG after inserting metadata: %w", err)
	}

	return bufutil.EncodeDataURI(mime, out), nil
}

// insertTags writes the IPTC resources and then the Exif structure, so the
// Exif APP1 segment ends up in front of the APP13 one.
func insertTags(data []byte, table exif.TagTable) ([]byte, error) {
	tiff, err := exif.EncodeExif(table)
	if err != nil {
		return nil, err
	}

	data, err = splice.IPTC(data, exif.EncodeIPTC(table))
	if err != nil {
		return nil, fmt.Errorf("failed to insert IPTC: %w", err)
	}

	data, err = splice.Exif(data, tiff)
	if err != nil {
		return nil, fmt.Errorf("failed to insert Exif: %w", err)
	}

	return data, nil
}

// reencode normalizes a non-JPEG image by decoding and re-encoding it in its
// own format.  WebP has no encoder, so it is passed through as is.
func (e *Embedder) reencode(file stock.SourceFile, result *stock.Result) (*EmbeddedFile, error) {
	out := &EmbeddedFile{
		Data:     file.Data,
		Filename: DescriptiveFilename(result, file.Name),
		MIMEType: file.MIMEType,
		Warning:  WarningUnsupported,
	}

	format, err := imaging.FormatFromFilename(file.Name)
	if err != nil {
		e.logger.Debug("passing file through unchanged", zap.String("file", file.Name), zap.Error(err))
		return out, nil
	}

	img, err := imaging.Decode(bytes.NewReader(file.Data))
	if err != nil {
		e.logger.Warn("failed to decode image, passing it through", zap.String("file", file.Name), zap.Error(err))
		out.Cause = err

		return out, nil
	}

	var buf bytes.Buffer

	err = imaging.Encode(&buf, img, format)
	if err != nil {
		e.logger.Warn("failed to re-encode image, passing it through", zap.String("file", file.Name), zap.Error(err))
		out.Cause = err

		return out, nil
	}

	out.Data = buf.Bytes()

	return out, nil
}
