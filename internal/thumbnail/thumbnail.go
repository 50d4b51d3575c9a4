// Package thumbnail creates aspect-ratio-preserving thumbnails from files,
// streams, in-memory buffers and remote URLs.
//
// Every entry point builds a Source and funnels into Creator.Create, which
// runs the same four steps:
//   - Decode: disintegration/imaging, optionally honouring EXIF orientation
//   - Resolve: Resolver pins the constrained axis to the target size
//   - Resample: golang.org/x/image/draw (Catmull-Rom by default)
//   - Encode: JPEG, PNG, GIF (stdlib) or BMP, TIFF (golang.org/x/image)
//
// Failures are reported with the sentinel errors in errors.go, never as an
// empty result.
package thumbnail

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/thumbnailer/internal/fetch"
)

// Options configures a Creator. The zero value resolves orientation from the
// image, passes through images that are already small enough, resamples with
// Catmull-Rom and has no fetcher, so FromURL fails until one is set.
type Options struct {
	Ratio      Ratio
	OnNoShrink NoShrinkPolicy
	Kernel     Kernel
	AutoOrient bool
	Encode     EncodeOptions

	// Fetcher retrieves URL sources.
	Fetcher fetch.Fetcher

	// MaxSourceBytes caps the encoded source size. Zero means DefaultMaxSourceBytes.
	MaxSourceBytes int64
}

// Creator produces thumbnails. It holds no mutable state and is safe for
// concurrent use.
type Creator struct {
	opts     Options
	resolver Resolver
}

// New returns a Creator configured by opts.
func New(opts Options) *Creator {
	return &Creator{
		opts:     opts,
		resolver: Resolver{Ratio: opts.Ratio, OnNoShrink: opts.OnNoShrink},
	}
}

// Options returns the options this Creator was built with.
func (c *Creator) Options() Options {
	return c.opts
}

// Resolver returns the dimension resolver this Creator applies.
func (c *Creator) Resolver() Resolver {
	return c.resolver
}

// Result is an encoded thumbnail.
type Result struct {
	Data     []byte
	Format   Format
	MIMEType string

	Source      Dimensions
	Output      Dimensions
	Orientation Orientation
	// PassThrough is set when no shrink was needed and the source pixels were
	// re-encoded unchanged.
	PassThrough bool

	SourceMIME string
	SourceSize int
}

// Reader returns the encoded thumbnail as a stream positioned at the start.
func (r *Result) Reader() io.Reader {
	return bytes.NewReader(r.Data)
}

// WriteTo writes the encoded thumbnail to w.
func (r *Result) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(r.Data)
	return int64(n), err
}

// Create reads src, resizes it so its constrained axis equals size and encodes
// the result as format.
func (c *Creator) Create(ctx context.Context, src Source, size int, format Format) (*Result, error) {
	start := time.Now()

	if src == nil {
		return nil, fmt.Errorf("%w: source is nil", ErrInvalidArgument)
	}
	if size <= 0 {
		return nil, fmt.Errorf("%w: thumbnail size must be positive, got %d", ErrInvalidArgument, size)
	}
	if !format.Encodable() {
		return nil, fmt.Errorf("%w: %w: %s", ErrEncode, ErrUnsupportedFormat, format)
	}

	log.Debug().
		Str("source", src.Describe()).
		Int("size", size).
		Str("format", format.String()).
		Str("ratio", c.opts.Ratio.String()).
		Msg("Generating thumbnail")

	rc, err := src.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := readSource(rc, c.opts.MaxSourceBytes)
	if err != nil {
		return nil, err
	}

	dec, err := decodeImage(data, c.opts.AutoOrient)
	if err != nil {
		return nil, err
	}

	bounds := dec.img.Bounds()
	srcDims := Dimensions{Width: bounds.Dx(), Height: bounds.Dy()}

	outcome, err := c.resolver.Resolve(srcDims, size)
	if err != nil {
		return nil, err
	}

	img := dec.img
	if !outcome.PassThrough {
		img = Resize(dec.img, outcome.Dimensions, c.opts.Kernel)
	}

	var buf bytes.Buffer
	if err := Encode(&buf, img, format, c.opts.Encode); err != nil {
		return nil, err
	}

	log.Debug().
		Str("source", src.Describe()).
		Str("source_mime", dec.mimeType).
		Int("orig_width", srcDims.Width).
		Int("orig_height", srcDims.Height).
		Int("new_width", outcome.Dimensions.Width).
		Int("new_height", outcome.Dimensions.Height).
		Bool("pass_through", outcome.PassThrough).
		Int("output_size", buf.Len()).
		Dur("duration", time.Since(start)).
		Msg("Thumbnail generated")

	return &Result{
		Data:        buf.Bytes(),
		Format:      format,
		MIMEType:    format.MIMEType(),
		Source:      srcDims,
		Output:      outcome.Dimensions,
		Orientation: outcome.Orientation,
		PassThrough: outcome.PassThrough,
		SourceMIME:  dec.mimeType,
		SourceSize:  dec.size,
	}, nil
}

// FromFile creates a thumbnail from the image at path.
func (c *Creator) FromFile(ctx context.Context, size int, path string, format Format) ([]byte, error) {
	return c.bytes(ctx, FileSource(path), size, format)
}

// FromReader creates a thumbnail from an encoded image stream.
func (c *Creator) FromReader(ctx context.Context, size int, r io.Reader, format Format) ([]byte, error) {
	return c.bytes(ctx, ReaderSource{R: r}, size, format)
}

// FromBytes creates a thumbnail from an encoded image held in memory.
func (c *Creator) FromBytes(ctx context.Context, size int, data []byte, format Format) ([]byte, error) {
	return c.bytes(ctx, BytesSource(data), size, format)
}

// FromURL fetches the image at rawURL through the configured Fetcher and
// creates a thumbnail from it. The fetch honours ctx cancellation.
func (c *Creator) FromURL(ctx context.Context, size int, rawURL string, format Format) ([]byte, error) {
	return c.bytes(ctx, URLSource{URL: rawURL, Fetcher: c.opts.Fetcher}, size, format)
}

func (c *Creator) bytes(ctx context.Context, src Source, size int, format Format) ([]byte, error) {
	res, err := c.Create(ctx, src, size, format)
	if err != nil {
		return nil, err
	}
	return res.Data, nil
}
