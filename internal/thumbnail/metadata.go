package thumbnail

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/evanoberholster/imagemeta"
	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"
)

// Metadata holds the EXIF fields worth showing next to a thumbnail.
type Metadata struct {
	Latitude  float64
	Longitude float64
	HasGPS    bool

	DateTaken time.Time
	HasDate   bool

	CameraMake  string
	CameraModel string
}

// Info describes a source image without resizing it.
type Info struct {
	// Dimensions and Orientation are what Create resolves against: after the
	// EXIF orientation tag is applied when AutoOrient is set.
	Dimensions  Dimensions
	Orientation Orientation
	// RawDimensions is the stored pixel extent before any EXIF rotation.
	RawDimensions Dimensions
	MIMEType    string
	Size        int
	// Metadata is nil when the source carries no readable EXIF block.
	Metadata *Metadata
}

// ReadMetadata extracts EXIF metadata from an encoded image.
// Date falls back from DateTimeOriginal to CreateDate to ModifyDate.
func ReadMetadata(data []byte) (*Metadata, error) {
	exifData, err := imagemeta.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode EXIF metadata: %w", err)
	}

	meta := &Metadata{}

	gps := exifData.GPS
	if gps.Latitude() != 0 || gps.Longitude() != 0 {
		meta.Latitude = gps.Latitude()
		meta.Longitude = gps.Longitude()
		meta.HasGPS = true
	}

	switch {
	case !exifData.DateTimeOriginal().IsZero():
		meta.DateTaken = exifData.DateTimeOriginal()
		meta.HasDate = true
	case !exifData.CreateDate().IsZero():
		meta.DateTaken = exifData.CreateDate()
		meta.HasDate = true
	case !exifData.ModifyDate().IsZero():
		meta.DateTaken = exifData.ModifyDate()
		meta.HasDate = true
	}

	meta.CameraMake = strings.TrimSpace(exifData.Make)
	meta.CameraModel = strings.TrimSpace(exifData.Model)

	return meta, nil
}

// Inspect reads a source and reports its dimensions, type and EXIF metadata.
func (c *Creator) Inspect(ctx context.Context, src Source) (*Info, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: source is nil", ErrInvalidArgument)
	}
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := readSource(rc, c.opts.MaxSourceBytes)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrDecode)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	raw := Dimensions{Width: cfg.Width, Height: cfg.Height}
	dims := raw
	if c.opts.AutoOrient {
		dec, err := decodeImage(data, true)
		if err != nil {
			return nil, err
		}
		b := dec.img.Bounds()
		dims = Dimensions{Width: b.Dx(), Height: b.Dy()}
	}

	info := &Info{
		Dimensions:    dims,
		Orientation:   c.resolver.Orientation(dims),
		RawDimensions: raw,
		MIMEType:      mimetype.Detect(data).String(),
		Size:          len(data),
	}

	meta, err := ReadMetadata(data)
	if err != nil {
		log.Debug().Err(err).Str("source", src.Describe()).Msg("No EXIF metadata, continuing without it")
	} else {
		info.Metadata = meta
	}

	return info, nil
}
