package thumbnail

import (
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// Format selects the encoding of the output thumbnail.
type Format int

const (
	FormatJpeg Format = iota
	FormatBmp
	FormatPng
	FormatGif
	FormatTiff
	FormatIcon
	FormatExif
	FormatWmf
	FormatEmf
)

// DefaultJPEGQuality matches the quality used for cached thumbnails.
const DefaultJPEGQuality = 85

type formatInfo struct {
	name     string
	ext      string
	mimeType string
	aliases  []string
	// encodable is false for container formats no Go encoder writes.
	encodable bool
}

var formats = map[Format]formatInfo{
	FormatJpeg: {name: "jpeg", ext: ".jpg", mimeType: "image/jpeg", aliases: []string{"jpg", "jpe"}, encodable: true},
	FormatBmp:  {name: "bmp", ext: ".bmp", mimeType: "image/bmp", encodable: true},
	FormatPng:  {name: "png", ext: ".png", mimeType: "image/png", encodable: true},
	FormatGif:  {name: "gif", ext: ".gif", mimeType: "image/gif", encodable: true},
	FormatTiff: {name: "tiff", ext: ".tiff", mimeType: "image/tiff", aliases: []string{"tif"}, encodable: true},
	FormatIcon: {name: "icon", ext: ".ico", mimeType: "image/x-icon", aliases: []string{"ico"}},
	FormatExif: {name: "exif", ext: ".exif", mimeType: "image/jpeg"},
	FormatWmf:  {name: "wmf", ext: ".wmf", mimeType: "image/wmf"},
	FormatEmf:  {name: "emf", ext: ".emf", mimeType: "image/emf"},
}

// AllFormats lists every format in declaration order.
func AllFormats() []Format {
	return []Format{FormatJpeg, FormatBmp, FormatPng, FormatGif, FormatTiff, FormatIcon, FormatExif, FormatWmf, FormatEmf}
}

func (f Format) String() string {
	if info, ok := formats[f]; ok {
		return info.name
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// Extension returns the conventional file extension including the dot.
func (f Format) Extension() string {
	return formats[f].ext
}

// MIMEType returns the content type of the encoded output.
func (f Format) MIMEType() string {
	return formats[f].mimeType
}

// Encodable reports whether Encode can write this format.
func (f Format) Encodable() bool {
	return formats[f].encodable
}

// ParseFormat parses a format name or alias, case-insensitively.
// A leading dot is ignored so file extensions parse as well.
func ParseFormat(s string) (Format, error) {
	name := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".")
	for _, f := range AllFormats() {
		info := formats[f]
		if name == info.name {
			return f, nil
		}
		for _, alias := range info.aliases {
			if name == alias {
				return f, nil
			}
		}
	}
	return FormatJpeg, fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// EncodeOptions tunes the encoders that take parameters.
type EncodeOptions struct {
	// JPEGQuality ranges 1-100. Zero means DefaultJPEGQuality.
	JPEGQuality int
}

// Encode writes img to w in format f.
func Encode(w io.Writer, img image.Image, f Format, opts EncodeOptions) error {
	var err error
	switch f {
	case FormatJpeg:
		quality := opts.JPEGQuality
		if quality <= 0 {
			quality = DefaultJPEGQuality
		}
		if quality > 100 {
			quality = 100
		}
		err = jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
	case FormatPng:
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		err = enc.Encode(w, img)
	case FormatGif:
		err = gif.Encode(w, img, &gif.Options{NumColors: 256})
	case FormatBmp:
		err = bmp.Encode(w, img)
	case FormatTiff:
		err = tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
	default:
		return fmt.Errorf("%w: %w: %s", ErrEncode, ErrUnsupportedFormat, f)
	}
	if err != nil {
		return fmt.Errorf("%w as %s: %w", ErrEncode, f, err)
	}
	return nil
}
