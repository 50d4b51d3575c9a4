package thumbnail

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"io"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/webp" // register WebP decoder
)

// DefaultMaxSourceBytes caps how much of a source is read before decoding.
const DefaultMaxSourceBytes int64 = 50 * 1024 * 1024 // 50 MB

// decoded is a source image held in memory for a single thumbnail.
type decoded struct {
	img      image.Image
	mimeType string
	size     int
}

// readSource reads at most limit bytes from r. Sources larger than limit are
// rejected rather than truncated.
func readSource(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		limit = DefaultMaxSourceBytes
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read source: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: source exceeds %d bytes", ErrInvalidArgument, limit)
	}
	return data, nil
}

// decodeImage sniffs and decodes data. When autoOrient is set the EXIF
// orientation tag is applied so the returned image is upright.
func decodeImage(data []byte, autoOrient bool) (*decoded, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrDecode)
	}

	mime := mimetype.Detect(data)
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(autoOrient))
	if err != nil {
		return nil, fmt.Errorf("%w (detected %s): %w", ErrDecode, mime.String(), err)
	}

	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("%w: image has no pixels", ErrDecode)
	}

	return &decoded{img: img, mimeType: mime.String(), size: len(data)}, nil
}
