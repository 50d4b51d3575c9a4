package thumbnail

import (
	"errors"

	"github.com/fpang/thumbnailer/internal/fetch"
)

// Sentinel errors returned by the thumbnail pipeline. Callers branch on cause
// with errors.Is. Validation, decode, resolve, fetch and encode failures wrap
// one of the category errors; ErrUnsupportedFormat is always wrapped together
// with ErrEncode or ErrInvalidArgument. Local I/O failures (stat, open or read
// of a file or stream) wrap only the underlying error.
var (
	// ErrInvalidArgument is returned for missing inputs and non-positive sizes.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound is returned when a file-path source does not exist.
	ErrNotFound = errors.New("source not found")

	// ErrDecode is returned when the source bytes are not a raster image.
	ErrDecode = errors.New("failed to decode image")

	// ErrNoShrinkNeeded is returned under the Reject policy when the target
	// size is not smaller than the source's constrained axis.
	ErrNoShrinkNeeded = errors.New("target size is not smaller than the source")

	// ErrEncode is returned when the resized image cannot be serialized.
	ErrEncode = errors.New("failed to encode thumbnail")

	// ErrUnsupportedFormat is returned for output formats that have no encoder.
	ErrUnsupportedFormat = errors.New("unsupported output format")

	// ErrFetch is returned when a remote source cannot be retrieved.
	ErrFetch = fetch.ErrFetch
)
