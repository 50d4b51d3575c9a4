package thumbnail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/fpang/thumbnailer/internal/fetch"
)

// Source is a readable byte source for an encoded image. Open is called once
// per thumbnail and the caller closes the returned reader on every path.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	// Describe names the source for logs and error messages.
	Describe() string
}

// FileSource reads an image from the local filesystem.
type FileSource string

func (s FileSource) Open(ctx context.Context) (io.ReadCloser, error) {
	path := string(s)
	if path == "" {
		return nil, fmt.Errorf("%w: file path is empty", ErrInvalidArgument)
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: path is a directory, not a file: %s", ErrInvalidArgument, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return f, nil
}

func (s FileSource) Describe() string { return "file:" + string(s) }

// ReaderSource wraps a caller-owned stream. Closing the returned reader does
// not close the underlying stream.
type ReaderSource struct {
	R io.Reader
}

func (s ReaderSource) Open(ctx context.Context) (io.ReadCloser, error) {
	if s.R == nil {
		return nil, fmt.Errorf("%w: image stream is nil", ErrInvalidArgument)
	}
	return io.NopCloser(s.R), nil
}

func (s ReaderSource) Describe() string { return "stream" }

// BytesSource wraps an in-memory encoded image. A nil slice is an invalid
// argument; an empty non-nil slice reaches the decoder and fails there.
type BytesSource []byte

func (s BytesSource) Open(ctx context.Context) (io.ReadCloser, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: image bytes are nil", ErrInvalidArgument)
	}
	return io.NopCloser(bytes.NewReader(s)), nil
}

func (s BytesSource) Describe() string { return fmt.Sprintf("bytes:%d", len(s)) }

// URLSource retrieves the image through a Fetcher when opened.
type URLSource struct {
	URL     string
	Fetcher fetch.Fetcher
}

func (s URLSource) Open(ctx context.Context) (io.ReadCloser, error) {
	if s.URL == "" {
		return nil, fmt.Errorf("%w: url is empty", ErrInvalidArgument)
	}
	if s.Fetcher == nil {
		return nil, fmt.Errorf("%w: no fetcher configured for %s", ErrInvalidArgument, s.URL)
	}

	data, err := s.Fetcher.Fetch(ctx, s.URL)
	if err != nil {
		if errors.Is(err, ErrFetch) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrFetch, s.URL, err)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s URLSource) Describe() string { return "url:" + s.URL }
