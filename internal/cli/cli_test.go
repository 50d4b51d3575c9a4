package cli

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fpang/thumbnailer/internal/thumbnail"
)

func TestPromptForSource(t *testing.T) {
	var out bytes.Buffer
	got, err := PromptForSource(strings.NewReader("  photos/cat.jpg \n"), &out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "photos/cat.jpg" {
		t.Errorf("PromptForSource() = %q, want photos/cat.jpg", got)
	}
	if !strings.Contains(out.String(), "Image path or URL") {
		t.Errorf("prompt not written: %q", out.String())
	}

	if _, err := PromptForSource(strings.NewReader("\n"), &out); !errors.Is(err, ErrNoSource) {
		t.Errorf("empty input error = %v, want ErrNoSource", err)
	}
	if _, err := PromptForSource(strings.NewReader(""), &out); !errors.Is(err, ErrNoSource) {
		t.Errorf("EOF error = %v, want ErrNoSource", err)
	}
}

func TestResolveSource(t *testing.T) {
	stdin := strings.NewReader("")

	if _, ok := ResolveSource("-", stdin, nil).(thumbnail.ReaderSource); !ok {
		t.Error(`ResolveSource("-") should read stdin`)
	}
	for _, u := range []string{"https://example.com/a.png", "HTTP://example.com/a.png", "s3://bucket/a.png", "s3://bucket/100%.png"} {
		src, ok := ResolveSource(u, stdin, nil).(thumbnail.URLSource)
		if !ok || src.URL != u {
			t.Errorf("ResolveSource(%q) = %#v, want URLSource", u, src)
		}
	}

	src, ok := ResolveSource("images/a.png", stdin, nil).(thumbnail.FileSource)
	if !ok {
		t.Fatal("ResolveSource(path) should be a FileSource")
	}
	if !filepath.IsAbs(string(src)) {
		t.Errorf("file source %q should be absolute", src)
	}
}

func TestDefaultOutputPath(t *testing.T) {
	tests := []struct {
		arg    string
		format thumbnail.Format
		want   string
	}{
		{filepath.Join("photos", "cat.jpeg"), thumbnail.FormatPng, filepath.Join("photos", "cat_thumb.png")},
		{"-", thumbnail.FormatJpeg, "thumbnail.jpg"},
		{"https://example.com/img/dog.webp?x=1", thumbnail.FormatGif, "dog_thumb.gif"},
		{"https://example.com/", thumbnail.FormatBmp, "thumbnail.bmp"},
		{"s3://media/raw/a?b.jpg", thumbnail.FormatPng, "a?b_thumb.png"},
		{"s3://media/raw/100%.jpg", thumbnail.FormatJpeg, "100%_thumb.jpg"},
	}
	for _, tt := range tests {
		if got := DefaultOutputPath(tt.arg, tt.format); got != tt.want {
			t.Errorf("DefaultOutputPath(%q) = %q, want %q", tt.arg, got, tt.want)
		}
	}
}

func TestFormatBytes(t *testing.T) {
	tests := map[int]string{
		12:              "12 B",
		2048:            "2.0 KB",
		5 * 1024 * 1024: "5.0 MB",
	}
	for n, want := range tests {
		if got := FormatBytes(n); got != want {
			t.Errorf("FormatBytes(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestPrintFormats(t *testing.T) {
	var buf bytes.Buffer
	PrintFormats(&buf)
	out := buf.String()
	for _, want := range []string{"jpeg", "tiff", "emf", "ENCODABLE"} {
		if !strings.Contains(out, want) {
			t.Errorf("PrintFormats output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintInfo(t *testing.T) {
	info := &thumbnail.Info{
		Dimensions:  thumbnail.Dimensions{Width: 4032, Height: 3024},
		Orientation: thumbnail.OrientationLandscape,
		MIMEType:    "image/jpeg",
		Size:        3 * 1024 * 1024,
		Metadata: &thumbnail.Metadata{
			CameraMake:  "Apple",
			CameraModel: "iPhone 15 Pro",
			HasDate:     true,
			DateTaken:   time.Date(2024, 12, 31, 10, 30, 0, 0, time.UTC),
			HasGPS:      true,
			Latitude:    40.7128,
			Longitude:   -74.006,
		},
	}

	var buf bytes.Buffer
	PrintInfo(&buf, "cat.jpg", info)
	out := buf.String()
	for _, want := range []string{"4032x3024", "landscape", "Apple iPhone 15 Pro", "December 31, 2024", "40.712800, -74.006000", "3.0 MB"} {
		if !strings.Contains(out, want) {
			t.Errorf("PrintInfo output missing %q:\n%s", want, out)
		}
	}

	if strings.Contains(out, "Stored:") {
		t.Errorf("PrintInfo without rotation should not print stored dimensions:\n%s", out)
	}

	buf.Reset()
	info.RawDimensions = thumbnail.Dimensions{Width: 3024, Height: 4032}
	PrintInfo(&buf, "cat.jpg", info)
	if !strings.Contains(buf.String(), "Stored:      3024x4032 (before EXIF rotation)") {
		t.Errorf("PrintInfo should show stored dimensions:\n%s", buf.String())
	}

	buf.Reset()
	info.Metadata = nil
	PrintInfo(&buf, "cat.png", info)
	if !strings.Contains(buf.String(), "not available") {
		t.Errorf("PrintInfo without EXIF should say not available:\n%s", buf.String())
	}
}
