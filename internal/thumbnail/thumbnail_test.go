package thumbnail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"
)

// newTestImage returns a gradient so resampling has something to interpolate.
func newTestImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 255 / w), G: uint8(y * 255 / h), B: 128, A: 255})
		}
	}
	return img
}

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, newTestImage(w, h)); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

func decodedDimensions(t *testing.T, data []byte) (Dimensions, string) {
	t.Helper()
	cfg, name, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("image.DecodeConfig: %v", err)
	}
	return Dimensions{cfg.Width, cfg.Height}, name
}

func TestCreateScenarios(t *testing.T) {
	tests := []struct {
		name string
		w, h int
		size int
		want Dimensions
	}{
		{"landscape", 1920, 1080, 480, Dimensions{480, 270}},
		{"portrait", 480, 1920, 240, Dimensions{60, 240}},
		{"square", 300, 300, 120, Dimensions{120, 120}},
	}

	c := New(Options{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := c.Create(context.Background(), BytesSource(encodePNG(t, tt.w, tt.h)), tt.size, FormatPng)
			if err != nil {
				t.Fatalf("Create error: %v", err)
			}
			if res.Output != tt.want {
				t.Errorf("Output = %s, want %s", res.Output, tt.want)
			}
			if res.Source != (Dimensions{tt.w, tt.h}) {
				t.Errorf("Source = %s, want %dx%d", res.Source, tt.w, tt.h)
			}
			if res.SourceMIME != "image/png" {
				t.Errorf("SourceMIME = %q, want image/png", res.SourceMIME)
			}
			got, _ := decodedDimensions(t, res.Data)
			if got != tt.want {
				t.Errorf("decoded thumbnail = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestCreateRoundTripFormats(t *testing.T) {
	src := encodePNG(t, 200, 100)
	want := Dimensions{50, 25}
	wantNames := map[Format]string{
		FormatJpeg: "jpeg",
		FormatPng:  "png",
		FormatGif:  "gif",
		FormatBmp:  "bmp",
		FormatTiff: "tiff",
	}

	c := New(Options{})
	for format, wantName := range wantNames {
		t.Run(format.String(), func(t *testing.T) {
			res, err := c.Create(context.Background(), BytesSource(src), 50, format)
			if err != nil {
				t.Fatalf("Create(%s) error: %v", format, err)
			}
			if res.MIMEType != format.MIMEType() {
				t.Errorf("MIMEType = %q, want %q", res.MIMEType, format.MIMEType())
			}
			got, name := decodedDimensions(t, res.Data)
			if got != want {
				t.Errorf("decoded %s = %s, want %s", format, got, want)
			}
			if name != wantName {
				t.Errorf("decoded format = %q, want %q", name, wantName)
			}
		})
	}
}

func TestCreatePassThrough(t *testing.T) {
	src := encodePNG(t, 500, 500)

	res, err := New(Options{}).Create(context.Background(), BytesSource(src), 500, FormatJpeg)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if !res.PassThrough {
		t.Error("PassThrough = false, want true")
	}
	got, name := decodedDimensions(t, res.Data)
	if got != (Dimensions{500, 500}) || name != "jpeg" {
		t.Errorf("decoded = %s %s, want 500x500 jpeg", got, name)
	}

	_, err = New(Options{OnNoShrink: Reject}).Create(context.Background(), BytesSource(src), 500, FormatJpeg)
	if !errors.Is(err, ErrNoShrinkNeeded) {
		t.Errorf("Reject policy error = %v, want ErrNoShrinkNeeded", err)
	}
}

func TestCreateRatioOverride(t *testing.T) {
	res, err := New(Options{Ratio: RatioPortrait}).Create(context.Background(), BytesSource(encodePNG(t, 400, 200)), 100, FormatPng)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if res.Output != (Dimensions{200, 100}) {
		t.Errorf("Output = %s, want 200x100", res.Output)
	}
	if res.Orientation != OrientationPortrait {
		t.Errorf("Orientation = %s, want portrait", res.Orientation)
	}
}

func TestFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "photo.png")
	if err := os.WriteFile(path, encodePNG(t, 300, 150), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	c := New(Options{})
	data, err := c.FromFile(context.Background(), 100, path, FormatPng)
	if err != nil {
		t.Fatalf("FromFile error: %v", err)
	}
	if got, _ := decodedDimensions(t, data); got != (Dimensions{100, 50}) {
		t.Errorf("decoded = %s, want 100x50", got)
	}

	_, err = c.FromFile(context.Background(), 100, filepath.Join(dir, "missing.png"), FormatPng)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("missing file error = %v, want ErrNotFound", err)
	}

	_, err = c.FromFile(context.Background(), 100, "", FormatPng)
	if !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("empty path error = %v, want ErrInvalidArgument", err)
	}

	_, err = c.FromFile(context.Background(), 100, dir, FormatPng)
	if !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("directory error = %v, want ErrInvalidArgument", err)
	}
}

func TestFromReader(t *testing.T) {
	c := New(Options{})
	data, err := c.FromReader(context.Background(), 64, bytes.NewReader(encodePNG(t, 128, 256)), FormatGif)
	if err != nil {
		t.Fatalf("FromReader error: %v", err)
	}
	if got, _ := decodedDimensions(t, data); got != (Dimensions{32, 64}) {
		t.Errorf("decoded = %s, want 32x64", got)
	}

	_, err = c.FromReader(context.Background(), 64, nil, FormatGif)
	if !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("nil reader error = %v, want ErrInvalidArgument", err)
	}
}

func TestFromReaderReadFailure(t *testing.T) {
	readErr := errors.New("disk went away")
	_, err := New(Options{}).FromReader(context.Background(), 64, iotest.ErrReader(readErr), FormatPng)
	if !errors.Is(err, readErr) {
		t.Fatalf("error = %v, want wrapped %v", err, readErr)
	}
	for _, sentinel := range []error{ErrInvalidArgument, ErrNotFound, ErrDecode, ErrNoShrinkNeeded, ErrFetch, ErrEncode} {
		if errors.Is(err, sentinel) {
			t.Errorf("read failure %v should not wrap %v", err, sentinel)
		}
	}
}

func TestFromBytesErrors(t *testing.T) {
	c := New(Options{})
	ctx := context.Background()

	tests := []struct {
		name    string
		data    []byte
		size    int
		format  Format
		wantErr error
	}{
		{"empty buffer", []byte{}, 100, FormatPng, ErrDecode},
		{"nil buffer", nil, 100, FormatPng, ErrInvalidArgument},
		{"not an image", []byte("definitely not a picture"), 100, FormatPng, ErrDecode},
		{"zero size", encodePNG(t, 10, 10), 0, FormatPng, ErrInvalidArgument},
		{"unsupported format", encodePNG(t, 10, 10), 5, FormatIcon, ErrUnsupportedFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := c.FromBytes(ctx, tt.size, tt.data, tt.format)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			if data != nil {
				t.Errorf("data = %d bytes, want nil on failure", len(data))
			}
		})
	}
}

func TestUnsupportedFormatIsEncodeFailure(t *testing.T) {
	for _, f := range []Format{FormatIcon, FormatExif, FormatWmf, FormatEmf} {
		_, err := New(Options{}).FromBytes(context.Background(), 5, encodePNG(t, 10, 10), f)
		if !errors.Is(err, ErrEncode) || !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("%s: error = %v, want ErrEncode wrapping ErrUnsupportedFormat", f, err)
		}
	}
}

type stubFetcher struct {
	data []byte
	err  error
	got  string
}

func (s *stubFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	s.got = rawURL
	return s.data, s.err
}

func TestFromURL(t *testing.T) {
	ctx := context.Background()
	f := &stubFetcher{data: encodePNG(t, 400, 100)}
	c := New(Options{Fetcher: f})

	data, err := c.FromURL(ctx, 200, "https://example.com/wide.png", FormatPng)
	if err != nil {
		t.Fatalf("FromURL error: %v", err)
	}
	if f.got != "https://example.com/wide.png" {
		t.Errorf("fetched %q", f.got)
	}
	if got, _ := decodedDimensions(t, data); got != (Dimensions{200, 50}) {
		t.Errorf("decoded = %s, want 200x50", got)
	}

	failing := New(Options{Fetcher: &stubFetcher{err: fmt.Errorf("%w: status 404", ErrFetch)}})
	if _, err := failing.FromURL(ctx, 200, "https://example.com/gone.png", FormatPng); !errors.Is(err, ErrFetch) {
		t.Errorf("fetch failure error = %v, want ErrFetch", err)
	}

	plain := New(Options{Fetcher: &stubFetcher{err: errors.New("connection reset")}})
	if _, err := plain.FromURL(ctx, 200, "https://example.com/a.png", FormatPng); !errors.Is(err, ErrFetch) {
		t.Errorf("unwrapped fetcher error = %v, want ErrFetch", err)
	}

	if _, err := c.FromURL(ctx, 200, "", FormatPng); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("empty url error = %v, want ErrInvalidArgument", err)
	}

	if _, err := New(Options{}).FromURL(ctx, 200, "https://example.com/a.png", FormatPng); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("no fetcher error = %v, want ErrInvalidArgument", err)
	}
}

func TestCreateMaxSourceBytes(t *testing.T) {
	c := New(Options{MaxSourceBytes: 16})
	_, err := c.FromBytes(context.Background(), 10, encodePNG(t, 50, 50), FormatPng)
	if !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("oversized source error = %v, want ErrInvalidArgument", err)
	}
}

func TestCreateNilSource(t *testing.T) {
	if _, err := New(Options{}).Create(context.Background(), nil, 10, FormatPng); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("nil source error = %v, want ErrInvalidArgument", err)
	}
}

func TestResultReader(t *testing.T) {
	res, err := New(Options{}).Create(context.Background(), BytesSource(encodePNG(t, 80, 40)), 20, FormatPng)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(res.Reader()); err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}
	if !bytes.Equal(buf.Bytes(), res.Data) {
		t.Error("Reader() content differs from Data")
	}

	var out bytes.Buffer
	n, err := res.WriteTo(&out)
	if err != nil || n != int64(len(res.Data)) {
		t.Errorf("WriteTo = %d, %v; want %d, nil", n, err, len(res.Data))
	}
}

func TestInspect(t *testing.T) {
	info, err := New(Options{}).Inspect(context.Background(), BytesSource(encodePNG(t, 120, 300)))
	if err != nil {
		t.Fatalf("Inspect error: %v", err)
	}
	if info.Dimensions != (Dimensions{120, 300}) {
		t.Errorf("Dimensions = %s, want 120x300", info.Dimensions)
	}
	if info.Orientation != OrientationPortrait {
		t.Errorf("Orientation = %s, want portrait", info.Orientation)
	}
	if info.MIMEType != "image/png" {
		t.Errorf("MIMEType = %q, want image/png", info.MIMEType)
	}

	if _, err := New(Options{}).Inspect(context.Background(), BytesSource([]byte{})); !errors.Is(err, ErrDecode) {
		t.Errorf("empty Inspect error = %v, want ErrDecode", err)
	}
}

// jpegWithOrientation encodes a w x h JPEG carrying an EXIF orientation tag.
func jpegWithOrientation(t *testing.T, w, h int, orientation byte) []byte {
	t.Helper()
	var body bytes.Buffer
	if err := jpeg.Encode(&body, newTestImage(w, h), nil); err != nil {
		t.Fatalf("jpeg.Encode: %v", err)
	}

	exif := []byte("Exif\x00\x00")
	exif = append(exif, 'M', 'M', 0x00, 0x2a, 0x00, 0x00, 0x00, 0x08) // big-endian TIFF header
	exif = append(exif, 0x00, 0x01)                                   // one IFD entry
	exif = append(exif, 0x01, 0x12, 0x00, 0x03, 0x00, 0x00, 0x00, 0x01, 0x00, orientation, 0x00, 0x00)
	exif = append(exif, 0x00, 0x00, 0x00, 0x00) // no next IFD

	out := []byte{0xff, 0xd8, 0xff, 0xe1, 0x00, byte(len(exif) + 2)}
	out = append(out, exif...)
	return append(out, body.Bytes()[2:]...)
}

func TestInspectAppliesEXIFOrientation(t *testing.T) {
	ctx := context.Background()
	data := jpegWithOrientation(t, 300, 120, 6) // stored landscape, displayed portrait

	info, err := New(Options{AutoOrient: true}).Inspect(ctx, BytesSource(data))
	if err != nil {
		t.Fatalf("Inspect error: %v", err)
	}
	if info.Dimensions != (Dimensions{120, 300}) || info.Orientation != OrientationPortrait {
		t.Errorf("auto-oriented = %s %s, want 120x300 portrait", info.Dimensions, info.Orientation)
	}
	if info.RawDimensions != (Dimensions{300, 120}) {
		t.Errorf("RawDimensions = %s, want 300x120", info.RawDimensions)
	}

	res, err := New(Options{AutoOrient: true}).Create(ctx, BytesSource(data), 60, FormatPng)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if res.Orientation != info.Orientation || res.Output != (Dimensions{24, 60}) {
		t.Errorf("Create = %s %s, want portrait 24x60 matching Inspect", res.Output, res.Orientation)
	}

	raw, err := New(Options{}).Inspect(ctx, BytesSource(data))
	if err != nil {
		t.Fatalf("Inspect without auto-orient error: %v", err)
	}
	if raw.Dimensions != (Dimensions{300, 120}) || raw.Orientation != OrientationLandscape {
		t.Errorf("raw = %s %s, want 300x120 landscape", raw.Dimensions, raw.Orientation)
	}
}

func TestSourceDescribe(t *testing.T) {
	tests := []struct {
		src  Source
		want string
	}{
		{FileSource("/tmp/a.png"), "file:/tmp/a.png"},
		{ReaderSource{R: strings.NewReader("x")}, "stream"},
		{BytesSource(make([]byte, 3)), "bytes:3"},
		{URLSource{URL: "https://example.com/a.png"}, "url:https://example.com/a.png"},
	}
	for _, tt := range tests {
		if got := tt.src.Describe(); got != tt.want {
			t.Errorf("Describe() = %q, want %q", got, tt.want)
		}
	}
}
