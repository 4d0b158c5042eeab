package media

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

func solidImage(width, height int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestNormalizeToJPEG(t *testing.T) {
	tests := []struct {
		name       string
		width      int
		height     int
		wantWidth  int
		wantHeight int
	}{
		{name: "even dimensions kept", width: 64, height: 32, wantWidth: 64, wantHeight: 32},
		{name: "odd dimensions padded", width: 31, height: 17, wantWidth: 32, wantHeight: 18},
		{name: "single pixel", width: 1, height: 1, wantWidth: 2, wantHeight: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := encodePNG(t, solidImage(tt.width, tt.height, color.NRGBA{R: 200, A: 255}))

			var out bytes.Buffer
			dims, err := NormalizeToJPEG(bytes.NewReader(src), &out)
			if err != nil {
				t.Fatalf("NormalizeToJPEG() error = %v", err)
			}
			if dims.Width != tt.wantWidth || dims.Height != tt.wantHeight {
				t.Errorf("dimensions = %dx%d, want %dx%d", dims.Width, dims.Height, tt.wantWidth, tt.wantHeight)
			}

			decoded, err := jpeg.Decode(&out)
			if err != nil {
				t.Fatalf("output is not a JPEG: %v", err)
			}
			if b := decoded.Bounds(); b.Dx() != tt.wantWidth || b.Dy() != tt.wantHeight {
				t.Errorf("decoded size = %dx%d, want %dx%d", b.Dx(), b.Dy(), tt.wantWidth, tt.wantHeight)
			}
		})
	}
}

func TestNormalizeToJPEGFlattensTransparency(t *testing.T) {
	src := encodePNG(t, solidImage(16, 16, color.NRGBA{}))

	var out bytes.Buffer
	if _, err := NormalizeToJPEG(bytes.NewReader(src), &out); err != nil {
		t.Fatalf("NormalizeToJPEG() error = %v", err)
	}

	decoded, err := jpeg.Decode(&out)
	if err != nil {
		t.Fatalf("output is not a JPEG: %v", err)
	}

	r, g, b, _ := decoded.At(8, 8).RGBA()
	// JPEG is lossy; a transparent pixel must come out near white, not black.
	if r>>8 < 240 || g>>8 < 240 || b>>8 < 240 {
		t.Errorf("transparent pixel flattened to (%d,%d,%d), want white", r>>8, g>>8, b>>8)
	}
}

func TestNormalizeToJPEGRejectsGarbage(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"text", []byte("definitely not an image")},
		{"truncated png", encodePNG(t, solidImage(8, 8, color.Black))[:40]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NormalizeToJPEG(bytes.NewReader(tt.data), &bytes.Buffer{})
			var decodeErr *DecodeError
			if !errors.As(err, &decodeErr) {
				t.Errorf("NormalizeToJPEG() error = %v, want *DecodeError", err)
			}
		})
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestNormalizeToJPEGWriteFailure(t *testing.T) {
	src := encodePNG(t, solidImage(8, 8, color.Black))

	_, err := NormalizeToJPEG(bytes.NewReader(src), failingWriter{})
	if err == nil {
		t.Fatal("expected error")
	}
	var decodeErr *DecodeError
	if errors.As(err, &decodeErr) {
		t.Error("a write failure must not be reported as a decode error")
	}
	if !strings.Contains(err.Error(), "disk full") {
		t.Errorf("error = %v, want the writer's cause", err)
	}
}

func TestConstrain(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		maxDimension  int
		maxPixels     int
		wantW, wantH  int
	}{
		{"within limits", 100, 50, 200, 100_000, 100, 50},
		{"landscape over dimension", 400, 200, 100, 100_000, 100, 50},
		{"portrait over dimension", 200, 400, 100, 100_000, 50, 100},
		{"over pixel budget", 100, 100, 1000, 2500, 50, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := constrain(solidImage(tt.width, tt.height, color.Black), tt.maxDimension, tt.maxPixels)
			if b := got.Bounds(); b.Dx() != tt.wantW || b.Dy() != tt.wantH {
				t.Errorf("constrain() = %dx%d, want %dx%d", b.Dx(), b.Dy(), tt.wantW, tt.wantH)
			}
		})
	}
}

func TestGetImageDimensions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.png")
	if err := os.WriteFile(path, encodePNG(t, solidImage(40, 30, color.Black)), 0o644); err != nil {
		t.Fatal(err)
	}

	dims, err := GetImageDimensions(path)
	if err != nil {
		t.Fatalf("GetImageDimensions() error = %v", err)
	}
	if dims.Width != 40 || dims.Height != 30 {
		t.Errorf("GetImageDimensions() = %dx%d, want 40x30", dims.Width, dims.Height)
	}

	if _, err := GetImageDimensions(filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Error("expected error for missing file")
	}
}
