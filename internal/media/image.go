package media

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"io"
	"os"

	"video-creator/internal/logging"

	// Image format decoders
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // WebP format support
)

const (
	// MaxImageDimension is the maximum width or height of a normalized frame.
	// Larger uploads are downscaled before encoding.
	MaxImageDimension = 4096

	// MaxImagePixels is the maximum total pixels of a normalized frame.
	MaxImagePixels = 20_000_000 // ~20MP, uses ~80MB in RGBA

	// MaxDecodePixels rejects images whose header claims more pixels than we
	// are willing to decode at all.
	MaxDecodePixels = 100_000_000

	// JPEGQuality is the quality used for every frame written to a session.
	JPEGQuality = 92
)

// DecodeError reports an upload that is not a readable image.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("cannot decode image: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ImageDimensions holds image width and height
type ImageDimensions struct {
	Width  int
	Height int
}

// NormalizeToJPEG decodes src (PNG, JPEG or WebP) and writes it to dst as an
// opaque JPEG. Transparency is flattened onto white, EXIF orientation is
// applied, oversized images are downscaled and odd dimensions are padded to
// even ones so the frame is encodable as yuv420p.
//
// Errors caused by the input are returned as *DecodeError; anything else is
// a read or write failure.
func NormalizeToJPEG(src io.Reader, dst io.Writer) (*ImageDimensions, error) {
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	config, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	if config.Width <= 0 || config.Height <= 0 || config.Width*config.Height > MaxDecodePixels {
		return nil, &DecodeError{Err: fmt.Errorf("unsupported %s dimensions %dx%d", format, config.Width, config.Height)}
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, &DecodeError{Err: err}
	}

	img = constrain(img, MaxImageDimension, MaxImagePixels)
	frame := flatten(img)

	if err := encodeJPEG(dst, frame); err != nil {
		return nil, err
	}

	b := frame.Bounds()
	return &ImageDimensions{Width: b.Dx(), Height: b.Dy()}, nil
}

// constrain downscales img so that neither side exceeds maxDimension and the
// pixel count stays under maxPixels.
func constrain(img image.Image, maxDimension, maxPixels int) image.Image {
	width, height := img.Bounds().Dx(), img.Bounds().Dy()
	if width <= maxDimension && height <= maxDimension && width*height <= maxPixels {
		return img
	}

	targetWidth, targetHeight := width, height

	// First, constrain by max dimension
	if width > maxDimension || height > maxDimension {
		if width > height {
			targetWidth = maxDimension
			targetHeight = height * maxDimension / width
		} else {
			targetHeight = maxDimension
			targetWidth = width * maxDimension / height
		}
	}

	// Then, constrain by total pixels if still too large
	if targetPixels := targetWidth * targetHeight; targetPixels > maxPixels {
		scale := float64(maxPixels) / float64(targetPixels)
		targetWidth = int(float64(targetWidth) * scale)
		targetHeight = int(float64(targetHeight) * scale)
	}

	targetWidth = max(targetWidth, 1)
	targetHeight = max(targetHeight, 1)

	logging.Debug("Constraining large image from %dx%d to %dx%d", width, height, targetWidth, targetHeight)
	return imaging.Resize(img, targetWidth, targetHeight, imaging.Lanczos)
}

// flatten composites img onto a white canvas whose sides are rounded up to
// even numbers.
func flatten(img image.Image) *image.NRGBA {
	width, height := img.Bounds().Dx(), img.Bounds().Dy()
	canvas := imaging.New(width+width%2, height+height%2, color.White)
	return imaging.Overlay(canvas, img, image.Pt(0, 0), 1.0)
}

func encodeJPEG(dst io.Writer, img image.Image) error {
	if err := imaging.Encode(dst, img, imaging.JPEG, imaging.JPEGQuality(JPEGQuality)); err != nil {
		return fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return nil
}

// GetImageDimensions returns image dimensions without fully decoding the image
func GetImageDimensions(path string) (*ImageDimensions, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := file.Close(); err != nil {
			logging.Warn("failed to close image file %s: %v", path, err)
		}
	}()

	config, _, err := image.DecodeConfig(file)
	if err != nil {
		return nil, err
	}

	return &ImageDimensions{
		Width:  config.Width,
		Height: config.Height,
	}, nil
}
