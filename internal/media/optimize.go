package media

import (
	"bytes"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"video-creator/internal/logging"
	"video-creator/internal/metrics"

	"github.com/disintegration/imaging"
)

// Optimization outcomes, also used as metric label values.
const (
	OptimizeResized  = "resized"
	OptimizeSkipped  = "skipped"
	OptimizeFallback = "fallback"
)

// Optimizer shrinks normalized frames before they reach the encoder. It is
// best effort: any failure leaves the frame exactly as it was.
type Optimizer struct {
	// MaxDimension bounds the longer side of a frame in pixels.
	MaxDimension int
}

// Optimize downscales the JPEG at path in place when either side exceeds
// MaxDimension, using libvips when it is initialized and imaging otherwise.
// It returns one of the Optimize* outcomes.
func (o Optimizer) Optimize(path string) string {
	status := o.optimize(path)
	metrics.ImageOptimizationsTotal.WithLabelValues(status).Inc()
	return status
}

func (o Optimizer) optimize(path string) string {
	if o.MaxDimension <= 0 {
		return OptimizeSkipped
	}

	dims, err := GetImageDimensions(path)
	if err != nil {
		logging.Warn("Skipping optimization of %s: %v", filepath.Base(path), err)
		return OptimizeFallback
	}
	if dims.Width <= o.MaxDimension && dims.Height <= o.MaxDimension {
		return OptimizeSkipped
	}

	var img image.Image
	if IsVipsAvailable() {
		img, err = resizeWithVips(path, o.MaxDimension)
		if err != nil {
			logging.Debug("vips resize of %s failed, retrying with imaging: %v", filepath.Base(path), err)
		}
	}
	if img == nil {
		img, err = resizeWithImaging(path, o.MaxDimension)
	}
	if err != nil {
		logging.Warn("Keeping original %s, resize failed: %v", filepath.Base(path), err)
		return OptimizeFallback
	}

	if err := replaceJPEG(path, flatten(img)); err != nil {
		logging.Warn("Keeping original %s, write failed: %v", filepath.Base(path), err)
		return OptimizeFallback
	}

	logging.Debug("Optimized %s from %dx%d to fit %dpx", filepath.Base(path), dims.Width, dims.Height, o.MaxDimension)
	return OptimizeResized
}

func resizeWithImaging(path string, maxDimension int) (image.Image, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	return imaging.Fit(img, maxDimension, maxDimension, imaging.Lanczos), nil
}

// replaceJPEG encodes img next to path and renames it over the original, so
// a failed write never leaves a truncated frame behind.
func replaceJPEG(path string, img image.Image) error {
	var buf bytes.Buffer
	if err := encodeJPEG(&buf, img); err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		if rmErr := os.Remove(tmp); rmErr != nil {
			logging.Warn("failed to remove %s: %v", tmp, rmErr)
		}
		return err
	}
	return nil
}
