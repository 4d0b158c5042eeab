package media

import (
	"bytes"
	"fmt"
	"image"
	"path/filepath"
	"sync"

	"video-creator/internal/logging"

	"github.com/davidbyttow/govips/v2/vips"
	"github.com/disintegration/imaging"
)

var (
	vipsInitialized bool
	vipsInitMutex   sync.Mutex
	vipsAvailable   bool
)

// vipsLogging maps the application log level onto a libvips verbosity and
// a handler that forwards libvips messages through our logger.
func vipsLogging(level logging.LogLevel) (vips.LoggingHandlerFunction, vips.LogLevel) {
	handler := func(domain string, l vips.LogLevel, msg string) {
		switch l {
		case vips.LogLevelError, vips.LogLevelCritical:
			logging.Error("[%s] %s", domain, msg)
		case vips.LogLevelWarning:
			logging.Warn("[%s] %s", domain, msg)
		default:
			logging.Debug("[%s] %s", domain, msg)
		}
	}

	switch level {
	case logging.LevelDebug:
		return handler, vips.LogLevelInfo
	case logging.LevelWarn:
		return handler, vips.LogLevelError
	case logging.LevelError:
		return handler, vips.LogLevelCritical
	default:
		return handler, vips.LogLevelWarning
	}
}

// InitVips initializes the libvips library. It is called once at startup
// when image optimization is enabled; calling it again is a no-op.
func InitVips() error {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()

	if vipsInitialized {
		return nil
	}

	// Configure vips logging BEFORE Startup() so early messages are routed
	vips.LoggingSettings(vipsLogging(logging.GetLevel()))

	// One frame at a time; requests are already serialized by the gate
	vips.Startup(&vips.Config{
		ConcurrencyLevel: 1,
		MaxCacheMem:      50 * 1024 * 1024, // 50MB cache
		MaxCacheSize:     100,
	})

	vipsInitialized = true
	vipsAvailable = true
	logging.Info("libvips initialized successfully (version: %s)", vips.Version)
	return nil
}

// ShutdownVips cleans up libvips resources
func ShutdownVips() {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()

	if vipsInitialized {
		vips.Shutdown()
		vipsInitialized = false
		vipsAvailable = false
		logging.Info("libvips shutdown complete")
	}
}

// IsVipsAvailable returns whether libvips is initialized and available
func IsVipsAvailable() bool {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()
	return vipsAvailable
}

// resizeWithVips shrinks the image at path to fit a maxDimension square,
// letting libvips shrink during JPEG decode.
func resizeWithVips(path string, maxDimension int) (image.Image, error) {
	if !IsVipsAvailable() {
		return nil, fmt.Errorf("libvips not available")
	}

	ref, err := vips.LoadImageFromFile(path, vips.NewImportParams())
	if err != nil {
		return nil, fmt.Errorf("vips failed to load image: %w", err)
	}
	defer ref.Close()

	logging.Debug("Vips loaded %s: %dx%d, fitting to %dpx",
		filepath.Base(path), ref.Width(), ref.Height(), maxDimension)

	if err := ref.Thumbnail(maxDimension, maxDimension, vips.InterestingNone); err != nil {
		return nil, fmt.Errorf("vips resize failed: %w", err)
	}

	imgBytes, _, err := ref.ExportJpeg(&vips.JpegExportParams{
		Quality:        JPEGQuality,
		StripMetadata:  true,
		OptimizeCoding: true,
	})
	if err != nil {
		return nil, fmt.Errorf("vips export failed: %w", err)
	}

	img, err := imaging.Decode(bytes.NewReader(imgBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to decode vips output: %w", err)
	}
	return img, nil
}
