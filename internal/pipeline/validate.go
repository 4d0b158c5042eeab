package pipeline

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"video-creator/internal/mediatypes"
)

// Validate checks req against config without touching the filesystem.
func Validate(config Config, req Request) error {
	if req.Audio == nil || len(req.Images) == 0 {
		return &ValidationError{Message: "Missing audio or images"}
	}

	if err := validateAsset(*req.Audio, mediatypes.FileTypeAudio, config.MaxAudioBytes); err != nil {
		return &ValidationError{Message: "Invalid or missing audio file", Details: err.Error()}
	}

	if config.MaxImageCount > 0 && len(req.Images) > config.MaxImageCount {
		return &ValidationError{
			Message: "Invalid or missing image files",
			Details: fmt.Sprintf("%d images uploaded, at most %d allowed", len(req.Images), config.MaxImageCount),
		}
	}

	for i, img := range req.Images {
		if err := validateAsset(img, mediatypes.FileTypeImage, config.MaxImageBytes); err != nil {
			return &ValidationError{
				Message: "Invalid or missing image files",
				Details: fmt.Sprintf("image %d: %v", i+1, err),
			}
		}
	}

	return nil
}

func validateAsset(a Asset, ft mediatypes.FileType, maxBytes int64) error {
	if a.Filename == "" {
		return fmt.Errorf("no file selected")
	}

	ext := mediatypes.Ext(a.Filename)
	if mediatypes.GetFileType(ext) != ft {
		return fmt.Errorf("%q is not an accepted %s file (allowed: %s)",
			a.Filename, ft, strings.Join(mediatypes.Allowed(ft), ", "))
	}

	if a.Size <= 0 {
		return fmt.Errorf("%q is empty", a.Filename)
	}

	if maxBytes > 0 && a.Size > maxBytes {
		return fmt.Errorf("%q is %s, larger than the %s limit",
			a.Filename, humanize.Bytes(uint64(a.Size)), humanize.Bytes(uint64(maxBytes)))
	}

	if a.Open == nil {
		return fmt.Errorf("%q has no content", a.Filename)
	}

	return nil
}
