package mediatypes

import (
	"path/filepath"
	"slices"
	"strings"
)

// FileType represents the class of an uploaded file.
type FileType string

const (
	// FileTypeAudio represents a supported soundtrack.
	FileTypeAudio FileType = "audio"
	// FileTypeImage represents a supported still image.
	FileTypeImage FileType = "image"
	// FileTypeOther represents an unknown or unsupported file type.
	FileTypeOther FileType = "other"
)

// AudioExtensions maps file extensions to whether they are accepted as audio.
var AudioExtensions = map[string]bool{
	".mp3": true,
	".wav": true,
	".aac": true,
	".m4a": true,
}

// ImageExtensions maps file extensions to whether they are accepted as images.
var ImageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
}

// MimeTypes maps file extensions to their MIME types.
var MimeTypes = map[string]string{
	// Audio
	".mp3": "audio/mpeg",
	".wav": "audio/wav",
	".aac": "audio/aac",
	".m4a": "audio/mp4",

	// Images
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",

	// Output
	".mp4": "video/mp4",
	".srt": "application/x-subrip",
}

// Ext returns the lowercased extension of filename including the leading dot.
func Ext(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}

// GetFileType returns the FileType for a given file extension.
// The extension should be lowercase and include the leading dot (e.g., ".mp3").
func GetFileType(ext string) FileType {
	if AudioExtensions[ext] {
		return FileTypeAudio
	}
	if ImageExtensions[ext] {
		return FileTypeImage
	}
	return FileTypeOther
}

// GetMimeType returns the MIME type for a given file extension, or
// "application/octet-stream" if the extension is not recognized.
func GetMimeType(ext string) string {
	if mime, ok := MimeTypes[ext]; ok {
		return mime
	}
	return "application/octet-stream"
}

// IsAudio reports whether filename has an accepted audio extension.
func IsAudio(filename string) bool {
	return AudioExtensions[Ext(filename)]
}

// IsImage reports whether filename has an accepted image extension.
func IsImage(filename string) bool {
	return ImageExtensions[Ext(filename)]
}

// Allowed returns the sorted extensions accepted for ft, for error messages.
func Allowed(ft FileType) []string {
	var set map[string]bool
	switch ft {
	case FileTypeAudio:
		set = AudioExtensions
	case FileTypeImage:
		set = ImageExtensions
	default:
		return nil
	}

	exts := make([]string, 0, len(set))
	for ext := range set {
		exts = append(exts, ext)
	}
	slices.Sort(exts)
	return exts
}
