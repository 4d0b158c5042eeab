// Package mediatypes defines which uploads the service accepts.
//
// It is a dependency-free foundation imported by the pipeline and the HTTP
// handlers without creating import cycles. Extensions are compared
// lowercased with their leading dot:
//
//	ext := mediatypes.Ext(header.Filename) // ".mp3"
//	switch mediatypes.GetFileType(ext) {
//	case mediatypes.FileTypeAudio:
//	    // soundtrack
//	case mediatypes.FileTypeImage:
//	    // frame
//	}
//
// Audio: .mp3 .wav .aac .m4a. Images: .png .jpg .jpeg .webp.
package mediatypes
