package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"

	"video-creator/internal/logging"
	"video-creator/internal/pipeline"
	"video-creator/internal/session"
	"video-creator/internal/transcoder"

	"github.com/dustin/go-humanize"
)

// Form field names of POST /create-video.
const (
	fieldAudio        = "audio"
	fieldImages       = "images"
	fieldSubtitleText = "subtitle_text"
)

// multipartMemory is how much of the upload is held in memory before the
// multipart parser spills file parts to temporary files.
const multipartMemory = 32 << 20

// CreateVideo accepts a multipart upload of one audio file, one or more
// images and optional subtitle text, and responds with the rendered MP4.
func (h *Handlers) CreateVideo(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.limits.MaxRequestBytes)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		h.writeFormError(w, err)
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			logging.Warn("failed to remove multipart temp files: %v", err)
		}
	}()

	result, err := h.processor.Process(r.Context(), requestFromForm(r.MultipartForm))
	if err != nil {
		writeProcessError(w, err)
		return
	}

	w.Header().Set("Content-Type", result.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": result.Filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Data)))
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Session-ID", result.SessionID)
	w.Header().Set("X-Subtitles", strconv.FormatBool(result.Captioned))
	w.Header().Set("X-Subtitle-Cues", strconv.Itoa(result.CueCount))
	w.Header().Set("X-Frame-Rate", strconv.FormatFloat(result.FrameRate, 'f', -1, 64))
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write(result.Data); err != nil {
		logging.Warn("failed to write video for session %s: %v", result.SessionID, err)
	}
}

func (h *Handlers) writeFormError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) || errors.Is(err, multipart.ErrMessageTooLarge) {
		writeJSONError(w, http.StatusRequestEntityTooLarge, "Request too large",
			fmt.Sprintf("uploads are limited to %s in total", humanize.Bytes(uint64(h.limits.MaxRequestBytes))))
		return
	}
	if errors.Is(err, http.ErrNotMultipart) {
		writeJSONError(w, http.StatusBadRequest, "Missing audio or images",
			"expected a multipart/form-data body")
		return
	}
	writeJSONError(w, http.StatusBadRequest, "Invalid multipart form", err.Error())
}

// requestFromForm maps the parsed form onto a pipeline request, keeping
// images in upload order.
func requestFromForm(form *multipart.Form) pipeline.Request {
	var req pipeline.Request

	if files := form.File[fieldAudio]; len(files) > 0 {
		audio := assetFromHeader(files[0])
		req.Audio = &audio
	}

	for _, fh := range form.File[fieldImages] {
		req.Images = append(req.Images, assetFromHeader(fh))
	}

	if values := form.Value[fieldSubtitleText]; len(values) > 0 {
		req.SubtitleText = values[0]
	}

	return req
}

func assetFromHeader(fh *multipart.FileHeader) pipeline.Asset {
	return pipeline.Asset{
		Filename: fh.Filename,
		Size:     fh.Size,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

// writeProcessError maps pipeline failures to status codes. Transcoder
// diagnostics are passed through verbatim.
func writeProcessError(w http.ResponseWriter, err error) {
	var validationErr *pipeline.ValidationError
	var failedErr *transcoder.FailedError
	var storageErr *session.StorageError

	switch {
	case errors.As(err, &validationErr):
		writeJSONError(w, http.StatusBadRequest, validationErr.Message, validationErr.Details)
	case errors.Is(err, transcoder.ErrTimeout):
		writeJSONError(w, http.StatusGatewayTimeout, "Transcoding timed out", err.Error())
	case errors.As(err, &failedErr):
		details := failedErr.Stderr
		if details == "" {
			details = failedErr.Error()
		}
		writeJSONError(w, http.StatusInternalServerError, "FFmpeg failed", details)
	case errors.As(err, &storageErr):
		logging.Error("Storage error: %v", err)
		writeJSONError(w, http.StatusInternalServerError, "Storage error", err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeJSONError(w, http.StatusServiceUnavailable, "Request cancelled while waiting for the transcoder", err.Error())
	default:
		logging.Error("Processing error: %v", err)
		writeJSONError(w, http.StatusInternalServerError, "Processing error", err.Error())
	}
}
