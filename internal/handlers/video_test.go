package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"video-creator/internal/pipeline"
	"video-creator/internal/session"
	"video-creator/internal/transcoder"
)

type fakeProcessor struct {
	mu     sync.Mutex
	result *pipeline.Result
	err    error
	got    []pipeline.Request
	images [][]byte
}

func (f *fakeProcessor) Process(_ context.Context, req pipeline.Request) (*pipeline.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.got = append(f.got, req)
	for _, img := range req.Images {
		rc, err := img.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return nil, err
		}
		f.images = append(f.images, data)
	}
	return f.result, f.err
}

type formFile struct {
	field, name, content string
}

func multipartBody(t *testing.T, files []formFile, values map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range files {
		part, err := mw.CreateFormFile(f.field, f.name)
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		if _, err := io.WriteString(part, f.content); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	for k, v := range values {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("WriteField: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func newTestHandlers(p Processor) *Handlers {
	h := &Handlers{
		processor: p,
		limits: Limits{
			MaxRequestBytes: 1 << 20,
			MaxAudioBytes:   1 << 20,
			MaxImageBytes:   1 << 20,
			MaxImages:       10,
		},
	}
	h.SetReady(true)
	return h
}

func decodeError(t *testing.T, body io.Reader) ErrorResponse {
	t.Helper()

	var resp ErrorResponse
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode error response: %v", err)
	}
	return resp
}

func TestCreateVideoSuccess(t *testing.T) {
	t.Parallel()

	proc := &fakeProcessor{result: &pipeline.Result{
		SessionID:   "abc123",
		Filename:    "video-abc123.mp4",
		ContentType: "video/mp4",
		Data:        []byte("fake-mp4"),
		Captioned:   true,
		CueCount:    2,
		FrameRate:   0.5,
	}}
	h := newTestHandlers(proc)

	body, contentType := multipartBody(t, []formFile{
		{"audio", "track.mp3", "audio-bytes"},
		{"images", "b.png", "second"},
		{"images", "a.png", "first"},
	}, map[string]string{"subtitle_text": "Hello world. Goodbye."})

	req := httptest.NewRequest(http.MethodPost, "/create-video", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	h.CreateVideo(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if got := w.Body.String(); got != "fake-mp4" {
		t.Errorf("body = %q, want fake-mp4", got)
	}

	headers := map[string]string{
		"Content-Type":        "video/mp4",
		"Content-Disposition": `attachment; filename=video-abc123.mp4`,
		"Content-Length":      "8",
		"X-Session-ID":        "abc123",
		"X-Subtitles":         "true",
		"X-Subtitle-Cues":     "2",
		"X-Frame-Rate":        "0.5",
	}
	for name, want := range headers {
		if got := w.Header().Get(name); got != want {
			t.Errorf("%s = %q, want %q", name, got, want)
		}
	}

	if len(proc.got) != 1 {
		t.Fatalf("Process called %d times, want 1", len(proc.got))
	}
	got := proc.got[0]
	if got.Audio == nil || got.Audio.Filename != "track.mp3" || got.Audio.Size != int64(len("audio-bytes")) {
		t.Errorf("audio asset = %+v", got.Audio)
	}
	if got.SubtitleText != "Hello world. Goodbye." {
		t.Errorf("SubtitleText = %q", got.SubtitleText)
	}
	if len(got.Images) != 2 || got.Images[0].Filename != "b.png" || got.Images[1].Filename != "a.png" {
		t.Errorf("images not kept in upload order: %+v", got.Images)
	}
	if string(proc.images[0]) != "second" || string(proc.images[1]) != "first" {
		t.Errorf("image contents = %q", proc.images)
	}
}

func TestCreateVideoWithoutAudio(t *testing.T) {
	t.Parallel()

	proc := &fakeProcessor{err: &pipeline.ValidationError{Message: "Missing audio or images"}}
	h := newTestHandlers(proc)

	body, contentType := multipartBody(t, []formFile{{"images", "a.png", "x"}}, nil)
	req := httptest.NewRequest(http.MethodPost, "/create-video", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	h.CreateVideo(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d", w.Code)
	}
	if len(proc.got) != 1 || proc.got[0].Audio != nil {
		t.Errorf("expected a request with no audio, got %+v", proc.got)
	}
	if resp := decodeError(t, w.Body); resp.Error != "Missing audio or images" {
		t.Errorf("error = %q", resp.Error)
	}
}

func TestCreateVideoNotMultipart(t *testing.T) {
	t.Parallel()

	proc := &fakeProcessor{}
	h := newTestHandlers(proc)

	req := httptest.NewRequest(http.MethodPost, "/create-video", strings.NewReader(`{"audio":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	h.CreateVideo(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d", w.Code)
	}
	if len(proc.got) != 0 {
		t.Error("processor should not be called for a non-multipart body")
	}
	if resp := decodeError(t, w.Body); resp.Error != "Missing audio or images" {
		t.Errorf("error = %q", resp.Error)
	}
}

func TestCreateVideoRequestTooLarge(t *testing.T) {
	t.Parallel()

	proc := &fakeProcessor{}
	h := newTestHandlers(proc)
	h.limits.MaxRequestBytes = 512

	body, contentType := multipartBody(t, []formFile{
		{"audio", "track.mp3", strings.Repeat("a", 4096)},
		{"images", "a.png", "x"},
	}, nil)
	req := httptest.NewRequest(http.MethodPost, "/create-video", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	h.CreateVideo(w, req)

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("Expected status 413, got %d: %s", w.Code, w.Body.String())
	}
	if len(proc.got) != 0 {
		t.Error("processor should not be called for an oversized body")
	}
	if got := w.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q", got)
	}
}

func TestCreateVideoErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantError   string
		wantDetails string
	}{
		{
			name:        "validation",
			err:         &pipeline.ValidationError{Message: "Invalid or missing audio file", Details: "unsupported extension"},
			wantStatus:  http.StatusBadRequest,
			wantError:   "Invalid or missing audio file",
			wantDetails: "unsupported extension",
		},
		{
			name:        "ffmpeg failure carries stderr",
			err:         fmt.Errorf("transcode: %w", &transcoder.FailedError{Err: errors.New("exit status 1"), Stderr: "Invalid data found when processing input"}),
			wantStatus:  http.StatusInternalServerError,
			wantError:   "FFmpeg failed",
			wantDetails: "Invalid data found when processing input",
		},
		{
			name:        "ffmpeg failure without stderr",
			err:         &transcoder.FailedError{Err: transcoder.ErrOutputMissing},
			wantStatus:  http.StatusInternalServerError,
			wantError:   "FFmpeg failed",
			wantDetails: (&transcoder.FailedError{Err: transcoder.ErrOutputMissing}).Error(),
		},
		{
			name:       "timeout",
			err:        fmt.Errorf("%w after 1s", transcoder.ErrTimeout),
			wantStatus: http.StatusGatewayTimeout,
			wantError:  "Transcoding timed out",
		},
		{
			name:       "storage",
			err:        &session.StorageError{Op: "mkdir", Path: "/tmp/x", Err: errors.New("read-only file system")},
			wantStatus: http.StatusInternalServerError,
			wantError:  "Storage error",
		},
		{
			name:       "cancelled",
			err:        context.Canceled,
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:       "unclassified",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantError:  "Processing error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newTestHandlers(&fakeProcessor{err: tt.err})

			body, contentType := multipartBody(t, []formFile{
				{"audio", "track.mp3", "a"},
				{"images", "a.png", "x"},
			}, nil)
			req := httptest.NewRequest(http.MethodPost, "/create-video", body)
			req.Header.Set("Content-Type", contentType)
			w := httptest.NewRecorder()

			h.CreateVideo(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			resp := decodeError(t, w.Body)
			if tt.wantError != "" && resp.Error != tt.wantError {
				t.Errorf("error = %q, want %q", resp.Error, tt.wantError)
			}
			if tt.wantDetails != "" && resp.Details != tt.wantDetails {
				t.Errorf("details = %q, want %q", resp.Details, tt.wantDetails)
			}
		})
	}
}
