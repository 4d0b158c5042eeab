package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"video-creator/internal/session"
	"video-creator/internal/transcoder"
	"video-creator/internal/workers"
)

// fakeTranscoder stands in for ffmpeg and ffprobe.
type fakeTranscoder struct {
	duration float64
	measured bool
	runErr   error
	noOutput bool

	mu       sync.Mutex
	jobs     []transcoder.Job
	srt      string
	frames   int
	rootSeen string
}

func (f *fakeTranscoder) AudioDuration(_ context.Context, _ string) (float64, bool) {
	return f.duration, f.measured
}

func (f *fakeTranscoder) Run(_ context.Context, job transcoder.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs = append(f.jobs, job)
	f.rootSeen = filepath.Dir(job.OutputPath)

	for i := 0; i < job.ImageCount; i++ {
		if _, err := os.Stat(fmt.Sprintf(job.ImagePattern, i)); err == nil {
			f.frames++
		}
	}
	if job.SubtitlePath != "" {
		data, _ := os.ReadFile(job.SubtitlePath)
		f.srt = string(data)
	}

	if f.runErr != nil {
		return f.runErr
	}
	if f.noOutput {
		return nil
	}
	return os.WriteFile(job.OutputPath, []byte("fake-mp4"), 0o644)
}

func (f *fakeTranscoder) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.jobs)
}

func bytesAsset(name string, data []byte) Asset {
	return Asset{
		Filename: name,
		Size:     int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 8, 6))
	for y := 0; y < 6; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.NRGBA{G: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func testRequest(t *testing.T, images int, text string) Request {
	t.Helper()
	audio := bytesAsset("track.mp3", []byte("ID3-not-really-audio"))
	req := Request{Audio: &audio, SubtitleText: text}
	data := pngBytes(t)
	for i := 0; i < images; i++ {
		req.Images = append(req.Images, bytesAsset(fmt.Sprintf("photo-%d.png", i), data))
	}
	return req
}

func newTestOrchestrator(t *testing.T, config Config, tr Transcoder) (*Orchestrator, *session.Store) {
	t.Helper()
	store, err := session.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return New(config, store, tr, nil), store
}

// sessionDirs lists the session directories left under the work root.
func sessionDirs(t *testing.T, store *session.Store) []string {
	t.Helper()
	entries, err := os.ReadDir(store.Root())
	if err != nil {
		t.Fatal(err)
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, e.Name())
		}
	}
	return dirs
}

func TestProcessWithCaptions(t *testing.T) {
	fake := &fakeTranscoder{duration: 10, measured: true}
	o, store := newTestOrchestrator(t, Config{}, fake)

	var transitions []State
	o.SetTransitionHook(func(_ string, _, to State) {
		transitions = append(transitions, to)
	})

	result, err := o.Process(context.Background(), testRequest(t, 5, "A. B. C."))
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if string(result.Data) != "fake-mp4" {
		t.Errorf("Data = %q", result.Data)
	}
	if result.Filename != "video_"+result.SessionID+".mp4" {
		t.Errorf("Filename = %q", result.Filename)
	}
	if result.ContentType != "video/mp4" {
		t.Errorf("ContentType = %q", result.ContentType)
	}
	if !result.Captioned || result.CueCount != 3 {
		t.Errorf("Captioned = %v, CueCount = %d, want true, 3", result.Captioned, result.CueCount)
	}
	if result.FrameRate != 0.5 {
		t.Errorf("FrameRate = %v, want 0.5", result.FrameRate)
	}
	if !result.DurationMeasured || result.AudioDuration != 10 {
		t.Errorf("AudioDuration = %v (measured %v)", result.AudioDuration, result.DurationMeasured)
	}

	job := fake.jobs[0]
	if job.ImageCount != 5 || fake.frames != 5 {
		t.Errorf("transcoder saw %d/%d frames, want 5", fake.frames, job.ImageCount)
	}
	if filepath.Base(job.ImagePattern) != "img%03d.jpg" {
		t.Errorf("ImagePattern = %q", job.ImagePattern)
	}
	if filepath.Base(job.AudioPath) != "audio.mp3" {
		t.Errorf("AudioPath = %q", job.AudioPath)
	}

	wantSRT := "1\n00:00:00,000 --> 00:00:03,333\nA.\n\n" +
		"2\n00:00:03,333 --> 00:00:06,667\nB.\n\n" +
		"3\n00:00:06,667 --> 00:00:10,000\nC.\n\n"
	if fake.srt != wantSRT {
		t.Errorf("subtitles =\n%q\nwant\n%q", fake.srt, wantSRT)
	}

	if _, err := os.Stat(fake.rootSeen); !os.IsNotExist(err) {
		t.Errorf("session root %s still exists after Process", fake.rootSeen)
	}
	if store.Len() != 0 {
		t.Errorf("registry holds %d sessions, want 0", store.Len())
	}

	want := []State{
		StateSessionOpen, StateInputsPersisted, StateSubtitlesAttempted,
		StateTranscoding, StateArtifactExtracted, StateReleased,
	}
	if fmt.Sprint(transitions) != fmt.Sprint(want) {
		t.Errorf("transitions = %v, want %v", transitions, want)
	}
}

func TestProcessBlankSubtitleText(t *testing.T) {
	for _, text := range []string{"", "   \n\t"} {
		fake := &fakeTranscoder{duration: 4, measured: true}
		o, _ := newTestOrchestrator(t, Config{}, fake)

		result, err := o.Process(context.Background(), testRequest(t, 2, text))
		if err != nil {
			t.Fatalf("Process(%q) error = %v", text, err)
		}
		if result.Captioned || result.CueCount != 0 {
			t.Errorf("Process(%q) Captioned = %v, CueCount = %d", text, result.Captioned, result.CueCount)
		}
		if fake.jobs[0].SubtitlePath != "" {
			t.Errorf("SubtitlePath = %q, want none", fake.jobs[0].SubtitlePath)
		}
	}
}

func TestProcessSubtitleFailureIsNotFatal(t *testing.T) {
	// Punctuation-free text still yields one cue; a zero duration cannot be
	// captioned and must only drop the captions.
	fake := &fakeTranscoder{duration: 0, measured: false}
	o, _ := newTestOrchestrator(t, Config{FrameRate: 1}, fake)

	result, err := o.Process(context.Background(), testRequest(t, 1, "Hello there"))
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if result.Captioned {
		t.Error("Captioned = true, want captionless video")
	}
}

func TestProcessFixedFrameRate(t *testing.T) {
	fake := &fakeTranscoder{duration: 10, measured: true}
	o, _ := newTestOrchestrator(t, Config{FrameRate: 2}, fake)

	result, err := o.Process(context.Background(), testRequest(t, 3, ""))
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if result.FrameRate != 2 || fake.jobs[0].FrameRate != 2 {
		t.Errorf("FrameRate = %v, want fixed 2", result.FrameRate)
	}
}

func TestProcessValidationOpensNoSession(t *testing.T) {
	emptyAudio := bytesAsset("track.mp3", nil)

	tests := []struct {
		name string
		req  func(t *testing.T) Request
	}{
		{"missing audio", func(t *testing.T) Request {
			r := testRequest(t, 1, "")
			r.Audio = nil
			return r
		}},
		{"zero-byte audio", func(t *testing.T) Request {
			r := testRequest(t, 1, "")
			r.Audio = &emptyAudio
			return r
		}},
		{"no images", func(t *testing.T) Request {
			return testRequest(t, 0, "")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeTranscoder{duration: 10, measured: true}
			o, store := newTestOrchestrator(t, Config{}, fake)

			var sawSession bool
			o.SetTransitionHook(func(id string, _, _ State) {
				if id != "" {
					sawSession = true
				}
			})

			_, err := o.Process(context.Background(), tt.req(t))

			var validationErr *ValidationError
			if !errors.As(err, &validationErr) {
				t.Fatalf("Process() error = %v, want *ValidationError", err)
			}
			if sawSession || len(sessionDirs(t, store)) != 0 {
				t.Error("a session was opened for an invalid request")
			}
			if fake.calls() != 0 {
				t.Error("transcoder invoked for an invalid request")
			}
		})
	}
}

func TestProcessUndecodableImage(t *testing.T) {
	fake := &fakeTranscoder{duration: 10, measured: true}
	o, store := newTestOrchestrator(t, Config{}, fake)

	req := testRequest(t, 2, "")
	req.Images[1] = bytesAsset("broken.png", []byte("not a png"))

	_, err := o.Process(context.Background(), req)

	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("Process() error = %v, want *ValidationError", err)
	}
	if !strings.Contains(validationErr.Details, "broken.png") {
		t.Errorf("Details = %q, want the offending file name", validationErr.Details)
	}
	if fake.calls() != 0 {
		t.Error("transcoder invoked despite an undecodable image")
	}
	if dirs := sessionDirs(t, store); len(dirs) != 0 {
		t.Errorf("session directories left behind: %v", dirs)
	}
}

func TestProcessTranscoderErrorsReleaseSession(t *testing.T) {
	tests := []struct {
		name     string
		fake     *fakeTranscoder
		check    func(error) bool
		wantDesc string
	}{
		{
			name: "non-zero exit",
			fake: &fakeTranscoder{duration: 10, measured: true,
				runErr: &transcoder.FailedError{Err: errors.New("exit status 1"), Stderr: "Invalid data found"}},
			check: func(err error) bool {
				var failed *transcoder.FailedError
				return errors.As(err, &failed) && failed.Stderr == "Invalid data found"
			},
			wantDesc: "*FailedError with stderr",
		},
		{
			name: "timeout",
			fake: &fakeTranscoder{duration: 10, measured: true,
				runErr: fmt.Errorf("%w after 2m0s", transcoder.ErrTimeout)},
			check:    func(err error) bool { return errors.Is(err, transcoder.ErrTimeout) },
			wantDesc: "ErrTimeout",
		},
		{
			name: "output vanished",
			fake: &fakeTranscoder{duration: 10, measured: true, noOutput: true},
			check: func(err error) bool {
				var storageErr *session.StorageError
				return errors.As(err, &storageErr)
			},
			wantDesc: "*session.StorageError",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, store := newTestOrchestrator(t, Config{}, tt.fake)

			var last State
			o.SetTransitionHook(func(_ string, _, to State) { last = to })

			result, err := o.Process(context.Background(), testRequest(t, 2, "One. Two."))
			if result != nil {
				t.Error("expected no result")
			}
			if !tt.check(err) {
				t.Errorf("Process() error = %v, want %s", err, tt.wantDesc)
			}
			if dirs := sessionDirs(t, store); len(dirs) != 0 {
				t.Errorf("session directories left behind: %v", dirs)
			}
			if last != StateReleased {
				t.Errorf("final state = %v, want released", last)
			}
		})
	}
}

func TestProcessGateHonoursContext(t *testing.T) {
	fake := &fakeTranscoder{duration: 10, measured: true}
	store, err := session.NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	gate := workers.NewGate(1)
	if err := gate.Acquire(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer gate.Release()

	o := New(Config{}, store, fake, gate)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = o.Process(ctx, testRequest(t, 1, ""))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Process() error = %v, want context.Canceled", err)
	}
	if fake.calls() != 0 {
		t.Error("transcoder ran without holding the gate")
	}
	if store.Len() != 0 {
		t.Error("session not released after abandoning the queue")
	}
}

func TestProcessConcurrentRequestsAreIsolated(t *testing.T) {
	fake := &fakeTranscoder{duration: 2, measured: true}
	o, store := newTestOrchestrator(t, Config{}, fake)

	const n = 8
	reqs := make([]Request, n)
	for i := range reqs {
		reqs[i] = testRequest(t, 2, "Hi.")
	}

	ids := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(req Request) {
			defer wg.Done()
			result, err := o.Process(context.Background(), req)
			if err != nil {
				t.Errorf("Process() error = %v", err)
				return
			}
			ids <- result.SessionID
		}(reqs[i])
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool)
	for id := range ids {
		if seen[id] {
			t.Errorf("session ID %s reused", id)
		}
		seen[id] = true
	}
	if len(seen) != n {
		t.Errorf("%d distinct sessions, want %d", len(seen), n)
	}
	if dirs := sessionDirs(t, store); len(dirs) != 0 {
		t.Errorf("session directories left behind: %v", dirs)
	}
}

func TestProcessWithOptimization(t *testing.T) {
	fake := &fakeTranscoder{duration: 1, measured: true}
	o, _ := newTestOrchestrator(t, Config{OptimizeImages: true, OptimizeMaxDimension: 4}, fake)

	if _, err := o.Process(context.Background(), testRequest(t, 1, "")); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if fake.frames != 1 {
		t.Errorf("frames = %d, want 1", fake.frames)
	}
}
