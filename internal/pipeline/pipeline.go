package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"video-creator/internal/filesystem"
	"video-creator/internal/logging"
	"video-creator/internal/media"
	"video-creator/internal/mediatypes"
	"video-creator/internal/metrics"
	"video-creator/internal/session"
	"video-creator/internal/subtitles"
	"video-creator/internal/transcoder"
	"video-creator/internal/workers"
)

// Config holds the per-deployment limits and policies of the pipeline.
type Config struct {
	MaxAudioBytes int64
	MaxImageBytes int64
	// MaxImageCount of 0 means no limit.
	MaxImageCount int
	// FrameRate of 0 derives the rate from the audio duration.
	FrameRate float64

	OptimizeImages       bool
	OptimizeMaxDimension int
}

// Asset is one uploaded file.
type Asset struct {
	Filename string
	Size     int64
	Open     func() (io.ReadCloser, error)
}

// Request is one video to build. Images are used in slice order.
type Request struct {
	Audio        *Asset
	Images       []Asset
	SubtitleText string
}

// Result is the finished video, fully in memory.
type Result struct {
	SessionID        string
	Filename         string
	ContentType      string
	Data             []byte
	Captioned        bool
	CueCount         int
	FrameRate        float64
	AudioDuration    float64
	DurationMeasured bool
}

// Transcoder is the subset of *transcoder.Transcoder the pipeline needs.
type Transcoder interface {
	AudioDuration(ctx context.Context, path string) (float64, bool)
	Run(ctx context.Context, job transcoder.Job) error
}

// Orchestrator runs requests from validation to release.
type Orchestrator struct {
	config     Config
	store      *session.Store
	transcoder Transcoder
	gate       *workers.Gate
	optimizer  *media.Optimizer
	hook       TransitionHook
}

// New creates an Orchestrator. A nil gate admits one transcode at a time.
func New(config Config, store *session.Store, tr Transcoder, gate *workers.Gate) *Orchestrator {
	if gate == nil {
		gate = workers.NewGate(1)
	}

	o := &Orchestrator{
		config:     config,
		store:      store,
		transcoder: tr,
		gate:       gate,
	}
	if config.OptimizeImages {
		o.optimizer = &media.Optimizer{MaxDimension: config.OptimizeMaxDimension}
	}
	return o
}

// SetTransitionHook registers fn to observe every state change.
func (o *Orchestrator) SetTransitionHook(fn TransitionHook) {
	o.hook = fn
}

// run tracks one request's state.
type run struct {
	o     *Orchestrator
	id    string
	state State
	log   logging.Logger
}

func (r *run) transition(to State) {
	from := r.state
	r.state = to
	r.log.Debug("%s -> %s", from, to)
	if r.o.hook != nil {
		r.o.hook(r.id, from, to)
	}
}

func (r *run) fail(err error) error {
	r.log.Warn("Failed while %s: %v", r.state, err)
	r.transition(StateFailed)
	return err
}

func observeStage(stage string, start time.Time) {
	metrics.PipelineStageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// Process builds the video described by req. The session opened for the
// request is released before Process returns, whatever the outcome.
func (o *Orchestrator) Process(ctx context.Context, req Request) (result *Result, err error) {
	r := &run{o: o, state: StateValidating, log: logging.For("pipeline")}

	defer func() {
		metrics.PipelineRequestsTotal.WithLabelValues(Outcome(err)).Inc()
	}()

	if err := Validate(o.config, req); err != nil {
		return nil, r.fail(err)
	}

	sess, err := o.store.Open()
	if err != nil {
		return nil, r.fail(err)
	}
	r.id = sess.ID
	r.log = logging.For(sess.ID)
	r.transition(StateSessionOpen)

	defer func() {
		if !o.store.Release(sess.ID, session.ReasonRequest) {
			r.log.Debug("Session already reclaimed")
		}
		r.transition(StateReleased)
	}()

	start := time.Now()
	audioPath, err := o.persistAudio(sess, *req.Audio)
	if err == nil {
		err = o.persistImages(sess, req.Images)
	}
	observeStage("persist", start)
	if err != nil {
		return nil, r.fail(err)
	}
	r.transition(StateInputsPersisted)

	start = time.Now()
	duration, measured := o.transcoder.AudioDuration(ctx, audioPath)
	observeStage("probe", start)

	start = time.Now()
	subtitlePath, cues := o.writeSubtitles(r, sess, req.SubtitleText, duration)
	observeStage("subtitles", start)
	r.transition(StateSubtitlesAttempted)

	digits := ImageDigits(len(req.Images))
	job := transcoder.Job{
		ImagePattern: sess.Path(ImagePattern(digits)),
		ImageCount:   len(req.Images),
		AudioPath:    audioPath,
		SubtitlePath: subtitlePath,
		FrameRate:    transcoder.DeriveFrameRate(len(req.Images), duration, o.config.FrameRate),
		OutputPath:   sess.Register(OutputName),
	}

	if err := o.gate.Acquire(ctx); err != nil {
		return nil, r.fail(fmt.Errorf("waiting for transcoder: %w", err))
	}
	r.transition(StateTranscoding)
	r.log.Info("Transcoding %d images at %s fps over %.3fs of audio (captions: %v)",
		job.ImageCount, formatRate(job.FrameRate), duration, subtitlePath != "")

	start = time.Now()
	err = o.transcoder.Run(ctx, job)
	o.gate.Release()
	observeStage("transcode", start)
	if err != nil {
		return nil, r.fail(err)
	}

	start = time.Now()
	data, err := filesystem.ReadFileWithRetry(job.OutputPath, filesystem.DefaultRetryConfig())
	observeStage("extract", start)
	if err != nil {
		return nil, r.fail(&session.StorageError{Op: "read", Path: job.OutputPath, Err: err})
	}
	r.transition(StateArtifactExtracted)

	metrics.OutputSizeBytes.Observe(float64(len(data)))
	r.log.Info("Video ready: %d bytes", len(data))

	return &Result{
		SessionID:        sess.ID,
		Filename:         DownloadName(sess.ID),
		ContentType:      mediatypes.GetMimeType(".mp4"),
		Data:             data,
		Captioned:        subtitlePath != "",
		CueCount:         cues,
		FrameRate:        job.FrameRate,
		AudioDuration:    duration,
		DurationMeasured: measured,
	}, nil
}

func (o *Orchestrator) persistAudio(sess *session.Session, a Asset) (string, error) {
	path := sess.Register(AudioBaseName + mediatypes.Ext(a.Filename))

	src, err := a.Open()
	if err != nil {
		return "", &session.StorageError{Op: "open upload", Path: a.Filename, Err: err}
	}
	defer closeQuietly(src, a.Filename)

	dst, err := os.Create(path)
	if err != nil {
		return "", &session.StorageError{Op: "create", Path: path, Err: err}
	}

	if _, err := io.Copy(dst, src); err != nil {
		closeQuietly(dst, path)
		return "", &session.StorageError{Op: "write", Path: path, Err: err}
	}
	if err := dst.Close(); err != nil {
		return "", &session.StorageError{Op: "write", Path: path, Err: err}
	}

	return path, nil
}

func (o *Orchestrator) persistImages(sess *session.Session, images []Asset) error {
	digits := ImageDigits(len(images))

	for i, img := range images {
		path := sess.Register(ImageName(i, digits))
		if err := writeFrame(path, img); err != nil {
			var decodeErr *media.DecodeError
			if errors.As(err, &decodeErr) {
				return &ValidationError{
					Message: "Invalid or missing image files",
					Details: fmt.Sprintf("image %d (%s): %v", i+1, img.Filename, decodeErr),
				}
			}
			return err
		}

		if o.optimizer != nil {
			o.optimizer.Optimize(path)
		}
	}

	return nil
}

func writeFrame(path string, img Asset) error {
	src, err := img.Open()
	if err != nil {
		return &session.StorageError{Op: "open upload", Path: img.Filename, Err: err}
	}
	defer closeQuietly(src, img.Filename)

	dst, err := os.Create(path)
	if err != nil {
		return &session.StorageError{Op: "create", Path: path, Err: err}
	}

	if _, err := media.NormalizeToJPEG(src, dst); err != nil {
		closeQuietly(dst, path)
		var decodeErr *media.DecodeError
		if errors.As(err, &decodeErr) {
			return err
		}
		return &session.StorageError{Op: "write", Path: path, Err: err}
	}
	if err := dst.Close(); err != nil {
		return &session.StorageError{Op: "write", Path: path, Err: err}
	}
	return nil
}

// writeSubtitles synthesizes and writes the caption track. Any failure is
// logged and yields an empty path: the video is then built without captions.
func (o *Orchestrator) writeSubtitles(r *run, sess *session.Session, text string, duration float64) (string, int) {
	if strings.TrimSpace(text) == "" {
		return "", 0
	}

	track, err := subtitles.Synthesize(text, duration)
	if err != nil {
		metrics.SubtitleTracksTotal.WithLabelValues("skipped").Inc()
		r.log.Warn("Continuing without captions: %v", err)
		return "", 0
	}

	path := sess.Register(SubtitlesName)
	if err := subtitles.WriteFile(path, track); err != nil {
		metrics.SubtitleTracksTotal.WithLabelValues("skipped").Inc()
		r.log.Warn("Continuing without captions: %v", err)
		return "", 0
	}

	metrics.SubtitleTracksTotal.WithLabelValues("created").Inc()
	metrics.SubtitleCues.Observe(float64(len(track)))
	r.log.Debug("Wrote %d cues to %s", len(track), filepath.Base(path))
	return path, len(track)
}

func formatRate(rate float64) string {
	return fmt.Sprintf("%.4g", rate)
}

func closeQuietly(c io.Closer, name string) {
	if err := c.Close(); err != nil {
		logging.Warn("failed to close %s: %v", name, err)
	}
}
