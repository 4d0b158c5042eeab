package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"video-creator/internal/handlers"
	"video-creator/internal/janitor"
	"video-creator/internal/logging"
	"video-creator/internal/media"
	"video-creator/internal/memory"
	"video-creator/internal/metrics"
	"video-creator/internal/middleware"
	"video-creator/internal/pipeline"
	"video-creator/internal/session"
	"video-creator/internal/startup"
	"video-creator/internal/transcoder"
	"video-creator/internal/workers"

	"github.com/gorilla/mux"
)

const (
	// maxTranscodeConcurrency caps the automatic FFmpeg slot count
	maxTranscodeConcurrency = 4

	metricsCollectInterval = time.Minute
	shutdownTimeout        = 30 * time.Second
)

func main() {
	startTime := time.Now()

	// Must run before anything allocates significantly
	memory.ConfigureFromEnv()

	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	store, err := session.NewStore(config.WorkDir)
	if err != nil {
		startup.LogFatal("Failed to initialize session store: %v", err)
	}
	orphans, err := store.Orphans()
	if err != nil {
		logging.Warn("Failed to scan work directory for leftover sessions: %v", err)
	}
	startup.LogSessionStoreInit(store.Root(), len(orphans))

	concurrency := workers.Capacity(config.TranscodeConcurrency, maxTranscodeConcurrency)
	ffmpegAvailable := startup.LogTranscoderInit(config.FFmpegPath, config.FFprobePath, config.TranscodeTimeout, concurrency)
	trans := transcoder.New(transcoder.Config{
		FFmpegPath:       config.FFmpegPath,
		FFprobePath:      config.FFprobePath,
		Timeout:          config.TranscodeTimeout,
		FallbackDuration: config.AudioFallbackDuration.Seconds(),
	})

	if config.OptimizeImages {
		if err := media.InitVips(); err != nil {
			logging.Warn("libvips unavailable, falling back to pure Go resizing: %v", err)
		}
	}
	startup.LogImageOptimizerInit(config.OptimizeImages, media.IsVipsAvailable(), config.OptimizeMaxDimension)

	orchestrator := pipeline.New(pipelineConfig(config), store, trans, workers.NewGate(concurrency))

	startup.LogJanitorInit(config.SessionRetention, config.SweepInterval)
	sweeper := janitor.New(store, config.SessionRetention, config.SweepInterval)
	sweeper.Start()

	metrics.InitializeMetrics()
	buildInfo := startup.GetBuildInfo()
	metrics.SetAppInfo(buildInfo.Version, buildInfo.Commit, buildInfo.GoVersion)
	collector := metrics.NewCollector(store, metricsCollectInterval)
	collector.Start()

	h := handlers.New(orchestrator, store, config)

	router := setupRouter(h)
	startup.LogHTTPRoutes(router, config.LogHealthChecks)

	srv := &http.Server{
		Addr:    ":" + config.Port,
		Handler: buildHandler(router, config),
	}
	applyServerTimeouts(srv, config.TranscodeTimeout)

	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metricsSrv = newMetricsServer(config.MetricsPort, h.MetricsHandler())
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logging.Error("Metrics server error: %v", err)
			}
		}()
	}

	go handleShutdown(srv, metricsSrv, shutdownComponents{
		transcoder: trans,
		janitor:    sweeper,
		collector:  collector,
		store:      store,
	})

	// Readiness follows FFmpeg: without it every upload would fail
	h.SetReady(ffmpegAvailable)

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		startup.LogFatal("Server error: %v", err)
	}
}

func pipelineConfig(config *startup.Config) pipeline.Config {
	return pipeline.Config{
		MaxAudioBytes:        config.MaxAudioBytes,
		MaxImageBytes:        config.MaxImageBytes,
		MaxImageCount:        config.MaxImages,
		FrameRate:            config.FrameRate,
		OptimizeImages:       config.OptimizeImages,
		OptimizeMaxDimension: config.OptimizeMaxDimension,
	}
}

func setupRouter(h *handlers.Handlers) *mux.Router {
	r := mux.NewRouter()
	h.Routes(r)
	return r
}

// buildHandler wraps the router in logging and metrics middleware.
func buildHandler(router http.Handler, config *startup.Config) http.Handler {
	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	handler := middleware.Logger(loggingConfig)(router)

	if config.MetricsEnabled {
		handler = middleware.Metrics(middleware.DefaultMetricsConfig())(handler)
	}
	return handler
}

// applyServerTimeouts sizes the write timeout so a response can outlive
// the slowest allowed transcode.
func applyServerTimeouts(srv *http.Server, transcodeTimeout time.Duration) {
	srv.ReadHeaderTimeout = 15 * time.Second
	srv.ReadTimeout = 5 * time.Minute
	srv.WriteTimeout = srv.ReadTimeout + transcodeTimeout + time.Minute
	srv.IdleTimeout = 60 * time.Second
}

func newMetricsServer(port string, metricsHandler http.Handler) *http.Server {
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", metricsHandler)
	return &http.Server{
		Addr:         ":" + port,
		Handler:      metricsMux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}
}

type shutdownComponents struct {
	transcoder *transcoder.Transcoder
	janitor    *janitor.Janitor
	collector  *metrics.Collector
	store      *session.Store
}

func handleShutdown(srv, metricsSrv *http.Server, c shutdownComponents) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Stop accepting uploads first; in-flight requests get the shutdown
	// window to finish their transcode.
	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	startup.LogShutdownStep("Cleaning up transcoder")
	c.transcoder.Cleanup()
	startup.LogShutdownStepComplete("Transcoder cleanup complete")

	startup.LogShutdownStep("Stopping janitor")
	c.janitor.Stop()
	startup.LogShutdownStepComplete("Janitor stopped")

	c.collector.Stop()

	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		}
	}

	media.ShutdownVips()

	startup.LogShutdownStep("Releasing work directory")
	for _, e := range c.store.Snapshot() {
		c.store.Release(e.ID, session.ReasonShutdown)
	}
	if err := c.store.Close(); err != nil {
		logging.Warn("Failed to release work directory lock: %v", err)
	} else {
		startup.LogShutdownStepComplete("Work directory released")
	}

	startup.LogShutdownComplete()
	os.Exit(0)
}
