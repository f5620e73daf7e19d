// Package runtime assembles the service: configuration, telemetry, the
// optional message bus, stores, conversion pipeline and the HTTP façade.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lehakshiv/lehakshiv/internal/audio"
	"github.com/lehakshiv/lehakshiv/internal/bus"
	"github.com/lehakshiv/lehakshiv/internal/config"
	"github.com/lehakshiv/lehakshiv/internal/convert"
	"github.com/lehakshiv/lehakshiv/internal/extract"
	"github.com/lehakshiv/lehakshiv/internal/jobstore"
	"github.com/lehakshiv/lehakshiv/internal/natsserver"
	"github.com/lehakshiv/lehakshiv/internal/server"
	"github.com/lehakshiv/lehakshiv/internal/store"
	"github.com/lehakshiv/lehakshiv/internal/tts"
)

type Runtime struct {
	cfg         config.Config
	logger      *slog.Logger
	httpServer  *http.Server
	metricsSrv  *http.Server
	tracerClose func(context.Context) error
	ready       atomic.Bool
	wg          sync.WaitGroup
}

func New(cfg config.Config, logger *slog.Logger) *Runtime {
	return &Runtime{
		cfg:    cfg,
		logger: logger,
	}
}

// Start brings the service up and blocks until ctx is cancelled, then tears
// everything down in reverse order. The working directory is removed on
// shutdown unless store.keep_on_shutdown is set.
func (r *Runtime) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	shutdownTelemetry, metricHandler, err := setupTelemetry(r.cfg, r.logger)
	if err != nil {
		return fmt.Errorf("failed to setup telemetry: %w", err)
	}
	r.tracerClose = shutdownTelemetry

	embedded, err := natsserver.Start(r.cfg.Bus, r.logger)
	if err != nil {
		return fmt.Errorf("failed to start embedded bus: %w", err)
	}
	defer embedded.Shutdown()

	var busClient *bus.Client
	if r.cfg.Bus.Enabled {
		busClient, err = bus.Connect(ctx, r.cfg.Bus, r.logger)
		if err != nil {
			return fmt.Errorf("failed to connect to bus: %w", err)
		}
		defer busClient.Close()
	}

	files, err := store.Open(r.cfg.Store, r.logger)
	if err != nil {
		return fmt.Errorf("failed to open file store: %w", err)
	}
	defer func() {
		if err := files.Close(); err != nil {
			r.logger.Error("file store teardown failed", slog.String("error", err.Error()))
		}
	}()

	jobs, err := jobstore.Open(ctx, r.cfg.JobStore, r.logger)
	if err != nil {
		return fmt.Errorf("failed to open job store: %w", err)
	}
	defer jobs.Close()

	extractors, err := extract.NewRegistry(r.cfg.Extract.PDFCommand)
	if err != nil {
		return fmt.Errorf("failed to build extractors: %w", err)
	}

	synth, err := buildSynthesizer(r.cfg.TTS)
	if err != nil {
		return fmt.Errorf("failed to build synthesizer: %w", err)
	}

	pipeline, err := convert.NewPipeline(
		r.cfg.Convert, extractors, synth, audio.NewMerger(),
		files, jobs, busClient, r.cfg.TTS.Format, r.logger)
	if err != nil {
		return fmt.Errorf("failed to build pipeline: %w", err)
	}

	manager := convert.NewManager(ctx, r.cfg.Convert, pipeline, jobs, r.logger)
	defer manager.Close()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", r.handleHealth)
	mux.HandleFunc("GET /readyz", r.handleReady)
	server.New(files, manager, r.cfg.HTTP.MaxUploadMB, r.logger).Register(mux)

	addr := fmt.Sprintf("%s:%d", r.cfg.HTTP.Bind, r.cfg.HTTP.Port)
	r.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			r.logger.Error("http server failed", slog.String("error", err.Error()))
		}
	}()

	if metricHandler != nil {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", metricHandler)
		r.metricsSrv = &http.Server{
			Addr:              r.cfg.Telemetry.PrometheusBind,
			Handler:           metricsMux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			if err := r.metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				r.logger.Error("metrics server failed", slog.String("error", err.Error()))
			}
		}()
	}

	r.ready.Store(true)
	r.logger.Info("runtime started",
		slog.String("addr", addr),
		slog.String("work_dir", files.Root()))

	<-ctx.Done()
	r.logger.Info("runtime stopping")
	r.ready.Store(false)

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(),
		time.Duration(r.cfg.HTTP.ShutdownGrace)*time.Millisecond)
	defer cancelShutdown()
	if err := r.httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Error("http shutdown error", slog.String("error", err.Error()))
	}
	if r.metricsSrv != nil {
		if err := r.metricsSrv.Shutdown(shutdownCtx); err != nil {
			r.logger.Error("metrics shutdown error", slog.String("error", err.Error()))
		}
	}
	r.wg.Wait()

	if r.tracerClose != nil {
		if err := r.tracerClose(shutdownCtx); err != nil {
			r.logger.Error("telemetry shutdown error", slog.String("error", err.Error()))
		}
	}

	return nil
}

func buildSynthesizer(cfg config.TTSConfig) (tts.Synthesizer, error) {
	switch cfg.Mode {
	case "exec":
		return tts.NewExecSynth(cfg.Command, cfg.Voice, time.Duration(cfg.SynthTimeoutMS)*time.Millisecond)
	default:
		return tts.NewMockSynth(), nil
	}
}

func (r *Runtime) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (r *Runtime) handleReady(w http.ResponseWriter, _ *http.Request) {
	if r.ready.Load() {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte("not ready"))
}
