package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	router "github.com/dkeye/meetsync/internal/adapters/http"
	"github.com/dkeye/meetsync/internal/adapters/extract"
	"github.com/dkeye/meetsync/internal/adapters/rtc"
	"github.com/dkeye/meetsync/internal/adapters/signal"
	"github.com/dkeye/meetsync/internal/adapters/transcribe"
	"github.com/dkeye/meetsync/internal/app"
	"github.com/dkeye/meetsync/internal/app/orch"
	"github.com/dkeye/meetsync/internal/config"
	"github.com/dkeye/meetsync/internal/core"
	"github.com/dkeye/meetsync/internal/storage/sqlite"
)

func newTranscriber(cfg config.TranscriptionConfig) core.Transcriber {
	switch cfg.Provider {
	case "echo":
		return transcribe.Echo{}
	default:
		if cfg.APIKey == "" {
			log.Warn().Str("module", "main").Msg("transcription.api_key is empty, audio chunks will fail to transcribe")
		}
		return transcribe.NewAssemblyAI(cfg.BaseURL, cfg.APIKey, cfg.PollInterval)
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	store, err := sqlite.NewStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error().Err(err).Str("module", "main").Msg("close store")
		}
	}()
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate store: %w", err)
	}

	extractor := extract.New(extract.Config{
		BaseURL:     cfg.Extraction.BaseURL,
		APIKey:      cfg.Extraction.APIKey,
		Model:       cfg.Extraction.Model,
		MaxTokens:   cfg.Extraction.MaxTokens,
		Temperature: cfg.Extraction.Temperature,
		TopP:        cfg.Extraction.TopP,
	})
	// Finalization outlives the request that triggered it, and in-flight jobs
	// are drained on shutdown.
	pool := app.NewFinalizePool(context.WithoutCancel(ctx), cfg.Finalize.Workers, store, extractor)

	hub := signal.NewHub()
	o := &orch.Orchestrator{
		Registry:        app.NewRegistry(),
		Rooms:           app.NewRoomManager(),
		Emitter:         hub,
		Kicker:          hub,
		Transcriber:     newTranscriber(cfg.Transcription),
		Finalizer:       pool,
		Policy:          app.SimplePolicy{},
		DebugInvariants: cfg.DebugInvariants,
	}
	limiter := signal.NewRateLimiter(cfg.Audio.RateLimit, cfg.Audio.RateInterval)
	ctl := signal.NewSignalWSController(o, hub, limiter, signal.Options{
		ReadLimit:  cfg.ReadLimit,
		PingPeriod: cfg.PingPeriod,
		SendBuffer: cfg.SendBuffer,
	})

	if cfg.Secret == "" {
		cfg.Secret = uuid.NewString()
		log.Warn().Str("module", "main").Msg("secret is empty, generated an ephemeral session secret")
	}

	r := router.SetupRouter(ctx, cfg, router.Deps{
		Orch:       o,
		Signal:     ctl,
		Store:      store,
		ICEServers: rtc.ICEServers(cfg.ICE.URLs, cfg.ICE.Username, cfg.ICE.Credential),
	})
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	errCh := make(chan error, 1)
	go func() {
		var err error
		if cfg.TLS.Enabled() {
			log.Info().Str("module", "main").Str("addr", addr).Msg("meetsync server started (https)")
			err = srv.ListenAndServeTLS(cfg.TLS.CertFile, cfg.TLS.KeyFile)
		} else {
			log.Info().Str("module", "main").Str("addr", addr).Msg("meetsync server started")
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Str("module", "main").Msg("server error")
			return err
		}
	}

	log.Info().Str("module", "main").Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Str("module", "main").Msg("Server forced to shutdown")
	}
	pool.Wait()
	log.Info().Str("module", "main").Msg("Server exited gracefully")
	return nil
}
