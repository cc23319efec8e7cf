// Note service entry point: wires config, storage, the event bus, the
// generation pipeline, and the HTTP/MCP surfaces.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/impetus-notes/note-service/internal/api"
	"github.com/impetus-notes/note-service/internal/categories"
	"github.com/impetus-notes/note-service/internal/config"
	"github.com/impetus-notes/note-service/internal/crypto"
	"github.com/impetus-notes/note-service/internal/db"
	"github.com/impetus-notes/note-service/internal/email"
	"github.com/impetus-notes/note-service/internal/events"
	"github.com/impetus-notes/note-service/internal/filestore"
	"github.com/impetus-notes/note-service/internal/genai"
	"github.com/impetus-notes/note-service/internal/mcp"
	"github.com/impetus-notes/note-service/internal/notes"
	"github.com/impetus-notes/note-service/internal/obs"
	"github.com/impetus-notes/note-service/internal/pipeline"
	"github.com/impetus-notes/note-service/internal/ratelimit"
)

func main() {
	obs.Init()
	log := obs.Pkg("main")

	flags := config.ParseFlags()
	cfg := config.MustLoadConfig(flags)
	cfg.PrintStartupSummary()

	ctx := context.Background()

	dbKey, err := crypto.DeriveDBKey(cfg.MasterKey)
	if err != nil {
		log.Error("failed to derive database key", "error", err)
		os.Exit(1)
	}

	store, err := db.Open(cfg.DataDir, dbKey)
	if err != nil {
		log.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	// Event bus and observers. The webhook and email observers are
	// no-ops when unconfigured, so they are always subscribed.
	bus := events.NewBus()
	bus.Subscribe(&events.LogObserver{Log: obs.Pkg("events")})
	bus.Subscribe(&events.ActivityObserver{Recorder: store})
	bus.Subscribe(&events.WebhookObserver{Endpoint: cfg.WebhookURL, Log: obs.Pkg("events")})

	var emailSvc email.Service
	if cfg.NoEmail || cfg.ResendAPIKey == "" {
		emailSvc = email.NewMockService(obs.Pkg("email"))
	} else {
		emailSvc = email.NewResendService(cfg.ResendAPIKey, cfg.ResendFromEmail)
	}
	bus.Subscribe(&events.EmailObserver{Service: emailSvc, NotifyAddr: cfg.NotifyEmail})

	notesStore := notes.NewStore(store, bus)
	categoryStore := categories.NewStore(store, notesStore, bus)

	var strategy genai.Strategy
	if cfg.NoAI {
		strategy = genai.NewBasicStrategy()
	} else {
		strategy = genai.NewOpenAIStrategy(genai.OpenAIConfig{
			APIKey:          cfg.OpenAIAPIKey,
			Model:           cfg.OpenAIModel,
			Temperature:     cfg.OpenAITemperature,
			MaxOutputTokens: cfg.OpenAIMaxOutputTokens,
			Timeout:         cfg.OpenAITimeout,
		})
	}

	var files *filestore.Store
	if !cfg.NoS3 {
		files, err = filestore.New(ctx, filestore.Config{
			Endpoint:        cfg.AWSEndpointS3,
			Region:          cfg.AWSRegion,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
			Bucket:          cfg.AWSBucketName,
		})
		if err != nil {
			log.Error("failed to create file store", "error", err)
			os.Exit(1)
		}
	}

	p := pipeline.New(strategy, notesStore, categoryStore, files)

	limiter := ratelimit.NewLimiter(cfg.RateLimitConfig)
	defer limiter.Stop()

	mux := http.NewServeMux()
	handler := api.NewHandler(notesStore, categoryStore, p, store, cfg.PDFMaxBytes)
	handler.RegisterRoutes(mux)
	mux.Handle("/mcp", mcp.NewServer(notesStore, categoryStore, p))

	limited := ratelimit.Middleware(limiter, func(r *http.Request) string {
		return r.Header.Get(api.OwnerHeader)
	})

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.RequestID(limited(mux)),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Info("server listening", "addr", cfg.ListenAddr, "strategy", strategy.Name())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", "error", err)
	}
}
