package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/voicerelay/backend/internal/config"
	"github.com/voicerelay/backend/internal/handler"
	"github.com/voicerelay/backend/internal/handler/relay"
	"github.com/voicerelay/backend/internal/service/generate"
	"github.com/voicerelay/backend/internal/service/recap"
	sessionsvc "github.com/voicerelay/backend/internal/service/session"
	"github.com/voicerelay/backend/internal/service/transcribe"
	"github.com/voicerelay/backend/internal/service/translate"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	if !cfg.OpenAI.Enabled() {
		log.Println("warning: OPENAI_API_KEY is not set - provider calls will fail")
	}

	// Outbound calls share one HTTP client; zero timeout leaves them
	// unbounded, per configuration.
	hc := &http.Client{}
	if cfg.OpenAI.Timeout > 0 {
		hc.Timeout = time.Duration(cfg.OpenAI.Timeout) * time.Second
	}

	store := sessionsvc.NewStore(cfg.Session.IdleTTL)
	if cfg.Session.IdleTTL > 0 {
		go store.Run(ctx)
		log.Printf("session idle eviction enabled, ttl=%s", cfg.Session.IdleTTL)
	}

	transcribeClient := transcribe.NewClient(transcribe.Config{
		APIKey:        cfg.OpenAI.APIKey,
		BaseURL:       cfg.OpenAI.BaseURL,
		PrimaryModel:  cfg.Transcribe.PrimaryModel,
		FallbackModel: cfg.Transcribe.FallbackModel,
	}, hc)

	generateClient := generate.NewClient(generate.Config{
		APIKey:  cfg.OpenAI.APIKey,
		BaseURL: cfg.OpenAI.BaseURL,
	}, hc)

	translateService := translate.NewService(generateClient, cfg.Translate.Model)
	recapService := recap.NewService(generateClient, cfg.Recap.Model, cfg.Recap.FallbackModel, cfg.Recap.MaxChars)

	relayHandler := relay.New(store, transcribeClient, translateService, recapService, cfg)
	router := handler.NewRouter(relayHandler)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("voicerelay backend listening on %s", serverCfg.Addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
