package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/therapist-ai/backend/internal/config"
	"github.com/zhouzirui/therapist-ai/backend/internal/handler"
	"github.com/zhouzirui/therapist-ai/backend/internal/logging"
	"github.com/zhouzirui/therapist-ai/backend/internal/model/persona"
	"github.com/zhouzirui/therapist-ai/backend/internal/service/ai"
	"github.com/zhouzirui/therapist-ai/backend/internal/service/chat"
	"github.com/zhouzirui/therapist-ai/backend/internal/service/speech"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	logging.Setup(cfg.Log, os.Stderr)

	if envErr != nil {
		log.Debug().Err(envErr).Msg("no .env file, using system environment only")
	}

	personaStore := persona.NewMemoryStore(persona.Seed())
	chatService := chat.NewService()

	aiService, err := ai.NewServiceFromConfig(ctx, cfg.AI, persona.Therapist())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize AI service")
	}

	var speechService *speech.Service
	if cfg.Speech.Enabled {
		speechService = speech.NewService(cfg.Speech, speech.Options{})
		log.Info().Str("voice", cfg.Speech.TTSVoice).Msg("speech service initialized")
	} else {
		log.Info().Msg("speech credentials not configured, voice endpoints disabled")
	}

	router := handler.NewRouter(personaStore, chatService, aiService, speechService)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Info().Str("addr", addr).Msg("TherapistAI backend listening")
	if err := runServer(ctx, srv); err != nil {
		log.Fatal().Err(err).Msg("server error")
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
