package ai

import (
	"context"

	"github.com/cloudwego/eino/components/model"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/therapist-ai/backend/internal/config"
	"github.com/zhouzirui/therapist-ai/backend/internal/model/persona"
)

// ChatModelFromConfig builds the configured provider's chat model. It never
// fails: missing credentials or a construction error yield a model that
// reports the problem on every generation.
func ChatModelFromConfig(ctx context.Context, cfg config.AIConfig) model.ChatModel {
	if !cfg.HasCredentials() {
		err := errors.Errorf("no API key configured for provider %q", cfg.Provider)
		log.Warn().Str("provider", cfg.Provider).Msg("AI credentials missing; replies will report the error")
		return NewUnavailableModel(err)
	}

	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		log.Warn().Err(err).Str("provider", cfg.Provider).Msg("chat model unavailable; replies will report the error")
		return NewUnavailableModel(err)
	}

	log.Info().Str("provider", cfg.Provider).Str("model", cfg.Model).Msg("chat model ready")
	return chatModel
}

// NewServiceFromConfig wires the fixed persona to the configured provider.
func NewServiceFromConfig(ctx context.Context, cfg config.AIConfig, p persona.Persona) (*Service, error) {
	return NewService(ChatModelFromConfig(ctx, cfg), p)
}
