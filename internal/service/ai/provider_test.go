package ai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/therapist-ai/backend/internal/config"
	"github.com/zhouzirui/therapist-ai/backend/internal/model/persona"
)

func TestNewServiceFromConfigWithoutCredentials(t *testing.T) {
	svc, err := NewServiceFromConfig(context.Background(), config.AIConfig{
		Provider: config.ProviderGemini,
		Model:    "gemini-2.0-flash-exp",
	}, persona.Therapist())
	require.NoError(t, err)

	reply := svc.Reply(context.Background(), "hello")
	assert.True(t, reply.Failed)
	assert.Equal(t, `Error: no API key configured for provider "gemini"`, reply.Text)
}

func TestChatModelFromConfigUnknownProvider(t *testing.T) {
	m := ChatModelFromConfig(context.Background(), config.AIConfig{Provider: "bard", APIKey: "key"})

	_, err := m.Generate(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported AI provider")
}
