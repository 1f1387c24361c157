package logging

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"

	"github.com/zhouzirui/therapist-ai/backend/internal/config"
)

func TestSetupJSON(t *testing.T) {
	prevLogger, prevLevel := log.Logger, zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = prevLogger
		zerolog.SetGlobalLevel(prevLevel)
	})

	var buf bytes.Buffer
	Setup(config.LogConfig{Level: zerolog.WarnLevel}, &buf)

	log.Info().Msg("hidden")
	log.Warn().Str("provider", "gemini").Msg("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"provider":"gemini"`)
	assert.Contains(t, out, `"level":"warn"`)
}
