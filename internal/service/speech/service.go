// Package speech wraps external speech recognition and synthesis services.
// Both are consumed as opaque capabilities: audio in, text out, and back.
package speech

import (
	"context"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/therapist-ai/backend/internal/config"
)

// RecognitionPlaceholder replaces the transcript when recognition fails.
const RecognitionPlaceholder = "Sorry, I couldn't understand the audio. Could you try again?"

// Transcriber turns recorded audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, format string) (string, error)
}

// Synthesizer turns text into audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (Audio, error)
}

// Recognition is the outcome of one transcription attempt.
type Recognition struct {
	Text       string `json:"text"`
	Recognized bool   `json:"recognized"`
}

// Service combines recognition and synthesis.
type Service struct {
	transcriber Transcriber
	synthesizer Synthesizer
}

// Options overrides the Volcengine endpoints.
type Options struct {
	ASRURL string
	TTSURL string
}

// NewService creates a Volcengine-backed speech service.
func NewService(cfg config.SpeechConfig, opts Options) *Service {
	if opts.ASRURL == "" {
		opts.ASRURL = defaultASRURL
	}
	if opts.TTSURL == "" {
		opts.TTSURL = defaultTTSURL
	}

	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	dialer := &websocket.Dialer{HandshakeTimeout: timeout}

	return NewServiceWith(
		&VolcengineTranscriber{
			appID:      cfg.AppID,
			token:      cfg.AccessToken,
			resourceID: cfg.Cluster,
			language:   cfg.ASRLanguage,
			url:        opts.ASRURL,
			dialer:     dialer,
		},
		&VolcengineSynthesizer{
			appID:  cfg.AppID,
			token:  cfg.AccessToken,
			voice:  cfg.TTSVoice,
			speed:  cfg.TTSSpeed,
			url:    opts.TTSURL,
			dialer: dialer,
		},
	)
}

// NewServiceWith builds a Service from arbitrary collaborators.
func NewServiceWith(t Transcriber, s Synthesizer) *Service {
	return &Service{transcriber: t, synthesizer: s}
}

// Recognize transcribes audio. Failures never propagate: they yield the
// apologetic placeholder with Recognized set to false.
func (s *Service) Recognize(ctx context.Context, audio []byte, format string) Recognition {
	text, err := s.transcriber.Transcribe(ctx, audio, format)
	if err != nil {
		log.Warn().Err(err).Str("format", format).Int("bytes", len(audio)).Msg("speech recognition failed")
		return Recognition{Text: RecognitionPlaceholder}
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return Recognition{Text: RecognitionPlaceholder}
	}
	return Recognition{Text: text, Recognized: true}
}

// Speak synthesizes text.
func (s *Service) Speak(ctx context.Context, text string) (Audio, error) {
	return s.synthesizer.Synthesize(ctx, text)
}
