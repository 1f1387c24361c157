package ai

import (
	"context"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/therapist-ai/backend/internal/model/persona"
)

// ErrEmptyResponse is reported when the model answers with no text.
var ErrEmptyResponse = errors.New("model returned an empty response")

// Service generates therapist replies. Every call is independent: only the
// persona instruction and the current utterance are sent to the model.
type Service struct {
	persona   persona.Persona
	chatModel model.BaseChatModel
	template  prompt.ChatTemplate
}

// Reply is a generation result ready for the transcript.
type Reply struct {
	Text   string
	Failed bool
}

// NewService binds the persona instruction to a chat model.
func NewService(chatModel model.BaseChatModel, p persona.Persona) (*Service, error) {
	if chatModel == nil {
		return nil, errors.New("chat model is required")
	}
	if strings.TrimSpace(p.Instruction) == "" {
		return nil, errors.New("persona instruction is required")
	}

	return &Service{
		persona:   p,
		chatModel: chatModel,
		template: prompt.FromMessages(
			schema.FString,
			schema.SystemMessage("{system}"),
			schema.UserMessage("{query}"),
		),
	}, nil
}

// Persona returns the persona whose instruction prefixes every request.
func (s *Service) Persona() persona.Persona {
	return s.persona
}

// Generate blocks until the model returns a full reply. The text is returned
// unmodified; any failure is a *GenerationError.
func (s *Service) Generate(ctx context.Context, utterance string) (string, error) {
	start := time.Now()

	messages, err := s.buildMessages(ctx, utterance)
	if err != nil {
		return "", newGenerationError(err)
	}

	response, err := s.chatModel.Generate(ctx, messages)
	if err != nil {
		return "", newGenerationError(err)
	}
	if response == nil || strings.TrimSpace(response.Content) == "" {
		return "", newGenerationError(ErrEmptyResponse)
	}

	log.Debug().
		Str("persona", s.persona.ID).
		Int("length", len(response.Content)).
		Dur("elapsed", time.Since(start)).
		Msg("generated reply")
	return response.Content, nil
}

// Reply never fails: a generation error becomes its "Error: <cause>" text so
// it stays visible in the conversation.
func (s *Service) Reply(ctx context.Context, utterance string) Reply {
	text, err := s.Generate(ctx, utterance)
	if err != nil {
		log.Warn().Err(err).Str("persona", s.persona.ID).Msg("reply generation failed")
		return Reply{Text: FormatError(err), Failed: true}
	}
	return Reply{Text: text}
}

// Respond is Reply in the shape the session service consumes.
func (s *Service) Respond(ctx context.Context, utterance string) (string, bool) {
	r := s.Reply(ctx, utterance)
	return r.Text, r.Failed
}

// buildMessages renders the two-part request: persona instruction, then the
// raw utterance.
func (s *Service) buildMessages(ctx context.Context, utterance string) ([]*schema.Message, error) {
	messages, err := s.template.Format(ctx, map[string]any{
		"system": s.persona.Instruction,
		"query":  utterance,
	})
	if err != nil {
		return nil, errors.Wrap(err, "format prompt")
	}
	return messages, nil
}
