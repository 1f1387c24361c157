package chat

import (
	"context"
	"strings"

	"github.com/zhouzirui/therapist-ai/backend/internal/model/chat"
)

// Responder produces the assistant reply for one utterance. It never fails:
// failures come back as reply text with failed set.
type Responder interface {
	Respond(ctx context.Context, utterance string) (reply string, failed bool)
}

// Exchange runs one interaction: it claims the session, waits for the reply
// and records the turn. Blank utterances are rejected before anything is
// generated.
func (s *Service) Exchange(ctx context.Context, sessionID, utterance string, responder Responder) (chat.Turn, error) {
	if strings.TrimSpace(utterance) == "" {
		return chat.Turn{}, ErrUtteranceRequired
	}

	release, err := s.BeginExchange(ctx, sessionID)
	if err != nil {
		return chat.Turn{}, err
	}
	defer release()

	reply, failed := responder.Respond(ctx, utterance)
	return s.AppendTurn(ctx, sessionID, utterance, reply, failed)
}
