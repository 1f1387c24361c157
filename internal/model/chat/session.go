package chat

import (
	"strings"
	"time"
)

// DefaultAssistantName is the display name a new session starts with.
const DefaultAssistantName = "TherapistAI"

// Session holds the turns of one interactive conversation. It is owned by a
// single caller; Service adds the locking needed when sessions are shared.
type Session struct {
	ID            string
	AssistantName string
	CreatedAt     time.Time

	turns []Turn
}

// Transcript is a read-only snapshot of a session used for rendering.
type Transcript struct {
	SessionID     string    `json:"sessionId"`
	AssistantName string    `json:"assistantName"`
	CreatedAt     time.Time `json:"createdAt"`
	Turns         []Turn    `json:"turns"`
}

// NewSession creates an empty session labelled with DefaultAssistantName.
func NewSession(id string) *Session {
	return &Session{
		ID:            id,
		AssistantName: DefaultAssistantName,
		CreatedAt:     time.Now().UTC(),
		turns:         make([]Turn, 0, 16),
	}
}

// AppendTurn records one utterance/reply pair at the end of the session.
func (s *Session) AppendTurn(utterance, reply string, failed bool) Turn {
	turn := Turn{
		UserUtterance:  utterance,
		AssistantReply: reply,
		Failed:         failed,
		CreatedAt:      time.Now().UTC(),
	}
	s.turns = append(s.turns, turn)
	return turn
}

// RenameAssistant overwrites the display name. Blank names are ignored and
// the previous name is kept; the return value reports whether it changed.
func (s *Session) RenameAssistant(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" || name == s.AssistantName {
		return false
	}
	s.AssistantName = name
	return true
}

// Turns returns the turns in insertion order.
func (s *Session) Turns() []Turn {
	copied := make([]Turn, len(s.turns))
	copy(copied, s.turns)
	return copied
}

// Len reports the number of recorded turns.
func (s *Session) Len() int {
	return len(s.turns)
}

// Reset drops every turn. The display name survives.
func (s *Session) Reset() {
	s.turns = make([]Turn, 0, 16)
}

// Transcript snapshots the session.
func (s *Session) Transcript() Transcript {
	return Transcript{
		SessionID:     s.ID,
		AssistantName: s.AssistantName,
		CreatedAt:     s.CreatedAt,
		Turns:         s.Turns(),
	}
}
