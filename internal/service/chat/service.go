package chat

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/zhouzirui/therapist-ai/backend/internal/model/chat"
)

var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrSessionBusy       = errors.New("a reply is still being generated for this session")
	ErrUtteranceRequired = errors.New("utterance is required")
)

// entry pairs a session with the lock that keeps its exchanges sequential.
type entry struct {
	session  *chat.Session
	exchange sync.Mutex
}

// Service hosts independent in-memory sessions. Nothing is persisted: a
// session's turns disappear when it is ended or the process exits.
type Service struct {
	mu       sync.RWMutex
	sessions map[string]*entry
}

// NewService bootstraps an empty session registry.
func NewService() *Service {
	return &Service{
		sessions: make(map[string]*entry),
	}
}

// CreateSession starts a session. A blank assistantName keeps the default.
func (s *Service) CreateSession(_ context.Context, assistantName string) (chat.Transcript, error) {
	session := chat.NewSession(uuid.NewString())
	session.RenameAssistant(assistantName)

	s.mu.Lock()
	s.sessions[session.ID] = &entry{session: session}
	s.mu.Unlock()

	return session.Transcript(), nil
}

// GetSession returns a snapshot of the session.
func (s *Service) GetSession(_ context.Context, sessionID string) (chat.Transcript, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.sessions[sessionID]
	if !ok {
		return chat.Transcript{}, ErrSessionNotFound
	}
	return e.session.Transcript(), nil
}

// BeginExchange claims the session for one utterance/reply cycle. The
// returned release func must be called once the turn has been recorded.
func (s *Service) BeginExchange(_ context.Context, sessionID string) (func(), error) {
	s.mu.RLock()
	e, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}

	if !e.exchange.TryLock() {
		return nil, ErrSessionBusy
	}
	return e.exchange.Unlock, nil
}

// AppendTurn records an utterance and its reply at the end of the session.
func (s *Service) AppendTurn(_ context.Context, sessionID, utterance, reply string, failed bool) (chat.Turn, error) {
	if strings.TrimSpace(utterance) == "" {
		return chat.Turn{}, ErrUtteranceRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[sessionID]
	if !ok {
		return chat.Turn{}, ErrSessionNotFound
	}
	return e.session.AppendTurn(utterance, reply, failed), nil
}

// RenameAssistant changes the display name and returns the name in effect.
func (s *Service) RenameAssistant(_ context.Context, sessionID, name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[sessionID]
	if !ok {
		return "", ErrSessionNotFound
	}
	e.session.RenameAssistant(name)
	return e.session.AssistantName, nil
}

// LoadTranscript returns the recorded turns in order.
func (s *Service) LoadTranscript(_ context.Context, sessionID string) ([]chat.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return e.session.Turns(), nil
}

// ResetSession clears the turns but keeps the session and its name.
func (s *Service) ResetSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	e.session.Reset()
	return nil
}

// EndSession destroys the session and everything recorded in it.
func (s *Service) EndSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return ErrSessionNotFound
	}
	delete(s.sessions, sessionID)
	return nil
}

// Count reports how many sessions are live.
func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
