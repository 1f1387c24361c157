package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	chatmodel "github.com/zhouzirui/therapist-ai/backend/internal/model/chat"
	"github.com/zhouzirui/therapist-ai/backend/internal/model/persona"
	"github.com/zhouzirui/therapist-ai/backend/internal/service/ai"
	chatservice "github.com/zhouzirui/therapist-ai/backend/internal/service/chat"
)

type stubModel struct {
	mu      sync.Mutex
	replies []string
	err     error
}

func (m *stubModel) Generate(_ context.Context, _ []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	reply := m.replies[0]
	m.replies = m.replies[1:]
	return schema.AssistantMessage(reply, nil), nil
}

func (m *stubModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("streaming not supported")
}

func setupRouter(t *testing.T, m *stubModel) (*chi.Mux, *chatservice.Service) {
	t.Helper()

	aiSvc, err := ai.NewService(m, persona.Therapist())
	require.NoError(t, err)

	chatSvc := chatservice.NewService()
	handler := New(chatSvc, aiSvc)

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r, chatSvc
}

func do(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func createSession(t *testing.T, r http.Handler) chatmodel.Transcript {
	t.Helper()

	resp := do(t, r, http.MethodPost, "/sessions", "")
	require.Equal(t, http.StatusCreated, resp.Code)

	var session chatmodel.Transcript
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &session))
	return session
}

func sendMessage(t *testing.T, r http.Handler, sessionID, utterance string) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(map[string]string{"utterance": utterance})
	require.NoError(t, err)
	return do(t, r, http.MethodPost, "/sessions/"+sessionID+"/messages", string(body))
}

func TestCreateSession(t *testing.T) {
	r, chatSvc := setupRouter(t, &stubModel{})

	session := createSession(t, r)
	assert.NotEmpty(t, session.SessionID)
	assert.Equal(t, chatmodel.DefaultAssistantName, session.AssistantName)
	assert.Equal(t, 1, chatSvc.Count())
}

func TestCreateSessionWithName(t *testing.T) {
	r, _ := setupRouter(t, &stubModel{})

	resp := do(t, r, http.MethodPost, "/sessions", `{"assistantName":"Dr. Calm"}`)
	require.Equal(t, http.StatusCreated, resp.Code)
	assert.Contains(t, resp.Body.String(), `"assistantName":"Dr. Calm"`)
}

func TestCreateSessionInvalidBody(t *testing.T) {
	r, _ := setupRouter(t, &stubModel{})

	resp := do(t, r, http.MethodPost, "/sessions", `{"personaId":`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestSendMessageRecordsTurn(t *testing.T) {
	r, chatSvc := setupRouter(t, &stubModel{replies: []string{"It's understandable to feel anxious..."}})
	session := createSession(t, r)

	resp := sendMessage(t, r, session.SessionID, "I feel anxious today")
	require.Equal(t, http.StatusCreated, resp.Code)

	var body ExchangeResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "I feel anxious today", body.Turn.UserUtterance)
	assert.Equal(t, "It's understandable to feel anxious...", body.Turn.AssistantReply)
	assert.Equal(t, chatmodel.DefaultAssistantName, body.AssistantName)

	turns, err := chatSvc.LoadTranscript(context.Background(), session.SessionID)
	require.NoError(t, err)
	require.Len(t, turns, 1)
}

func TestSendMessageRecordsGenerationError(t *testing.T) {
	r, chatSvc := setupRouter(t, &stubModel{err: errors.New("network unreachable")})
	session := createSession(t, r)

	resp := sendMessage(t, r, session.SessionID, "hello")
	require.Equal(t, http.StatusCreated, resp.Code)

	var body ExchangeResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.True(t, strings.HasPrefix(body.Turn.AssistantReply, "Error: "))
	assert.True(t, body.Turn.Failed)

	turns, err := chatSvc.LoadTranscript(context.Background(), session.SessionID)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "Error: network unreachable", turns[0].AssistantReply)
}

func TestSendMessageSequentialTurns(t *testing.T) {
	r, chatSvc := setupRouter(t, &stubModel{replies: []string{"one", "two"}})
	session := createSession(t, r)

	require.Equal(t, http.StatusCreated, sendMessage(t, r, session.SessionID, "first").Code)
	require.Equal(t, http.StatusCreated, sendMessage(t, r, session.SessionID, "second").Code)

	turns, err := chatSvc.LoadTranscript(context.Background(), session.SessionID)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "first", turns[0].UserUtterance)
	assert.Equal(t, "one", turns[0].AssistantReply)
	assert.Equal(t, "second", turns[1].UserUtterance)
	assert.Equal(t, "two", turns[1].AssistantReply)
}

func TestSendMessageValidation(t *testing.T) {
	r, _ := setupRouter(t, &stubModel{})
	session := createSession(t, r)

	tests := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{"blank utterance", "/sessions/" + session.SessionID + "/messages", `{"utterance":"  "}`, http.StatusBadRequest},
		{"malformed body", "/sessions/" + session.SessionID + "/messages", `{"utterance":`, http.StatusBadRequest},
		{"unknown session", "/sessions/missing/messages", `{"utterance":"hi"}`, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, r, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.status, resp.Code)
		})
	}
}

func TestSendMessageWhileBusy(t *testing.T) {
	r, chatSvc := setupRouter(t, &stubModel{})
	session := createSession(t, r)

	release, err := chatSvc.BeginExchange(context.Background(), session.SessionID)
	require.NoError(t, err)
	defer release()

	resp := sendMessage(t, r, session.SessionID, "are you there?")
	assert.Equal(t, http.StatusConflict, resp.Code)
}

func TestRenameAssistant(t *testing.T) {
	r, _ := setupRouter(t, &stubModel{replies: []string{"hi"}})
	session := createSession(t, r)
	require.Equal(t, http.StatusCreated, sendMessage(t, r, session.SessionID, "hello").Code)

	resp := do(t, r, http.MethodPut, "/sessions/"+session.SessionID+"/assistant", `{"name":"Sage"}`)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"assistantName":"Sage"}`, resp.Body.String())

	resp = do(t, r, http.MethodPut, "/sessions/"+session.SessionID+"/assistant", `{"name":"   "}`)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"assistantName":"Sage"}`, resp.Body.String())

	resp = do(t, r, http.MethodGet, "/sessions/"+session.SessionID+"/transcript?format=markdown", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Header().Get("Content-Type"), "text/markdown")
	assert.Contains(t, resp.Body.String(), "**Sage**: hi")
}

func TestTranscriptJSON(t *testing.T) {
	r, _ := setupRouter(t, &stubModel{replies: []string{"hi"}})
	session := createSession(t, r)
	require.Equal(t, http.StatusCreated, sendMessage(t, r, session.SessionID, "hello").Code)

	resp := do(t, r, http.MethodGet, "/sessions/"+session.SessionID+"/transcript", "")
	require.Equal(t, http.StatusOK, resp.Code)

	var got chatmodel.Transcript
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &got))
	require.Len(t, got.Turns, 1)
	assert.Equal(t, "hello", got.Turns[0].UserUtterance)
}

func TestResetAndEndSession(t *testing.T) {
	r, chatSvc := setupRouter(t, &stubModel{replies: []string{"hi"}})
	session := createSession(t, r)
	require.Equal(t, http.StatusCreated, sendMessage(t, r, session.SessionID, "hello").Code)

	resp := do(t, r, http.MethodPost, "/sessions/"+session.SessionID+"/reset", "")
	require.Equal(t, http.StatusOK, resp.Code)

	var got chatmodel.Transcript
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &got))
	assert.Empty(t, got.Turns)

	resp = do(t, r, http.MethodDelete, "/sessions/"+session.SessionID, "")
	assert.Equal(t, http.StatusNoContent, resp.Code)
	assert.Equal(t, 0, chatSvc.Count())

	resp = do(t, r, http.MethodGet, "/sessions/"+session.SessionID, "")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}
