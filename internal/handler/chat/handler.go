package chat

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/therapist-ai/backend/internal/model/chat"
	"github.com/zhouzirui/therapist-ai/backend/internal/render"
	chatService "github.com/zhouzirui/therapist-ai/backend/internal/service/chat"
	"github.com/zhouzirui/therapist-ai/backend/pkg/utils"
)

// Handler 聊天服务的HTTP处理器
type Handler struct {
	chatSvc   *chatService.Service
	responder chatService.Responder
}

// New 创建聊天处理器
func New(chatSvc *chatService.Service, responder chatService.Responder) *Handler {
	return &Handler{
		chatSvc:   chatSvc,
		responder: responder,
	}
}

// ExchangeResponse is the body returned for every recorded turn.
type ExchangeResponse struct {
	Turn          chat.Turn `json:"turn"`
	AssistantName string    `json:"assistantName"`
}

// RegisterRoutes 注册聊天相关的路由。sessionRoutes 挂载在 /sessions/{sessionID} 下。
func (h *Handler) RegisterRoutes(r chi.Router, sessionRoutes ...func(chi.Router)) {
	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", h.handleCreateSession)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", h.handleGetSession)
			r.Delete("/", h.handleEndSession)
			r.Post("/reset", h.handleResetSession)
			r.Put("/assistant", h.handleRenameAssistant)
			r.Post("/messages", h.handleSendMessage)
			r.Get("/transcript", h.handleTranscript)
			for _, register := range sessionRoutes {
				register(r)
			}
		})
	})
}

// handleCreateSession 创建会话
func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		AssistantName string `json:"assistantName"`
	}

	// 请求体可以为空。
	if err := utils.DecodeJSON(r, &payload); err != nil && !errors.Is(err, io.EOF) {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.chatSvc.CreateSession(r.Context(), payload.AssistantName)
	if err != nil {
		RespondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusCreated, session)
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.chatSvc.GetSession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		RespondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, session)
}

func (h *Handler) handleEndSession(w http.ResponseWriter, r *http.Request) {
	if err := h.chatSvc.EndSession(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		RespondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleResetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := h.chatSvc.ResetSession(r.Context(), sessionID); err != nil {
		RespondServiceError(w, err)
		return
	}

	session, err := h.chatSvc.GetSession(r.Context(), sessionID)
	if err != nil {
		RespondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, session)
}

// handleRenameAssistant 修改助手名称，空白名称保持原名。
func (h *Handler) handleRenameAssistant(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name string `json:"name"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	name, err := h.chatSvc.RenameAssistant(r.Context(), chi.URLParam(r, "sessionID"), payload.Name)
	if err != nil {
		RespondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"assistantName": name})
}

// handleSendMessage 生成回复并记录本轮对话。生成失败同样记录为一轮，回复为 "Error: ..."。
func (h *Handler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Utterance string `json:"utterance"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.Exchange(r.Context(), chi.URLParam(r, "sessionID"), payload.Utterance)
	if err != nil {
		RespondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, resp)
}

// Exchange runs one utterance through the responder and records the turn.
func (h *Handler) Exchange(ctx context.Context, sessionID, utterance string) (ExchangeResponse, error) {
	turn, err := h.chatSvc.Exchange(ctx, sessionID, utterance, h.responder)
	if err != nil {
		return ExchangeResponse{}, err
	}

	session, err := h.chatSvc.GetSession(ctx, sessionID)
	if err != nil {
		return ExchangeResponse{}, err
	}
	return ExchangeResponse{Turn: turn, AssistantName: session.AssistantName}, nil
}

// handleTranscript 返回完整对话，format=markdown 时返回渲染后的文本。
func (h *Handler) handleTranscript(w http.ResponseWriter, r *http.Request) {
	session, err := h.chatSvc.GetSession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		RespondServiceError(w, err)
		return
	}

	if strings.EqualFold(r.URL.Query().Get("format"), "markdown") {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, render.Markdown(session))
		return
	}
	utils.RespondJSON(w, http.StatusOK, session)
}

// RespondServiceError maps session service errors to HTTP statuses.
func RespondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chatService.ErrSessionNotFound):
		utils.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, chatService.ErrSessionBusy):
		utils.RespondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, chatService.ErrUtteranceRequired):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
	default:
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
	}
}
