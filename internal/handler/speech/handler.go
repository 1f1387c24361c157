package speech

import (
	"context"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	chathandler "github.com/zhouzirui/therapist-ai/backend/internal/handler/chat"
	"github.com/zhouzirui/therapist-ai/backend/internal/model/chat"
	speechsvc "github.com/zhouzirui/therapist-ai/backend/internal/service/speech"
	"github.com/zhouzirui/therapist-ai/backend/pkg/utils"
)

const maxAudioBytes = 32 << 20

// SpeechService 抽象语音业务，便于测试与替换实现
type SpeechService interface {
	Recognize(ctx context.Context, audio []byte, format string) speechsvc.Recognition
	Speak(ctx context.Context, text string) (speechsvc.Audio, error)
}

// Exchanger records one utterance/reply turn in a session.
type Exchanger interface {
	Exchange(ctx context.Context, sessionID, utterance string) (chathandler.ExchangeResponse, error)
}

// Handler 语音服务的HTTP处理器
type Handler struct {
	speechSvc SpeechService
	exchanger Exchanger
}

// VoiceResponse is returned by the voice endpoint. Turn is nil when the
// audio could not be recognized.
type VoiceResponse struct {
	Recognition   speechsvc.Recognition `json:"recognition"`
	Turn          *chat.Turn            `json:"turn"`
	AssistantName string                `json:"assistantName,omitempty"`
}

// New 创建语音处理器。speechSvc 为 nil 时语音功能不可用。
func New(speechSvc SpeechService, exchanger Exchanger) *Handler {
	return &Handler{
		speechSvc: speechSvc,
		exchanger: exchanger,
	}
}

// RegisterRoutes 注册语音相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/speech", func(speechRouter chi.Router) {
		speechRouter.Post("/synthesize", h.handleSynthesize)
		speechRouter.Get("/health", h.handleHealth)
	})
}

// RegisterSessionRoutes 注册挂载在会话下的语音路由
func (h *Handler) RegisterSessionRoutes(r chi.Router) {
	r.Post("/voice", h.handleVoice)
}

// handleVoice 识别上传的音频，并把识别结果作为一次对话输入。
func (h *Handler) handleVoice(w http.ResponseWriter, r *http.Request) {
	if h.speechSvc == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "speech service not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxAudioBytes)
	if err := r.ParseMultipartForm(maxAudioBytes); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "failed to parse multipart form: "+err.Error())
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "audio file is required")
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "failed to read audio")
		return
	}
	if len(audio) == 0 {
		utils.RespondError(w, http.StatusBadRequest, "audio file is empty")
		return
	}

	format := r.FormValue("format")
	if format == "" {
		format = inferAudioFormat(header.Filename)
	}

	recognition := h.speechSvc.Recognize(r.Context(), audio, format)
	if !recognition.Recognized {
		utils.RespondJSON(w, http.StatusOK, VoiceResponse{Recognition: recognition})
		return
	}

	resp, err := h.exchanger.Exchange(r.Context(), chi.URLParam(r, "sessionID"), recognition.Text)
	if err != nil {
		chathandler.RespondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusCreated, VoiceResponse{
		Recognition:   recognition,
		Turn:          &resp.Turn,
		AssistantName: resp.AssistantName,
	})
}

// handleSynthesize 处理文本转语音请求
func (h *Handler) handleSynthesize(w http.ResponseWriter, r *http.Request) {
	if h.speechSvc == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "speech service not configured")
		return
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		utils.RespondError(w, http.StatusBadRequest, "text is required")
		return
	}

	audio, err := h.speechSvc.Speak(r.Context(), req.Text)
	if err != nil {
		log.Error().Err(err).Msg("speech synthesis failed")
		utils.RespondError(w, http.StatusBadGateway, "speech synthesis failed")
		return
	}

	format := audio.Format
	if format == "" {
		format = "mpeg"
	}
	w.Header().Set("Content-Type", "audio/"+format)
	w.Header().Set("Content-Length", strconv.Itoa(len(audio.Data)))
	w.Header().Set("Content-Disposition", "attachment; filename=speech."+audio.Format)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(audio.Data); err != nil {
		log.Warn().Err(err).Msg("failed to write audio response")
	}
}

// handleHealth 健康检查端点
func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	status := "healthy"
	if h.speechSvc == nil {
		status = "disabled"
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"service": "speech",
	})
}

// inferAudioFormat 从文件名推断音频格式
func inferAudioFormat(filename string) string {
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".mp3":
		return "mp3"
	case ".ogg", ".opus":
		return "ogg"
	case ".webm":
		return "webm"
	case ".pcm":
		return "pcm"
	default:
		return "wav"
	}
}
