package chat

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/gemini-chat/backend/internal/model/chat"
	"github.com/zhouzirui/gemini-chat/backend/internal/service/ai"
	chatService "github.com/zhouzirui/gemini-chat/backend/internal/service/chat"
	"github.com/zhouzirui/gemini-chat/backend/pkg/utils"
)

// Handler 聊天服务的HTTP处理器
type Handler struct {
	chatSvc   *chatService.Service
	submitter *chatService.Submitter
}

// New 创建聊天处理器；submitter 为 nil 时提交接口返回 503。
func New(chatSvc *chatService.Service, submitter *chatService.Submitter) *Handler {
	return &Handler{
		chatSvc:   chatSvc,
		submitter: submitter,
	}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/history", h.handleHistory)
	r.Get("/state", h.handleState)
	r.Post("/messages", h.handleSubmit)
	r.Get("/theme", h.handleGetTheme)
	r.Put("/theme", h.handleSetTheme)
}

// StateResponse 首屏渲染所需的全部状态。
type StateResponse struct {
	Messages []chat.Message `json:"messages"`
	DarkMode bool           `json:"darkMode"`
	Loading  bool           `json:"loading"`
}

type themePayload struct {
	DarkMode *bool `json:"darkMode"`
}

// handleHistory 返回当前对话记录
func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.chatSvc.CurrentLog())
}

func (h *Handler) handleState(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, StateResponse{
		Messages: h.chatSvc.CurrentLog(),
		DarkMode: h.chatSvc.DarkMode(),
		Loading:  h.chatSvc.Loading(),
	})
}

// handleSubmit 发送提问并返回新追加的消息
func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Prompt string `json:"prompt"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if h.submitter == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "ai completion unavailable")
		return
	}

	message, err := h.submitter.Submit(r.Context(), payload.Prompt, nil)
	if err != nil {
		status, msg := SubmitErrorStatus(err)
		utils.RespondError(w, status, msg)
		return
	}

	utils.RespondJSON(w, http.StatusCreated, message)
}

// SubmitErrorStatus maps a Submit error to an HTTP status and client message.
func SubmitErrorStatus(err error) (int, string) {
	var remote *ai.RemoteCallError
	switch {
	case errors.Is(err, chatService.ErrEmptyPrompt):
		return http.StatusBadRequest, "prompt is required"
	case errors.Is(err, chatService.ErrBusy):
		return http.StatusConflict, err.Error()
	case errors.As(err, &remote):
		return http.StatusBadGateway, remote.Error()
	default:
		return http.StatusInternalServerError, "submission failed"
	}
}

func (h *Handler) handleGetTheme(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]bool{"darkMode": h.chatSvc.DarkMode()})
}

// handleSetTheme 更新主题偏好
func (h *Handler) handleSetTheme(w http.ResponseWriter, r *http.Request) {
	var payload themePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.DarkMode == nil {
		utils.RespondError(w, http.StatusBadRequest, "darkMode is required")
		return
	}

	h.chatSvc.SetTheme(r.Context(), *payload.DarkMode)
	utils.RespondJSON(w, http.StatusOK, map[string]bool{"darkMode": *payload.DarkMode})
}
