package live

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pitchlive-ai/pitchlive/backend/internal/service/engine"
	"github.com/pitchlive-ai/pitchlive/backend/pkg/utils"
)

// maxChunkBytes 单个音频块请求体的上限，防止异常客户端撑爆内存。
const maxChunkBytes = 4 << 20

// Handler 实时分析会话的HTTP处理器
type Handler struct {
	engine *engine.Engine
}

// New 创建实时分析处理器
func New(eng *engine.Engine) *Handler {
	return &Handler{engine: eng}
}

// RegisterRoutes 注册实时会话相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/live/sessions", func(r chi.Router) {
		r.Post("/", h.handleStartSession)
		r.Post("/{sessionID}/chunks", h.handleProcessChunk)
		r.Get("/{sessionID}/metrics", h.handleMetrics)
		r.Post("/{sessionID}/response", h.handleLiveResponse)
		r.Delete("/{sessionID}", h.handleEndSession)
	})
}

type startSessionRequest struct {
	SessionID string `json:"sessionId"`
	UserID    int64  `json:"userId"`
}

// handleStartSession 创建分析会话。sessionId 缺省时由服务端生成。
func (h *Handler) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if r.Body != nil {
		// 空请求体等价于全部使用默认值。
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			utils.RespondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	session, err := h.engine.StartSession(r.Context(), req.SessionID, req.UserID)
	if err != nil {
		if errors.Is(err, engine.ErrSessionExists) {
			utils.RespondError(w, http.StatusConflict, "session already exists")
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, "failed to start session")
		return
	}

	utils.RespondJSON(w, http.StatusCreated, session)
}

// handleProcessChunk 处理一个二进制音频块，返回实时指标与可选的分析结果。
func (h *Handler) handleProcessChunk(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxChunkBytes))
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "failed to read audio chunk")
		return
	}

	result, err := h.engine.ProcessChunk(r.Context(), sessionID, raw)
	if err != nil {
		if errors.Is(err, engine.ErrSessionNotFound) {
			utils.RespondError(w, http.StatusNotFound, "session not found")
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, "failed to process chunk")
		return
	}

	utils.RespondJSON(w, http.StatusOK, result)
}

// handleMetrics 返回会话当前的实时指标。
func (h *Handler) handleMetrics(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	metrics, err := h.engine.Metrics(sessionID)
	if err != nil {
		if errors.Is(err, engine.ErrSessionNotFound) {
			utils.RespondError(w, http.StatusNotFound, "session not found")
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, "failed to load metrics")
		return
	}

	utils.RespondJSON(w, http.StatusOK, metrics)
}

// handleLiveResponse 生成一次实时投资人回应。
func (h *Handler) handleLiveResponse(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	response, err := h.engine.RequestLiveResponse(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, engine.ErrSessionNotFound) {
			utils.RespondError(w, http.StatusNotFound, "session not found")
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, "failed to generate response")
		return
	}

	utils.RespondJSON(w, http.StatusOK, response)
}

// handleEndSession 结束会话并返回总结。
func (h *Handler) handleEndSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	summary, err := h.engine.EndSession(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, engine.ErrSessionNotFound) {
			utils.RespondError(w, http.StatusNotFound, "session not found")
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, "failed to end session")
		return
	}

	utils.RespondJSON(w, http.StatusOK, summary)
}
