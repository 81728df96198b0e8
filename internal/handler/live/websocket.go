package live

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/pitchlive-ai/pitchlive/backend/internal/service/engine"
)

// WebSocketHandler 实时音频流的WebSocket处理器
type WebSocketHandler struct {
	engine   *engine.Engine
	upgrader websocket.Upgrader
}

// NewWebSocketHandler 创建WebSocket处理器
func NewWebSocketHandler(eng *engine.Engine) *WebSocketHandler {
	return &WebSocketHandler{
		engine: eng,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
}

// RegisterWebSocketRoutes 注册WebSocket路由
func (h *WebSocketHandler) RegisterWebSocketRoutes(r chi.Router) {
	r.Get("/live/ws/{sessionID}", h.handleWebSocket)
}

type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// audioMessage 客户端通过文本帧发送的音频块。
type audioMessage struct {
	AudioData string `json:"audioData"` // base64
}

type envelope struct {
	Event     string      `json:"event"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp string      `json:"timestamp"`
}

// handleWebSocket 处理一条实时分析连接：连接即开会话，断开即结束。
func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		http.Error(w, "sessionID is required", http.StatusBadRequest)
		return
	}

	userID, _ := strconv.ParseInt(r.URL.Query().Get("userId"), 10, 64)

	session, err := h.engine.StartSession(r.Context(), sessionID, userID)
	if err != nil {
		http.Error(w, "session already exists", http.StatusConflict)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[live-ws] upgrade failed: %v", err)
		h.engine.EndSession(r.Context(), sessionID)
		return
	}
	defer conn.Close()

	log.Printf("[live-ws] new connection session=%s user=%d", sessionID, userID)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// 连接断开后兜底结束会话，客户端主动 end 时这里会命中未知会话。
	defer func() {
		if _, err := h.engine.EndSession(context.Background(), sessionID); err == nil {
			log.Printf("[live-ws] session %s closed on disconnect", sessionID)
		}
	}()

	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	go h.pingLoop(ctx, conn)

	h.send(conn, "session_started", session)

	for {
		select {
		case <-ctx.Done():
			return
		default:
			messageType, payload, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("[live-ws] read error: %v", err)
				}
				return
			}

			conn.SetReadDeadline(time.Now().Add(60 * time.Second))

			// 二进制帧直接视为原始音频块。
			if messageType == websocket.BinaryMessage {
				h.processAudio(ctx, conn, sessionID, payload)
				continue
			}

			var msg inboundMessage
			if err := json.Unmarshal(payload, &msg); err != nil {
				h.sendError(conn, "invalid message payload")
				continue
			}

			if done := h.handleMessage(ctx, conn, sessionID, &msg); done {
				return
			}
		}
	}
}

// handleMessage 分发文本帧，返回 true 表示连接应当结束。
func (h *WebSocketHandler) handleMessage(ctx context.Context, conn *websocket.Conn, sessionID string, msg *inboundMessage) bool {
	switch msg.Type {
	case "audio":
		var audio audioMessage
		if err := json.Unmarshal(msg.Data, &audio); err != nil {
			h.sendError(conn, "invalid audio payload")
			return false
		}
		raw, err := base64.StdEncoding.DecodeString(audio.AudioData)
		if err != nil {
			h.sendError(conn, "invalid base64 audio data")
			return false
		}
		h.processAudio(ctx, conn, sessionID, raw)
	case "response_request":
		response, err := h.engine.RequestLiveResponse(ctx, sessionID)
		if err != nil {
			h.sendError(conn, "response generation failed")
			return false
		}
		h.send(conn, "investor_response", response)
	case "end":
		summary, err := h.engine.EndSession(ctx, sessionID)
		if err != nil {
			h.sendError(conn, "session already ended")
			return true
		}
		h.send(conn, "session_summary", summary)
		return true
	default:
		h.sendError(conn, "unsupported message type: "+msg.Type)
	}
	return false
}

// processAudio 处理一个音频块并推送指标，有分析结果时额外推送。
func (h *WebSocketHandler) processAudio(ctx context.Context, conn *websocket.Conn, sessionID string, raw []byte) {
	result, err := h.engine.ProcessChunk(ctx, sessionID, raw)
	if err != nil {
		h.sendError(conn, "chunk processing failed")
		return
	}

	h.send(conn, "live_metrics", result.LiveMetrics)
	if result.Analysis != nil {
		h.send(conn, "analysis_update", result.Analysis)
	}
}

func (h *WebSocketHandler) send(conn *websocket.Conn, event string, data interface{}) {
	msg := envelope{
		Event:     event,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if err := conn.WriteJSON(msg); err != nil {
		log.Printf("[live-ws] write %s failed: %v", event, err)
	}
}

func (h *WebSocketHandler) sendError(conn *websocket.Conn, message string) {
	msg := envelope{
		Event:     "error",
		Data:      map[string]string{"message": message},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if err := conn.WriteJSON(msg); err != nil {
		log.Printf("[live-ws] write error failed: %v", err)
	}
}

// pingLoop 定期发送ping消息
func (h *WebSocketHandler) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(54 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
