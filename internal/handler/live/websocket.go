package live

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	chatservice "github.com/zhouzirui/gemini-chat/backend/internal/service/chat"
	"github.com/zhouzirui/gemini-chat/backend/pkg/logging"
)

const (
	pongWait     = 60 * time.Second
	pingInterval = 54 * time.Second
	writeWait    = 10 * time.Second
	eventBuffer  = 32
)

// WebSocketHandler pushes conversation changes to connected pages.
type WebSocketHandler struct {
	chatSvc  *chatservice.Service
	logger   *logging.Logger
	upgrader websocket.Upgrader
}

// NewWebSocketHandler 创建WebSocket处理器
func NewWebSocketHandler(chatSvc *chatservice.Service, logger *logging.Logger) *WebSocketHandler {
	if logger == nil {
		logger = logging.Discard()
	}
	return &WebSocketHandler{
		chatSvc: chatSvc,
		logger:  logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册WebSocket路由
func (h *WebSocketHandler) RegisterRoutes(r chi.Router) {
	r.Get("/ws", h.handleWebSocket)
}

type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// handleWebSocket 处理WebSocket连接
func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	events := make(chan chatservice.Event, eventBuffer)
	unsubscribe := h.chatSvc.Subscribe(func(e chatservice.Event) {
		select {
		case events <- e:
		default:
			h.logger.Warn("websocket client too slow, dropping event", "kind", e.Kind)
		}
	})
	defer unsubscribe()

	h.logger.Debug("websocket connected", "remote", r.RemoteAddr)

	snapshot := chatservice.Event{
		Kind:     "snapshot",
		Messages: h.chatSvc.CurrentLog(),
		DarkMode: h.chatSvc.DarkMode(),
		Loading:  h.chatSvc.Loading(),
	}
	if err := h.write(conn, "snapshot", snapshot); err != nil {
		return
	}

	go h.writeLoop(ctx, cancel, conn, events)

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read error", "error", err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))
		h.handleMessage(ctx, &msg)
	}
}

func (h *WebSocketHandler) handleMessage(ctx context.Context, msg *inboundMessage) {
	switch msg.Type {
	case "theme":
		var payload struct {
			DarkMode bool `json:"darkMode"`
		}
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			h.logger.Warn("invalid theme payload", "error", err)
			return
		}
		h.chatSvc.SetTheme(ctx, payload.DarkMode)
	default:
		h.logger.Debug("ignoring websocket message", "type", msg.Type)
	}
}

// writeLoop is the only writer after the snapshot; gorilla connections
// support a single concurrent writer.
func (h *WebSocketHandler) writeLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, events <-chan chatservice.Event) {
	defer cancel()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		case e := <-events:
			if err := h.write(conn, string(e.Kind), e); err != nil {
				conn.Close()
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				conn.Close()
				return
			}
		}
	}
}

func (h *WebSocketHandler) write(conn *websocket.Conn, kind string, data interface{}) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	err := conn.WriteJSON(outgoingMessage{
		Type:      kind,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		h.logger.Warn("websocket write failed", "error", err, "type", kind)
	}
	return err
}
