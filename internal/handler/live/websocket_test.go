package live

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	chatservice "github.com/zhouzirui/gemini-chat/backend/internal/service/chat"
	"github.com/zhouzirui/gemini-chat/backend/internal/storage/kv"
)

type received struct {
	Type string            `json:"type"`
	Data chatservice.Event `json:"data"`
}

func dial(t *testing.T) (*websocket.Conn, *chatservice.Service) {
	t.Helper()
	chatSvc := chatservice.NewService(kv.NewMemoryStore(nil), nil)
	chatSvc.Initialize(context.Background())

	r := chi.NewRouter()
	NewWebSocketHandler(chatSvc, nil).RegisterRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn, chatSvc
}

func readMessage(t *testing.T, conn *websocket.Conn) received {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg received
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func TestWebSocketSendsSnapshotThenChanges(t *testing.T) {
	conn, chatSvc := dial(t)

	snapshot := readMessage(t, conn)
	if snapshot.Type != "snapshot" || len(snapshot.Data.Messages) != 0 || snapshot.Data.DarkMode {
		t.Fatalf("unexpected snapshot: %+v", snapshot)
	}

	chatSvc.Append(context.Background(), "hi", "hello")
	msg := readMessage(t, conn)
	if msg.Type != "log" || len(msg.Data.Messages) != 1 || msg.Data.Messages[0].Answer != "hello" {
		t.Fatalf("unexpected log event: %+v", msg)
	}
}

func TestWebSocketThemeMessage(t *testing.T) {
	conn, chatSvc := dial(t)
	readMessage(t, conn)

	if err := conn.WriteJSON(map[string]any{"type": "theme", "data": map[string]bool{"darkMode": true}}); err != nil {
		t.Fatalf("write: %v", err)
	}

	msg := readMessage(t, conn)
	if msg.Type != "theme" || !msg.Data.DarkMode {
		t.Fatalf("unexpected theme event: %+v", msg)
	}
	if !chatSvc.DarkMode() {
		t.Fatal("expected dark mode stored")
	}
}
