package web

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func TestIndexServesPage(t *testing.T) {
	r := chi.NewRouter()
	RegisterRoutes(r)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if ct := resp.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("unexpected content type %q", ct)
	}
	if !strings.Contains(resp.Body.String(), `class="theme-toggle"`) {
		t.Fatal("page should contain the theme toggle")
	}
}

func TestPageThemeHandling(t *testing.T) {
	r := chi.NewRouter()
	RegisterRoutes(r)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	body := resp.Body.String()

	// 切换按钮以 PUT 响应为准，不依赖 websocket 是否在线
	if !strings.Contains(body, "state.darkMode = b.darkMode") {
		t.Fatal("theme toggle should apply the PUT /api/theme response")
	}
	// 只有 theme/snapshot 事件可以改主题，避免旧的 log 事件回滚
	if !strings.Contains(body, "event.kind === 'theme'") {
		t.Fatal("only theme and snapshot events should change darkMode")
	}
}
