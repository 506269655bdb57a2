package ai

import (
	"context"
	"fmt"

	"github.com/zhouzirui/gemini-chat/backend/internal/config"
)

// Completer is the remote text-generation function the chat flow depends on.
type Completer interface {
	// Generate returns the full answer for prompt.
	Generate(ctx context.Context, prompt string) (string, error)
	// Stream forwards each text chunk to onDelta and returns the joined answer.
	Stream(ctx context.Context, prompt string, onDelta func(string)) (string, error)
}

// RemoteCallError 表示远端补全调用失败（网络、鉴权、配额或响应格式错误）。
type RemoteCallError struct {
	Provider string
	Err      error
}

func (e *RemoteCallError) Error() string {
	if e.Provider == "" {
		return fmt.Sprintf("remote completion failed: %v", e.Err)
	}
	return fmt.Sprintf("%s completion failed: %v", e.Provider, e.Err)
}

func (e *RemoteCallError) Unwrap() error {
	return e.Err
}

// NewCompleter 根据配置创建对应提供方的补全客户端。
func NewCompleter(ctx context.Context, cfg config.AIConfig) (Completer, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		return NewGeminiCompleter(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	case config.ProviderArk:
		return NewArkCompleter(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.Provider)
	}
}
