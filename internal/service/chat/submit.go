package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/zhouzirui/gemini-chat/backend/internal/model/chat"
	"github.com/zhouzirui/gemini-chat/backend/internal/observability/metrics"
	"github.com/zhouzirui/gemini-chat/backend/internal/service/ai"
	"github.com/zhouzirui/gemini-chat/backend/pkg/logging"
)

var (
	ErrEmptyPrompt = errors.New("prompt is empty")
	ErrBusy        = errors.New("a response is already loading")
)

// Submitter 负责把用户输入发送给补全函数，并在成功后追加到对话记录。
type Submitter struct {
	svc       *Service
	completer ai.Completer
	metrics   *metrics.ChatMetrics
	logger    *logging.Logger
	streaming bool
}

// NewSubmitter wires the conversation store to a completion function.
// When streaming is false, Submit always uses the single-shot call.
func NewSubmitter(svc *Service, completer ai.Completer, m *metrics.ChatMetrics, logger *logging.Logger, streaming bool) *Submitter {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Submitter{
		svc:       svc,
		completer: completer,
		metrics:   m,
		logger:    logger,
		streaming: streaming,
	}
}

// StreamingEnabled 指示是否开启流式输出。
func (s *Submitter) StreamingEnabled() bool {
	return s.streaming
}

// Submit sends prompt to the completer and appends the answer on success.
// onDelta, when non-nil and streaming is enabled, receives each answer chunk.
// Failures leave the conversation unchanged and are returned as *ai.RemoteCallError.
func (s *Submitter) Submit(ctx context.Context, prompt string, onDelta func(string)) (chat.Message, error) {
	if strings.TrimSpace(prompt) == "" {
		s.metrics.ObserveSubmission("empty")
		return chat.Message{}, ErrEmptyPrompt
	}

	if err := s.svc.beginLoading(); err != nil {
		s.metrics.ObserveSubmission("busy")
		return chat.Message{}, err
	}
	defer s.svc.endLoading()

	streamed := onDelta != nil && s.streaming
	started := time.Now()

	var (
		answer string
		err    error
	)
	if streamed {
		answer, err = s.completer.Stream(ctx, prompt, onDelta)
	} else {
		answer, err = s.completer.Generate(ctx, prompt)
	}
	s.metrics.ObserveCompletionLatency(streamed, time.Since(started).Seconds())

	if err != nil {
		var remote *ai.RemoteCallError
		if !errors.As(err, &remote) {
			err = &ai.RemoteCallError{Err: err}
		}
		s.metrics.ObserveSubmission("remote_error")
		s.logger.Error("completion request failed", "error", err, "prompt_chars", len(prompt))
		return chat.Message{}, err
	}

	message := s.svc.Append(ctx, prompt, answer)
	s.metrics.ObserveSubmission("ok")
	s.logger.Info("completion appended", "answer_chars", len(answer), "streamed", streamed)
	return message, nil
}
