package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	chatHandler "github.com/zhouzirui/gemini-chat/backend/internal/handler/chat"
	chatService "github.com/zhouzirui/gemini-chat/backend/internal/service/chat"
	"github.com/zhouzirui/gemini-chat/backend/pkg/logging"
	"github.com/zhouzirui/gemini-chat/backend/pkg/utils"
)

// ErrStreamingUnsupported is returned when the ResponseWriter cannot flush.
var ErrStreamingUnsupported = errors.New("streaming unsupported")

// Handler manages streaming AI responses via Server-Sent Events
type Handler struct {
	submitter *chatService.Submitter
	logger    *logging.Logger
}

// New creates a new stream handler
func New(submitter *chatService.Submitter, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Handler{submitter: submitter, logger: logger}
}

// StreamResponse represents a streaming response chunk
type StreamResponse struct {
	Event     string `json:"event"`
	StreamID  string `json:"streamId,omitempty"`
	Content   string `json:"content,omitempty"`
	Question  string `json:"question,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
	Finished  bool   `json:"finished,omitempty"`
	Status    int    `json:"status,omitempty"`
	Error     string `json:"error,omitempty"`
}

// HandleStreamRequest submits prompt and relays the answer as SSE events:
// start, delta*, message, end; or start, error on failure.
func (h *Handler) HandleStreamRequest(ctx context.Context, w http.ResponseWriter, prompt string) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return ErrStreamingUnsupported
	}

	utils.SetupSSEHeaders(w)
	streamID := uuid.NewString()

	// Write failures do not abort the submission; only the first is logged.
	var writeErr error
	send := func(resp StreamResponse) {
		resp.StreamID = streamID
		if err := utils.SendSSEChunk(w, flusher, resp); err != nil && writeErr == nil {
			writeErr = err
			h.logger.Debug("sse write failed", "stream_id", streamID, "error", err)
		}
	}

	send(StreamResponse{Event: "start"})

	message, err := h.submitter.Submit(ctx, prompt, func(delta string) {
		send(StreamResponse{Event: "delta", Content: delta})
	})
	if err != nil {
		status, msg := chatHandler.SubmitErrorStatus(err)
		send(StreamResponse{
			Event:  "error",
			Status: status,
			Error:  msg,
		})
		h.logger.Warn("stream submission failed", "stream_id", streamID, "status", status, "error", err)
		return fmt.Errorf("stream %s: %w", streamID, err)
	}

	send(StreamResponse{
		Event:     "message",
		Question:  message.Question,
		Content:   message.Answer,
		Timestamp: message.Timestamp,
	})

	// Send completion signal
	send(StreamResponse{Event: "end", Finished: true})

	h.logger.LogAttrs(ctx, slog.LevelInfo, "stream completed",
		slog.String("stream_id", streamID),
		slog.Int("answer_chars", len(message.Answer)),
	)
	return nil
}
