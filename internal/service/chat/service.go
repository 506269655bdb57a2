package chat

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/gemini-chat/backend/internal/model/chat"
	"github.com/zhouzirui/gemini-chat/backend/internal/observability/metrics"
	"github.com/zhouzirui/gemini-chat/backend/internal/storage/kv"
	"github.com/zhouzirui/gemini-chat/backend/pkg/logging"
)

// EventKind 标识观察者收到的变更类型。
type EventKind string

const (
	EventLog     EventKind = "log"
	EventTheme   EventKind = "theme"
	EventLoading EventKind = "loading"
)

// Event is delivered to subscribers after every state change.
type Event struct {
	Kind     EventKind      `json:"kind"`
	Messages []chat.Message `json:"messages,omitempty"`
	Message  *chat.Message  `json:"message,omitempty"`
	DarkMode bool           `json:"darkMode"`
	Loading  bool           `json:"loading"`
}

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides the wall clock used for message timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithMetrics records storage write outcomes.
func WithMetrics(m *metrics.ChatMetrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// Service 维护对话记录与主题偏好，并把每次变更完整写入持久化存储。
type Service struct {
	store   kv.Store
	logger  *logging.Logger
	metrics *metrics.ChatMetrics
	now     func() time.Time

	// writeMu orders full-snapshot writes so storage never regresses.
	writeMu sync.Mutex

	mu       sync.RWMutex
	messages []chat.Message
	darkMode bool
	loading  bool

	subMu       sync.RWMutex
	subscribers map[string]func(Event)
}

// NewService creates an empty store; call Initialize to restore persisted state.
func NewService(store kv.Store, logger *logging.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = logging.Discard()
	}
	s := &Service{
		store:       store,
		logger:      logger,
		now:         time.Now,
		messages:    make([]chat.Message, 0, 16),
		subscribers: make(map[string]func(Event)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize restores the conversation log and theme preference. A missing
// or unreadable history starts an empty log; it never fails.
func (s *Service) Initialize(ctx context.Context) {
	messages := s.restoreLog(ctx)
	dark := s.restoreTheme(ctx)

	s.mu.Lock()
	s.messages = messages
	s.darkMode = dark
	s.mu.Unlock()

	s.logger.Info("conversation restored", "messages", len(messages), "dark_mode", dark)
}

func (s *Service) restoreLog(ctx context.Context) []chat.Message {
	raw, ok, err := s.store.Get(ctx, chat.KeyChatHistory)
	if err != nil {
		s.logger.Warn("failed to read chat history, starting empty", "error", err)
		return make([]chat.Message, 0, 16)
	}
	if !ok {
		return make([]chat.Message, 0, 16)
	}

	messages, err := chat.DecodeLog(raw)
	if err != nil {
		s.logger.Warn("discarding unparseable chat history", "error", err, "bytes", len(raw))
		return make([]chat.Message, 0, 16)
	}
	return messages
}

func (s *Service) restoreTheme(ctx context.Context) bool {
	raw, ok, err := s.store.Get(ctx, chat.KeyDarkMode)
	if err != nil {
		s.logger.Warn("failed to read theme preference, using light mode", "error", err)
		return false
	}
	return ok && chat.DecodeDarkMode(raw)
}

// Append records a new turn stamped with the current time and mirrors the
// whole log to storage. Storage failures are logged, never rolled back.
func (s *Service) Append(ctx context.Context, question, answer string) chat.Message {
	message := chat.Message{
		Question:  question,
		Answer:    answer,
		Timestamp: s.now().UnixMilli(),
	}

	s.writeMu.Lock()
	s.mu.Lock()
	s.messages = append(s.messages, message)
	snapshot := s.snapshotLocked()
	dark, loading := s.darkMode, s.loading
	s.mu.Unlock()

	// 回答已经拿到，请求被取消也要落盘
	s.persistLog(context.WithoutCancel(ctx), snapshot)
	s.publish(Event{Kind: EventLog, Messages: snapshot, Message: &message, DarkMode: dark, Loading: loading})
	s.writeMu.Unlock()
	return message
}

func (s *Service) persistLog(ctx context.Context, snapshot []chat.Message) {
	raw, err := chat.EncodeLog(snapshot)
	if err == nil {
		err = s.store.Set(ctx, chat.KeyChatHistory, raw)
	}
	s.metrics.ObserveStorageWrite(chat.KeyChatHistory, err)
	if err != nil {
		s.logger.Error("failed to persist chat history", "error", err, "messages", len(snapshot))
	}
}

// SetTheme 更新主题偏好并写入存储，同时通知表现层切换显示模式。
func (s *Service) SetTheme(ctx context.Context, dark bool) {
	s.writeMu.Lock()
	s.mu.Lock()
	s.darkMode = dark
	loading := s.loading
	s.mu.Unlock()

	err := s.store.Set(context.WithoutCancel(ctx), chat.KeyDarkMode, chat.EncodeDarkMode(dark))
	s.metrics.ObserveStorageWrite(chat.KeyDarkMode, err)
	if err != nil {
		s.logger.Error("failed to persist theme preference", "error", err, "dark_mode", dark)
	}

	s.publish(Event{Kind: EventTheme, DarkMode: dark, Loading: loading})
	s.writeMu.Unlock()
}

// CurrentLog returns a copy of the conversation, oldest first.
func (s *Service) CurrentLog() []chat.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// DarkMode reports the current theme preference.
func (s *Service) DarkMode() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.darkMode
}

// Loading reports whether a remote call is outstanding.
func (s *Service) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// beginLoading flips loading to true, failing with ErrBusy when it already is.
func (s *Service) beginLoading() error {
	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		return ErrBusy
	}
	s.loading = true
	dark := s.darkMode
	s.mu.Unlock()

	s.publish(Event{Kind: EventLoading, DarkMode: dark, Loading: true})
	return nil
}

func (s *Service) endLoading() {
	s.mu.Lock()
	s.loading = false
	dark := s.darkMode
	s.mu.Unlock()

	s.publish(Event{Kind: EventLoading, DarkMode: dark, Loading: false})
}

// Subscribe registers fn for every subsequent change. fn runs on the
// goroutine that made the change and must not block. Log and theme events
// are delivered in write order; fn must not call Append or SetTheme.
func (s *Service) Subscribe(fn func(Event)) (unsubscribe func()) {
	id := uuid.NewString()

	s.subMu.Lock()
	s.subscribers[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subscribers, id)
		s.subMu.Unlock()
	}
}

func (s *Service) publish(event Event) {
	s.subMu.RLock()
	listeners := make([]func(Event), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		listeners = append(listeners, fn)
	}
	s.subMu.RUnlock()

	for _, fn := range listeners {
		fn(event)
	}
}

func (s *Service) snapshotLocked() []chat.Message {
	copied := make([]chat.Message, len(s.messages))
	copy(copied, s.messages)
	return copied
}
