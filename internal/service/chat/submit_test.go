package chat_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/gemini-chat/backend/internal/service/ai"
	chat "github.com/zhouzirui/gemini-chat/backend/internal/service/chat"
	"github.com/zhouzirui/gemini-chat/backend/internal/storage/kv"
)

type fakeCompleter struct {
	mu      sync.Mutex
	answer  string
	chunks  []string
	err     error
	calls   int
	prompts []string
	block   chan struct{}
}

func (f *fakeCompleter) record(prompt string) {
	f.mu.Lock()
	f.calls++
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	if f.block != nil {
		<-f.block
	}
}

func (f *fakeCompleter) Generate(_ context.Context, prompt string) (string, error) {
	f.record(prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

func (f *fakeCompleter) Stream(_ context.Context, prompt string, onDelta func(string)) (string, error) {
	f.record(prompt)
	if f.err != nil {
		return "", f.err
	}
	var joined string
	for _, c := range f.chunks {
		onDelta(c)
		joined += c
	}
	return joined, nil
}

func (f *fakeCompleter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newSubmitter(t *testing.T, completer ai.Completer, streaming bool) (*chat.Submitter, *chat.Service) {
	t.Helper()
	svc := chat.NewService(kv.NewMemoryStore(nil), nil)
	svc.Initialize(context.Background())
	return chat.NewSubmitter(svc, completer, nil, nil, streaming), svc
}

func TestSubmitAppendsAnswer(t *testing.T) {
	completer := &fakeCompleter{answer: "4"}
	submitter, svc := newSubmitter(t, completer, false)

	msg, err := submitter.Submit(context.Background(), "2+2?", nil)
	require.NoError(t, err)

	assert.Equal(t, "2+2?", msg.Question)
	assert.Equal(t, "4", msg.Answer)
	assert.Len(t, svc.CurrentLog(), 1)
	assert.False(t, svc.Loading())
}

func TestSubmitAllowsEmptyAnswer(t *testing.T) {
	submitter, svc := newSubmitter(t, &fakeCompleter{answer: ""}, false)

	msg, err := submitter.Submit(context.Background(), "say nothing", nil)
	require.NoError(t, err)
	assert.Equal(t, "", msg.Answer)
	assert.Len(t, svc.CurrentLog(), 1)
}

func TestSubmitRejectsBlankPrompt(t *testing.T) {
	completer := &fakeCompleter{answer: "unused"}
	submitter, svc := newSubmitter(t, completer, false)

	for _, prompt := range []string{"", "   ", "\n\t "} {
		_, err := submitter.Submit(context.Background(), prompt, nil)
		assert.ErrorIs(t, err, chat.ErrEmptyPrompt)
	}

	assert.Zero(t, completer.callCount())
	assert.Empty(t, svc.CurrentLog())
}

func TestSubmitFailureLeavesLogUnchanged(t *testing.T) {
	cause := errors.New("invalid api key")
	completer := &fakeCompleter{err: cause}
	submitter, svc := newSubmitter(t, completer, false)
	svc.Append(context.Background(), "earlier", "answer")

	_, err := submitter.Submit(context.Background(), "hi", nil)

	var remote *ai.RemoteCallError
	require.ErrorAs(t, err, &remote)
	assert.ErrorIs(t, err, cause)
	assert.Len(t, svc.CurrentLog(), 1)
	assert.False(t, svc.Loading(), "loading must reset after failure")
}

func TestSubmitKeepsProviderError(t *testing.T) {
	provider := &ai.RemoteCallError{Provider: "gemini", Err: errors.New("quota")}
	submitter, _ := newSubmitter(t, &fakeCompleter{err: provider}, false)

	_, err := submitter.Submit(context.Background(), "hi", nil)

	var remote *ai.RemoteCallError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, "gemini", remote.Provider)
}

func TestSubmitStreamsDeltas(t *testing.T) {
	completer := &fakeCompleter{chunks: []string{"Hel", "lo"}}
	submitter, svc := newSubmitter(t, completer, true)

	var deltas []string
	msg, err := submitter.Submit(context.Background(), "hi", func(d string) { deltas = append(deltas, d) })
	require.NoError(t, err)

	assert.Equal(t, []string{"Hel", "lo"}, deltas)
	assert.Equal(t, "Hello", msg.Answer)
	assert.Equal(t, "Hello", svc.CurrentLog()[0].Answer)
}

func TestSubmitIgnoresDeltasWhenStreamingDisabled(t *testing.T) {
	completer := &fakeCompleter{answer: "whole", chunks: []string{"never"}}
	submitter, _ := newSubmitter(t, completer, false)

	called := false
	msg, err := submitter.Submit(context.Background(), "hi", func(string) { called = true })
	require.NoError(t, err)
	assert.False(t, called)
	assert.Equal(t, "whole", msg.Answer)
}

func TestSubmitRejectsConcurrentRequest(t *testing.T) {
	completer := &fakeCompleter{answer: "done", block: make(chan struct{})}
	submitter, svc := newSubmitter(t, completer, false)

	var events []chat.Event
	var mu sync.Mutex
	svc.Subscribe(func(e chat.Event) {
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
	})

	errCh := make(chan error, 1)
	go func() {
		_, err := submitter.Submit(context.Background(), "first", nil)
		errCh <- err
	}()

	require.Eventually(t, svc.Loading, time.Second, 5*time.Millisecond)

	_, err := submitter.Submit(context.Background(), "second", nil)
	assert.ErrorIs(t, err, chat.ErrBusy)

	close(completer.block)
	require.NoError(t, <-errCh)

	assert.False(t, svc.Loading())
	assert.Equal(t, 1, completer.callCount())
	require.Len(t, svc.CurrentLog(), 1)
	assert.Equal(t, "first", svc.CurrentLog()[0].Question)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 3)
	assert.Equal(t, chat.EventLoading, events[0].Kind)
	assert.True(t, events[0].Loading)
	assert.Equal(t, chat.EventLog, events[1].Kind)
	assert.Equal(t, chat.EventLoading, events[2].Kind)
	assert.False(t, events[2].Loading)
}
