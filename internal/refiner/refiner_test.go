package refiner

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubRefiner answers with a fixed function and counts calls.
type stubRefiner struct {
	calls atomic.Int32
	fn    func(ctx context.Context, idea string) (string, error)
}

func (s *stubRefiner) Refine(ctx context.Context, idea string) (string, error) {
	s.calls.Add(1)
	return s.fn(ctx, idea)
}

func TestAssistantOutcomes(t *testing.T) {
	const idea = "Sell handmade jewelry online"

	tests := []struct {
		name       string
		idea       string
		answer     string
		err        error
		want       Outcome
		suggestion string
		message    string
		calls      int32
	}{
		{name: "too short", idea: "  short   ", want: OutcomeTooShort, message: MessageTooShort, calls: 0},
		{name: "suggested", idea: idea, answer: "Sell handmade jewelry online with custom engraving", want: OutcomeSuggested, suggestion: "Sell handmade jewelry online with custom engraving", calls: 1},
		{name: "unchanged", idea: idea, answer: idea, want: OutcomeUnchanged, message: MessageAlreadyGreat, calls: 1},
		{name: "unchanged modulo whitespace", idea: idea, answer: "\n" + idea + "  ", want: OutcomeUnchanged, message: MessageAlreadyGreat, calls: 1},
		{name: "empty answer", idea: idea, answer: "   ", want: OutcomeFailed, message: MessageFailed, calls: 1},
		{name: "service error", idea: idea, err: errors.New("503"), want: OutcomeFailed, message: MessageFailed, calls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubRefiner{fn: func(context.Context, string) (string, error) { return tt.answer, tt.err }}
			a := NewAssistant(stub, time.Second, zap.NewNop())

			res := a.Refine(context.Background(), tt.idea)
			assert.Equal(t, tt.want, res.Outcome)
			assert.Equal(t, tt.suggestion, res.Suggestion)
			assert.Equal(t, tt.message, res.Message)
			assert.Equal(t, tt.calls, stub.calls.Load())
		})
	}
}

func TestAssistantAcceptsExactlyMinimumLength(t *testing.T) {
	stub := &stubRefiner{fn: func(context.Context, string) (string, error) { return "something longer", nil }}
	a := NewAssistant(stub, time.Second, zap.NewNop())

	assert.Equal(t, OutcomeTooShort, a.Refine(context.Background(), "123456789").Outcome)
	assert.Equal(t, OutcomeSuggested, a.Refine(context.Background(), " 1234567890 ").Outcome)
	assert.Equal(t, OutcomeSuggested, a.Refine(context.Background(), "ñandú café").Outcome, "length counts characters, not bytes")
}

func TestAssistantTimeoutIsFailure(t *testing.T) {
	stub := &stubRefiner{fn: func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	a := NewAssistant(stub, 20*time.Millisecond, zap.NewNop())

	res := a.Refine(context.Background(), "A very slow idea to refine")
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.ErrorIs(t, res.Err, context.DeadlineExceeded)
}

func TestAssistantSharesConcurrentIdenticalCalls(t *testing.T) {
	release := make(chan struct{})
	stub := &stubRefiner{fn: func(context.Context, string) (string, error) {
		<-release
		return "Better idea text", nil
	}}
	a := NewAssistant(stub, time.Second, zap.NewNop())

	results := make(chan Result, 2)
	for i := 0; i < 2; i++ {
		go func() { results <- a.Refine(context.Background(), "Same idea from two chats") }()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)

	for i := 0; i < 2; i++ {
		assert.Equal(t, OutcomeSuggested, (<-results).Outcome)
	}
	assert.Equal(t, int32(1), stub.calls.Load())
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "suggested", OutcomeSuggested.String())
	assert.Equal(t, "unknown", Outcome(42).String())
}

func TestOpenAIRefinerWireFormat(t *testing.T) {
	var got openai.ChatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "  Tienda online de joyería artesanal con grabado  "}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 8, "total_tokens": 18}
		}`))
	}))
	defer srv.Close()

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = srv.URL + "/v1"
	r := NewOpenAIRefinerWithConfig(cfg, "gpt-4o-mini", 300, 0.7, zap.NewNop())

	refined, err := r.Refine(context.Background(), "Tienda de joyas hechas a mano")
	require.NoError(t, err)
	assert.Equal(t, "Tienda online de joyería artesanal con grabado", refined)

	assert.Equal(t, "gpt-4o-mini", got.Model)
	assert.Equal(t, 300, got.MaxTokens)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, openai.ChatMessageRoleUser, got.Messages[0].Role)
	assert.True(t, strings.Contains(got.Messages[0].Content, "Tienda de joyas hechas a mano"))
}

func TestOpenAIRefinerServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error": {"message": "overloaded", "type": "server_error"}}`))
	}))
	defer srv.Close()

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = srv.URL + "/v1"
	r := NewOpenAIRefinerWithConfig(cfg, "gpt-4o-mini", 300, 0.7, zap.NewNop())

	_, err := r.Refine(context.Background(), "Tienda de joyas hechas a mano")
	assert.Error(t, err)
}

func TestGeminiRefinerRequiresKey(t *testing.T) {
	_, err := NewGeminiRefiner(context.Background(), "", "", 100, 0.7, zap.NewNop())
	assert.Error(t, err)
}
