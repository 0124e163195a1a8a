package openai

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/bryanwahyu/whatif-lab/internal/apperrors"
	"github.com/bryanwahyu/whatif-lab/internal/infra/ai/prompt"
)

// stubCompletions serves /chat/completions with a fixed status and assistant content.
type stubCompletions struct {
	status  int
	content string
	body    string

	lastAuth    string
	lastRequest openai.ChatCompletionRequest
	calls       int
}

func (s *stubCompletions) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.calls++
	s.lastAuth = r.Header.Get("Authorization")
	_ = json.NewDecoder(r.Body).Decode(&s.lastRequest)

	w.Header().Set("Content-Type", "application/json")
	if s.status != 0 && s.status != http.StatusOK {
		w.WriteHeader(s.status)
		body := s.body
		if body == "" {
			body = `{"error":{"message":"Invalid API Key","type":"invalid_request_error","code":"invalid_api_key"}}`
		}
		_, _ = w.Write([]byte(body))
		return
	}
	content, _ := json.Marshal(s.content)
	fmt.Fprintf(w, `{"id":"chatcmpl-1","object":"chat.completion","created":1,"model":"m","choices":[{"index":0,"message":{"role":"assistant","content":%s},"finish_reason":"stop"}]}`, content)
}

func newTestGateway(t *testing.T, stub http.Handler, logger *zap.Logger) *Gateway {
	t.Helper()
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)

	tpl, err := prompt.Load()
	require.NoError(t, err)
	return NewGateway(srv.URL, srv.Client(), tpl, logger)
}

func TestCompleteBuildsRequest(t *testing.T) {
	stub := &stubCompletions{content: `[{"name":"A"}]`}
	gw := newTestGateway(t, stub, nil)

	raw, err := gw.Complete(t.Context(), "k1", "llama-3.3-70b-versatile", "What if X", "Do Y")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"name":"A"}]`, string(raw))

	assert.Equal(t, "Bearer k1", stub.lastAuth)
	req := stub.lastRequest
	assert.Equal(t, "llama-3.3-70b-versatile", req.Model)
	assert.Equal(t, 2000, req.MaxTokens)
	assert.InDelta(t, 0.7, req.Temperature, 0.0001)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, req.Messages[0].Role)
	assert.Equal(t, "You are a scenario analysis AI. Do Y", req.Messages[0].Content)
	assert.Equal(t, openai.ChatMessageRoleUser, req.Messages[1].Role)
	assert.Equal(t, "What if X", req.Messages[1].Content)
}

func TestCompleteStripsFences(t *testing.T) {
	stub := &stubCompletions{content: "```json\n[{\"name\":\"A\"}]\n```"}
	gw := newTestGateway(t, stub, nil)

	raw, err := gw.Complete(t.Context(), "k", "m", "s", "i")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"name":"A"}]`, string(raw))
}

func TestCompleteUnauthorized(t *testing.T) {
	stub := &stubCompletions{status: http.StatusUnauthorized}
	gw := newTestGateway(t, stub, nil)

	_, err := gw.Complete(t.Context(), "bad", "m", "s", "i")
	var ue *apperrors.UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, http.StatusUnauthorized, ue.StatusCode)
	assert.False(t, errors.Is(err, apperrors.ErrQuotaExceeded))
}

func TestCompleteRateLimited(t *testing.T) {
	stub := &stubCompletions{status: http.StatusTooManyRequests, body: `{"error":{"message":"Rate limit reached","type":"requests"}}`}
	gw := newTestGateway(t, stub, nil)

	_, err := gw.Complete(t.Context(), "k", "m", "s", "i")
	assert.ErrorIs(t, err, apperrors.ErrQuotaExceeded)
}

func TestCompleteUnparseableIsLoggedNotReturned(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	stub := &stubCompletions{content: "I'm sorry, I cannot help with that"}
	gw := newTestGateway(t, stub, zap.New(core))

	_, err := gw.Complete(t.Context(), "k", "m", "s", "i")
	var pe *apperrors.ParseError
	require.ErrorAs(t, err, &pe)
	assert.NotContains(t, err.Error(), "sorry")

	entries := logs.FilterMessage("model reply is not JSON").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "I'm sorry, I cannot help with that", entries[0].ContextMap()["raw"])
}

func TestCompleteEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[]}`))
	}))
	t.Cleanup(srv.Close)
	tpl, err := prompt.Load()
	require.NoError(t, err)
	gw := NewGateway(srv.URL, srv.Client(), tpl, nil)

	_, err = gw.Complete(t.Context(), "k", "m", "s", "i")
	var ue *apperrors.UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Contains(t, ue.Error(), "no choices")
}

func TestValidateKey(t *testing.T) {
	ok := &stubCompletions{content: "Hi"}
	gw := newTestGateway(t, ok, nil)
	assert.True(t, gw.ValidateKey(t.Context(), "good"))
	assert.Equal(t, "llama-3.3-70b-versatile", ok.lastRequest.Model)
	assert.Equal(t, 5, ok.lastRequest.MaxTokens)
	require.Len(t, ok.lastRequest.Messages, 1)
	assert.Equal(t, "Hello", ok.lastRequest.Messages[0].Content)

	denied := &stubCompletions{status: http.StatusUnauthorized}
	assert.False(t, newTestGateway(t, denied, nil).ValidateKey(t.Context(), "bad"))

	empty := &stubCompletions{}
	assert.False(t, newTestGateway(t, empty, nil).ValidateKey(t.Context(), "  "))
	assert.Zero(t, empty.calls)
}

func TestValidateKeyUnreachable(t *testing.T) {
	tpl, err := prompt.Load()
	require.NoError(t, err)
	gw := NewGateway("http://127.0.0.1:1", nil, tpl, nil)
	assert.False(t, gw.ValidateKey(t.Context(), "k"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab...", truncate("abcdef", 2))
	assert.Equal(t, 515, len(truncate(strings.Repeat("x", 600), rawLogLimit)))
}
