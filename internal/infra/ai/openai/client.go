package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/bryanwahyu/whatif-lab/internal/apperrors"
	"github.com/bryanwahyu/whatif-lab/internal/infra/ai/prompt"
)

const (
	DefaultBaseURL = "https://api.groq.com/openai/v1"

	service     = "completion"
	maxTokens   = 2000
	temperature = 0.7
	checkModel  = "llama-3.3-70b-versatile"
	checkTokens = 5
	// rawLogLimit bounds how much unparseable model output reaches the log.
	rawLogLimit = 512
)

// Gateway talks to an OpenAI-compatible chat-completion endpoint. It holds no
// credential; each call builds a client for the caller's key.
type Gateway struct {
	baseURL    string
	httpClient *http.Client
	templates  *prompt.Templates
	logger     *zap.Logger
}

func NewGateway(baseURL string, httpClient *http.Client, templates *prompt.Templates, logger *zap.Logger) *Gateway {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		templates:  templates,
		logger:     logger.Named("completion"),
	}
}

func (g *Gateway) client(apiKey string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = g.baseURL
	cfg.HTTPClient = g.httpClient
	return openai.NewClientWithConfig(cfg)
}

func (g *Gateway) Complete(ctx context.Context, apiKey, model, scenario, instruction string) (json.RawMessage, error) {
	req := openai.ChatCompletionRequest{
		Model:       model,
		Temperature: temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: g.templates.System(instruction)},
			{Role: openai.ChatMessageRoleUser, Content: scenario},
		},
	}
	// Reasoning models reject max_tokens.
	if isReasoningModel(model) {
		req.MaxCompletionTokens = maxTokens
	} else {
		req.MaxTokens = maxTokens
	}

	resp, err := g.client(apiKey).CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, upstreamError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, &apperrors.UpstreamError{Service: service, Err: errors.New("response has no choices")}
	}

	content := resp.Choices[0].Message.Content
	raw, err := ExtractJSON(content)
	if err != nil {
		g.logger.Warn("model reply is not JSON",
			zap.String("model", model),
			zap.Int("length", len(content)),
			zap.String("raw", truncate(content, rawLogLimit)),
		)
		return nil, err
	}
	return raw, nil
}

// ValidateKey issues a minimal completion with apiKey. Any failure means invalid.
func (g *Gateway) ValidateKey(ctx context.Context, apiKey string) bool {
	if strings.TrimSpace(apiKey) == "" {
		return false
	}
	_, err := g.client(apiKey).CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     checkModel,
		MaxTokens: checkTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: "Hello"},
		},
	})
	if err != nil {
		g.logger.Debug("key validation failed", zap.Error(upstreamError(err)))
		return false
	}
	return true
}

func upstreamError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &apperrors.UpstreamError{Service: service, StatusCode: apiErr.HTTPStatusCode, Err: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &apperrors.UpstreamError{Service: service, StatusCode: reqErr.HTTPStatusCode, Err: err}
	}
	return &apperrors.UpstreamError{Service: service, Err: err}
}

func isReasoningModel(model string) bool {
	for _, p := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(model, p) {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
