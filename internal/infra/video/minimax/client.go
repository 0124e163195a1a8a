// Package minimax renders scenario videos through the MiniMax video-generation API.
package minimax

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/bryanwahyu/whatif-lab/internal/apperrors"
	"github.com/bryanwahyu/whatif-lab/internal/domain/video"
	"github.com/bryanwahyu/whatif-lab/internal/infra/ai/prompt"
)

const (
	DefaultBaseURL = "https://api.minimax.chat"

	service = "video"
	// maxErrorBody bounds how much of a failed response is kept for logs.
	maxErrorBody = 2048
)

// generateRequest is the render payload; dimensions are fixed at 720p/24fps.
type generateRequest struct {
	Prompt          string `json:"prompt"`
	Width           int    `json:"width"`
	Height          int    `json:"height"`
	FramesPerSecond int    `json:"frames_per_second"`
	PromptOptimizer bool   `json:"prompt_optimizer"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	templates  *prompt.Templates
	logger     *zap.Logger
}

func NewClient(baseURL string, httpClient *http.Client, templates *prompt.Templates, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		templates:  templates,
		logger:     logger.Named("minimax"),
	}
}

// Generate submits a render job built from the scenario and its analysis.
func (c *Client) Generate(ctx context.Context, apiKey string, req video.Request) (*video.Generation, error) {
	payload, err := json.Marshal(generateRequest{
		Prompt:          c.templates.VideoPrompt(req),
		Width:           1280,
		Height:          720,
		FramesPerSecond: 24,
		PromptOptimizer: true,
	})
	if err != nil {
		return nil, fmt.Errorf("encode video request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/video_generation", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create video request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)

	return c.do(httpReq)
}

// Status polls a previously submitted job.
func (c *Client) Status(ctx context.Context, apiKey, taskID string) (*video.Generation, error) {
	endpoint := c.baseURL + "/v1/query/video_generation?task_id=" + url.QueryEscape(taskID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create status request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)

	return c.do(httpReq)
}

func (c *Client) do(req *http.Request) (*video.Generation, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &apperrors.UpstreamError{Service: service, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Warn("video API returned error",
			zap.String("path", req.URL.Path),
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)))
		return nil, &apperrors.UpstreamError{Service: service, StatusCode: resp.StatusCode}
	}

	var out video.Generation
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &apperrors.UpstreamError{Service: service, Err: fmt.Errorf("decode response: %w", err)}
	}
	return &out, nil
}
