package video

import "context"

// Renderer port for the external video-generation API.
// The credential is per call; no client-wide key is held.
type Renderer interface {
	Generate(ctx context.Context, apiKey string, req Request) (*Generation, error)
	Status(ctx context.Context, apiKey, taskID string) (*Generation, error)
}
