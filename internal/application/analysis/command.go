package analysis

import (
	"strings"

	"github.com/bryanwahyu/whatif-lab/internal/apperrors"
	"github.com/bryanwahyu/whatif-lab/internal/domain/scenario"
)

// AnalyzeCommand is the body of POST /api/analyze. The four required flags are
// pointers so a missing flag can be told apart from false.
type AnalyzeCommand struct {
	Scenario       string   `json:"scenario"`
	Model          string   `json:"model"`
	EnableEntities *bool    `json:"enableEntities"`
	EnableTimeline *bool    `json:"enableTimeline"`
	EnableSearch   *bool    `json:"enableSearch"`
	EnableCode     *bool    `json:"enableCode"`
	EnableVideo    *bool    `json:"enableVideo,omitempty"`
	APIKey         string   `json:"apiKey"`
	MinimaxAPIKey  string   `json:"minimaxApiKey,omitempty"`
	Type           string   `json:"type,omitempty"`
	Subjects       []string `json:"subjects,omitempty"`
	Background     string   `json:"background,omitempty"`
}

// Validate checks the command and returns a *apperrors.ValidationError naming
// the first offending field.
func (c *AnalyzeCommand) Validate() error {
	if strings.TrimSpace(c.Scenario) == "" {
		return apperrors.Invalid("scenario", "is required")
	}
	if strings.TrimSpace(c.Model) == "" {
		return apperrors.Invalid("model", "is required")
	}
	flags := []struct {
		name string
		v    *bool
	}{
		{"enableEntities", c.EnableEntities},
		{"enableTimeline", c.EnableTimeline},
		{"enableSearch", c.EnableSearch},
		{"enableCode", c.EnableCode},
	}
	for _, f := range flags {
		if f.v == nil {
			return apperrors.Invalid(f.name, "is required")
		}
	}
	if (c.entities() || c.timeline()) && strings.TrimSpace(c.APIKey) == "" {
		return apperrors.Invalid("apiKey", "is required when entities or timeline is enabled")
	}
	if _, err := c.kind(); err != nil {
		return err
	}
	return nil
}

func (c *AnalyzeCommand) entities() bool { return c.EnableEntities != nil && *c.EnableEntities }

func (c *AnalyzeCommand) timeline() bool { return c.EnableTimeline != nil && *c.EnableTimeline }

// video runs when a MiniMax key is present unless explicitly disabled.
func (c *AnalyzeCommand) video() bool {
	if c.MinimaxAPIKey == "" {
		return false
	}
	return c.EnableVideo == nil || *c.EnableVideo
}

func (c *AnalyzeCommand) kind() (scenario.Kind, error) {
	switch scenario.Kind(c.Type) {
	case "":
		return scenario.KindGeneral, nil
	case scenario.KindGeneral, scenario.KindLocal:
		return scenario.Kind(c.Type), nil
	default:
		return "", apperrors.Invalid("type", `must be "general" or "local"`)
	}
}
