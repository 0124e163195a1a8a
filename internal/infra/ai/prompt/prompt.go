package prompt

import (
	"embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bryanwahyu/whatif-lab/internal/domain/ai"
	"github.com/bryanwahyu/whatif-lab/internal/domain/video"
)

//go:embed templates.yaml catalog.yaml
var files embed.FS

type videoParts struct {
	Lead     string `yaml:"lead"`
	Focus    string `yaml:"focus"`
	Opening  string `yaml:"opening"`
	Style    string `yaml:"style"`
	MaxFocus int    `yaml:"max_focus"`
}

// Templates holds the system preamble, the per-section instructions and the
// video prompt fragments.
type Templates struct {
	SystemPreamble string                `yaml:"system_preamble"`
	Instructions   map[ai.Section]string `yaml:"templates"`
	Video          videoParts            `yaml:"video"`
}

// Load decodes the embedded templates.
func Load() (*Templates, error) {
	data, err := files.ReadFile("templates.yaml")
	if err != nil {
		return nil, fmt.Errorf("read templates: %w", err)
	}
	return parseTemplates(data)
}

func parseTemplates(data []byte) (*Templates, error) {
	var t Templates
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	for _, n := range []ai.Section{ai.SectionEntities, ai.SectionTimeline} {
		if strings.TrimSpace(t.Instructions[n]) == "" {
			return nil, fmt.Errorf("parse templates: %q template missing", n)
		}
	}
	if t.Video.MaxFocus <= 0 {
		t.Video.MaxFocus = 3
	}
	return &t, nil
}

// Instruction returns the named template with surrounding whitespace removed.
func (t *Templates) Instruction(name ai.Section) (string, error) {
	s, ok := t.Instructions[name]
	if !ok {
		return "", fmt.Errorf("unknown template %q", name)
	}
	return strings.TrimSpace(s), nil
}

// System prefixes an instruction with the fixed preamble.
func (t *Templates) System(instruction string) string {
	return t.SystemPreamble + instruction
}

// VideoPrompt renders the text sent to the video generator.
func (t *Templates) VideoPrompt(req video.Request) string {
	var b strings.Builder
	b.WriteString(t.Video.Lead)
	b.WriteString(req.Scenario)

	if len(req.Focus) > 0 {
		focus := req.Focus
		if len(focus) > t.Video.MaxFocus {
			focus = focus[:t.Video.MaxFocus]
		}
		fmt.Fprintf(&b, t.Video.Focus, strings.Join(focus, ", "))
	}
	if req.Opening != nil {
		fmt.Fprintf(&b, t.Video.Opening, req.Opening.Event, req.Opening.Time)
	}

	b.WriteString(t.Video.Style)
	return b.String()
}
