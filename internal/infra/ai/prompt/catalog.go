package prompt

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

type Model struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
	Agentic     bool   `yaml:"agentic" json:"agentic"`
}

type Example struct {
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description" json:"description"`
	Scenario    string `yaml:"scenario" json:"scenario"`
}

// Catalog lists the supported completion models and preset scenarios.
type Catalog struct {
	Models   []Model   `yaml:"models" json:"models"`
	Examples []Example `yaml:"examples" json:"examples"`
}

func LoadCatalog() (*Catalog, error) {
	data, err := files.ReadFile("catalog.yaml")
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return &c, nil
}

// Known reports whether id is one of the listed models.
func (c *Catalog) Known(id string) bool {
	for _, m := range c.Models {
		if m.ID == id {
			return true
		}
	}
	return false
}
