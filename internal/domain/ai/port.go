package ai

import (
	"context"
	"encoding/json"
)

// Section names an analysis section produced by the model.
type Section string

const (
	SectionEntities Section = "entities"
	SectionTimeline Section = "timeline"
)

// Gateway port for the chat-completion API. Credentials are supplied per call.
type Gateway interface {
	// Complete sends instruction and scenario to model and returns the JSON
	// recovered from the reply.
	Complete(ctx context.Context, apiKey, model, scenario, instruction string) (json.RawMessage, error)
	// ValidateKey reports whether apiKey is accepted upstream. It never errors.
	ValidateKey(ctx context.Context, apiKey string) bool
}

// Instructions supplies the instruction text for each section.
type Instructions interface {
	Instruction(section Section) (string, error)
}
