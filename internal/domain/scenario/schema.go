package scenario

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bryanwahyu/whatif-lab/internal/apperrors"
)

// DecodeEntities decodes model output into entities and enforces the entity
// schema. Enum casing is normalised; unknown enums, out-of-range scores and
// nameless entities are rejected with a *apperrors.ParseError.
func DecodeEntities(raw json.RawMessage) ([]Entity, error) {
	out := []Entity{}
	if err := decodeArray(raw, "entities", &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []Entity{}
	}
	for i := range out {
		e := &out[i]
		if strings.TrimSpace(e.Name) == "" {
			return nil, schemaError(raw, "entity %d: name is empty", i)
		}
		impact, ok := normalizeImpact(string(e.Impact))
		if !ok {
			return nil, schemaError(raw, "entity %d: impact %q not one of High, Medium, Low", i, e.Impact)
		}
		e.Impact = impact
		if !unitInterval(e.ImpactProbability) {
			return nil, schemaError(raw, "entity %d: impact_probability %v outside [0,1]", i, e.ImpactProbability)
		}
		if !unitInterval(e.ConfidenceScore) {
			return nil, schemaError(raw, "entity %d: confidence_score %v outside [0,1]", i, e.ConfidenceScore)
		}
	}
	return out, nil
}

// DecodeTimeline is the timeline counterpart of DecodeEntities.
func DecodeTimeline(raw json.RawMessage) ([]TimelineEvent, error) {
	out := []TimelineEvent{}
	if err := decodeArray(raw, "timeline", &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []TimelineEvent{}
	}
	for i := range out {
		ev := &out[i]
		if strings.TrimSpace(ev.Event) == "" {
			return nil, schemaError(raw, "timeline event %d: event is empty", i)
		}
		sev, ok := normalizeSeverity(string(ev.ImpactSeverity))
		if !ok {
			return nil, schemaError(raw, "timeline event %d: impact_severity %q not one of Critical, High, Medium, Low", i, ev.ImpactSeverity)
		}
		ev.ImpactSeverity = sev
		if !unitInterval(ev.Probability) {
			return nil, schemaError(raw, "timeline event %d: probability %v outside [0,1]", i, ev.Probability)
		}
		if !unitInterval(ev.ConfidenceScore) {
			return nil, schemaError(raw, "timeline event %d: confidence_score %v outside [0,1]", i, ev.ConfidenceScore)
		}
	}
	return out, nil
}

// decodeArray accepts either a bare array or an object whose key field holds the array.
func decodeArray(raw json.RawMessage, key string, dst any) error {
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "{") {
		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal(raw, &wrapper); err != nil {
			return &apperrors.ParseError{Raw: string(raw), Err: err}
		}
		inner, ok := wrapper[key]
		if !ok {
			return schemaError(raw, "expected a JSON array or an object with %q", key)
		}
		raw = inner
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return &apperrors.ParseError{Raw: string(raw), Err: fmt.Errorf("decode %s: %w", key, err)}
	}
	return nil
}

func schemaError(raw json.RawMessage, format string, args ...any) error {
	return &apperrors.ParseError{Raw: string(raw), Err: fmt.Errorf(format, args...)}
}

func normalizeImpact(s string) (Impact, bool) {
	for _, v := range []Impact{ImpactHigh, ImpactMedium, ImpactLow} {
		if strings.EqualFold(strings.TrimSpace(s), string(v)) {
			return v, true
		}
	}
	return "", false
}

func normalizeSeverity(s string) (Severity, bool) {
	for _, v := range []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow} {
		if strings.EqualFold(strings.TrimSpace(s), string(v)) {
			return v, true
		}
	}
	return "", false
}

func unitInterval(f float64) bool { return f >= 0 && f <= 1 }
