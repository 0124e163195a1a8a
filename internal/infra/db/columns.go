// Package db holds helpers shared by the SQL scenario stores.
package db

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/bryanwahyu/whatif-lab/internal/domain/scenario"
)

// JSONColumns are the nullable JSON columns of the scenarios relation.
// A section that was not produced is stored as NULL.
type JSONColumns struct {
	Entities        sql.NullString
	Timeline        sql.NullString
	ResearchSources sql.NullString
	VideoGeneration sql.NullString
}

// EncodeColumns serialises the enrichment fields of r.
func EncodeColumns(r *scenario.Record) (JSONColumns, error) {
	var (
		c   JSONColumns
		err error
	)
	if c.Entities, err = nullJSON(r.Entities, r.Entities != nil); err != nil {
		return c, fmt.Errorf("encode entities: %w", err)
	}
	if c.Timeline, err = nullJSON(r.Timeline, r.Timeline != nil); err != nil {
		return c, fmt.Errorf("encode timeline: %w", err)
	}
	if c.ResearchSources, err = nullJSON(r.ResearchSources, r.ResearchSources != nil); err != nil {
		return c, fmt.Errorf("encode research_sources: %w", err)
	}
	if c.VideoGeneration, err = nullJSON(r.VideoGeneration, r.VideoGeneration != nil); err != nil {
		return c, fmt.Errorf("encode video_generation: %w", err)
	}
	return c, nil
}

// Decode fills the enrichment fields of r; NULL columns leave them nil.
func (c JSONColumns) Decode(r *scenario.Record) error {
	if err := decodeJSON(c.Entities, &r.Entities); err != nil {
		return fmt.Errorf("decode entities: %w", err)
	}
	if err := decodeJSON(c.Timeline, &r.Timeline); err != nil {
		return fmt.Errorf("decode timeline: %w", err)
	}
	if err := decodeJSON(c.ResearchSources, &r.ResearchSources); err != nil {
		return fmt.Errorf("decode research_sources: %w", err)
	}
	if err := decodeJSON(c.VideoGeneration, &r.VideoGeneration); err != nil {
		return fmt.Errorf("decode video_generation: %w", err)
	}
	return nil
}

// NullString maps "" to NULL.
func NullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullJSON(v any, present bool) (sql.NullString, error) {
	if !present {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func decodeJSON(col sql.NullString, dst any) error {
	if !col.Valid || col.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(col.String), dst)
}
