package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/bryanwahyu/whatif-lab/internal/domain/scenario"
	"github.com/bryanwahyu/whatif-lab/internal/infra/db"
)

type ScenarioRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewScenarioRepository(conn *sql.DB) *ScenarioRepository {
	return &ScenarioRepository{db: conn, now: time.Now}
}

// Create inserts r and returns a copy carrying the assigned id and timestamp.
func (r *ScenarioRepository) Create(ctx context.Context, rec *scenario.Record) (*scenario.Record, error) {
	const q = `
INSERT INTO scenarios
(title, description, model, type, subjects, background,
 entities, timeline, research_sources, video_generation, created_at)
VALUES ($1,$2,$3,$4,$5,$6,
        $7::jsonb,$8::jsonb,$9::jsonb,$10::jsonb,$11)
RETURNING id, created_at;`

	out := *rec
	out.ApplyDefaults(r.now().UTC())

	cols, err := db.EncodeColumns(&out)
	if err != nil {
		return nil, err
	}

	if err := r.db.QueryRowContext(ctx, q,
		out.Title, out.Description, out.Model, string(out.Type), pq.Array(out.Subjects), db.NullString(out.Background),
		cols.Entities, cols.Timeline, cols.ResearchSources, cols.VideoGeneration, out.CreatedAt,
	).Scan(&out.ID, &out.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert scenario: %w", err)
	}
	return &out, nil
}

// Recent returns up to limit records, newest first.
func (r *ScenarioRepository) Recent(ctx context.Context, limit int) ([]*scenario.Record, error) {
	limit = scenario.ClampLimit(limit)
	const q = `
SELECT id, title, description, model, type, subjects, background,
       entities, timeline, research_sources, video_generation, created_at
FROM scenarios
ORDER BY created_at DESC, id DESC
LIMIT $1;`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("query scenarios: %w", err)
	}
	defer rows.Close()

	out := make([]*scenario.Record, 0, limit)
	for rows.Next() {
		var (
			s          scenario.Record
			kind       string
			background sql.NullString
			cols       db.JSONColumns
		)
		if err := rows.Scan(
			&s.ID, &s.Title, &s.Description, &s.Model, &kind, pq.Array(&s.Subjects), &background,
			&cols.Entities, &cols.Timeline, &cols.ResearchSources, &cols.VideoGeneration, &s.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan scenario: %w", err)
		}
		s.Type = scenario.Kind(kind)
		s.Background = background.String
		if err := cols.Decode(&s); err != nil {
			return nil, fmt.Errorf("scenario %d: %w", s.ID, err)
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

// Ping satisfies the readiness checker.
func (r *ScenarioRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
