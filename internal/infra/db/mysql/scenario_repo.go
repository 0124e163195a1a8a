package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

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

func (r *ScenarioRepository) Create(ctx context.Context, rec *scenario.Record) (*scenario.Record, error) {
	const q = `
INSERT INTO scenarios
(title, description, model, type, subjects, background,
 entities, timeline, research_sources, video_generation, created_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?)`

	out := *rec
	// DATETIME(6) keeps microseconds; truncate so the returned value matches what is stored.
	out.ApplyDefaults(r.now().UTC().Truncate(time.Microsecond))

	cols, err := db.EncodeColumns(&out)
	if err != nil {
		return nil, err
	}
	subjects, err := subjectsColumn(out.Subjects)
	if err != nil {
		return nil, err
	}

	res, err := r.db.ExecContext(ctx, q,
		out.Title, out.Description, out.Model, string(out.Type), subjects, db.NullString(out.Background),
		cols.Entities, cols.Timeline, cols.ResearchSources, cols.VideoGeneration, out.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert scenario: %w", err)
	}
	if out.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("insert scenario: last insert id: %w", err)
	}
	return &out, nil
}

func (r *ScenarioRepository) Recent(ctx context.Context, limit int) ([]*scenario.Record, error) {
	limit = scenario.ClampLimit(limit)
	const q = `
SELECT id, title, description, model, type, subjects, background,
       entities, timeline, research_sources, video_generation, created_at
FROM scenarios
ORDER BY created_at DESC, id DESC
LIMIT ?`
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
			subjects   sql.NullString
			background sql.NullString
			cols       db.JSONColumns
		)
		if err := rows.Scan(
			&s.ID, &s.Title, &s.Description, &s.Model, &kind, &subjects, &background,
			&cols.Entities, &cols.Timeline, &cols.ResearchSources, &cols.VideoGeneration, &s.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan scenario: %w", err)
		}
		s.Type = scenario.Kind(kind)
		s.Background = background.String
		if subjects.Valid {
			if err := json.Unmarshal([]byte(subjects.String), &s.Subjects); err != nil {
				return nil, fmt.Errorf("scenario %d: decode subjects: %w", s.ID, err)
			}
		}
		if err := cols.Decode(&s); err != nil {
			return nil, fmt.Errorf("scenario %d: %w", s.ID, err)
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

func (r *ScenarioRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// subjectsColumn stores the list as a JSON array; nil stays NULL.
func subjectsColumn(subjects []string) (sql.NullString, error) {
	if subjects == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(subjects)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("encode subjects: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}
