package scenario

import "context"

// Repository port for persisting analysis records.
// It is append-only: records are never updated or deleted here.
type Repository interface {
	Create(ctx context.Context, r *Record) (*Record, error)
	Recent(ctx context.Context, limit int) ([]*Record, error)
}

// ResearchProvider supplies the research section attached to every analysis.
type ResearchProvider interface {
	Sources(ctx context.Context, scenario string) (ResearchSources, error)
}

// Archiver stores an out-of-band snapshot of a persisted record and returns its location.
type Archiver interface {
	Archive(ctx context.Context, r *Record) (string, error)
}
