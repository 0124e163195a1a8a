// Package memory is a process-local scenario store for development and tests.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/bryanwahyu/whatif-lab/internal/domain/scenario"
)

type ScenarioRepository struct {
	mu      sync.RWMutex
	records []scenario.Record
	nextID  int64
	now     func() time.Time
}

func NewScenarioRepository() *ScenarioRepository {
	return &ScenarioRepository{nextID: 1, now: time.Now}
}

func (r *ScenarioRepository) Create(_ context.Context, rec *scenario.Record) (*scenario.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := clone(*rec)
	out.ApplyDefaults(r.now().UTC())
	out.ID = r.nextID
	r.nextID++
	r.records = append(r.records, out)

	cp := clone(out)
	return &cp, nil
}

func (r *ScenarioRepository) Recent(_ context.Context, limit int) ([]*scenario.Record, error) {
	limit = scenario.ClampLimit(limit)

	r.mu.RLock()
	sorted := slices.Clone(r.records)
	r.mu.RUnlock()

	slices.SortFunc(sorted, func(a, b scenario.Record) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return int(b.ID - a.ID)
	})
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}

	out := make([]*scenario.Record, 0, len(sorted))
	for _, s := range sorted {
		cp := clone(s)
		out = append(out, &cp)
	}
	return out, nil
}

// Len reports how many records are stored.
func (r *ScenarioRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

func (r *ScenarioRepository) Ping(context.Context) error { return nil }

// clone copies the slices and pointers a caller could mutate.
func clone(s scenario.Record) scenario.Record {
	s.Subjects = slices.Clone(s.Subjects)
	s.Entities = slices.Clone(s.Entities)
	s.Timeline = slices.Clone(s.Timeline)
	if s.ResearchSources != nil {
		rs := *s.ResearchSources
		rs.WebSearch = slices.Clone(rs.WebSearch)
		rs.CodeAnalysis = slices.Clone(rs.CodeAnalysis)
		s.ResearchSources = &rs
	}
	if s.VideoGeneration != nil {
		v := *s.VideoGeneration
		s.VideoGeneration = &v
	}
	return s
}
