package mysql

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/bryanwahyu/whatif-lab/internal/domain/scenario"
	"github.com/bryanwahyu/whatif-lab/internal/infra/db/migrations"
)

// Set WHATIF_TEST_MYSQL_DSN (driver DSN with parseTime=true) and
// WHATIF_TEST_MYSQL_MIGRATE_URL (mysql:// URL) to run against a real server.
func newTestRepository(t *testing.T) *ScenarioRepository {
	t.Helper()
	dsn := os.Getenv("WHATIF_TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("WHATIF_TEST_MYSQL_DSN not set")
	}
	require.NoError(t, migrations.Run("mysql", os.Getenv("WHATIF_TEST_MYSQL_MIGRATE_URL"), migrations.Up, zaptest.NewLogger(t)))

	conn, err := Connect(t.Context(), dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	_, err = conn.ExecContext(t.Context(), "TRUNCATE TABLE scenarios")
	require.NoError(t, err)
	return NewScenarioRepository(conn)
}

func TestScenarioRepositoryCreateAndRecent(t *testing.T) {
	repo := newTestRepository(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 12; i++ {
		_, err := repo.Create(t.Context(), &scenario.Record{
			Title:       "s",
			Description: "d",
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	got, err := repo.Recent(t.Context(), 0)
	require.NoError(t, err)
	require.Len(t, got, scenario.MaxRecent)
	for i := 1; i < len(got); i++ {
		assert.True(t, got[i-1].CreatedAt.After(got[i].CreatedAt))
	}
	assert.Equal(t, int64(12), got[0].ID)
}

func TestScenarioRepositoryRoundTrip(t *testing.T) {
	repo := newTestRepository(t)

	created, err := repo.Create(t.Context(), &scenario.Record{
		Description: "What if X",
		Subjects:    []string{"Town", "Transit"},
		Background:  "Small town",
		Entities:    []scenario.Entity{{Name: "A", Impact: scenario.ImpactHigh, ImpactProbability: 0.5, ConfidenceScore: 0.5}},
		ResearchSources: &scenario.ResearchSources{
			OverallConfidence: 0.83,
		},
	})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, scenario.DefaultTitle, created.Title)
	assert.Equal(t, scenario.DefaultModel, created.Model)
	assert.Equal(t, scenario.KindGeneral, created.Type)

	got, err := repo.Recent(t.Context(), 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, created.ID, got[0].ID)
	assert.Equal(t, []string{"Town", "Transit"}, got[0].Subjects)
	assert.Equal(t, "Small town", got[0].Background)
	assert.Equal(t, created.Entities, got[0].Entities)
	assert.Nil(t, got[0].Timeline)
	assert.Nil(t, got[0].VideoGeneration)
}
