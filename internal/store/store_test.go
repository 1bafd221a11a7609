package store

import (
	"context"
	"testing"
	"time"

	"github.com/JonMunkholm/csvcard/internal/config"
	"github.com/JonMunkholm/csvcard/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRun() *Run {
	return &Run{
		ID:   "r1",
		Name: "baseline",
		Artifacts: []core.Artifact{
			{Name: "metrics.csv", Path: "/data/r1/metrics.csv"},
			{Name: "eval.csv", URI: "https://example.com/eval.csv"},
			{Name: "model.pt", Path: "/data/r1/model.pt"},
		},
		CreatedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

// runStoreContract exercises behaviour every RunStore must share.
func runStoreContract(t *testing.T, s RunStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("missing run", func(t *testing.T) {
		_, err := s.GetRun(ctx, "nope")
		assert.ErrorIs(t, err, ErrRunNotFound)
	})

	t.Run("round trip keeps artifact order", func(t *testing.T) {
		require.NoError(t, s.PutRun(ctx, sampleRun()))

		got, err := s.GetRun(ctx, "r1")
		require.NoError(t, err)
		assert.Equal(t, "baseline", got.Name)
		assert.True(t, got.CreatedAt.Equal(sampleRun().CreatedAt), "created_at = %v", got.CreatedAt)
		assert.Equal(t, sampleRun().Artifacts, got.Artifacts)
	})

	t.Run("put replaces artifacts", func(t *testing.T) {
		run := sampleRun()
		run.Name = "renamed"
		run.Artifacts = []core.Artifact{{Name: "only.csv", Path: "./only.csv"}}
		require.NoError(t, s.PutRun(ctx, run))

		got, err := s.GetRun(ctx, "r1")
		require.NoError(t, err)
		assert.Equal(t, "renamed", got.Name)
		assert.Equal(t, run.Artifacts, got.Artifacts)
	})

	t.Run("list", func(t *testing.T) {
		require.NoError(t, s.PutRun(ctx, &Run{ID: "r0"}))

		runs, err := s.ListRuns(ctx)
		require.NoError(t, err)
		require.Len(t, runs, 2)
		assert.Equal(t, "r0", runs[0].ID)
		assert.Equal(t, "r1", runs[1].ID)
		assert.False(t, runs[0].CreatedAt.IsZero(), "zero created_at should be filled in")
	})

	t.Run("rejects invalid runs", func(t *testing.T) {
		assert.Error(t, s.PutRun(ctx, &Run{}))
		assert.Error(t, s.PutRun(ctx, &Run{ID: "r2", Artifacts: []core.Artifact{{Name: "a.csv"}, {Name: "a.csv"}}}))
		assert.Error(t, s.PutRun(ctx, &Run{ID: "r2", Artifacts: []core.Artifact{{Path: "/x.csv"}}}))
	})
}

func TestMemory(t *testing.T) {
	runStoreContract(t, NewMemory())
}

func TestMemory_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.PutRun(ctx, sampleRun()))

	got, err := m.GetRun(ctx, "r1")
	require.NoError(t, err)
	got.Artifacts[0].Name = "changed"

	again, err := m.GetRun(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "metrics.csv", again.Artifacts[0].Name)
}

func TestRun_Artifact(t *testing.T) {
	run := sampleRun()

	a, err := run.Artifact("eval.csv")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/eval.csv", a.URI)

	_, err = run.Artifact("missing.csv")
	assert.ErrorIs(t, err, ErrArtifactNotFound)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, config.StoreConfig{Driver: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)

	s, err = Open(ctx, config.StoreConfig{Driver: "SQLite", DSN: t.TempDir() + "/runs.db"})
	require.NoError(t, err)
	assert.IsType(t, &SQLStore{}, s)
	require.NoError(t, s.Close())

	_, err = Open(ctx, config.StoreConfig{Driver: "mysql"})
	assert.Error(t, err)
}
