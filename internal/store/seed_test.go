package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const seedYAML = `
runs:
  - id: r1
    name: baseline
    created_at: 2024-03-01T12:00:00Z
    artifacts:
      - name: metrics.csv
        path: /data/r1/metrics.csv
      - name: eval.csv
        uri: https://example.com/eval.csv
  - id: r2
    artifacts: []
`

func TestLoadSeed(t *testing.T) {
	runs, err := LoadSeed(strings.NewReader(seedYAML))
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, "baseline", runs[0].Name)
	assert.Equal(t, 2024, runs[0].CreatedAt.Year())
	require.Len(t, runs[0].Artifacts, 2)
	assert.Equal(t, "/data/r1/metrics.csv", runs[0].Artifacts[0].Path)
	assert.Equal(t, "https://example.com/eval.csv", runs[0].Artifacts[1].URI)
}

func TestLoadSeed_Empty(t *testing.T) {
	runs, err := LoadSeed(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestLoadSeed_Invalid(t *testing.T) {
	tests := map[string]string{
		"unknown field":      "runs:\n  - id: r1\n    owner: bob\n",
		"missing id":         "runs:\n  - name: x\n",
		"duplicate artifact": "runs:\n  - id: r1\n    artifacts:\n      - name: a.csv\n      - name: a.csv\n",
		"not yaml":           "runs: [",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadSeed(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}

func TestSeedFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.yaml")
	require.NoError(t, os.WriteFile(path, []byte(seedYAML), 0o644))

	m := NewMemory()
	n, err := SeedFromFile(context.Background(), m, path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	run, err := m.GetRun(context.Background(), "r1")
	require.NoError(t, err)
	assert.Len(t, run.Artifacts, 2)

	_, err = SeedFromFile(context.Background(), m, filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
