package cli

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestInspect_LocalFile(t *testing.T) {
	p := writeFile(t, "metrics.csv", "step,loss\n1,0.9\n2,0.5\n3,0.25")

	out, err := execute(t, "inspect", p)
	require.NoError(t, err)

	assert.Contains(t, out, "(3 rows, 2 columns, local)")
	assert.Contains(t, out, "LOSS")
	assert.Contains(t, out, "0.25")
}

func TestInspect_QueryAndLimit(t *testing.T) {
	p := writeFile(t, "metrics.csv", "step,loss\n1,0.9\n2,0.5\n3,0.25")

	out, err := execute(t, "inspect", p, "--query", "0.5")
	require.NoError(t, err)
	assert.Contains(t, out, "0.5")
	assert.NotContains(t, out, "0.25")

	out, err = execute(t, "inspect", p, "-n", "1")
	require.NoError(t, err)
	assert.Contains(t, strings.ToLower(out), "2 more rows")

	out, err = execute(t, "inspect", p, "-q", "nothing-matches")
	require.NoError(t, err)
	assert.Contains(t, out, "No Data")
}

func TestInspect_JSON(t *testing.T) {
	p := writeFile(t, "m.csv", "a,b\n\"x\",y")

	out, err := execute(t, "inspect", p, "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"columns": [`)
	assert.Contains(t, out, `"a": "x"`)
	assert.Contains(t, out, `"_rowIndex": 0`)
}

func TestInspect_NonCSVNote(t *testing.T) {
	p := writeFile(t, "table.txt", "a\n1")

	out, err := execute(t, "inspect", p)
	require.NoError(t, err)
	assert.Contains(t, out, "not listed by the card")
}

func TestInspect_RemoteURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/eval.csv" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("model,acc\nbase,0.71"))
	}))
	defer srv.Close()

	out, err := execute(t, "inspect", srv.URL+"/eval.csv")
	require.NoError(t, err)
	assert.Contains(t, out, "remote")
	assert.Contains(t, out, "0.71")

	_, err = execute(t, "inspect", srv.URL+"/missing.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Not Found")
}

func TestInspect_Errors(t *testing.T) {
	_, err := execute(t, "inspect")
	assert.Error(t, err, "at least one argument is required")

	_, err = execute(t, "inspect", filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)

	p := writeFile(t, "big.csv", strings.Repeat("a,b\n", 100))
	_, err = execute(t, "inspect", p, "--max-bytes", "10")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file too large")

	_, err = execute(t, "inspect", p, "-o", "yaml")
	assert.Error(t, err)
}

func TestSeedAndRuns(t *testing.T) {
	seed := writeFile(t, "runs.yaml", `
runs:
  - id: r1
    name: baseline
    artifacts:
      - name: metrics.csv
        path: /data/r1/metrics.csv
      - name: model.pt
        path: /data/r1/model.pt
  - id: r2
    name: sweep
`)
	dsn := filepath.Join(t.TempDir(), "runs.db")

	out, err := execute(t, "seed", seed, "--driver", "sqlite", "--dsn", dsn)
	require.NoError(t, err)
	assert.Contains(t, out, "seeded 2 runs")

	out, err = execute(t, "runs", "--driver", "sqlite", "--dsn", dsn)
	require.NoError(t, err)
	assert.Contains(t, out, "baseline")
	assert.Contains(t, out, "sweep")
	assert.Contains(t, out, "(2 runs)")
}

func TestRuns_Empty(t *testing.T) {
	out, err := execute(t, "runs", "--driver", "memory")
	require.NoError(t, err)
	assert.Contains(t, out, "(0 runs)")
}

func TestSeed_InvalidFile(t *testing.T) {
	seed := writeFile(t, "bad.yaml", "runs:\n  - name: no-id\n")
	_, err := execute(t, "seed", seed, "--driver", "memory")
	assert.Error(t, err)
}
