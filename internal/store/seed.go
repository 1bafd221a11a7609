package store

import (
	"context"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// seedFile is the YAML layout accepted by LoadSeed:
//
//	runs:
//	  - id: 3f2a
//	    name: baseline
//	    artifacts:
//	      - name: metrics.csv
//	        path: /data/runs/3f2a/metrics.csv
type seedFile struct {
	Runs []Run `yaml:"runs"`
}

// LoadSeed decodes runs from YAML.
func LoadSeed(r io.Reader) ([]Run, error) {
	var f seedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	for i := range f.Runs {
		if err := validateRun(&f.Runs[i]); err != nil {
			return nil, fmt.Errorf("seed run %d: %w", i, err)
		}
	}
	return f.Runs, nil
}

// SeedFromFile loads the YAML file at path into s and returns how many runs
// were written.
func SeedFromFile(ctx context.Context, s RunStore, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()

	runs, err := LoadSeed(f)
	if err != nil {
		return 0, err
	}
	for i := range runs {
		if err := s.PutRun(ctx, &runs[i]); err != nil {
			return i, fmt.Errorf("seed run %s: %w", runs[i].ID, err)
		}
	}
	return len(runs), nil
}
