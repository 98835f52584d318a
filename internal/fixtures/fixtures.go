// Package fixtures loads query sets and precomputed hit sets from
// JSON or YAML files.
package fixtures

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rankeval/rank-eval/internal/eval"
	"github.com/rankeval/rank-eval/internal/pkg/errors"
)

// LoadQueries loads test queries from a file. The format is chosen by
// extension: .yaml/.yml is YAML, anything else JSON. Queries without
// an id get a fresh one assigned.
func LoadQueries(path string) ([]eval.Query, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.CodeNotFound, "reading queries file", err)
	}

	var queries []eval.Query
	if err := unmarshal(path, data, &queries); err != nil {
		return nil, errors.Wrap(errors.CodeValidation, "parsing queries file", err)
	}

	for i := range queries {
		if queries[i].Text == "" {
			return nil, errors.ValidationError("query without text in " + path)
		}
		queries[i] = queries[i].EnsureID()
	}

	return queries, nil
}

// LoadHits loads precomputed search hits keyed by query text.
func LoadHits(path string) (map[string][]eval.Hit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.CodeNotFound, "reading hits file", err)
	}

	var hits map[string][]eval.Hit
	if err := unmarshal(path, data, &hits); err != nil {
		return nil, errors.Wrap(errors.CodeValidation, "parsing hits file", err)
	}

	return hits, nil
}

// QueryVector pairs a query text with its precomputed dense vector.
type QueryVector struct {
	Text   string    `json:"text" yaml:"text"`
	Vector []float32 `json:"vector" yaml:"vector"`
}

// LoadQueryVectors loads precomputed query vectors keyed by query text,
// for vector-search approaches whose embeddings are computed offline.
func LoadQueryVectors(path string) (map[string][]float32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.CodeNotFound, "reading query vectors file", err)
	}

	var entries []QueryVector
	if err := unmarshal(path, data, &entries); err != nil {
		return nil, errors.Wrap(errors.CodeValidation, "parsing query vectors file", err)
	}

	vectors := make(map[string][]float32, len(entries))
	for _, entry := range entries {
		if entry.Text == "" || len(entry.Vector) == 0 {
			return nil, errors.ValidationError("query vector entry without text or vector in " + path)
		}
		vectors[entry.Text] = entry.Vector
	}

	return vectors, nil
}

func unmarshal(path string, data []byte, out any) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, out)
	default:
		return json.Unmarshal(data, out)
	}
}
