// Package searcher provides ready-made search functions for common
// approach setups: fixture-backed hit sets and Qdrant vector search.
package searcher

import (
	"context"

	"github.com/rankeval/rank-eval/internal/eval"
	"github.com/rankeval/rank-eval/internal/pkg/logger"
)

// Fixture returns a search function serving preloaded hits keyed by
// query text. Queries without hits get an empty result and a warning;
// this mirrors evaluating an approach against a fixed hit file.
func Fixture(hits map[string][]eval.Hit, log *logger.Logger) eval.SearchFunc {
	if log == nil {
		log = logger.Default()
	}
	return func(ctx context.Context, query eval.Query) (eval.SearchResult, error) {
		qHits, ok := hits[query.Text]
		if !ok {
			log.WithQuery(query.Text, query.ID).Warn("no hits found for query")
			return eval.SearchResult{Query: query}, nil
		}
		return eval.SearchResult{Query: query, Hits: qHits}, nil
	}
}
