package searcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/qdrant/go-client/qdrant"

	"github.com/rankeval/rank-eval/internal/eval"
	"github.com/rankeval/rank-eval/internal/pkg/errors"
)

const (
	// DefaultQdrantPort is the default Qdrant gRPC port.
	DefaultQdrantPort = 6334

	// DefaultTopK is the number of hits retrieved per query.
	DefaultTopK = 10

	// defaultQdrantTimeout bounds each query round trip.
	defaultQdrantTimeout = 30 * time.Second
)

// QdrantConfig holds configuration for the Qdrant searcher.
type QdrantConfig struct {
	// Host is the Qdrant server host.
	Host string

	// Port is the Qdrant gRPC port.
	Port int

	// APIKey for authentication (optional).
	APIKey string

	// UseTLS enables TLS connection.
	UseTLS bool

	// Collection is the collection to search.
	Collection string

	// TopK is the number of hits to retrieve per query.
	TopK uint64

	// Timeout for each query.
	Timeout time.Duration
}

// Qdrant is a vector-search approach over a Qdrant collection. Query
// embeddings are computed offline and supplied per query text, so the
// searcher itself needs no embedding model.
type Qdrant struct {
	client  *qdrant.Client
	config  QdrantConfig
	vectors map[string][]float32

	mu     sync.RWMutex
	closed bool
}

// NewQdrant creates a Qdrant searcher with precomputed query vectors.
func NewQdrant(cfg QdrantConfig, vectors map[string][]float32) (*Qdrant, error) {
	if cfg.Collection == "" {
		return nil, errors.ValidationError("qdrant collection cannot be empty")
	}
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultQdrantPort
	}
	if cfg.TopK == 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultQdrantTimeout
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, errors.Wrap(errors.CodeUnavailable, "failed to create qdrant client", err)
	}

	return &Qdrant{
		client:  client,
		config:  cfg,
		vectors: vectors,
	}, nil
}

// SearchFunc returns the search function for this approach. A query
// without a precomputed vector fails that query only; the runner's
// failure isolation keeps the rest of the run going.
func (s *Qdrant) SearchFunc() eval.SearchFunc {
	return func(ctx context.Context, query eval.Query) (eval.SearchResult, error) {
		hits, err := s.search(ctx, query)
		if err != nil {
			return eval.SearchResult{}, err
		}
		return eval.SearchResult{Query: query, Hits: hits}, nil
	}
}

func (s *Qdrant) search(ctx context.Context, query eval.Query) ([]eval.Hit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, errors.New(errors.CodeUnavailable, "qdrant searcher is closed")
	}

	vector, ok := s.vectors[query.Text]
	if !ok {
		return nil, errors.NotFoundError("precomputed vector for query " + query.Text)
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.config.Collection,
		Query:          qdrant.NewQueryDense(vector),
		Limit:          qdrant.PtrOf(s.config.TopK),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, errors.Wrap(errors.CodeUnavailable, "qdrant query failed", err)
	}

	hits := make([]eval.Hit, 0, len(points))
	for _, p := range points {
		hits = append(hits, scoredPointToHit(p))
	}
	return hits, nil
}

// scoredPointToHit flattens a scored point into an open hit map: the
// point id, its score and every payload field.
func scoredPointToHit(p *qdrant.ScoredPoint) eval.Hit {
	hit := eval.Hit{
		"score": float64(p.Score),
	}

	switch v := p.Id.PointIdOptions.(type) {
	case *qdrant.PointId_Uuid:
		hit["id"] = v.Uuid
	case *qdrant.PointId_Num:
		hit["id"] = fmt.Sprintf("%d", v.Num)
	}

	for key, value := range p.Payload {
		hit[key] = payloadValue(value)
	}

	return hit
}

// payloadValue converts a Qdrant payload value to a plain Go value.
func payloadValue(v *qdrant.Value) any {
	switch kind := v.Kind.(type) {
	case *qdrant.Value_StringValue:
		return kind.StringValue
	case *qdrant.Value_IntegerValue:
		return kind.IntegerValue
	case *qdrant.Value_DoubleValue:
		return kind.DoubleValue
	case *qdrant.Value_BoolValue:
		return kind.BoolValue
	case *qdrant.Value_ListValue:
		items := make([]any, 0, len(kind.ListValue.Values))
		for _, item := range kind.ListValue.Values {
			items = append(items, payloadValue(item))
		}
		return items
	case *qdrant.Value_StructValue:
		fields := make(map[string]any, len(kind.StructValue.Fields))
		for name, field := range kind.StructValue.Fields {
			fields[name] = payloadValue(field)
		}
		return fields
	default:
		return nil
	}
}

// Close closes the underlying client connection.
func (s *Qdrant) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.client.Close()
}
