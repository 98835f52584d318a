package judge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rankeval/rank-eval/internal/eval"
	"github.com/rankeval/rank-eval/internal/pkg/errors"
)

// Config configures the HTTP judge client.
type Config struct {
	// Endpoint is the judging service URL.
	Endpoint string

	// APIKey authenticates requests via the Api-Key header.
	APIKey string

	// Fields are the hit fields the judge should assess.
	Fields []string

	// Debug requests per-hit justifications from the judge.
	Debug bool

	// Timeout is the request timeout.
	Timeout time.Duration

	// MaxIdleConns controls the maximum number of idle (keep-alive)
	// connections. Zero means the default.
	MaxIdleConns int

	// IdleConnTimeout is how long an idle connection remains open.
	IdleConnTimeout time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Endpoint:        "https://api.pinecone.io/evals",
		Fields:          DefaultFields,
		Debug:           true,
		Timeout:         60 * time.Second,
		MaxIdleConns:    100,
		IdleConnTimeout: 90 * time.Second,
	}
}

// Client is an HTTP client for the remote judging service.
type Client struct {
	config     Config
	httpClient *http.Client
}

// NewClient creates a judge client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, errors.ValidationError("judge endpoint cannot be empty")
	}
	if cfg.APIKey == "" {
		return nil, errors.ValidationError("judge api key cannot be empty")
	}
	if len(cfg.Fields) == 0 {
		cfg.Fields = DefaultFields
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 100
	}
	if cfg.IdleConnTimeout == 0 {
		cfg.IdleConnTimeout = 90 * time.Second
	}

	transport := &http.Transport{
		MaxIdleConns:      cfg.MaxIdleConns,
		IdleConnTimeout:   cfg.IdleConnTimeout,
		ForceAttemptHTTP2: true,
	}

	return &Client{
		config: cfg,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
	}, nil
}

// EvaluateSearch submits a query's hits to the judging service and
// returns the parsed evaluation record.
func (c *Client) EvaluateSearch(ctx context.Context, query eval.Query, hits []eval.Hit) (*eval.Record, error) {
	reqBody := NewRequest(query, hits, c.config.Fields, c.config.Debug)

	data, err := json.Marshal(reqBody)
	if err != nil {
		return nil, errors.InternalError("failed to marshal judge request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, errors.InternalError("failed to build judge request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", c.config.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.CollaboratorError("judge call failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, errors.CollaboratorError(
			fmt.Sprintf("judge returned status %d", resp.StatusCode), nil).
			WithDetail("body", string(body))
	}

	var parsed Response
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, errors.ProtocolError("failed to decode judge response: " + err.Error())
	}

	return parseResponse(query, &parsed, len(hits), c.config.Fields)
}
