// Package judge implements relevance judges: the HTTP client for the
// remote judging service and a local keyword judge for offline runs.
// Both satisfy eval.Judge.
package judge

import (
	"fmt"

	"github.com/rankeval/rank-eval/internal/eval"
	"github.com/rankeval/rank-eval/internal/pkg/errors"
)

// DefaultFields are the hit fields judged when none are configured.
var DefaultFields = []string{"text"}

// Request is the wire request sent to the judging service.
type Request struct {
	Query RequestQuery `json:"query"`
	Eval  RequestEval  `json:"eval"`
	Hits  []eval.Hit   `json:"hits"`
}

// RequestQuery carries the query text.
type RequestQuery struct {
	Inputs QueryInputs `json:"inputs"`
}

// QueryInputs holds the judged query inputs.
type QueryInputs struct {
	Text string `json:"text"`
}

// RequestEval selects the judged fields and debug mode.
type RequestEval struct {
	Fields []string `json:"fields"`
	Debug  bool     `json:"debug"`
}

// NewRequest builds a judge request for a query and its hits.
func NewRequest(query eval.Query, hits []eval.Hit, fields []string, debug bool) Request {
	if len(fields) == 0 {
		fields = DefaultFields
	}
	return Request{
		Query: RequestQuery{Inputs: QueryInputs{Text: query.Text}},
		Eval:  RequestEval{Fields: fields, Debug: debug},
		Hits:  hits,
	}
}

// ResponseHit is one judged hit in the wire response. Relevant and
// Score are pointers so a missing key is distinguishable from a zero
// value during protocol validation.
type ResponseHit struct {
	Index         int            `json:"index"`
	ID            string         `json:"id,omitempty"`
	Fields        map[string]any `json:"fields"`
	Relevant      *bool          `json:"relevant"`
	Score         *int           `json:"score"`
	Justification string         `json:"justification,omitempty"`
}

// Response is the wire response from the judging service.
type Response struct {
	Hits    []ResponseHit      `json:"hits"`
	Metrics map[string]float64 `json:"metrics"`
	Usage   map[string]int     `json:"usage"`
}

// parseResponse validates a judge response against the request and
// converts it into an evaluation record. A missing relevant or score
// key, or a hit count mismatched against the request, is a protocol
// error.
func parseResponse(query eval.Query, resp *Response, requested int, fields []string) (*eval.Record, error) {
	if len(resp.Hits) != requested {
		return nil, errors.ProtocolError(
			fmt.Sprintf("judge returned %d hit judgments for %d hits", len(resp.Hits), requested))
	}
	if len(fields) == 0 {
		fields = DefaultFields
	}

	hitScores := make([]eval.HitJudgment, 0, len(resp.Hits))
	for i, hit := range resp.Hits {
		if hit.Relevant == nil {
			return nil, errors.ProtocolError(fmt.Sprintf("hit %d is missing the relevant field", i))
		}
		if hit.Score == nil {
			return nil, errors.ProtocolError(fmt.Sprintf("hit %d is missing the score field", i))
		}

		hitScores = append(hitScores, eval.HitJudgment{
			Index:         hit.Index,
			HitID:         hitID(hit),
			EvalScore:     *hit.Score,
			Relevant:      *hit.Relevant,
			EvalText:      stringField(hit.Fields, fields[0]),
			Fields:        hit.Fields,
			Justification: hit.Justification,
		})
	}

	return &eval.Record{
		Query:     query,
		Metrics:   resp.Metrics,
		HitScores: hitScores,
		Usage:     resp.Usage,
	}, nil
}

// hitID resolves the judged hit's identifier: the top-level id, then an
// id echoed in fields, then a positional fallback.
func hitID(hit ResponseHit) string {
	if hit.ID != "" {
		return hit.ID
	}
	if id := stringField(hit.Fields, "id"); id != "" {
		return id
	}
	return fmt.Sprintf("hit-%d", hit.Index)
}

func stringField(fields map[string]any, name string) string {
	if v, ok := fields[name].(string); ok {
		return v
	}
	return ""
}
