// Package query runs a ranked search and scores the sentiment of every hit.
package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/DeafMist/headline-pulse/internal/logger"
	"github.com/DeafMist/headline-pulse/internal/models"
	"github.com/DeafMist/headline-pulse/internal/sentiment"
)

var (
	// ErrEmptyQuery is returned for a blank query string.
	ErrEmptyQuery = errors.New("empty query")
	// ErrEmptyResult is returned when the search yields no hits.
	ErrEmptyResult = errors.New("no results")
	// ErrExternalService wraps failures of the search backend.
	ErrExternalService = errors.New("search backend failure")
)

// RetrievalError reports a hit whose text could not be loaded.
type RetrievalError struct {
	DocID string
	Err   error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("retrieve %s: %v", e.DocID, e.Err)
}

func (e *RetrievalError) Unwrap() error {
	return e.Err
}

var errNoContents = errors.New("document has no contents")

// Searcher ranks documents for a query.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]models.Hit, error)
}

// Fetcher loads the stored text of one document.
type Fetcher interface {
	Fetch(ctx context.Context, docID string) (string, error)
}

// Result is the outcome for a single hit. Exactly one of Err or Polarity is
// meaningful.
type Result struct {
	Hit      models.Hit `json:"hit"`
	Polarity float64    `json:"polarity"`
	Err      error      `json:"-"`
}

// OK reports whether the hit was retrieved and scored.
func (r Result) OK() bool {
	return r.Err == nil
}

// Outcome holds every per-hit result of one query, in rank order.
type Outcome struct {
	Query   string
	Results []Result
}

// Scored returns the successful results.
func (o *Outcome) Scored() []Result {
	out := make([]Result, 0, len(o.Results))
	for _, r := range o.Results {
		if r.OK() {
			out = append(out, r)
		}
	}
	return out
}

// Failures returns the results that could not be retrieved.
func (o *Outcome) Failures() []Result {
	var out []Result
	for _, r := range o.Results {
		if !r.OK() {
			out = append(out, r)
		}
	}
	return out
}

// Polarities returns the scores of the successful results.
func (o *Outcome) Polarities() []float64 {
	scored := o.Scored()
	out := make([]float64, 0, len(scored))
	for _, r := range scored {
		out = append(out, r.Polarity)
	}
	return out
}

// Runner wires a search backend to a sentiment scorer.
type Runner struct {
	searcher Searcher
	fetcher  Fetcher
	scorer   sentiment.Scorer
	log      *slog.Logger
}

// NewRunner builds a Runner. A nil logger discards output.
func NewRunner(searcher Searcher, fetcher Fetcher, scorer sentiment.Scorer, log *slog.Logger) *Runner {
	if log == nil {
		log = logger.Discard()
	}
	return &Runner{searcher: searcher, fetcher: fetcher, scorer: scorer, log: log}
}

// Run searches for query, fetches each of the top k hits and scores it.
// Per-hit failures are recorded in the outcome and do not abort the query.
func (r *Runner) Run(ctx context.Context, query string, k int) (*Outcome, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	hits, err := r.searcher.Search(ctx, query, k)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExternalService, err)
	}
	if len(hits) == 0 {
		return nil, ErrEmptyResult
	}

	out := &Outcome{Query: query, Results: make([]Result, 0, len(hits))}
	for _, hit := range hits {
		text, err := r.fetcher.Fetch(ctx, hit.DocID)
		if err == nil && strings.TrimSpace(text) == "" {
			err = errNoContents
		}
		if err != nil {
			rerr := &RetrievalError{DocID: hit.DocID, Err: err}
			r.log.Warn("skip hit", slog.String("query", query), slog.Any("err", rerr))
			out.Results = append(out.Results, Result{Hit: hit, Err: rerr})
			continue
		}

		hit.Text = text
		out.Results = append(out.Results, Result{Hit: hit, Polarity: r.scorer.Polarity(text)})
	}

	r.log.Debug("query done",
		slog.String("query", query),
		slog.Int("hits", len(hits)),
		slog.Int("failed", len(out.Failures())),
	)
	return out, nil
}
