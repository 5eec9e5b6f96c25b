package sources

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"newspop/internal/query"
)

// DefaultDocDelay is the politeness delay between doc-search requests.
const DefaultDocDelay = 2 * time.Second

// DocResult is the outcome of one doc-search request. Err is nil on
// success; failures are values here, not log side effects, so callers can
// see exactly which requests contributed rows.
type DocResult struct {
	Filter query.DocFilter
	Rows   []DocArticle
	Err    error
}

// DocSearchAdapter executes a set of doc-search requests sequentially with a
// politeness delay, tolerating per-request failures.
type DocSearchAdapter struct {
	client DocClient
	delay  time.Duration
	log    zerolog.Logger
}

// NewDocSearchAdapter wires a doc-search client. A non-positive delay
// disables inter-request sleeping (used in tests).
func NewDocSearchAdapter(client DocClient, delay time.Duration, log zerolog.Logger) *DocSearchAdapter {
	return &DocSearchAdapter{client: client, delay: delay, log: log}
}

// Fetch issues every filter once and returns one result per request, in
// input order. A request that hits the client's pagination limit, fails
// outright, or returns nothing is skipped; the run continues with the
// remaining requests.
func (a *DocSearchAdapter) Fetch(ctx context.Context, filters []query.DocFilter) []DocResult {
	results := make([]DocResult, 0, len(filters))
	for i, f := range filters {
		if i > 0 && a.delay > 0 {
			select {
			case <-time.After(a.delay):
			case <-ctx.Done():
				return results
			}
		}

		rows, err := a.client.Search(ctx, f)
		res := DocResult{Filter: f, Rows: rows, Err: err}
		results = append(results, res)

		switch {
		case errors.Is(err, ErrDeepPagination):
			a.log.Warn().Str("query", f.Query).Str("theme", f.Theme).
				Msg("doc search hit pagination limit, skipping request")
		case err != nil:
			a.log.Warn().Err(err).Str("query", f.Query).Str("theme", f.Theme).
				Msg("doc search request failed, skipping")
		case len(rows) == 0:
			// empty result: skip silently
		default:
			a.log.Info().Int("rows", len(rows)).Str("query", f.Query).
				Str("theme", f.Theme).Str("country", f.Country).
				Msg("doc search request done")
		}
	}
	return results
}

// Rows flattens the successful non-empty results, preserving request order.
func Rows(results []DocResult) [][]DocArticle {
	var out [][]DocArticle
	for _, r := range results {
		if r.Err == nil && len(r.Rows) > 0 {
			out = append(out, r.Rows)
		}
	}
	return out
}
