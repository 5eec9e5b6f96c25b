// Package enrich fills the full_text column of a canonical table by
// downloading and extracting every row's URL with a bounded worker pool.
package enrich

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"newspop/internal/core"
)

// TextFetcher downloads one URL and extracts its main text. fetch.Client is
// the production implementation.
type TextFetcher interface {
	FullText(ctx context.Context, url string) (string, error)
}

// Enricher runs best-effort full-text enrichment over a table.
type Enricher struct {
	fetcher TextFetcher
	workers int
	log     zerolog.Logger
}

// New builds an enricher with a fixed-size worker pool. workers < 1 is
// clamped to 1.
func New(fetcher TextFetcher, workers int, log zerolog.Logger) *Enricher {
	if workers < 1 {
		workers = 1
	}
	return &Enricher{fetcher: fetcher, workers: workers, log: log}
}

// Enrich returns a copy of the table with FullText populated where the
// fetch succeeded and nil where it failed. Each URL is attempted exactly
// once; a failure never aborts the batch. Each worker task owns a disjoint
// slot of the result slice, so completion order cannot shuffle rows: the
// output column aligns positionally with the input row order.
func (e *Enricher) Enrich(ctx context.Context, table core.Table) core.Table {
	n := len(table)
	if n == 0 {
		return table
	}

	e.log.Info().Int("articles", n).Int("workers", e.workers).
		Msg("downloading full text")

	texts := make([]*string, n)
	jobs := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < e.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				texts[i] = e.fetchOne(ctx, table[i].URL)
			}
		}()
	}

feed:
	for i := 0; i < n; i++ {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed // stop feeding; already-claimed jobs finish
		}
	}
	close(jobs)
	wg.Wait()

	out := make(core.Table, n)
	copy(out, table)
	ok := 0
	for i := range out {
		out[i].FullText = texts[i]
		if texts[i] != nil {
			ok++
		}
	}

	e.log.Info().Int("ok", ok).Int("total", n).Msg("full text retrieved")
	return out
}

// fetchOne attempts one URL. Failures and empty extractions come back as
// nil and are only visible at debug level.
func (e *Enricher) fetchOne(ctx context.Context, url string) *string {
	text, err := e.fetcher.FullText(ctx, url)
	if err != nil {
		e.log.Debug().Err(err).Str("url", url).Msg("full text fetch failed")
		return nil
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return &text
}
