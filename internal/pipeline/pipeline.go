// Package pipeline orchestrates the collection runs: query building, source
// fetching, normalization, merging, enrichment and persistence. The digest
// flow lives in internal/digest; this package only produces the snapshots it
// consumes.
package pipeline

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"newspop/internal/config"
	"newspop/internal/core"
	"newspop/internal/email"
	"newspop/internal/merge"
	"newspop/internal/normalize"
	"newspop/internal/query"
	"newspop/internal/sources"
	"newspop/internal/store"
)

// WarehouseSource runs a SQL query against the GKG warehouse.
type WarehouseSource interface {
	Fetch(ctx context.Context, sql string) ([]sources.WarehouseRow, error)
}

// DocSource fans a filter set out across the document search API.
type DocSource interface {
	Fetch(ctx context.Context, filters []query.DocFilter) []sources.DocResult
}

// NewsSource pages through the REST news API.
type NewsSource interface {
	Fetch(ctx context.Context, q, language string, maxPages int) ([]sources.NewsDataArticle, error)
}

// Enricher fills missing full_text slots on a table.
type Enricher interface {
	Enrich(ctx context.Context, table core.Table) core.Table
}

// SnapshotWriter persists a table as a CSV+parquet pair.
type SnapshotWriter interface {
	Write(table core.Table, prefix, tag string) (store.Paths, error)
}

// Notifier delivers the per-run summary mail.
type Notifier interface {
	Enabled() bool
	Send(to, subject, textBody, htmlBody string) error
}

// Pipeline wires the collection components together.
type Pipeline struct {
	cfg       *config.Config
	warehouse WarehouseSource
	docs      DocSource
	news      NewsSource
	enricher  Enricher
	writer    SnapshotWriter
	mailer    Notifier
	log       zerolog.Logger
	now       func() time.Time
}

// New builds a pipeline from its collaborators. warehouse, docs, news,
// enricher and mailer may each be nil when the corresponding run or option
// is not used.
func New(cfg *config.Config, warehouse WarehouseSource, docs DocSource, news NewsSource,
	enricher Enricher, writer SnapshotWriter, mailer Notifier, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		warehouse: warehouse,
		docs:      docs,
		news:      news,
		enricher:  enricher,
		writer:    writer,
		mailer:    mailer,
		log:       log,
		now:       time.Now,
	}
}

// Result summarizes one collection run.
type Result struct {
	Rows      int
	Skipped   []string // doc-search keywords excluded from filters
	Paths     store.Paths
	EmailSent bool
}

// RunGDELT collects from the warehouse and the document search API, merges
// both into one deduplicated table, optionally enriches it with article full
// text and writes the gdelt snapshot pair. A failing source degrades the run
// to the other source's rows; only persistence errors abort.
func (p *Pipeline) RunGDELT(ctx context.Context, tag string) (*Result, error) {
	sqlStr, err := query.BuildWarehouseQuery(p.cfg.Collect)
	if err != nil {
		return nil, err
	}

	var warehouseTable core.Table
	rows, err := p.warehouse.Fetch(ctx, sqlStr)
	if err != nil {
		p.log.Error().Err(err).Msg("warehouse query failed, continuing with doc search only")
	} else {
		warehouseTable = normalize.Warehouse(rows)
	}

	filters, skipped := query.BuildDocFilters(p.cfg.Collect)
	if len(skipped) > 0 {
		p.log.Warn().Strs("keywords", skipped).Msg("keywords excluded from doc search filters")
	}

	tables := []core.Table{warehouseTable}
	for _, batch := range sources.Rows(p.docs.Fetch(ctx, filters)) {
		tables = append(tables, normalize.DocSearch(batch))
	}

	merged := merge.Merge(p.cfg.Collect.MaxArticles, tables...)
	p.log.Info().Int("warehouse", len(warehouseTable)).Int("merged", len(merged)).
		Msg("sources merged")

	if len(merged) == 0 {
		p.log.Warn().Msg("no articles collected, nothing to save")
		return &Result{Skipped: skipped}, nil
	}

	if p.cfg.Collect.FullText && p.enricher != nil {
		merged = p.enricher.Enrich(ctx, merged)
	}

	paths, err := p.writer.Write(merged, "gdelt", tag)
	if err != nil {
		return nil, err
	}
	return &Result{Rows: len(merged), Skipped: skipped, Paths: paths}, nil
}

// RunNewsData collects from the REST news API and writes the newsdata
// snapshot pair. Rows arrive with article text already present, so no
// enrichment pass runs. With sendEmail set, a per-run summary is mailed;
// delivery problems are logged, never fatal.
func (p *Pipeline) RunNewsData(ctx context.Context, sendEmail bool) (*Result, error) {
	articles, err := p.news.Fetch(ctx, query.NewsDataQuery, p.cfg.NewsData.Language, p.cfg.NewsData.MaxPages)
	if err != nil {
		return nil, err
	}

	merged := merge.Merge(p.cfg.Collect.MaxArticles, normalize.NewsData(articles))
	if len(merged) == 0 {
		p.log.Warn().Msg("no articles collected, nothing to save")
		return &Result{}, nil
	}

	paths, err := p.writer.Write(merged, "newsdata", "")
	if err != nil {
		return nil, err
	}

	res := &Result{Rows: len(merged), Paths: paths}
	if sendEmail {
		res.EmailSent = p.sendSummary(merged)
	}
	return res, nil
}

func (p *Pipeline) sendSummary(table core.Table) bool {
	if p.mailer == nil || !p.mailer.Enabled() {
		p.log.Warn().Msg("mail credentials or recipient missing, skipping summary email")
		return false
	}
	from, to, _ := table.DateRange()
	subject := email.Subject("newsdata", len(table), from, to)
	textBody, htmlBody := email.RunSummaryBodies(table, p.now())
	if err := p.mailer.Send(p.cfg.Email.To, subject, textBody, htmlBody); err != nil {
		p.log.Error().Err(err).Msg("summary email failed")
		return false
	}
	return true
}
