package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"newspop/internal/config"
	"newspop/internal/core"
	"newspop/internal/logger"
	"newspop/internal/query"
	"newspop/internal/sources"
	"newspop/internal/store"
)

type fakeWarehouse struct {
	rows []sources.WarehouseRow
	err  error
	sql  string
}

func (f *fakeWarehouse) Fetch(_ context.Context, sql string) ([]sources.WarehouseRow, error) {
	f.sql = sql
	return f.rows, f.err
}

type fakeDocs struct {
	results []sources.DocResult
	filters []query.DocFilter
}

func (f *fakeDocs) Fetch(_ context.Context, filters []query.DocFilter) []sources.DocResult {
	f.filters = filters
	return f.results
}

type fakeNews struct {
	articles []sources.NewsDataArticle
	err      error
}

func (f *fakeNews) Fetch(_ context.Context, _, _ string, _ int) ([]sources.NewsDataArticle, error) {
	return f.articles, f.err
}

type fakeEnricher struct{ called bool }

func (f *fakeEnricher) Enrich(_ context.Context, table core.Table) core.Table {
	f.called = true
	out := make(core.Table, len(table))
	copy(out, table)
	for i := range out {
		out[i].FullText = core.StringPtr("testo")
	}
	return out
}

type fakeWriter struct {
	table  core.Table
	prefix string
	tag    string
	err    error
	writes int
}

func (f *fakeWriter) Write(table core.Table, prefix, tag string) (store.Paths, error) {
	f.table, f.prefix, f.tag = table, prefix, tag
	f.writes++
	return store.Paths{CSV: "out.csv", Parquet: "out.parquet"}, f.err
}

type fakeMailer struct {
	enabled bool
	to      string
	subject string
	err     error
	sent    int
}

func (f *fakeMailer) Enabled() bool { return f.enabled }

func (f *fakeMailer) Send(to, subject, _, _ string) error {
	f.to, f.subject = to, subject
	f.sent++
	return f.err
}

func testConfig() *config.Config {
	return &config.Config{
		Collect: config.Collect{
			DateFrom:    "2024-01-01",
			DateTo:      "2024-01-07",
			Keywords:    []string{"fertility"},
			Themes:      []string{"UNGP_FERTILITY"},
			Languages:   []string{"italian"},
			MaxArticles: 100,
		},
		NewsData: config.NewsData{Language: "it", MaxPages: 3},
		Email:    config.Email{To: "dest@example.org"},
	}
}

func warehouseRow(url string) sources.WarehouseRow {
	return sources.WarehouseRow{DateStr: "20240103120000", Source: "w.example", URL: url}
}

func docRow(url string) sources.DocArticle {
	return sources.DocArticle{URL: url, Domain: "d.example", SeenDate: "20240104120000"}
}

func TestRunGDELTMergesBothSources(t *testing.T) {
	wh := &fakeWarehouse{rows: []sources.WarehouseRow{
		warehouseRow("https://a.example/1"),
		warehouseRow("https://a.example/2"),
	}}
	docs := &fakeDocs{results: []sources.DocResult{
		{Rows: []sources.DocArticle{docRow("https://a.example/2"), docRow("https://a.example/3")}},
	}}
	w := &fakeWriter{}
	p := New(testConfig(), wh, docs, nil, nil, w, nil, logger.Nop())

	res, err := p.RunGDELT(context.Background(), "")
	if err != nil {
		t.Fatalf("RunGDELT() error: %v", err)
	}
	if res.Rows != 3 {
		t.Errorf("rows = %d, want 3 (shared URL deduplicated)", res.Rows)
	}
	if w.prefix != "gdelt" {
		t.Errorf("snapshot prefix = %q", w.prefix)
	}
	// warehouse row wins the dedup tie on the shared URL
	if w.table[1].Source != "w.example" {
		t.Errorf("dedup winner source = %q, want warehouse row", w.table[1].Source)
	}
	if !strings.Contains(wh.sql, "gdelt-bq.gdeltv2.gkg") {
		t.Errorf("warehouse received unexpected sql: %s", wh.sql)
	}
	if len(docs.filters) == 0 {
		t.Error("doc source received no filters")
	}
}

func TestRunGDELTWarehouseFailureDegrades(t *testing.T) {
	wh := &fakeWarehouse{err: errors.New("job failed")}
	docs := &fakeDocs{results: []sources.DocResult{
		{Rows: []sources.DocArticle{docRow("https://a.example/1")}},
	}}
	w := &fakeWriter{}
	p := New(testConfig(), wh, docs, nil, nil, w, nil, logger.Nop())

	res, err := p.RunGDELT(context.Background(), "run1")
	if err != nil {
		t.Fatalf("RunGDELT() must not fail on a warehouse error: %v", err)
	}
	if res.Rows != 1 {
		t.Errorf("rows = %d, want 1 from doc search", res.Rows)
	}
	if w.tag != "run1" {
		t.Errorf("snapshot tag = %q", w.tag)
	}
}

func TestRunGDELTEmptyResultSkipsWrite(t *testing.T) {
	w := &fakeWriter{}
	p := New(testConfig(), &fakeWarehouse{}, &fakeDocs{}, nil, nil, w, nil, logger.Nop())

	res, err := p.RunGDELT(context.Background(), "")
	if err != nil {
		t.Fatalf("RunGDELT() error: %v", err)
	}
	if res.Rows != 0 || w.writes != 0 {
		t.Errorf("empty run wrote a snapshot: rows=%d writes=%d", res.Rows, w.writes)
	}
}

func TestRunGDELTEnrichesWhenConfigured(t *testing.T) {
	cfg := testConfig()
	cfg.Collect.FullText = true
	wh := &fakeWarehouse{rows: []sources.WarehouseRow{warehouseRow("https://a.example/1")}}
	e := &fakeEnricher{}
	w := &fakeWriter{}
	p := New(cfg, wh, &fakeDocs{}, nil, e, w, nil, logger.Nop())

	if _, err := p.RunGDELT(context.Background(), ""); err != nil {
		t.Fatalf("RunGDELT() error: %v", err)
	}
	if !e.called {
		t.Error("enricher was not invoked")
	}
	if len(w.table.WithFullText()) != len(w.table) {
		t.Error("persisted table missing enriched text")
	}
}

func TestRunGDELTBadDateFails(t *testing.T) {
	cfg := testConfig()
	cfg.Collect.DateFrom = "01/01/2024"
	p := New(cfg, &fakeWarehouse{}, &fakeDocs{}, nil, nil, &fakeWriter{}, nil, logger.Nop())

	if _, err := p.RunGDELT(context.Background(), ""); err == nil {
		t.Fatal("malformed window date must abort the run")
	}
}

func TestRunNewsDataWritesAndMails(t *testing.T) {
	news := &fakeNews{articles: []sources.NewsDataArticle{
		{Link: "https://n.example/1", SourceName: "fonte", PubDate: "2024-01-05 10:00:00", Content: "testo"},
		{Link: "https://n.example/1", SourceName: "doppione", PubDate: "2024-01-05 11:00:00"},
	}}
	w := &fakeWriter{}
	m := &fakeMailer{enabled: true}
	p := New(testConfig(), nil, nil, news, nil, w, m, logger.Nop())

	res, err := p.RunNewsData(context.Background(), true)
	if err != nil {
		t.Fatalf("RunNewsData() error: %v", err)
	}
	if res.Rows != 1 {
		t.Errorf("rows = %d, want 1 after URL dedup", res.Rows)
	}
	if w.prefix != "newsdata" {
		t.Errorf("snapshot prefix = %q", w.prefix)
	}
	if !res.EmailSent || m.sent != 1 {
		t.Errorf("summary mail not sent: sent=%v count=%d", res.EmailSent, m.sent)
	}
	if m.to != "dest@example.org" {
		t.Errorf("mail recipient = %q", m.to)
	}
	if !strings.Contains(m.subject, "1 articoli") {
		t.Errorf("mail subject = %q", m.subject)
	}
}

func TestRunNewsDataMailFailureNonFatal(t *testing.T) {
	news := &fakeNews{articles: []sources.NewsDataArticle{
		{Link: "https://n.example/1", PubDate: "2024-01-05 10:00:00"},
	}}
	m := &fakeMailer{enabled: true, err: errors.New("smtp down")}
	p := New(testConfig(), nil, nil, news, nil, &fakeWriter{}, m, logger.Nop())

	res, err := p.RunNewsData(context.Background(), true)
	if err != nil {
		t.Fatalf("mail failure must not abort the run: %v", err)
	}
	if res.EmailSent {
		t.Error("EmailSent reported despite delivery error")
	}
}

func TestRunNewsDataDisabledMailerSkips(t *testing.T) {
	news := &fakeNews{articles: []sources.NewsDataArticle{
		{Link: "https://n.example/1", PubDate: "2024-01-05 10:00:00"},
	}}
	m := &fakeMailer{enabled: false}
	p := New(testConfig(), nil, nil, news, nil, &fakeWriter{}, m, logger.Nop())

	res, err := p.RunNewsData(context.Background(), true)
	if err != nil {
		t.Fatalf("RunNewsData() error: %v", err)
	}
	if res.EmailSent || m.sent != 0 {
		t.Error("disabled mailer must be skipped")
	}
}

func TestRunNewsDataSourceErrorAborts(t *testing.T) {
	p := New(testConfig(), nil, nil, &fakeNews{err: errors.New("missing api key")},
		nil, &fakeWriter{}, nil, logger.Nop())

	if _, err := p.RunNewsData(context.Background(), false); err == nil {
		t.Fatal("source error must propagate")
	}
}

func TestRunNewsDataEmptyResultSkipsWrite(t *testing.T) {
	w := &fakeWriter{}
	p := New(testConfig(), nil, nil, &fakeNews{}, nil, w, nil, logger.Nop())

	res, err := p.RunNewsData(context.Background(), false)
	if err != nil {
		t.Fatalf("RunNewsData() error: %v", err)
	}
	if res.Rows != 0 || w.writes != 0 {
		t.Errorf("empty run wrote a snapshot: rows=%d writes=%d", res.Rows, w.writes)
	}
}
