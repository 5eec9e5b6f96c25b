// Package digest turns the most recent persisted tables into a generated
// press-review document.
package digest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"newspop/internal/config"
	"newspop/internal/core"
	"newspop/internal/llm"
	"newspop/internal/merge"
	"newspop/internal/store"
)

// SourcePrefixes are the snapshot prefixes the generator merges, in merge
// priority order (warehouse rows win dedup ties).
var SourcePrefixes = []string{"gdelt", "newsdata"}

// Generator builds and persists digests.
type Generator struct {
	cfg config.Digest
	gen llm.Generator
	log zerolog.Logger
	now func() time.Time
}

// New wires a digest generator around an LLM backend.
func New(cfg config.Digest, gen llm.Generator, log zerolog.Logger) *Generator {
	return &Generator{cfg: cfg, gen: gen, log: log, now: time.Now}
}

// LoadArticles returns the articles feeding the digest. With an explicit
// parquet path only that file is read. Otherwise the newest snapshot of each
// source prefix is loaded, and snapshots written on the same run date are
// merged with URL-keyed dedup; a stale older-day snapshot of a secondary
// source is left out.
func (g *Generator) LoadArticles(parquetPath string) (core.Table, error) {
	if parquetPath != "" {
		g.log.Info().Str("path", parquetPath).Msg("loading articles")
		return store.ReadParquet(parquetPath)
	}

	var paths []string
	for _, prefix := range SourcePrefixes {
		p, err := store.LatestPath(g.cfg.DataDir, prefix)
		if err != nil {
			g.log.Warn().Str("prefix", prefix).Msg("no snapshot for source, skipping")
			continue
		}
		paths = append(paths, p)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no persisted tables found in %s", g.cfg.DataDir)
	}

	keep := []string{paths[0]}
	for _, p := range paths[1:] {
		if store.SameDay(paths[0], p) {
			keep = append(keep, p)
		} else {
			g.log.Warn().Str("path", p).Msg("snapshot from a different day, not merging")
		}
	}

	tables := make([]core.Table, 0, len(keep))
	for _, p := range keep {
		t, err := store.ReadParquet(p)
		if err != nil {
			return nil, err
		}
		g.log.Info().Str("path", p).Int("rows", len(t)).Msg("loaded snapshot")
		tables = append(tables, t)
	}
	return merge.Merge(0, tables...), nil
}

// Run generates the digest from the given articles and writes it to the
// posts directory. Articles without full text are excluded before prompt
// building; an empty remainder skips generation cleanly.
func (g *Generator) Run(ctx context.Context, articles core.Table) (string, error) {
	withText := articles.WithFullText()
	g.log.Info().Int("with_full_text", len(withText)).Int("total", len(articles)).
		Msg("articles available for digest")
	if len(withText) == 0 {
		g.log.Warn().Msg("no articles with full text, skipping digest generation")
		return "", nil
	}

	dateFrom, dateTo, ok := withText.DateRange()
	if !ok {
		dateFrom, dateTo = "", ""
	}
	fromFmt, toFmt := formatDate(dateFrom), formatDate(dateTo)

	prompt := BuildUserPrompt(withText, fromFmt, toFmt, g.cfg.MaxCharsPerArticle)
	g.log.Info().Int("articles", len(withText)).Str("model", g.cfg.Model).
		Msg("requesting digest generation")

	text, err := g.gen.Generate(ctx, SystemPrompt, prompt)
	if err != nil {
		return "", fmt.Errorf("generate digest: %w", err)
	}

	path, err := g.save(text)
	if err != nil {
		return "", err
	}
	g.log.Info().Str("path", path).Msg("digest saved")
	return path, nil
}

func (g *Generator) save(text string) (string, error) {
	if err := os.MkdirAll(g.cfg.PostsDir, 0o755); err != nil {
		return "", fmt.Errorf("create posts dir %s: %w", g.cfg.PostsDir, err)
	}
	name := g.now().Format("2006-01-02") + "_digest.md"
	path := filepath.Join(g.cfg.PostsDir, name)
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("write digest %s: %w", path, err)
	}
	return path, nil
}

// formatDate turns a YYYYMMDD prefix into YYYY-MM-DD for display.
func formatDate(d string) string {
	if len(d) < 8 {
		return d
	}
	return d[:4] + "-" + d[4:6] + "-" + d[6:8]
}
