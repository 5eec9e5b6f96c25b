package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `{"collect": {"date_from": "2024-01-01", "date_to": "2024-01-07"}}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Collect.MaxArticles != 5000 {
		t.Errorf("default max_articles = %d, want 5000", cfg.Collect.MaxArticles)
	}
	if cfg.Collect.FullTextWorkers != 8 {
		t.Errorf("default full_text_workers = %d, want 8", cfg.Collect.FullTextWorkers)
	}
	if !cfg.Collect.FullText {
		t.Error("full_text should default to true")
	}
	if cfg.Digest.MaxCharsPerArticle != 2000 {
		t.Errorf("default max_chars_per_article = %d, want 2000", cfg.Digest.MaxCharsPerArticle)
	}
}

func TestLoadRejectsMalformedDate(t *testing.T) {
	path := writeConfig(t, `{"collect": {"date_from": "01/02/2024", "date_to": "2024-01-07"}}`)

	if _, err := Load(path); err == nil {
		t.Fatal("Load() should fail on a malformed date_from")
	}
}

func TestLoadRejectsNonPositiveCap(t *testing.T) {
	path := writeConfig(t, `{"collect": {"max_articles": 0}}`)

	if _, err := Load(path); err == nil {
		t.Fatal("Load() should fail on max_articles = 0")
	}
}

func TestDeriveWindow(t *testing.T) {
	cfg := &Config{}
	now := time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC)
	cfg.DeriveWindow(7, now)

	if cfg.Collect.DateFrom != "2024-03-03" {
		t.Errorf("DateFrom = %s, want 2024-03-03", cfg.Collect.DateFrom)
	}
	if cfg.Collect.DateTo != "2024-03-10" {
		t.Errorf("DateTo = %s, want 2024-03-10", cfg.Collect.DateTo)
	}
}

func TestPollIntervalDuration(t *testing.T) {
	d := Digest{PollInterval: "250ms"}
	if got := d.PollIntervalDuration(); got != 250*time.Millisecond {
		t.Errorf("PollIntervalDuration() = %v, want 250ms", got)
	}
	d = Digest{PollInterval: "garbage"}
	if got := d.PollIntervalDuration(); got != 5*time.Second {
		t.Errorf("PollIntervalDuration() fallback = %v, want 5s", got)
	}
}
