package store

import (
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"newspop/internal/core"
	"newspop/internal/logger"
)

func sampleTable() core.Table {
	return core.Table{
		{
			DateStr: "20240105123000", Source: "corriere.it", URL: "https://corriere.it/a",
			Themes: "WB_2167_FERTILITY", Tone: "-2.5", TranslationInfo: "srclc:ita",
			FullText: core.StringPtr("testo, con virgole\ne a capo"),
		},
		{
			DateStr: "20240106080000", Source: "repubblica.it", URL: "https://repubblica.it/b",
		},
	}
}

func newTestWriter(t *testing.T, ts time.Time) *Writer {
	t.Helper()
	w := NewWriter(t.TempDir(), logger.Nop())
	w.now = func() time.Time { return ts }
	return w
}

func TestWriteAndReadBack(t *testing.T) {
	ts := time.Date(2024, 1, 7, 10, 30, 9, 0, time.UTC)
	w := newTestWriter(t, ts)
	table := sampleTable()

	paths, err := w.Write(table, "gdelt", "")
	if err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	wantStem := "gdelt_20240107_103009"
	if filepath.Base(paths.CSV) != wantStem+".csv" {
		t.Errorf("csv name = %s, want %s.csv", filepath.Base(paths.CSV), wantStem)
	}
	if filepath.Base(paths.Parquet) != wantStem+".parquet" {
		t.Errorf("parquet name = %s, want %s.parquet", filepath.Base(paths.Parquet), wantStem)
	}

	fromParquet, err := ReadParquet(paths.Parquet)
	if err != nil {
		t.Fatalf("ReadParquet() error: %v", err)
	}
	if !reflect.DeepEqual(fromParquet, table) {
		t.Errorf("parquet round trip mismatch:\ngot  %+v\nwant %+v", fromParquet, table)
	}

	fromCSV, err := ReadCSV(paths.CSV)
	if err != nil {
		t.Fatalf("ReadCSV() error: %v", err)
	}
	// Both formats carry identical logical content.
	if !reflect.DeepEqual(fromCSV, fromParquet) {
		t.Errorf("csv and parquet disagree:\ncsv     %+v\nparquet %+v", fromCSV, fromParquet)
	}
}

func TestStemWithTag(t *testing.T) {
	ts := time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC)
	if got := Stem("gdelt", "weekly", ts); got != "gdelt_weekly_20240107_000000" {
		t.Errorf("Stem() = %s", got)
	}
	if got := Stem("newsdata", "", ts); got != "newsdata_20240107_000000" {
		t.Errorf("Stem() = %s", got)
	}
}

func TestLatestPath(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, logger.Nop())

	stamps := []time.Time{
		time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 7, 9, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 6, 9, 0, 0, 0, time.UTC),
	}
	for _, ts := range stamps {
		w.now = func() time.Time { return ts }
		if _, err := w.Write(sampleTable(), "gdelt", ""); err != nil {
			t.Fatal(err)
		}
	}
	w.now = func() time.Time { return time.Date(2024, 1, 9, 9, 0, 0, 0, time.UTC) }
	if _, err := w.Write(sampleTable(), "newsdata", ""); err != nil {
		t.Fatal(err)
	}

	latest, err := LatestPath(dir, "gdelt")
	if err != nil {
		t.Fatalf("LatestPath() error: %v", err)
	}
	if filepath.Base(latest) != "gdelt_20240107_090000.parquet" {
		t.Errorf("latest = %s, want the 2024-01-07 snapshot", filepath.Base(latest))
	}

	if _, err := LatestPath(dir, "missing"); err == nil {
		t.Error("LatestPath() should fail for an unknown prefix")
	}
}

func TestRunDateAndSameDay(t *testing.T) {
	a := "data/gdelt_20240107_090000.parquet"
	b := "data/newsdata_20240107_235959.parquet"
	c := "data/newsdata_20240108_000001.parquet"
	tagged := "data/gdelt_weekly_20240107_090000.parquet"

	if got := RunDate(a); got != "20240107" {
		t.Errorf("RunDate(%s) = %q", a, got)
	}
	if got := RunDate(tagged); got != "20240107" {
		t.Errorf("RunDate(%s) = %q", tagged, got)
	}
	if !SameDay(a, b) {
		t.Error("snapshots from the same run date should match")
	}
	if SameDay(a, c) {
		t.Error("snapshots from different days must not match")
	}
	if SameDay("garbage.parquet", "garbage.parquet") {
		t.Error("undated names must never report same-day")
	}
}

func TestWriteEmptyTable(t *testing.T) {
	w := newTestWriter(t, time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC))
	paths, err := w.Write(core.Table{}, "gdelt", "")
	if err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	table, err := ReadParquet(paths.Parquet)
	if err != nil {
		t.Fatalf("ReadParquet() error: %v", err)
	}
	if len(table) != 0 {
		t.Errorf("expected empty table, got %d rows", len(table))
	}
}
