// Package store persists canonical tables as immutable snapshot file pairs:
// a row-oriented CSV and a columnar parquet file sharing one timestamped
// stem. Filenames sort lexicographically by creation time, which is what the
// digest generator's latest-file selection relies on.
package store

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/writer"

	"newspop/internal/core"
)

// stemTimeLayout makes stems sort chronologically.
const stemTimeLayout = "20060102_150405"

// Paths holds the two files written for one run.
type Paths struct {
	CSV     string
	Parquet string
}

// Writer persists tables into an output directory.
type Writer struct {
	dir string
	log zerolog.Logger
	now func() time.Time
}

// NewWriter builds a writer for dir, creating it on first write.
func NewWriter(dir string, log zerolog.Logger) *Writer {
	return &Writer{dir: dir, log: log, now: time.Now}
}

// articleRecord is the parquet schema for one canonical row. full_text is
// optional; every other column is a required UTF8 string.
type articleRecord struct {
	DateStr         string  `parquet:"name=date_str, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Source          string  `parquet:"name=source, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	URL             string  `parquet:"name=url, type=BYTE_ARRAY, convertedtype=UTF8"`
	Themes          string  `parquet:"name=themes, type=BYTE_ARRAY, convertedtype=UTF8"`
	Locations       string  `parquet:"name=locations, type=BYTE_ARRAY, convertedtype=UTF8"`
	Persons         string  `parquet:"name=persons, type=BYTE_ARRAY, convertedtype=UTF8"`
	Organizations   string  `parquet:"name=organizations, type=BYTE_ARRAY, convertedtype=UTF8"`
	Tone            string  `parquet:"name=tone, type=BYTE_ARRAY, convertedtype=UTF8"`
	TranslationInfo string  `parquet:"name=translation_info, type=BYTE_ARRAY, convertedtype=UTF8"`
	FullText        *string `parquet:"name=full_text, type=BYTE_ARRAY, convertedtype=UTF8"`
}

func toRecord(a core.Article) articleRecord {
	return articleRecord{
		DateStr:         a.DateStr,
		Source:          a.Source,
		URL:             a.URL,
		Themes:          a.Themes,
		Locations:       a.Locations,
		Persons:         a.Persons,
		Organizations:   a.Organizations,
		Tone:            a.Tone,
		TranslationInfo: a.TranslationInfo,
		FullText:        a.FullText,
	}
}

func fromRecord(r articleRecord) core.Article {
	return core.Article{
		DateStr:         r.DateStr,
		Source:          r.Source,
		URL:             r.URL,
		Themes:          r.Themes,
		Locations:       r.Locations,
		Persons:         r.Persons,
		Organizations:   r.Organizations,
		Tone:            r.Tone,
		TranslationInfo: r.TranslationInfo,
		FullText:        r.FullText,
	}
}

// Stem builds the deterministic file stem for a run: <prefix>_[tag_]<ts>.
func Stem(prefix, tag string, ts time.Time) string {
	if tag != "" {
		return fmt.Sprintf("%s_%s_%s", prefix, tag, ts.Format(stemTimeLayout))
	}
	return fmt.Sprintf("%s_%s", prefix, ts.Format(stemTimeLayout))
}

// Write saves the table under a fresh timestamped stem and returns both
// paths. The CSV and parquet files contain identical logical content. A
// failure on one format does not undo the other: the files are immutable
// snapshots, never updated in place.
func (w *Writer) Write(table core.Table, prefix, tag string) (Paths, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return Paths{}, fmt.Errorf("create output dir %s: %w", w.dir, err)
	}

	stem := Stem(prefix, tag, w.now())
	p := Paths{
		CSV:     filepath.Join(w.dir, stem+".csv"),
		Parquet: filepath.Join(w.dir, stem+".parquet"),
	}

	if err := writeCSV(p.CSV, table); err != nil {
		return p, err
	}
	w.log.Info().Int("rows", len(table)).Str("path", p.CSV).Msg("saved table")

	if err := writeParquet(p.Parquet, table); err != nil {
		return p, err
	}
	w.log.Info().Int("rows", len(table)).Str("path", p.Parquet).Msg("saved table")

	return p, nil
}

func writeCSV(path string, table core.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write(core.Columns()); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, a := range table {
		row := []string{
			a.DateStr, a.Source, a.URL,
			a.Themes, a.Locations, a.Persons, a.Organizations,
			a.Tone, a.TranslationInfo, a.Text(),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv %s: %w", path, err)
	}
	return nil
}

func writeParquet(path string, table core.Table) error {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	pw, err := writer.NewParquetWriter(fw, new(articleRecord), 2)
	if err != nil {
		_ = fw.Close()
		return fmt.Errorf("open parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, a := range table {
		if err := pw.Write(toRecord(a)); err != nil {
			_ = fw.Close()
			return fmt.Errorf("write parquet row: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		_ = fw.Close()
		return fmt.Errorf("finalize parquet %s: %w", path, err)
	}
	return fw.Close()
}

// ReadParquet loads a persisted table back into memory.
func ReadParquet(path string) (core.Table, error) {
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, new(articleRecord), 2)
	if err != nil {
		return nil, fmt.Errorf("open parquet reader: %w", err)
	}
	defer pr.ReadStop()

	n := int(pr.GetNumRows())
	records := make([]articleRecord, n)
	if err := pr.Read(&records); err != nil {
		return nil, fmt.Errorf("read parquet %s: %w", path, err)
	}

	table := make(core.Table, n)
	for i, r := range records {
		table[i] = fromRecord(r)
	}
	return table, nil
}

// ReadCSV loads the row-oriented serialization. Consumers may read either
// format; both carry identical logical content.
func ReadCSV(path string) (core.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv %s: %w", path, err)
	}
	if len(rows) == 0 {
		return core.Table{}, nil
	}

	table := make(core.Table, 0, len(rows)-1)
	for _, row := range rows[1:] { // skip header
		if len(row) != len(core.Columns()) {
			return nil, fmt.Errorf("csv %s: row has %d columns, want %d", path, len(row), len(core.Columns()))
		}
		a := core.Article{
			DateStr: row[0], Source: row[1], URL: row[2],
			Themes: row[3], Locations: row[4], Persons: row[5], Organizations: row[6],
			Tone: row[7], TranslationInfo: row[8],
		}
		if row[9] != "" {
			a.FullText = core.StringPtr(row[9])
		}
		table = append(table, a)
	}
	return table, nil
}

// LatestPath returns the newest parquet snapshot for a source prefix. The
// stem timestamp sorts lexicographically, so "latest" is the glob maximum.
func LatestPath(dir, prefix string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, prefix+"_*.parquet"))
	if err != nil {
		return "", fmt.Errorf("glob %s: %w", dir, err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no %s_*.parquet files found in %s", prefix, dir)
	}
	sort.Strings(matches)
	return matches[len(matches)-1], nil
}

// RunDate extracts the YYYYMMDD run date encoded in a snapshot filename, or
// "" when the name does not carry one.
func RunDate(path string) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	parts := strings.Split(stem, "_")
	// stem is <prefix>_[tag_]<YYYYMMDD>_<HHMMSS>
	if len(parts) < 3 {
		return ""
	}
	date := parts[len(parts)-2]
	if len(date) != 8 {
		return ""
	}
	return date
}

// SameDay reports whether two snapshot files were written on the same run
// date.
func SameDay(a, b string) bool {
	da, db := RunDate(a), RunDate(b)
	return da != "" && da == db
}
