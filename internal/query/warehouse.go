package query

import (
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"newspop/internal/config"
)

// GKGTable is the fully-qualified warehouse table holding the Global
// Knowledge Graph feed.
const GKGTable = "`gdelt-bq.gdeltv2.gkg`"

// BuildWarehouseQuery translates the collection filters into a single
// warehouse SQL string: an inclusive date-range predicate, an OR-group of
// theme substring matches, an OR-group of keyword substring matches over the
// identifying URL, and a row limit.
//
// The keyword filter matches the DocumentIdentifier (URL) only. This is a
// deliberate proxy for content relevance: the warehouse does not index full
// article text, and matching the URL slug catches most topical articles
// cheaply. Theme and keyword values are inserted as literal substrings, so
// they must not contain quote characters.
func BuildWarehouseQuery(c config.Collect) (string, error) {
	from, err := compactDate(c.DateFrom)
	if err != nil {
		return "", fmt.Errorf("date_from: %w", err)
	}
	to, err := compactDate(c.DateTo)
	if err != nil {
		return "", fmt.Errorf("date_to: %w", err)
	}

	b := sq.Select(
		"CAST(DATE AS STRING) AS date_str",
		"SourceCommonName AS source",
		"DocumentIdentifier AS url",
		"Themes AS themes",
		"Locations AS locations",
		"Persons AS persons",
		"Organizations AS organizations",
		"SPLIT(V2Tone, ',')[SAFE_OFFSET(0)] AS tone",
		"TranslationInfo AS translation_info",
	).
		From(GKGTable).
		Where(sq.Expr(fmt.Sprintf("DATE >= %s", from))).
		Where(sq.Expr(fmt.Sprintf("DATE <= %s", to))).
		Limit(uint64(c.MaxArticles))

	themeGroup := sq.Or{}
	for _, t := range c.Themes {
		themeGroup = append(themeGroup, sq.Expr(fmt.Sprintf("Themes LIKE '%%%s%%'", t)))
	}
	keywordGroup := sq.Or{}
	for _, k := range c.Keywords {
		keywordGroup = append(keywordGroup, sq.Expr(
			fmt.Sprintf("LOWER(DocumentIdentifier) LIKE '%%%s%%'", strings.ToLower(k))))
	}

	// When both groups are empty only the date range restricts results.
	content := sq.Or{}
	if len(themeGroup) > 0 {
		content = append(content, themeGroup)
	}
	if len(keywordGroup) > 0 {
		content = append(content, keywordGroup)
	}
	if len(content) > 0 {
		b = b.Where(content)
	}

	sql, _, err := b.ToSql()
	if err != nil {
		return "", fmt.Errorf("build warehouse query: %w", err)
	}
	return sql, nil
}

// compactDate converts a YYYY-MM-DD calendar date into the warehouse's
// compact YYYYMMDDHHMMSS form. Malformed dates fail fast.
func compactDate(s string) (string, error) {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return "", fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return d.Format("20060102150405"), nil
}
