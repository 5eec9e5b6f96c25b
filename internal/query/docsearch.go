package query

import (
	"strings"
	"unicode"

	"newspop/internal/config"
)

// KeywordBatchSize is the maximum number of phrases the doc-search API
// accepts in one OR-joined query.
const KeywordBatchSize = 3

// countryByLanguage maps configured language names to the doc-search API's
// source-country filter codes. Languages with no entry are dropped.
var countryByLanguage = map[string]string{
	"italian":    "IT",
	"english":    "US",
	"french":     "FR",
	"german":     "DE",
	"spanish":    "ES",
	"portuguese": "PT",
	"dutch":      "NL",
	"polish":     "PL",
}

// DocFilter is one request descriptor for the doc-search API.
type DocFilter struct {
	Query     string // OR-joined phrase query, empty when Theme is set
	Theme     string // GKG theme tag, empty when Query is set
	Country   string // source-country restriction, empty for no restriction
	StartDate string // YYYY-MM-DD
	EndDate   string // YYYY-MM-DD
	MaxRows   int
}

// BuildDocFilters derives the per-request filter set for the doc-search
// source. Keywords are batched into groups of at most KeywordBatchSize and
// OR-joined; non-ASCII keywords are excluded up front (API character-set
// restriction) and returned in the skip list. Each batch and each theme is
// issued once per resolved country, or once with no country filter when no
// configured language resolves.
func BuildDocFilters(c config.Collect) (filters []DocFilter, skipped []string) {
	var kept []string
	for _, k := range c.Keywords {
		if isASCII(k) {
			kept = append(kept, k)
		} else {
			skipped = append(skipped, k)
		}
	}

	var queries []string
	for start := 0; start < len(kept); start += KeywordBatchSize {
		end := start + KeywordBatchSize
		if end > len(kept) {
			end = len(kept)
		}
		queries = append(queries, joinPhrases(kept[start:end]))
	}

	countries := resolveCountries(c.Languages)
	if len(countries) == 0 {
		countries = []string{""}
	}

	for _, country := range countries {
		for _, q := range queries {
			filters = append(filters, DocFilter{
				Query:     q,
				Country:   country,
				StartDate: c.DateFrom,
				EndDate:   c.DateTo,
				MaxRows:   c.MaxArticles,
			})
		}
		for _, theme := range c.Themes {
			filters = append(filters, DocFilter{
				Theme:     theme,
				Country:   country,
				StartDate: c.DateFrom,
				EndDate:   c.DateTo,
				MaxRows:   c.MaxArticles,
			})
		}
	}
	return filters, skipped
}

// joinPhrases builds the OR-joined phrase query for one keyword batch.
// Multi-word phrases are double-quoted so the API treats them as exact
// phrases.
func joinPhrases(phrases []string) string {
	quoted := make([]string, len(phrases))
	for i, p := range phrases {
		if strings.ContainsRune(p, ' ') {
			quoted[i] = `"` + p + `"`
		} else {
			quoted[i] = p
		}
	}
	return strings.Join(quoted, " OR ")
}

func resolveCountries(languages []string) []string {
	var out []string
	seen := map[string]bool{}
	for _, lang := range languages {
		code, ok := countryByLanguage[strings.ToLower(strings.TrimSpace(lang))]
		if !ok || seen[code] {
			continue
		}
		seen[code] = true
		out = append(out, code)
	}
	return out
}

func isASCII(s string) bool {
	for _, r := range s {
		if r > unicode.MaxASCII {
			return false
		}
	}
	return true
}
