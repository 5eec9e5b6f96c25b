package core

import "strings"

// Article is one normalized article candidate. Every source adapter maps its
// raw result shape onto this schema, so downstream stages never branch on
// where a row came from.
type Article struct {
	DateStr         string  `json:"date_str"`         // Compact timestamp YYYYMMDDHHMMSS (or a prefix of it)
	Source          string  `json:"source"`           // Human-readable publisher/domain
	URL             string  `json:"url"`              // Identifying URL, dedup key, never empty after normalization
	Themes          string  `json:"themes"`           // Semicolon-separated theme tags; "" when the source has none
	Locations       string  `json:"locations"`        // Source-provided location metadata
	Persons         string  `json:"persons"`          // Source-provided person metadata
	Organizations   string  `json:"organizations"`    // Source-provided organization metadata
	Tone            string  `json:"tone"`             // Tone score as string
	TranslationInfo string  `json:"translation_info"` // Provenance/language hint, e.g. "srclc:ita"
	FullText        *string `json:"full_text"`        // nil until the enricher fills it (or when the fetch failed)
}

// Table is an ordered collection of articles. Order is meaningful: the merge
// step keeps the first occurrence of a URL and cap truncation keeps a prefix.
type Table []Article

// Columns lists the canonical column names in serialization order.
func Columns() []string {
	return []string{
		"date_str", "source", "url",
		"themes", "locations", "persons", "organizations",
		"tone", "translation_info", "full_text",
	}
}

// HasFullText reports whether the article carries a non-empty extracted text.
func (a Article) HasFullText() bool {
	return a.FullText != nil && strings.TrimSpace(*a.FullText) != ""
}

// WithFullText returns a copy of the table whose rows all have full text.
func (t Table) WithFullText() Table {
	out := make(Table, 0, len(t))
	for _, a := range t {
		if a.HasFullText() {
			out = append(out, a)
		}
	}
	return out
}

// URLs returns the identifying URLs in row order.
func (t Table) URLs() []string {
	urls := make([]string, len(t))
	for i, a := range t {
		urls[i] = a.URL
	}
	return urls
}

// DateRange returns the earliest and latest DateStr values (as YYYYMMDD
// prefixes) across rows that have one. ok is false when no row has a date.
func (t Table) DateRange() (from, to string, ok bool) {
	for _, a := range t {
		if a.DateStr == "" {
			continue
		}
		d := a.DateStr
		if len(d) > 8 {
			d = d[:8]
		}
		if !ok {
			from, to, ok = d, d, true
			continue
		}
		if d < from {
			from = d
		}
		if d > to {
			to = d
		}
	}
	return from, to, ok
}

// Text returns the dereferenced full text or "".
func (a Article) Text() string {
	if a.FullText == nil {
		return ""
	}
	return *a.FullText
}

// StringPtr is a small helper for building optional text values.
func StringPtr(s string) *string { return &s }
