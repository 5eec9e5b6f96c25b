// Package normalize maps each source's raw result shape onto the canonical
// article schema. Every canonical column is present in the output even when
// the source never produces it; rows without an identifying URL are dropped.
package normalize

import (
	"strings"

	"newspop/internal/core"
	"newspop/internal/sources"
)

// Warehouse maps warehouse query rows onto the canonical schema. The
// warehouse supplies every metadata column, so this is mostly a straight
// field copy plus timestamp tidying.
func Warehouse(rows []sources.WarehouseRow) core.Table {
	out := make(core.Table, 0, len(rows))
	for _, r := range rows {
		if r.URL == "" {
			continue
		}
		out = append(out, core.Article{
			DateStr:         CompactTimestamp(r.DateStr),
			Source:          r.Source,
			URL:             r.URL,
			Themes:          r.Themes,
			Locations:       r.Locations,
			Persons:         r.Persons,
			Organizations:   r.Organizations,
			Tone:            r.Tone,
			TranslationInfo: r.TranslationInfo,
		})
	}
	return out
}

// DocSearch maps doc-search results onto the canonical schema. The search
// API exposes no theme/entity metadata, so those columns are filled empty.
func DocSearch(rows []sources.DocArticle) core.Table {
	out := make(core.Table, 0, len(rows))
	for _, r := range rows {
		if r.URL == "" {
			continue
		}
		translation := ""
		if r.Language != "" {
			translation = "srclang:" + strings.ToLower(r.Language)
		}
		out = append(out, core.Article{
			DateStr:         CompactTimestamp(r.SeenDate),
			Source:          r.Domain,
			URL:             r.URL,
			TranslationInfo: translation,
		})
	}
	return out
}

// NewsData maps REST API results onto the canonical schema. The API already
// carries article text (content, or description as a fallback), so FullText
// is pre-filled here and the enricher is not needed for this source.
func NewsData(rows []sources.NewsDataArticle) core.Table {
	out := make(core.Table, 0, len(rows))
	for _, r := range rows {
		if r.Link == "" {
			continue
		}

		text := strings.TrimSpace(r.Content)
		if text == "" {
			text = strings.TrimSpace(r.Description)
		}
		var fullText *string
		if text != "" {
			fullText = core.StringPtr(text)
		}

		source := strings.TrimSpace(r.SourceName)
		if source == "" {
			source = strings.TrimSpace(r.SourceID)
		}

		out = append(out, core.Article{
			DateStr:         CompactTimestamp(r.PubDate),
			Source:          source,
			URL:             r.Link,
			TranslationInfo: "srclc:ita",
			FullText:        fullText,
		})
	}
	return out
}

// CompactTimestamp reduces a timestamp to the canonical compact form by
// stripping separators and truncating to 14 digits (YYYYMMDDHHMMSS).
// "2024-01-05 12:30:00" and "20240105123000" both come out as the latter.
func CompactTimestamp(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
		if b.Len() == 14 {
			break
		}
	}
	return b.String()
}
