// Package merge concatenates normalized tables into one canonical table:
// first-occurrence-wins URL dedup, then truncation to the configured cap.
// The operation is deterministic, so re-running it over the same inputs is a
// no-op beyond the first pass.
package merge

import "newspop/internal/core"

// Merge concatenates tables in input order, drops rows whose URL was already
// seen (and rows with an empty URL), and truncates the result to max rows.
// max <= 0 disables the cap.
func Merge(max int, tables ...core.Table) core.Table {
	total := 0
	for _, t := range tables {
		total += len(t)
	}

	out := make(core.Table, 0, total)
	seen := make(map[string]struct{}, total)
	for _, t := range tables {
		for _, a := range t {
			if a.URL == "" {
				continue
			}
			if _, dup := seen[a.URL]; dup {
				continue
			}
			seen[a.URL] = struct{}{}
			out = append(out, a)
		}
	}

	if max > 0 && len(out) > max {
		out = out[:max]
	}
	return out
}
