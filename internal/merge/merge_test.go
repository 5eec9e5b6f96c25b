package merge

import (
	"reflect"
	"testing"

	"newspop/internal/core"
)

func table(urls ...string) core.Table {
	t := make(core.Table, len(urls))
	for i, u := range urls {
		t[i] = core.Article{URL: u, Source: "src-" + u}
	}
	return t
}

func TestMergeDedupFirstWins(t *testing.T) {
	a := table("u1", "u2")
	a[0].Tone = "first"
	b := table("u2", "u3", "u1")
	b[0].Tone = "second"

	got := Merge(0, a, b)
	if !reflect.DeepEqual(got.URLs(), []string{"u1", "u2", "u3"}) {
		t.Fatalf("merged urls = %v", got.URLs())
	}
	// the first occurrence of u2 (from table a) survives
	if got[1].Tone != "first" {
		t.Errorf("dedup kept the wrong occurrence of u2: tone=%q", got[1].Tone)
	}
}

func TestMergeCapKeepsPrefix(t *testing.T) {
	got := Merge(2, table("u1", "u2", "u3", "u4"))
	if !reflect.DeepEqual(got.URLs(), []string{"u1", "u2"}) {
		t.Errorf("capped urls = %v, want the first two", got.URLs())
	}
}

func TestMergeExactCap(t *testing.T) {
	got := Merge(3, table("u1", "u2", "u1", "u3", "u4"))
	if len(got) != 3 {
		t.Fatalf("row count = %d, want exactly the cap", len(got))
	}
	// cap applies after dedup: u1's duplicate does not count
	if !reflect.DeepEqual(got.URLs(), []string{"u1", "u2", "u3"}) {
		t.Errorf("capped urls = %v", got.URLs())
	}
}

func TestMergeIdempotent(t *testing.T) {
	in := []core.Table{table("u3", "u1", "u3"), table("u2", "u1")}

	once := Merge(10, in...)
	twice := Merge(10, Merge(10, in...))
	if !reflect.DeepEqual(once, twice) {
		t.Error("merging a merged table must be a no-op")
	}

	again := Merge(10, in...)
	if !reflect.DeepEqual(once, again) {
		t.Error("merge must be deterministic for identical inputs")
	}
}

func TestMergeDropsEmptyURL(t *testing.T) {
	in := core.Table{{URL: ""}, {URL: "u1"}}
	got := Merge(0, in)
	if len(got) != 1 || got[0].URL != "u1" {
		t.Errorf("empty-URL rows must be dropped: %v", got.URLs())
	}
}

func TestMergeScenarioCapTwo(t *testing.T) {
	// five warehouse rows with distinct URLs, cap 2 → first two survive
	warehouse := table("u1", "u2", "u3", "u4", "u5")
	got := Merge(2, warehouse)
	if !reflect.DeepEqual(got.URLs(), []string{"u1", "u2"}) {
		t.Errorf("urls = %v, want first two by warehouse return order", got.URLs())
	}
}
