package sources

import (
	"context"
	"errors"
	"testing"
	"time"

	"newspop/internal/logger"
	"newspop/internal/query"
)

type fakeDocClient struct {
	responses map[string]docResponse
	calls     []string
}

type docResponse struct {
	rows []DocArticle
	err  error
}

func (f *fakeDocClient) Search(_ context.Context, filter query.DocFilter) ([]DocArticle, error) {
	key := filter.Query + "|" + filter.Theme
	f.calls = append(f.calls, key)
	r := f.responses[key]
	return r.rows, r.err
}

func TestDocSearchAdapterPartialFailures(t *testing.T) {
	client := &fakeDocClient{responses: map[string]docResponse{
		"good|": {rows: []DocArticle{{URL: "https://ok.example/a"}}},
		"deep|": {err: ErrDeepPagination},
		"boom|": {err: errors.New("connection reset")},
		"none|": {rows: nil},
	}}
	adapter := NewDocSearchAdapter(client, 0, logger.Nop())

	filters := []query.DocFilter{
		{Query: "good"}, {Query: "deep"}, {Query: "boom"}, {Query: "none"},
	}
	results := adapter.Fetch(context.Background(), filters)

	if len(results) != 4 {
		t.Fatalf("expected one result per request, got %d", len(results))
	}
	if len(client.calls) != 4 {
		t.Fatalf("every request should be attempted, got %d calls", len(client.calls))
	}

	if results[0].Err != nil || len(results[0].Rows) != 1 {
		t.Errorf("first request should succeed: %+v", results[0])
	}
	if !errors.Is(results[1].Err, ErrDeepPagination) {
		t.Errorf("second request should carry the pagination error, got %v", results[1].Err)
	}
	if results[2].Err == nil {
		t.Error("third request should carry its failure")
	}

	tables := Rows(results)
	if len(tables) != 1 {
		t.Errorf("only the successful non-empty request should contribute rows, got %d", len(tables))
	}
}

func TestDocSearchAdapterContextCancel(t *testing.T) {
	client := &fakeDocClient{responses: map[string]docResponse{}}
	adapter := NewDocSearchAdapter(client, time.Hour, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	filters := []query.DocFilter{{Query: "a"}, {Query: "b"}}
	results := adapter.Fetch(ctx, filters)
	// The first request runs before any delay; the cancelled context stops
	// the adapter at the first inter-request sleep.
	if len(results) != 1 {
		t.Errorf("expected 1 result before cancellation, got %d", len(results))
	}
}
