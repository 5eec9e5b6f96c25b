package sources

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// WarehouseAdapter runs the single built query against the warehouse and
// returns its rows. One run issues exactly one query; the limit clause caps
// results server-side.
type WarehouseAdapter struct {
	client WarehouseClient
	log    zerolog.Logger
}

// NewWarehouseAdapter wires a warehouse client.
func NewWarehouseAdapter(client WarehouseClient, log zerolog.Logger) *WarehouseAdapter {
	return &WarehouseAdapter{client: client, log: log}
}

// Fetch executes the query and blocks until the warehouse job completes.
func (a *WarehouseAdapter) Fetch(ctx context.Context, sql string) ([]WarehouseRow, error) {
	a.log.Info().Msg("running warehouse query")
	a.log.Debug().Str("sql", sql).Msg("warehouse query text")

	rows, err := a.client.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("warehouse query: %w", err)
	}
	a.log.Info().Int("rows", len(rows)).Msg("retrieved rows from warehouse")
	return rows, nil
}
