package sources

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	bigquery "google.golang.org/api/bigquery/v2"
	"google.golang.org/api/option"
)

// BigQueryClient is the production WarehouseClient. It submits the query
// through the BigQuery jobs API and pages through the full result set.
type BigQueryClient struct {
	svc     *bigquery.Service
	project string
	log     zerolog.Logger
}

// NewBigQueryClient builds a warehouse client for a GCP project. Credentials
// resolve through Application Default Credentials unless overridden in opts.
func NewBigQueryClient(ctx context.Context, project string, log zerolog.Logger, opts ...option.ClientOption) (*BigQueryClient, error) {
	if project == "" {
		return nil, errors.New("warehouse: gcp project not configured")
	}
	svc, err := bigquery.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create bigquery service: %w", err)
	}
	return &BigQueryClient{svc: svc, project: project, log: log}, nil
}

// Query runs sql as a standard-SQL job and blocks until every result row has
// been read.
func (c *BigQueryClient) Query(ctx context.Context, sql string) ([]WarehouseRow, error) {
	useLegacySQL := false
	req := &bigquery.QueryRequest{
		Query:        sql,
		UseLegacySql: &useLegacySQL,
		// the API defaults UseLegacySql to true when the field is omitted
		ForceSendFields: []string{"UseLegacySql"},
	}
	resp, err := c.svc.Jobs.Query(c.project, req).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("run warehouse query: %w", err)
	}
	if resp.JobReference == nil {
		return nil, errors.New("warehouse: query response carries no job reference")
	}
	jobID := resp.JobReference.JobId

	rows := convertRows(resp.Rows)
	pageToken := resp.PageToken
	complete := resp.JobComplete

	for !complete || pageToken != "" {
		res, err := c.svc.Jobs.GetQueryResults(c.project, jobID).
			PageToken(pageToken).Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("read warehouse results: %w", err)
		}
		if !res.JobComplete {
			// GetQueryResults long-polls; ask again
			continue
		}
		complete = true
		rows = append(rows, convertRows(res.Rows)...)
		pageToken = res.PageToken
	}

	c.log.Debug().Str("job", jobID).Int("rows", len(rows)).Msg("warehouse job finished")
	return rows, nil
}

// convertRows maps result cells positionally onto WarehouseRow; the order
// follows the SELECT list of the built query.
func convertRows(rows []*bigquery.TableRow) []WarehouseRow {
	out := make([]WarehouseRow, 0, len(rows))
	for _, r := range rows {
		cell := func(i int) string {
			if r == nil || i >= len(r.F) || r.F[i] == nil {
				return ""
			}
			s, _ := r.F[i].V.(string)
			return s
		}
		out = append(out, WarehouseRow{
			DateStr:         cell(0),
			Source:          cell(1),
			URL:             cell(2),
			Themes:          cell(3),
			Locations:       cell(4),
			Persons:         cell(5),
			Organizations:   cell(6),
			Tone:            cell(7),
			TranslationInfo: cell(8),
		})
	}
	return out
}
