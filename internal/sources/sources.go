// Package sources holds the three upstream source adapters and the raw
// result shape each one produces. Raw shapes are distinct types with an
// explicit normalization function each (see internal/normalize), so adding a
// source means adding a type and a mapping, not another branch on optional
// fields.
package sources

import (
	"context"
	"errors"

	"newspop/internal/query"
)

// WarehouseRow is one row of the warehouse (GKG) query result. Column
// aliases in the built query line up with these fields.
type WarehouseRow struct {
	DateStr         string
	Source          string
	URL             string
	Themes          string
	Locations       string
	Persons         string
	Organizations   string
	Tone            string
	TranslationInfo string
}

// DocArticle is one result of the doc-search API.
type DocArticle struct {
	URL           string
	Title         string
	Domain        string
	SeenDate      string // compact timestamp as returned by the API
	Language      string
	SourceCountry string
}

// NewsDataArticle is one result object of the NewsData-style REST API.
type NewsDataArticle struct {
	Link        string `json:"link"`
	Title       string `json:"title"`
	SourceID    string `json:"source_id"`
	SourceName  string `json:"source_name"`
	PubDate     string `json:"pubDate"` // "YYYY-MM-DD HH:MM:SS"
	Description string `json:"description"`
	Content     string `json:"content"`
	Language    string `json:"language"`
}

// WarehouseClient executes a SQL query against the news-event warehouse and
// blocks until the job completes. The client (connection, auth, job
// machinery) is an external collaborator.
type WarehouseClient interface {
	Query(ctx context.Context, sql string) ([]WarehouseRow, error)
}

// DocClient executes one doc-search request. The client library is an
// external collaborator; it reports pathological pagination on very large
// result sets with an error matching ErrDeepPagination.
type DocClient interface {
	Search(ctx context.Context, filter query.DocFilter) ([]DocArticle, error)
}

// ErrDeepPagination is returned by DocClient implementations when a request
// hits the client library's recursion/size limit during pagination. The
// adapter skips such requests instead of aborting the run.
var ErrDeepPagination = errors.New("doc search: pagination recursion limit reached")
