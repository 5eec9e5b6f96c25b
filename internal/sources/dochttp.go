package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"newspop/internal/query"
)

const (
	docDefaultBaseURL = "https://api.gdeltproject.org/api/v2/doc/doc"

	// docMaxRecords is the hard per-request ceiling of the doc-search API.
	// Larger filter caps are clamped rather than paginated.
	docMaxRecords = 250
)

// DocHTTPClient is the production DocClient, speaking the doc-search API's
// artlist JSON mode.
type DocHTTPClient struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

// DocHTTPOption customizes a DocHTTPClient.
type DocHTTPOption func(*DocHTTPClient)

// WithDocBaseURL points the client at an alternate endpoint.
func WithDocBaseURL(u string) DocHTTPOption {
	return func(c *DocHTTPClient) { c.baseURL = u }
}

// WithDocHTTPClient swaps the underlying HTTP client.
func WithDocHTTPClient(h *http.Client) DocHTTPOption {
	return func(c *DocHTTPClient) { c.http = h }
}

// NewDocHTTPClient builds a doc-search client with a 30 s request timeout.
func NewDocHTTPClient(log zerolog.Logger, opts ...DocHTTPOption) *DocHTTPClient {
	c := &DocHTTPClient{
		baseURL: docDefaultBaseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
		log:     log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type docWireArticle struct {
	URL           string `json:"url"`
	Title         string `json:"title"`
	Domain        string `json:"domain"`
	SeenDate      string `json:"seendate"`
	Language      string `json:"language"`
	SourceCountry string `json:"sourcecountry"`
}

type docWireResponse struct {
	Articles []docWireArticle `json:"articles"`
}

// Search issues one artlist request for the filter and decodes the article
// list. The API answers errors as plain text with status 200, so a non-JSON
// body is treated as a request failure.
func (c *DocHTTPClient) Search(ctx context.Context, filter query.DocFilter) ([]DocArticle, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"?"+searchParams(filter).Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build doc search request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("doc search request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, fmt.Errorf("read doc search response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("doc search: status %d: %s", resp.StatusCode, headOf(body))
	}

	var wire docWireResponse
	if err := json.Unmarshal(body, &wire); err != nil {
		msg := headOf(body)
		if strings.Contains(strings.ToLower(msg), "recursion") {
			return nil, fmt.Errorf("%w: %s", ErrDeepPagination, msg)
		}
		return nil, fmt.Errorf("doc search: %s", msg)
	}

	articles := make([]DocArticle, 0, len(wire.Articles))
	for _, a := range wire.Articles {
		articles = append(articles, DocArticle{
			URL:           a.URL,
			Title:         a.Title,
			Domain:        a.Domain,
			SeenDate:      a.SeenDate,
			Language:      a.Language,
			SourceCountry: a.SourceCountry,
		})
	}
	return articles, nil
}

// searchParams translates a filter into the API's query parameters. Query
// terms and the theme/country operators share the single query parameter.
func searchParams(filter query.DocFilter) url.Values {
	terms := []string{}
	if filter.Query != "" {
		terms = append(terms, filter.Query)
	}
	if filter.Theme != "" {
		terms = append(terms, "theme:"+filter.Theme)
	}
	if filter.Country != "" {
		terms = append(terms, "sourcecountry:"+filter.Country)
	}

	maxRows := filter.MaxRows
	if maxRows <= 0 || maxRows > docMaxRecords {
		maxRows = docMaxRecords
	}

	v := url.Values{}
	v.Set("query", strings.Join(terms, " "))
	v.Set("mode", "artlist")
	v.Set("format", "json")
	v.Set("sort", "datedesc")
	v.Set("maxrecords", strconv.Itoa(maxRows))
	if ts := compactDay(filter.StartDate); ts != "" {
		v.Set("startdatetime", ts+"000000")
	}
	if ts := compactDay(filter.EndDate); ts != "" {
		v.Set("enddatetime", ts+"235959")
	}
	return v
}

// compactDay strips the separators of a YYYY-MM-DD date.
func compactDay(s string) string {
	d := strings.ReplaceAll(s, "-", "")
	if len(d) != 8 {
		return ""
	}
	return d
}

func headOf(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
