package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
)

// DefaultNewsDataBaseURL is the production endpoint of the latest-news API.
const DefaultNewsDataBaseURL = "https://newsdata.io/api/1/news"

const (
	defaultNewsDataTimeout = 30 * time.Second
	rateLimitCooldown      = 60 * time.Second
	pageDelay              = time.Second
)

// NewsDataAdapter pages through the NewsData-style REST API. It is the only
// adapter that owns its HTTP transport; the other two delegate to client
// collaborators.
type NewsDataAdapter struct {
	apiKey   string
	baseURL  string
	http     *http.Client
	cooldown time.Duration
	delay    time.Duration
	log      zerolog.Logger
}

// NewsDataOption tweaks adapter internals, mainly for tests.
type NewsDataOption func(*NewsDataAdapter)

// WithBaseURL points the adapter at a different endpoint.
func WithBaseURL(u string) NewsDataOption {
	return func(a *NewsDataAdapter) { a.baseURL = u }
}

// WithHTTPClient replaces the default 30 s-timeout client.
func WithHTTPClient(c *http.Client) NewsDataOption {
	return func(a *NewsDataAdapter) { a.http = c }
}

// WithDelays overrides the 429 cooldown and the inter-page delay.
func WithDelays(cooldown, delay time.Duration) NewsDataOption {
	return func(a *NewsDataAdapter) { a.cooldown, a.delay = cooldown, delay }
}

// NewNewsDataAdapter builds an adapter for the given API key.
func NewNewsDataAdapter(apiKey string, log zerolog.Logger, opts ...NewsDataOption) *NewsDataAdapter {
	a := &NewsDataAdapter{
		apiKey:   apiKey,
		baseURL:  DefaultNewsDataBaseURL,
		http:     &http.Client{Timeout: defaultNewsDataTimeout},
		cooldown: rateLimitCooldown,
		delay:    pageDelay,
		log:      log,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// newsDataPage is the wire shape of one API response page.
type newsDataPage struct {
	Status   string            `json:"status"`
	Message  string            `json:"message"`
	Results  []NewsDataArticle `json:"results"`
	NextPage string            `json:"nextPage"`
}

// Fetch pages through results up to maxPages. An HTTP 429 triggers a fixed
// cooldown and a retry of the same page without consuming a page slot. Any
// other failure (transport error, non-2xx status, application-level error
// status) aborts pagination and returns the pages collected so far.
func (a *NewsDataAdapter) Fetch(ctx context.Context, q, language string, maxPages int) ([]NewsDataArticle, error) {
	if a.apiKey == "" {
		return nil, fmt.Errorf("newsdata: API key is required")
	}

	var articles []NewsDataArticle
	pageToken := ""

	for page := 0; page < maxPages; {
		a.log.Info().Int("page", page+1).Msg("fetching page from newsdata")

		body, status, err := a.get(ctx, q, language, pageToken)
		if err != nil {
			a.log.Error().Err(err).Msg("newsdata request failed")
			return articles, nil
		}

		if status == http.StatusTooManyRequests {
			a.log.Warn().Dur("cooldown", a.cooldown).Msg("newsdata rate limit, cooling down")
			select {
			case <-time.After(a.cooldown):
			case <-ctx.Done():
				return articles, ctx.Err()
			}
			continue // retry same page, no page slot consumed
		}

		if status < 200 || status >= 300 {
			a.log.Error().Int("status", status).Str("body", truncate(string(body), 500)).
				Msg("newsdata HTTP error")
			return articles, nil
		}

		var p newsDataPage
		if err := json.Unmarshal(body, &p); err != nil {
			a.log.Error().Err(err).Msg("newsdata response decode failed")
			return articles, nil
		}
		if p.Status != "success" {
			a.log.Error().Str("status", p.Status).Str("message", p.Message).
				Msg("newsdata application error")
			return articles, nil
		}

		articles = append(articles, p.Results...)
		page++
		a.log.Info().Int("page", page).Int("page_rows", len(p.Results)).
			Int("total", len(articles)).Msg("newsdata page done")

		if p.NextPage == "" {
			break
		}
		pageToken = p.NextPage

		if page < maxPages && a.delay > 0 {
			select {
			case <-time.After(a.delay):
			case <-ctx.Done():
				return articles, ctx.Err()
			}
		}
	}
	return articles, nil
}

func (a *NewsDataAdapter) get(ctx context.Context, q, language, pageToken string) ([]byte, int, error) {
	params := url.Values{}
	params.Set("apikey", a.apiKey)
	params.Set("q", q)
	params.Set("language", language)
	if pageToken != "" {
		params.Set("page", pageToken)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	return body, resp.StatusCode, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
