// Package fetch downloads article pages and extracts their main body text.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	// DefaultTimeout bounds one full-text download.
	DefaultTimeout = 15 * time.Second

	userAgent = "newspop/1.0 (+article research pipeline)"

	// maxBodyBytes caps how much of a page is read; article HTML beyond
	// this is almost always boilerplate or streaming junk.
	maxBodyBytes = 4 << 20
)

// Client fetches a URL and extracts the main article text. It implements
// enrich.TextFetcher.
type Client struct {
	http *http.Client
}

// NewClient builds a fetch client with the given per-request timeout.
// timeout <= 0 uses DefaultTimeout.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{http: &http.Client{Timeout: timeout}}
}

// FullText downloads the document at url and returns its extracted main
// text. An empty result with nil error means the page had no extractable
// article body.
func (c *Client) FullText(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build request for %s: %w", url, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", url, err)
	}

	return Extract(string(body))
}

// mainContentSelectors are tried in order before falling back to the whole
// body. Semantic tags first, then the class names news CMSes tend to use.
var mainContentSelectors = []string{
	"article", "main",
	".main-content", ".entry-content", ".post-content", ".post-body", ".article-body",
	"[role='main']",
	".content", "#content",
}

var collapseNewlines = regexp.MustCompile(`(\n\s*){2,}`)

// Extract pulls the main article text out of an HTML document. Comments,
// navigation, tabular content and other boilerplate are removed before text
// extraction.
func Extract(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	doc.Find("script, style, nav, footer, header, aside, form, iframe, noscript, table, " +
		".sidebar, #sidebar, .ad, .advertisement, .popup, .modal, .cookie-banner, " +
		".comments, #comments, .comment-list, .related-articles").Remove()

	var b strings.Builder
	for _, selector := range mainContentSelectors {
		doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			collectText(s, &b)
		})
		if b.Len() > 0 {
			break
		}
	}
	if b.Len() == 0 {
		doc.Find("body").Each(func(_ int, s *goquery.Selection) {
			collectText(s, &b)
		})
	}

	text := collapseNewlines.ReplaceAllString(b.String(), "\n")
	return strings.TrimSpace(text), nil
}

func collectText(s *goquery.Selection, b *strings.Builder) {
	s.Find("p, h1, h2, h3, h4, h5, h6, li, blockquote, pre").Each(func(_ int, item *goquery.Selection) {
		t := strings.TrimSpace(item.Text())
		if t == "" {
			return
		}
		b.WriteString(t)
		b.WriteString("\n\n")
	})
}
