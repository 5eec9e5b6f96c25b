package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const articleHTML = `<html><head><title>Una pagina</title>
<script>var junk = 1;</script></head>
<body>
<nav><a href="/">home</a></nav>
<article>
  <h1>Calo demografico in Italia</h1>
  <p>Il tasso di natalità continua a scendere.</p>
  <table><tr><td>1950</td><td>2.5</td></tr></table>
  <p>Gli esperti chiedono nuove politiche familiari.</p>
</article>
<div class="comments"><p>Primo!</p></div>
<footer>contatti</footer>
</body></html>`

func TestExtractMainContent(t *testing.T) {
	text, err := Extract(articleHTML)
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}

	for _, want := range []string{
		"Calo demografico in Italia",
		"tasso di natalità",
		"politiche familiari",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("extracted text missing %q:\n%s", want, text)
		}
	}
	for _, unwanted := range []string{"junk", "home", "contatti", "Primo!", "1950"} {
		if strings.Contains(text, unwanted) {
			t.Errorf("extracted text should exclude %q (boilerplate/table/comment):\n%s", unwanted, text)
		}
	}
}

func TestExtractBodyFallback(t *testing.T) {
	html := `<html><body><p>solo un paragrafo senza article</p></body></html>`
	text, err := Extract(html)
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	if !strings.Contains(text, "solo un paragrafo") {
		t.Errorf("body fallback missed content: %q", text)
	}
}

func TestExtractEmptyPage(t *testing.T) {
	text, err := Extract("<html><body></body></html>")
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	if text != "" {
		t.Errorf("expected empty extraction, got %q", text)
	}
}

func TestFullTextHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(articleHTML))
	}))
	defer srv.Close()

	c := NewClient(0)
	text, err := c.FullText(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("FullText() error: %v", err)
	}
	if !strings.Contains(text, "Calo demografico") {
		t.Errorf("fetched text missing headline: %q", text)
	}
}

func TestFullTextNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(0)
	if _, err := c.FullText(context.Background(), srv.URL); err == nil {
		t.Fatal("FullText() should fail on a 404")
	}
}
