package feeds

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/hoanghai1803/folio/internal/config"
	"github.com/hoanghai1803/folio/internal/models"
)

// maxBodyBytes caps how much of any upstream document is read.
const maxBodyBytes = 10 * 1024 * 1024

const userAgent = "Mozilla/5.0 (compatible; folio/1.0; +https://github.com/hoanghai1803/folio)"

// Result contains the published articles and any per-entry problems that
// were degraded to defaults.
type Result struct {
	Articles []models.Article
	Failed   []models.Failure
}

// Fetcher runs the articles pipeline: fetch the feed, parse a bounded list
// of entries and turn each into an Article.
type Fetcher struct {
	client *http.Client
	cfg    config.ArticlesConfig
}

// NewHTTPClient returns the HTTP client shared by both pipelines. It sets a
// folio User-Agent on every request and otherwise keeps the default
// transport's behavior, including its lack of an overall timeout.
func NewHTTPClient() *http.Client {
	return &http.Client{
		Transport: &userAgentTransport{
			base: http.DefaultTransport,
		},
	}
}

// NewFetcher creates a Fetcher for the given settings. A nil client selects
// NewHTTPClient.
func NewFetcher(cfg config.ArticlesConfig, client *http.Client) *Fetcher {
	if client == nil {
		client = NewHTTPClient()
	}
	return &Fetcher{client: client, cfg: cfg}
}

// userAgentTransport wraps an http.RoundTripper to inject default headers on
// every request. Headers already set by the caller win.
type userAgentTransport struct {
	base http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", userAgent)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/rss+xml, application/xml;q=0.9, text/html;q=0.8, */*;q=0.5")
	}
	return t.base.RoundTrip(req)
}

// Fetch retrieves the configured feed and converts its first entries into
// articles. A transport error or non-2xx response is fatal; everything after
// that degrades per entry, unless ctx is cancelled while page images are
// still being fetched.
func (f *Fetcher) Fetch(ctx context.Context) (*Result, error) {
	body, err := get(ctx, f.client, f.cfg.FeedURL)
	if err != nil {
		return nil, fmt.Errorf("fetching feed: %w", err)
	}

	entries := parseEntries(string(body), f.cfg.Limit)

	result := Result{Articles: make([]models.Article, 0, len(entries))}
	for _, e := range entries {
		article := toArticle(e, f.cfg.DefaultTag)

		if article.Date == invalidDate {
			slog.Warn("unparsable publish date", "title", article.Title, "date", e.Published)
			result.Failed = append(result.Failed, models.Failure{
				Subject: article.Title,
				Error:   fmt.Sprintf("unparsable publish date %q", e.Published),
			})
		}

		if article.Thumbnail == "" && f.cfg.PageImageFallback && article.URL != "" {
			img, err := f.pageImage(ctx, article.URL)
			if err != nil {
				slog.Warn("failed to extract page image", "url", article.URL, "error", err)
				result.Failed = append(result.Failed, models.Failure{
					Subject: article.URL,
					Error:   err.Error(),
				})
			}
			article.Thumbnail = img
		}

		result.Articles = append(result.Articles, article)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("fetching page images: %w", err)
	}

	slog.Info("fetched feed", "url", f.cfg.FeedURL, "items", len(result.Articles))
	return &result, nil
}

// get performs a GET request and returns the body of a 2xx response.
func get(ctx context.Context, client *http.Client, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request for %q: %w", rawURL, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %q: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetching %q: HTTP %d", rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading body from %q: %w", rawURL, err)
	}
	return body, nil
}
