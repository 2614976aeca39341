// Package repos builds the repository cards dataset from the code-hosting
// API: list the account's repositories, keep the most recently pushed
// candidates, look for a preview image in each README and rank the result.
package repos

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/hoanghai1803/folio/internal/config"
	"github.com/hoanghai1803/folio/internal/feeds"
	"github.com/hoanghai1803/folio/internal/models"
)

const maxBodyBytes = 10 * 1024 * 1024

// Result contains the ranked cards and any README problems that were
// degraded to "no thumbnail".
type Result struct {
	Cards      []models.RepositoryCard
	Considered int
	Failed     []models.Failure
}

// Collector runs the repos pipeline for one account.
type Collector struct {
	client *http.Client
	cfg    config.ReposConfig
	badges badgeFilter
}

// NewCollector creates a Collector for the given settings. A nil client
// selects feeds.NewHTTPClient. It fails only if a badge pattern does not
// compile.
func NewCollector(cfg config.ReposConfig, client *http.Client) (*Collector, error) {
	if client == nil {
		client = feeds.NewHTTPClient()
	}
	badges, err := newBadgeFilter(cfg.BadgePatterns)
	if err != nil {
		return nil, err
	}
	return &Collector{client: client, cfg: cfg, badges: badges}, nil
}

// apiRepo is the subset of the hosting API's repository object we read.
// Nullable fields decode to their zero value.
type apiRepo struct {
	Name            string `json:"name"`
	Fork            bool   `json:"fork"`
	Description     string `json:"description"`
	StargazersCount int    `json:"stargazers_count"`
	Language        string `json:"language"`
	HTMLURL         string `json:"html_url"`
	PushedAt        string `json:"pushed_at"`
	DefaultBranch   string `json:"default_branch"`
}

// Collect lists the account's repositories, enriches the candidates with
// README thumbnails and returns the ranked, truncated cards. A failed
// listing or a cancelled context is an error; single README problems are not.
func (c *Collector) Collect(ctx context.Context) (*Result, error) {
	listed, err := c.list(ctx)
	if err != nil {
		return nil, err
	}

	candidates := selectCandidates(listed, c.cfg.Excluded, c.cfg.Candidates)
	slog.Info("selected repository candidates", "listed", len(listed), "candidates", len(candidates))

	cards, failed, err := c.enrich(ctx, candidates)
	if err != nil {
		return nil, err
	}

	return &Result{
		Cards:      Rank(cards, c.cfg.Featured, c.cfg.Publish),
		Considered: len(candidates),
		Failed:     failed,
	}, nil
}

// list fetches one page of the account's repositories, most recently
// updated first.
func (c *Collector) list(ctx context.Context) ([]apiRepo, error) {
	listURL := fmt.Sprintf("%s/users/%s/repos?sort=updated&per_page=%d",
		strings.TrimRight(c.cfg.APIURL, "/"), url.PathEscape(c.cfg.Account), c.cfg.PerPage)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, listURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request for %q: %w", listURL, err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching repos: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetching repos: HTTP %d", resp.StatusCode)
	}

	var repos []apiRepo
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&repos); err != nil {
		return nil, fmt.Errorf("decoding repos: %w", err)
	}
	return repos, nil
}

// toCard shapes a candidate into its published form, without thumbnail or
// featured flag.
func toCard(cand candidate, defaultLanguage string) models.RepositoryCard {
	lang := cand.repo.Language
	if lang == "" {
		lang = defaultLanguage
	}
	return models.RepositoryCard{
		Name:        cand.repo.Name,
		Description: cand.repo.Description,
		Stars:       strconv.Itoa(cand.repo.StargazersCount),
		Lang:        lang,
		URL:         cand.repo.HTMLURL,
		UpdatedAt:   cand.pushed,
	}
}
