package repos

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hoanghai1803/folio/internal/models"
	"golang.org/x/sync/errgroup"
)

// enrich builds a card for every candidate and looks for a README thumbnail
// for each one concurrently. A README failure leaves that card without a
// thumbnail and is reported in the returned failures; it never stops the
// other lookups. Each goroutine writes only its own slot.
//
// Cancellation is the exception: if ctx is done once the lookups return, the
// missing thumbnails say nothing about the READMEs and enrich fails.
func (c *Collector) enrich(ctx context.Context, cands []candidate) ([]models.RepositoryCard, []models.Failure, error) {
	cards := make([]models.RepositoryCard, len(cands))
	errs := make([]error, len(cands))

	var g errgroup.Group
	g.SetLimit(max(len(cands), 1))

	for i, cand := range cands {
		i, cand := i, cand
		g.Go(func() error {
			cards[i] = toCard(cand, c.cfg.DefaultLanguage)

			thumb, err := c.readmeImage(ctx, cand.repo.Name, c.branch(cand.repo))
			if err != nil {
				slog.Warn("could not fetch README",
					"repo", cand.repo.Name,
					"error", err,
				)
				errs[i] = err
				return nil // no thumbnail, keep going
			}
			cards[i].Thumbnail = thumb
			return nil
		})
	}

	_ = g.Wait() // goroutines never return an error
	if err := ctx.Err(); err != nil {
		return nil, nil, fmt.Errorf("fetching READMEs: %w", err)
	}

	var failed []models.Failure
	for i, err := range errs {
		if err != nil {
			failed = append(failed, models.Failure{
				Subject: cands[i].repo.Name,
				Error:   err.Error(),
			})
		}
	}
	return cards, failed, nil
}

// branch returns the repository's default branch, or the configured
// fallback when the API left it empty.
func (c *Collector) branch(r apiRepo) string {
	if r.DefaultBranch != "" {
		return r.DefaultBranch
	}
	return c.cfg.DefaultBranch
}

// rawBase is the raw-content prefix every file of the repository lives
// under, ending in "/".
func (c *Collector) rawBase(repo, branch string) string {
	return strings.TrimRight(c.cfg.RawURL, "/") + "/" + c.cfg.Account + "/" + repo + "/" + branch + "/"
}

// readmeImage fetches the repository's README and returns the first image
// that is not a badge, made absolute. "" with a nil error means the README
// has no usable image.
func (c *Collector) readmeImage(ctx context.Context, repo, branch string) (string, error) {
	readmeURL := c.rawBase(repo, branch) + "README.md"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, readmeURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating request for %q: %w", readmeURL, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching %q: %w", readmeURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("fetching %q: HTTP %d", readmeURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("reading body from %q: %w", readmeURL, err)
	}

	for _, ref := range imageCandidates(string(body)) {
		if c.badges.matches(ref) {
			continue
		}
		return resolveImage(ref, c.rawBase(repo, branch)), nil
	}
	return "", nil
}
