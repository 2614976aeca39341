// Package build runs the two publishing pipelines, writes their artifacts
// and records each execution in the run history.
package build

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hoanghai1803/folio/internal/config"
	"github.com/hoanghai1803/folio/internal/feeds"
	"github.com/hoanghai1803/folio/internal/models"
	"github.com/hoanghai1803/folio/internal/publish"
	"github.com/hoanghai1803/folio/internal/repos"
	"golang.org/x/sync/errgroup"
)

// ErrUnknownPipeline is returned by Run for a name other than "articles" or
// "repos".
var ErrUnknownPipeline = errors.New("unknown pipeline")

// Recorder stores run history. *storage.Store implements it.
type Recorder interface {
	CreateRun(ctx context.Context, run *models.Run) (int64, error)
}

// Report summarizes one successful pipeline execution.
type Report struct {
	Pipeline   string           `json:"pipeline"`
	Items      int              `json:"items"`
	Considered int              `json:"considered,omitempty"`
	Warnings   int              `json:"warnings"`
	Failed     []models.Failure `json:"failed,omitempty"`
	Output     string           `json:"output"`
	DurationMS int64            `json:"duration_ms"`
	RunID      int64            `json:"run_id,omitempty"`
}

// Runner executes pipelines against one configuration.
type Runner struct {
	cfg       *config.Config
	fetcher   *feeds.Fetcher
	collector *repos.Collector
	recorder  Recorder
}

// NewRunner wires both pipelines to a shared HTTP client. A nil client
// selects feeds.NewHTTPClient; a nil recorder disables run history.
func NewRunner(cfg *config.Config, client *http.Client, recorder Recorder) (*Runner, error) {
	if client == nil {
		client = feeds.NewHTTPClient()
	}
	collector, err := repos.NewCollector(cfg.Repos, client)
	if err != nil {
		return nil, fmt.Errorf("creating repos collector: %w", err)
	}
	return &Runner{
		cfg:       cfg,
		fetcher:   feeds.NewFetcher(cfg.Articles, client),
		collector: collector,
		recorder:  recorder,
	}, nil
}

// Run executes the named pipeline.
func (r *Runner) Run(ctx context.Context, pipeline string) (*Report, error) {
	switch pipeline {
	case models.PipelineArticles:
		return r.RunArticles(ctx)
	case models.PipelineRepos:
		return r.RunRepos(ctx)
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownPipeline, pipeline)
	}
}

// RunArticles fetches the feed and writes the articles artifact. On error
// the previous artifact is left untouched.
func (r *Runner) RunArticles(ctx context.Context) (*Report, error) {
	start := time.Now()
	output := r.cfg.Articles.Output

	res, err := r.fetcher.Fetch(ctx)
	if err != nil {
		return nil, r.fail(ctx, models.PipelineArticles, output, start, err)
	}
	if err := publish.WriteJSON(output, res.Articles); err != nil {
		return nil, r.fail(ctx, models.PipelineArticles, output, start, err)
	}

	return r.succeed(ctx, &Report{
		Pipeline: models.PipelineArticles,
		Items:    len(res.Articles),
		Warnings: len(res.Failed),
		Failed:   res.Failed,
		Output:   output,
	}, start), nil
}

// RunRepos collects repository cards and writes the repos artifact. On
// error the previous artifact is left untouched.
func (r *Runner) RunRepos(ctx context.Context) (*Report, error) {
	start := time.Now()
	output := r.cfg.Repos.Output

	res, err := r.collector.Collect(ctx)
	if err != nil {
		return nil, r.fail(ctx, models.PipelineRepos, output, start, err)
	}
	if err := publish.WriteJSON(output, res.Cards); err != nil {
		return nil, r.fail(ctx, models.PipelineRepos, output, start, err)
	}

	return r.succeed(ctx, &Report{
		Pipeline:   models.PipelineRepos,
		Items:      len(res.Cards),
		Considered: res.Considered,
		Warnings:   len(res.Failed),
		Failed:     res.Failed,
		Output:     output,
	}, start), nil
}

// RunAll runs both pipelines concurrently. A failure in one does not cancel
// the other. It returns the reports of the pipelines that succeeded and the
// joined errors of those that did not.
func (r *Runner) RunAll(ctx context.Context) ([]*Report, error) {
	runs := []func(context.Context) (*Report, error){r.RunArticles, r.RunRepos}
	reports := make([]*Report, len(runs))
	errs := make([]error, len(runs))

	var g errgroup.Group
	for i, run := range runs {
		i, run := i, run
		g.Go(func() error {
			reports[i], errs[i] = run(ctx)
			return nil
		})
	}
	_ = g.Wait() // errors are collected per slot

	var done []*Report
	for _, rep := range reports {
		if rep != nil {
			done = append(done, rep)
		}
	}
	return done, errors.Join(errs...)
}

func (r *Runner) succeed(ctx context.Context, rep *Report, start time.Time) *Report {
	rep.DurationMS = time.Since(start).Milliseconds()
	slog.Info("pipeline finished",
		"pipeline", rep.Pipeline,
		"items", rep.Items,
		"warnings", rep.Warnings,
		"output", rep.Output,
		"duration_ms", rep.DurationMS,
	)

	failures, err := json.Marshal(rep.Failed)
	if err != nil || rep.Failed == nil {
		failures = []byte("[]")
	}
	rep.RunID = r.record(ctx, &models.Run{
		Pipeline:     rep.Pipeline,
		Status:       models.RunOK,
		Items:        rep.Items,
		Warnings:     rep.Warnings,
		FailuresJSON: string(failures),
		Output:       rep.Output,
		DurationMS:   rep.DurationMS,
	})
	return rep
}

func (r *Runner) fail(ctx context.Context, pipeline, output string, start time.Time, err error) error {
	err = fmt.Errorf("%s pipeline: %w", pipeline, err)
	slog.Error("pipeline failed", "pipeline", pipeline, "error", err)

	r.record(ctx, &models.Run{
		Pipeline:   pipeline,
		Status:     models.RunFailed,
		Error:      err.Error(),
		Output:     output,
		DurationMS: time.Since(start).Milliseconds(),
	})
	return err
}

// record stores the run and returns its ID, or 0 when history is disabled
// or the write failed. A history failure never fails the pipeline.
func (r *Runner) record(ctx context.Context, run *models.Run) int64 {
	if r.recorder == nil {
		return 0
	}
	// An interrupted build is still worth recording.
	id, err := r.recorder.CreateRun(context.WithoutCancel(ctx), run)
	if err != nil {
		slog.Warn("could not record run", "pipeline", run.Pipeline, "error", err)
		return 0
	}
	return id
}
