package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hoanghai1803/folio/internal/models"
	"github.com/hoanghai1803/folio/internal/storage"
)

// RunHistory is the read side of the run history. *storage.Store
// implements it.
type RunHistory interface {
	GetRecentRuns(ctx context.Context, limit int) ([]models.Run, error)
	GetLatestRun(ctx context.Context, pipeline string) (*models.Run, error)
}

// GetRuns handles GET /api/runs. It returns the most recent runs, newest
// first; ?limit defaults to 20 and is capped at 100.
func GetRuns(history RunHistory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if history == nil {
			writeError(w, http.StatusServiceUnavailable, "run history is disabled")
			return
		}

		limit, err := parseLimit(r, 20, 100)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		runs, err := history.GetRecentRuns(r.Context(), limit)
		if err != nil {
			slog.Error("failed to get runs", "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to get runs")
			return
		}
		if runs == nil {
			runs = []models.Run{}
		}
		writeJSON(w, http.StatusOK, runs)
	}
}

// GetLatestRun handles GET /api/runs/latest. An optional ?pipeline narrows
// the lookup to "articles" or "repos".
func GetLatestRun(history RunHistory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if history == nil {
			writeError(w, http.StatusServiceUnavailable, "run history is disabled")
			return
		}

		pipeline := r.URL.Query().Get("pipeline")
		switch pipeline {
		case "", models.PipelineArticles, models.PipelineRepos:
		default:
			writeError(w, http.StatusBadRequest, "pipeline must be \"articles\" or \"repos\"")
			return
		}

		run, err := history.GetLatestRun(r.Context(), pipeline)
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no runs recorded yet")
			return
		}
		if err != nil {
			slog.Error("failed to get latest run", "pipeline", pipeline, "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to get latest run")
			return
		}
		writeJSON(w, http.StatusOK, run)
	}
}
