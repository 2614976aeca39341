package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hoanghai1803/folio/internal/build"
)

// Builder runs one pipeline by name. *build.Runner implements it.
type Builder interface {
	Run(ctx context.Context, pipeline string) (*build.Report, error)
}

// Build handles POST /api/build/{pipeline}. The pipeline runs synchronously
// and the response is its report. An unknown pipeline is a 400; an upstream
// failure is a 502 and leaves the previous artifact in place.
func Build(builder Builder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pipeline := chi.URLParam(r, "pipeline")

		report, err := builder.Run(r.Context(), pipeline)
		if errors.Is(err, build.ErrUnknownPipeline) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err != nil {
			// The runner has already logged the failure.
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}
