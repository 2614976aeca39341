package handlers

import (
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
)

// GetDataset handles GET /api/articles and GET /api/repos. It serves the
// artifact at path byte for byte, so the preview matches what the site reads.
func GetDataset(path string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			writeError(w, http.StatusNotFound, "dataset has not been built yet")
			return
		}
		if err != nil {
			slog.Error("failed to read dataset", "path", path, "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to read dataset")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
