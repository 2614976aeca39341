package handlers

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestGetDataset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "repos.json")
	content := "[\n  {\n    \"name\": \"tool\"\n  }\n]\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing dataset: %v", err)
	}

	w := httptest.NewRecorder()
	GetDataset(path)(w, httptest.NewRequest(http.MethodGet, "/api/repos", nil))

	if w.Code != http.StatusOK {
		t.Errorf("got status %d, want %d", w.Code, http.StatusOK)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("got Content-Type %q, want application/json", ct)
	}
	if w.Body.String() != content {
		t.Errorf("body = %q, want the artifact verbatim", w.Body.String())
	}
}

func TestGetDataset_NotBuilt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "articles.json")

	w := httptest.NewRecorder()
	GetDataset(path)(w, httptest.NewRequest(http.MethodGet, "/api/articles", nil))

	if w.Code != http.StatusNotFound {
		t.Errorf("got status %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestGetDataset_Unreadable(t *testing.T) {
	// A directory in place of the artifact cannot be read as a file.
	path := t.TempDir()

	w := httptest.NewRecorder()
	GetDataset(path)(w, httptest.NewRequest(http.MethodGet, "/api/articles", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("got status %d, want %d", w.Code, http.StatusInternalServerError)
	}
}
