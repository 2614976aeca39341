package build

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hoanghai1803/folio/internal/config"
	"github.com/hoanghai1803/folio/internal/models"
	"github.com/hoanghai1803/folio/internal/storage"
)

const testFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:content="http://purl.org/rss/1.0/modules/content/">
<channel>
<title>Someone on Medium</title>
<item>
  <title><![CDATA[Building an MCP server]]></title>
  <link>https://medium.com/@someone/mcp-1?source=rss</link>
  <category><![CDATA[mcp-server]]></category>
  <pubDate>Tue, 04 Mar 2025 10:00:00 GMT</pubDate>
  <content:encoded><![CDATA[<p>Intro</p><img src="https://cdn.example.com/mcp.png">]]></content:encoded>
</item>
<item>
  <title>Untagged notes</title>
  <link>https://medium.com/@someone/notes-2</link>
  <pubDate>Sat, 01 Feb 2025 10:00:00 GMT</pubDate>
</item>
</channel>
</rss>`

// upstream serves the feed, the repository listing and READMEs. A non-zero
// feedStatus makes the feed request fail with that status.
func upstream(t *testing.T, feedStatus int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/feed":
			if feedStatus != 0 {
				http.Error(w, "unavailable", feedStatus)
				return
			}
			_, _ = w.Write([]byte(testFeed))
		case r.URL.Path == "/users/octocat/repos":
			_, _ = w.Write([]byte(`[
				{"name":"tool","html_url":"https://github.com/octocat/tool","stargazers_count":3,"language":"Go","pushed_at":"2025-03-01T00:00:00Z","default_branch":"main"},
				{"name":"lib","html_url":"https://github.com/octocat/lib","stargazers_count":1,"language":null,"pushed_at":"2025-02-01T00:00:00Z","default_branch":"main"}
			]`))
		case strings.HasSuffix(r.URL.Path, "/README.md"):
			_, _ = w.Write([]byte("![shot](docs/shot.png)"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestConfig(t *testing.T, srvURL string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Articles.FeedURL = srvURL + "/feed"
	cfg.Articles.Output = filepath.Join(dir, "data", "articles.json")
	cfg.Repos.Account = "octocat"
	cfg.Repos.APIURL = srvURL
	cfg.Repos.RawURL = srvURL
	cfg.Repos.Output = filepath.Join(dir, "data", "repos.json")
	cfg.Repos.Featured = []string{"lib"}
	return cfg
}

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRunAll(t *testing.T) {
	srv := upstream(t, 0)
	cfg := newTestConfig(t, srv.URL)
	store := newTestStore(t)

	r, err := NewRunner(cfg, srv.Client(), store)
	if err != nil {
		t.Fatalf("NewRunner() error: %v", err)
	}

	reports, err := r.RunAll(context.Background())
	if err != nil {
		t.Fatalf("RunAll() error: %v", err)
	}
	if len(reports) != 2 {
		t.Fatalf("got %d reports, want 2", len(reports))
	}

	var articles []models.Article
	readJSON(t, cfg.Articles.Output, &articles)
	if len(articles) != 2 {
		t.Fatalf("got %d articles, want 2", len(articles))
	}
	if articles[0].Tag != "MCP Server" || articles[0].URL != "https://medium.com/@someone/mcp-1" {
		t.Errorf("articles[0] = %+v", articles[0])
	}
	if articles[1].Tag != "Article" {
		t.Errorf("articles[1].Tag = %q, want default tag", articles[1].Tag)
	}

	var cards []models.RepositoryCard
	readJSON(t, cfg.Repos.Output, &cards)
	if len(cards) != 2 {
		t.Fatalf("got %d cards, want 2", len(cards))
	}
	if cards[0].Name != "lib" || !cards[0].Featured {
		t.Errorf("cards[0] = %+v, want featured lib first", cards[0])
	}
	if cards[1].Thumbnail != srv.URL+"/octocat/tool/main/docs/shot.png" {
		t.Errorf("cards[1].Thumbnail = %q", cards[1].Thumbnail)
	}

	runs, err := store.GetRecentRuns(context.Background(), 10)
	if err != nil {
		t.Fatalf("GetRecentRuns() error: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d recorded runs, want 2", len(runs))
	}
	for _, run := range runs {
		if run.Status != models.RunOK {
			t.Errorf("%s run status = %q, want ok", run.Pipeline, run.Status)
		}
	}
	for _, rep := range reports {
		if rep.RunID == 0 {
			t.Errorf("%s report has no run ID", rep.Pipeline)
		}
	}
}

func TestRunAll_ArticlesFailureDoesNotStopRepos(t *testing.T) {
	srv := upstream(t, http.StatusServiceUnavailable)
	cfg := newTestConfig(t, srv.URL)
	store := newTestStore(t)

	r, err := NewRunner(cfg, srv.Client(), store)
	if err != nil {
		t.Fatalf("NewRunner() error: %v", err)
	}

	reports, err := r.RunAll(context.Background())
	if err == nil {
		t.Fatal("RunAll() expected error, got nil")
	}
	if !strings.Contains(err.Error(), "articles pipeline") || !strings.Contains(err.Error(), "503") {
		t.Errorf("error = %q, want the articles failure with its status", err)
	}
	if len(reports) != 1 || reports[0].Pipeline != models.PipelineRepos {
		t.Fatalf("reports = %+v, want only the repos report", reports)
	}

	if _, err := os.Stat(cfg.Articles.Output); !os.IsNotExist(err) {
		t.Errorf("articles artifact should not exist, stat error = %v", err)
	}
	if _, err := os.Stat(cfg.Repos.Output); err != nil {
		t.Errorf("repos artifact missing: %v", err)
	}

	latest, err := store.GetLatestRun(context.Background(), models.PipelineArticles)
	if err != nil {
		t.Fatalf("GetLatestRun() error: %v", err)
	}
	if latest.Status != models.RunFailed || latest.Error == "" {
		t.Errorf("articles run = %+v, want a failed run with its error", latest)
	}
}

func TestRunArticles_FailureKeepsPreviousArtifact(t *testing.T) {
	srv := upstream(t, http.StatusInternalServerError)
	cfg := newTestConfig(t, srv.URL)

	if err := os.MkdirAll(filepath.Dir(cfg.Articles.Output), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(cfg.Articles.Output, []byte("[]\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	r, err := NewRunner(cfg, srv.Client(), nil)
	if err != nil {
		t.Fatalf("NewRunner() error: %v", err)
	}
	if _, err := r.RunArticles(context.Background()); err == nil {
		t.Fatal("RunArticles() expected error, got nil")
	}

	data, err := os.ReadFile(cfg.Articles.Output)
	if err != nil {
		t.Fatalf("reading artifact: %v", err)
	}
	if string(data) != "[]\n" {
		t.Errorf("artifact = %q, want the previous content", data)
	}
}

func TestRunRepos_CancelKeepsPreviousArtifact(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/users/octocat/repos" {
			_, _ = w.Write([]byte(`[{"name":"tool","html_url":"https://github.com/octocat/tool","pushed_at":"2025-03-01T00:00:00Z","default_branch":"main"}]`))
			return
		}
		cancel()
		<-r.Context().Done()
	}))
	defer srv.Close()

	cfg := newTestConfig(t, srv.URL)
	previous := `[{"name":"tool","thumbnail":"https://good/img.png"}]` + "\n"
	if err := os.MkdirAll(filepath.Dir(cfg.Repos.Output), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(cfg.Repos.Output, []byte(previous), 0o644); err != nil {
		t.Fatal(err)
	}

	store := newTestStore(t)
	r, err := NewRunner(cfg, srv.Client(), store)
	if err != nil {
		t.Fatalf("NewRunner() error: %v", err)
	}

	if _, err := r.RunRepos(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("RunRepos() error = %v, want context.Canceled", err)
	}

	data, err := os.ReadFile(cfg.Repos.Output)
	if err != nil {
		t.Fatalf("reading artifact: %v", err)
	}
	if string(data) != previous {
		t.Errorf("artifact = %q, want the previous content", data)
	}

	latest, err := store.GetLatestRun(context.Background(), models.PipelineRepos)
	if err != nil {
		t.Fatalf("GetLatestRun() error: %v", err)
	}
	if latest.Status != models.RunFailed {
		t.Errorf("repos run status = %q, want failed", latest.Status)
	}
}

func TestRun_UnknownPipeline(t *testing.T) {
	srv := upstream(t, 0)
	r, err := NewRunner(newTestConfig(t, srv.URL), srv.Client(), nil)
	if err != nil {
		t.Fatalf("NewRunner() error: %v", err)
	}

	if _, err := r.Run(context.Background(), "podcasts"); !errors.Is(err, ErrUnknownPipeline) {
		t.Errorf("Run(podcasts) error = %v, want ErrUnknownPipeline", err)
	}
}

type failingRecorder struct{ calls int }

func (f *failingRecorder) CreateRun(context.Context, *models.Run) (int64, error) {
	f.calls++
	return 0, errors.New("disk full")
}

func TestRun_RecorderFailureIsOnlyAWarning(t *testing.T) {
	srv := upstream(t, 0)
	rec := &failingRecorder{}
	r, err := NewRunner(newTestConfig(t, srv.URL), srv.Client(), rec)
	if err != nil {
		t.Fatalf("NewRunner() error: %v", err)
	}

	rep, err := r.Run(context.Background(), models.PipelineRepos)
	if err != nil {
		t.Fatalf("Run(repos) error: %v", err)
	}
	if rec.calls != 1 {
		t.Errorf("recorder called %d times, want 1", rec.calls)
	}
	if rep.RunID != 0 {
		t.Errorf("RunID = %d, want 0 when recording failed", rep.RunID)
	}
	if rep.Items != 2 || rep.Considered != 2 {
		t.Errorf("report = %+v, want 2 items from 2 candidates", rep)
	}
}

func TestNewRunner_InvalidBadgePattern(t *testing.T) {
	cfg := config.Default()
	cfg.Repos.BadgePatterns = []string{"(oops"}
	if _, err := NewRunner(cfg, nil, nil); err == nil {
		t.Fatal("NewRunner() expected error, got nil")
	}
}

func readJSON(t *testing.T, path string, v any) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("decoding %s: %v", path, err)
	}
}
