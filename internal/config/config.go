package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"regexp"

	"github.com/BurntSushi/toml"
)

// Upper bounds, and defaults, for the dataset sizes.
const (
	MaxArticles   = 10
	MaxPerPage    = 100
	MaxCandidates = 12
	MaxPublished  = 6
)

// Config holds all application configuration.
type Config struct {
	Articles ArticlesConfig `toml:"articles"`
	Repos    ReposConfig    `toml:"repos"`
	History  HistoryConfig  `toml:"history"`
	Server   ServerConfig   `toml:"server"`
}

// ArticlesConfig holds settings for the blog feed pipeline.
type ArticlesConfig struct {
	FeedURL           string `toml:"feed_url"`
	Output            string `toml:"output"`
	Limit             int    `toml:"limit"`
	DefaultTag        string `toml:"default_tag"`
	PageImageFallback bool   `toml:"page_image_fallback"`
}

// ReposConfig holds settings for the repository card pipeline.
type ReposConfig struct {
	Account         string   `toml:"account"`
	APIURL          string   `toml:"api_url"`
	RawURL          string   `toml:"raw_url"`
	Output          string   `toml:"output"`
	PerPage         int      `toml:"per_page"`
	Candidates      int      `toml:"candidates"`
	Publish         int      `toml:"publish"`
	DefaultBranch   string   `toml:"default_branch"`
	DefaultLanguage string   `toml:"default_language"`
	Featured        []string `toml:"featured"`
	Excluded        []string `toml:"excluded"`
	BadgePatterns   []string `toml:"badge_patterns"`
}

// HistoryConfig holds settings for the run history database.
type HistoryConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// ServerConfig holds preview server settings.
type ServerConfig struct {
	Port int `toml:"port"`
}

// DefaultBadgePatterns are the image URL patterns treated as status badges.
var DefaultBadgePatterns = []string{
	`shields.io`,
	`img.shields.io`,
	`goreportcard.com`,
	`github.com/.*/(actions|workflows)`,
	`codecov.io`,
	`travis-ci.org`,
	`circleci.com`,
	`badge.`,
}

const defaultConfigContent = `[articles]
feed_url = "https://medium.com/feed/@dshills"
output = "src/data/articles.json"
limit = 10                        # entries considered from the feed, at most 10
default_tag = "Article"
page_image_fallback = false       # fetch the article page when the feed has no image

[repos]
account = "dshills"
api_url = "https://api.github.com"
raw_url = "https://raw.githubusercontent.com"
output = "src/data/repos.json"
per_page = 100
candidates = 12                   # READMEs fetched per run
publish = 6
default_branch = "main"
default_language = "Code"
featured = ["specBuilder", "langgraph-go", "mcp-pr"]
excluded = ["davin-hills-portfolio"]

[history]
enabled = true
path = "data/folio.db"

[server]
port = 8080
`

// Load reads and parses the TOML config from the given path. If the file does
// not exist, it creates a default config file at that path. Environment
// variables override values from the file with highest priority.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if err := createDefault(path); err != nil {
			return nil, fmt.Errorf("creating default config: %w", err)
		}
		slog.Info("created default config file", "path", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Validate explicitly-set values before applying defaults, so that
	// "candidates = 0" is an error rather than silently becoming 12.
	if err := validateExplicit(&cfg, md); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	applyDefaults(&cfg, md)
	applyEnvOverrides(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Default returns a configuration with every default applied, as if loaded
// from an empty file.
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg, toml.MetaData{})
	return &cfg
}

// createDefault writes the default config content to the given path,
// creating any parent directories as needed.
func createDefault(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(defaultConfigContent), 0o644); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}
	return nil
}

// validateExplicit checks values that were explicitly set in the TOML file.
func validateExplicit(cfg *Config, md toml.MetaData) error {
	if md.IsDefined("server", "port") {
		if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
			return fmt.Errorf("invalid server.port %d: must be between 1 and 65535", cfg.Server.Port)
		}
	}
	// Counts may be lowered but never raised past the published dataset sizes.
	counts := []struct {
		section, key string
		value, max   int
	}{
		{"articles", "limit", cfg.Articles.Limit, MaxArticles},
		{"repos", "per_page", cfg.Repos.PerPage, MaxPerPage},
		{"repos", "candidates", cfg.Repos.Candidates, MaxCandidates},
		{"repos", "publish", cfg.Repos.Publish, MaxPublished},
	}
	for _, c := range counts {
		if md.IsDefined(c.section, c.key) && (c.value < 1 || c.value > c.max) {
			return fmt.Errorf("invalid %s.%s %d: must be between 1 and %d", c.section, c.key, c.value, c.max)
		}
	}
	return nil
}

// applyDefaults sets default values for any zero-valued fields. Lists that
// were explicitly written as empty arrays are left empty.
func applyDefaults(cfg *Config, md toml.MetaData) {
	a := &cfg.Articles
	if a.FeedURL == "" {
		a.FeedURL = "https://medium.com/feed/@dshills"
	}
	if a.Output == "" {
		a.Output = "src/data/articles.json"
	}
	if a.Limit == 0 {
		a.Limit = MaxArticles
	}
	if a.DefaultTag == "" {
		a.DefaultTag = "Article"
	}

	r := &cfg.Repos
	if r.Account == "" {
		r.Account = "dshills"
	}
	if r.APIURL == "" {
		r.APIURL = "https://api.github.com"
	}
	if r.RawURL == "" {
		r.RawURL = "https://raw.githubusercontent.com"
	}
	if r.Output == "" {
		r.Output = "src/data/repos.json"
	}
	if r.PerPage == 0 {
		r.PerPage = MaxPerPage
	}
	if r.Candidates == 0 {
		r.Candidates = MaxCandidates
	}
	if r.Publish == 0 {
		r.Publish = MaxPublished
	}
	if r.DefaultBranch == "" {
		r.DefaultBranch = "main"
	}
	if r.DefaultLanguage == "" {
		r.DefaultLanguage = "Code"
	}
	if !md.IsDefined("repos", "featured") && r.Featured == nil {
		r.Featured = []string{"specBuilder", "langgraph-go", "mcp-pr"}
	}
	if !md.IsDefined("repos", "excluded") && r.Excluded == nil {
		r.Excluded = []string{"davin-hills-portfolio"}
	}
	if !md.IsDefined("repos", "badge_patterns") && r.BadgePatterns == nil {
		r.BadgePatterns = append([]string(nil), DefaultBadgePatterns...)
	}

	// A plain bool cannot tell "enabled = false" from a missing key, so the
	// metadata decides.
	if !md.IsDefined("history", "enabled") {
		cfg.History.Enabled = true
	}
	if cfg.History.Path == "" {
		cfg.History.Path = "data/folio.db"
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
}

// applyEnvOverrides applies environment variable overrides. Environment
// variables take highest priority over config file values.
//
// FOLIO_OUTPUT_DIR relocates both artifacts, keeping their file names.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FOLIO_FEED_URL"); v != "" {
		cfg.Articles.FeedURL = v
	}
	if v := os.Getenv("FOLIO_ACCOUNT"); v != "" {
		cfg.Repos.Account = v
	}
	if v := os.Getenv("FOLIO_OUTPUT_DIR"); v != "" {
		cfg.Articles.Output = filepath.Join(v, filepath.Base(cfg.Articles.Output))
		cfg.Repos.Output = filepath.Join(v, filepath.Base(cfg.Repos.Output))
	}
}

// validate checks that configuration values are within acceptable ranges.
func validate(cfg *Config) error {
	urls := []struct {
		key   string
		value string
	}{
		{"articles.feed_url", cfg.Articles.FeedURL},
		{"repos.api_url", cfg.Repos.APIURL},
		{"repos.raw_url", cfg.Repos.RawURL},
	}
	for _, u := range urls {
		if err := validateHTTPURL(u.value); err != nil {
			return fmt.Errorf("invalid %s: %w", u.key, err)
		}
	}

	if cfg.Repos.Publish > cfg.Repos.Candidates {
		slog.Warn("repos.publish exceeds repos.candidates; at most candidates cards are emitted",
			"publish", cfg.Repos.Publish,
			"candidates", cfg.Repos.Candidates,
		)
	}

	for _, p := range cfg.Repos.BadgePatterns {
		if _, err := regexp.Compile("(?i)" + p); err != nil {
			return fmt.Errorf("invalid repos.badge_patterns entry %q: %w", p, err)
		}
	}

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d: must be between 1 and 65535", cfg.Server.Port)
	}

	return nil
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("url %q has no host", raw)
	}
	return nil
}
