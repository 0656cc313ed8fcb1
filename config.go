package spacetravelling

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/eringen/spacetravelling/content"
	"github.com/eringen/spacetravelling/metrics"
)

// SiteConfig holds all configuration for a spacetravelling site.
type SiteConfig struct {
	Name        string `yaml:"name"`        // Site name (default "spacetravelling")
	URL         string `yaml:"url"`         // Canonical URL (default "http://localhost:3000")
	Description string `yaml:"description"` // Site description for RSS and meta tags
	Author      string `yaml:"author"`      // Author name for JSON-LD
	Locale      string `yaml:"locale"`      // Date and UI locale, e.g. "pt-BR" (default "en")

	Addr         string `yaml:"addr"`          // Listen address (default ":3000")
	DatabasePath string `yaml:"database_path"` // SQLite path (default "data/pages.db")
	RedisAddr    string `yaml:"redis_addr"`    // Optional; pages are cached in memory when empty

	RevalidateWindow   time.Duration `yaml:"revalidate_window"`   // Page freshness (default 1800s)
	RevalidateInterval time.Duration `yaml:"revalidate_interval"` // Scheduled refresh of cached pages (default = window)
	PageSize           int           `yaml:"page_size"`           // Posts per listing page (default 10)
	FeedSize           int           `yaml:"feed_size"`           // Posts in feed.xml (default 20)
	PrerenderLimit     int           `yaml:"prerender_limit"`     // > 0 pre-renders only the newest N posts

	RevalidateSecret string `yaml:"revalidate_secret"` // Required to enable POST /api/revalidate
	SessionSecret    string `yaml:"session_secret"`    // Required: preview session encryption secret
	CookieSecure     bool   `yaml:"cookie_secure"`     // Set true for HTTPS

	ContentDir string        `yaml:"content_dir"` // Read documents from JSON files instead of the CMS
	Prismic    PrismicConfig `yaml:"prismic"`
}

// PrismicConfig selects the CMS repository.
type PrismicConfig struct {
	Repository  string      `yaml:"repository"`
	Endpoint    string      `yaml:"endpoint"` // Overrides the endpoint derived from Repository
	AccessToken string      `yaml:"access_token"`
	Lang        string      `yaml:"lang"` // Content language, e.g. "pt-br"
	Retry       RetryConfig `yaml:"retry"`
}

// RetryConfig tunes retries of transient CMS failures. Unset fields keep
// the defaults of content.DefaultRetryPolicy.
type RetryConfig struct {
	Mode       string        `yaml:"mode"` // fixed, linear or exponential
	Initial    time.Duration `yaml:"initial"`
	Max        time.Duration `yaml:"max"`
	MaxRetries *int          `yaml:"max_retries"`
}

// Policy validates r and returns the retry policy it describes.
func (r RetryConfig) Policy() (content.RetryPolicy, error) {
	mode := content.BackoffMode(r.Mode)
	switch mode {
	case "", content.BackoffFixed, content.BackoffLinear, content.BackoffExponential:
	default:
		return content.RetryPolicy{}, fmt.Errorf("unknown backoff mode %q", r.Mode)
	}
	if r.Initial < 0 || r.Max < 0 {
		return content.RetryPolicy{}, fmt.Errorf("delays cannot be negative")
	}
	retries := -1
	if r.MaxRetries != nil {
		if *r.MaxRetries < 0 {
			return content.RetryPolicy{}, fmt.Errorf("max_retries cannot be negative")
		}
		retries = *r.MaxRetries
	}
	p := content.NewRetryPolicy(mode, r.Initial, r.Max, retries)
	return p, p.Validate()
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "spacetravelling"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.Locale == "" {
		c.Locale = "en"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "data/pages.db"
	}
	if c.RevalidateWindow <= 0 {
		c.RevalidateWindow = 1800 * time.Second
	}
	if c.RevalidateInterval <= 0 {
		c.RevalidateInterval = c.RevalidateWindow
	}
	if c.PageSize <= 0 {
		c.PageSize = 10
	}
	if c.FeedSize <= 0 {
		c.FeedSize = 20
	}
}

// LoadConfig reads configuration from path, then applies environment
// overrides. A .env file in the working directory is loaded first if present.
// An empty path reads the environment only. Variables like ${VAR} in the
// file are expanded.
func LoadConfig(path string) (SiteConfig, error) {
	var cfg SiteConfig
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	cfg.setDefaults()
	if _, err := cfg.Prismic.Retry.Policy(); err != nil {
		return cfg, fmt.Errorf("prismic.retry: %w", err)
	}
	return cfg, nil
}

func (c *SiteConfig) applyEnv() error {
	strs := map[string]*string{
		"SITE_NAME":            &c.Name,
		"SITE_URL":             &c.URL,
		"SITE_DESCRIPTION":     &c.Description,
		"SITE_AUTHOR":          &c.Author,
		"SITE_LOCALE":          &c.Locale,
		"ADDR":                 &c.Addr,
		"DATABASE_PATH":        &c.DatabasePath,
		"REDIS_ADDR":           &c.RedisAddr,
		"REVALIDATE_SECRET":    &c.RevalidateSecret,
		"SESSION_SECRET":       &c.SessionSecret,
		"CONTENT_DIR":          &c.ContentDir,
		"PRISMIC_REPOSITORY":   &c.Prismic.Repository,
		"PRISMIC_ENDPOINT":     &c.Prismic.Endpoint,
		"PRISMIC_ACCESS_TOKEN": &c.Prismic.AccessToken,
		"PRISMIC_LANG":         &c.Prismic.Lang,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	if v := os.Getenv("REVALIDATE_WINDOW"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("REVALIDATE_WINDOW: %w", err)
		}
		c.RevalidateWindow = d
	}
	if v := os.Getenv("COOKIE_SECURE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("COOKIE_SECURE: %w", err)
		}
		c.CookieSecure = b
	}
	return nil
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App before the server starts.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithCache replaces the in-memory page cache, e.g. with a RedisCache.
func WithCache(c PageCache) Option {
	return func(a *App) {
		a.Cache = c
	}
}

// WithStore persists generated pages and build runs in s.
func WithStore(s *Store) Option {
	return func(a *App) {
		a.Store = s
	}
}

// WithRecorder sets the metrics recorder. A *metrics.PrometheusRecorder
// also enables GET /metrics.
func WithRecorder(r metrics.Recorder) Option {
	return func(a *App) {
		a.recorder = r
	}
}

// WithLogger sets the logger used outside request handlers.
func WithLogger(l *slog.Logger) Option {
	return func(a *App) {
		a.log = l
	}
}

// WithWatcher runs watch for the lifetime of the server. watch must block
// until ctx is done and call onChange whenever content changed.
func WithWatcher(watch func(ctx context.Context, onChange func()) error) Option {
	return func(a *App) {
		a.watch = watch
	}
}
