// Package config collects run settings from flags, environment, an optional
// config file and the work-item payload.
package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"slices"
	"time"

	"github.com/FranksOps/newshound/internal/fingerprint"
	"github.com/FranksOps/newshound/internal/news"
	"github.com/FranksOps/newshound/internal/report"
	"github.com/FranksOps/newshound/internal/serp"
	"github.com/adrg/xdg"
)

// AppName is used for XDG paths and the env prefix.
const AppName = "newshound"

// Default configuration values.
const (
	DefaultReportFormat  = string(report.FormatXLSX)
	DefaultSummaryFormat = report.SummaryText
	DefaultActionTimeout = 30 * time.Second
	DefaultImageTimeout  = 30 * time.Second
	DefaultFingerprint   = string(fingerprint.ProfileGo)

	// DefaultUserAgent is sent by the browser and the image fetcher.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

	// ArtifactsEnv names the output directory when --output-dir is unset.
	ArtifactsEnv = "ROBOT_ARTIFACTS"
)

// Config holds everything a run needs.
type Config struct {
	SiteURL     string
	PayloadPath string

	Phrase   string
	Category string
	Months   int

	OutputDir     string
	ReportFile    string
	ReportFormat  string
	SummaryFormat string
	SelectorsPath string

	Headless      bool
	ChromePath    string
	UserAgent     string
	ActionTimeout time.Duration

	NavigateDelay    time.Duration
	ActionDelay      time.Duration
	SearchDelay      time.Duration
	FilterGroupDelay time.Duration
	FilterDelay      time.Duration
	LoadMoreDelay    time.Duration
	// MaxLoadMore caps load-more clicks; 0 means no cap.
	MaxLoadMore int

	ImageTimeout  time.Duration
	ImageRPS      float64
	ImageJitter   float64
	Fingerprint   string
	ProxyFile     string
	RespectRobots bool

	// MetricsPort enables the Prometheus endpoint when non-zero.
	MetricsPort int
	Verbose     bool
}

// NewConfig returns a Config with defaults applied.
func NewConfig() *Config {
	d := serp.DefaultDelays()
	return &Config{
		Phrase:           news.DefaultPhrase,
		Category:         news.DefaultCategory,
		ReportFormat:     DefaultReportFormat,
		SummaryFormat:    DefaultSummaryFormat,
		Headless:         true,
		UserAgent:        DefaultUserAgent,
		ActionTimeout:    DefaultActionTimeout,
		NavigateDelay:    d.Navigate,
		ActionDelay:      d.Action,
		SearchDelay:      d.Search,
		FilterGroupDelay: d.FilterGroup,
		FilterDelay:      d.Filter,
		LoadMoreDelay:    d.LoadMore,
		ImageTimeout:     DefaultImageTimeout,
		Fingerprint:      DefaultFingerprint,
	}
}

// DefaultOutputDir is used when neither --output-dir nor ROBOT_ARTIFACTS is
// set. On Linux: ~/.local/share/newshound/artifacts.
func DefaultOutputDir() string {
	return filepath.Join(xdg.DataHome, AppName, "artifacts")
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.SiteURL == "" {
		return ErrNoSiteURL
	}
	u, err := url.Parse(c.SiteURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidSiteURL, c.SiteURL)
	}

	if err := c.Criteria().Validate(); err != nil {
		return err
	}
	if c.OutputDir == "" {
		return ErrNoOutputDir
	}
	if _, err := report.ParseFormat(c.ReportFormat); err != nil {
		return err
	}
	if !slices.Contains(report.SummaryFormats, c.SummaryFormat) {
		return fmt.Errorf("%w: %q", ErrInvalidSummaryFormat, c.SummaryFormat)
	}
	if _, err := fingerprint.ParseProfile(c.Fingerprint); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidFingerprint, err)
	}

	if c.ActionTimeout <= 0 || c.ImageTimeout <= 0 {
		return ErrInvalidTimeout
	}
	for _, d := range []time.Duration{c.NavigateDelay, c.ActionDelay, c.SearchDelay, c.FilterGroupDelay, c.FilterDelay, c.LoadMoreDelay} {
		if d < 0 {
			return ErrNegativeDelay
		}
	}
	if c.MaxLoadMore < 0 {
		return ErrInvalidMaxLoadMore
	}
	if c.ImageRPS < 0 || c.ImageJitter < 0 || c.ImageJitter > 1 {
		return ErrInvalidRateLimit
	}
	if c.MetricsPort < 0 || c.MetricsPort > 65535 {
		return ErrInvalidMetricsPort
	}
	return nil
}

// Criteria returns the search criteria.
func (c *Config) Criteria() news.Criteria {
	return news.Criteria{Phrase: c.Phrase, Category: c.Category, Months: c.Months}
}

// Delays returns the session settle times.
func (c *Config) Delays() serp.Delays {
	d := serp.DefaultDelays()
	d.Navigate = c.NavigateDelay
	d.Action = c.ActionDelay
	d.Search = c.SearchDelay
	d.FilterGroup = c.FilterGroupDelay
	d.Filter = c.FilterDelay
	d.LoadMore = c.LoadMoreDelay
	return d
}

// Selectors loads the selector table, or returns the defaults when no file
// is configured.
func (c *Config) Selectors() (serp.Selectors, error) {
	if c.SelectorsPath == "" {
		return serp.DefaultSelectors(), nil
	}
	return serp.LoadSelectors(c.SelectorsPath)
}
