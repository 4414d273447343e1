package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/FranksOps/newshound/internal/news"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Keys shared by flags, env vars (NEWSHOUND_ prefix, dashes as underscores)
// and the config file.
const (
	KeySiteURL          = "site-url"
	KeyPayload          = "payload"
	KeyPhrase           = "phrase"
	KeyCategory         = "category"
	KeyMonths           = "months"
	KeyOutputDir        = "output-dir"
	KeyReportFile       = "report-file"
	KeyReportFormat     = "report-format"
	KeySummaryFormat    = "summary-format"
	KeySelectors        = "selectors"
	KeyHeadless         = "headless"
	KeyChromePath       = "chrome-path"
	KeyUserAgent        = "user-agent"
	KeyActionTimeout    = "action-timeout"
	KeyNavigateDelay    = "navigate-delay"
	KeyActionDelay      = "action-delay"
	KeySearchDelay      = "search-delay"
	KeyFilterGroupDelay = "filter-group-delay"
	KeyFilterDelay      = "filter-delay"
	KeyLoadMoreDelay    = "load-more-delay"
	KeyMaxLoadMore      = "max-load-more"
	KeyImageTimeout     = "image-timeout"
	KeyImageRPS         = "image-rps"
	KeyImageJitter      = "image-jitter"
	KeyFingerprint      = "fingerprint"
	KeyProxyFile        = "proxy-file"
	KeyRespectRobots    = "respect-robots"
	KeyMetricsPort      = "metrics-port"
	KeyVerbose          = "verbose"
)

// NewViper returns a viper instance reading NEWSHOUND_* env vars and, when
// configFile is set, that file.
func NewViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(AppName)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}
	return v, nil
}

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. A missing file is not
// an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load builds a Config from v. Values only override the defaults when they
// were set explicitly. Search criteria come from the payload file first;
// explicit phrase, category and months values win over it.
func Load(v *viper.Viper) (*Config, error) {
	cfg := NewConfig()

	str := func(key string, dst *string) {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v.IsSet(key) {
			*dst = v.GetDuration(key)
		}
	}
	num := func(key string, dst *int) {
		if v.IsSet(key) {
			*dst = v.GetInt(key)
		}
	}
	flt := func(key string, dst *float64) {
		if v.IsSet(key) {
			*dst = v.GetFloat64(key)
		}
	}
	boolean := func(key string, dst *bool) {
		if v.IsSet(key) {
			*dst = v.GetBool(key)
		}
	}

	str(KeySiteURL, &cfg.SiteURL)
	str(KeyPayload, &cfg.PayloadPath)
	if cfg.PayloadPath != "" {
		p, err := news.LoadPayload(cfg.PayloadPath)
		if err != nil {
			return nil, err
		}
		cfg.Phrase, cfg.Category, cfg.Months = p.Phrase, p.Category, p.Month
	}
	str(KeyPhrase, &cfg.Phrase)
	str(KeyCategory, &cfg.Category)
	num(KeyMonths, &cfg.Months)

	str(KeyOutputDir, &cfg.OutputDir)
	if cfg.OutputDir == "" {
		cfg.OutputDir = os.Getenv(ArtifactsEnv)
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = DefaultOutputDir()
	}

	str(KeyReportFile, &cfg.ReportFile)
	str(KeyReportFormat, &cfg.ReportFormat)
	str(KeySummaryFormat, &cfg.SummaryFormat)
	str(KeySelectors, &cfg.SelectorsPath)

	boolean(KeyHeadless, &cfg.Headless)
	str(KeyChromePath, &cfg.ChromePath)
	str(KeyUserAgent, &cfg.UserAgent)
	dur(KeyActionTimeout, &cfg.ActionTimeout)

	dur(KeyNavigateDelay, &cfg.NavigateDelay)
	dur(KeyActionDelay, &cfg.ActionDelay)
	dur(KeySearchDelay, &cfg.SearchDelay)
	dur(KeyFilterGroupDelay, &cfg.FilterGroupDelay)
	dur(KeyFilterDelay, &cfg.FilterDelay)
	dur(KeyLoadMoreDelay, &cfg.LoadMoreDelay)
	num(KeyMaxLoadMore, &cfg.MaxLoadMore)

	dur(KeyImageTimeout, &cfg.ImageTimeout)
	flt(KeyImageRPS, &cfg.ImageRPS)
	flt(KeyImageJitter, &cfg.ImageJitter)
	str(KeyFingerprint, &cfg.Fingerprint)
	str(KeyProxyFile, &cfg.ProxyFile)
	boolean(KeyRespectRobots, &cfg.RespectRobots)

	num(KeyMetricsPort, &cfg.MetricsPort)
	boolean(KeyVerbose, &cfg.Verbose)

	return cfg, nil
}
