package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/FranksOps/newshound/internal/browser"
	"github.com/FranksOps/newshound/internal/config"
	"github.com/FranksOps/newshound/internal/fingerprint"
	"github.com/FranksOps/newshound/internal/metrics"
	"github.com/FranksOps/newshound/internal/pipeline"
	"github.com/FranksOps/newshound/internal/report"
	"github.com/FranksOps/newshound/internal/scraper"
	"github.com/FranksOps/newshound/internal/serp"
	"github.com/FranksOps/newshound/pkg/proxy"
	"github.com/FranksOps/newshound/pkg/ratelimit"
	"github.com/FranksOps/newshound/pkg/useragent"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Search the site and write the article report",
		Long: `Open the news site, search for "<phrase> in <category>", restrict results to
the last --months months, load every page of results and write the report
plus one image per article to the output directory.

Every flag can also be set through a NEWSHOUND_ environment variable
(dashes become underscores, e.g. NEWSHOUND_SITE_URL) or a --config YAML file.
A .env file in the working directory is loaded first. Phrase, category and
months may come from a --payload work item; explicit values win over it.

The output directory defaults to $ROBOT_ARTIFACTS, then to the XDG data
directory.`,
		Args: cobra.NoArgs,
		RunE: runRunCmd,
	}

	cmd.Flags().String("config", "", "YAML config file")
	cmd.Flags().String("env-file", ".env", "Dotenv file loaded before reading the environment")
	config.RegisterFlags(cmd.Flags())

	return cmd
}

// runRunCmd executes the run command.
func runRunCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cfg.Verbose)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Warn("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return runNews(ctx, cfg, cmd.OutOrStdout(), logger)
}

// buildConfig layers the dotenv file, environment, config file and flags.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, err
	}

	configFile, _ := cmd.Flags().GetString("config")
	v, err := config.NewViper(configFile)
	if err != nil {
		return nil, err
	}
	if err := config.BindFlags(v, cmd.Flags()); err != nil {
		return nil, err
	}
	return config.Load(v)
}

// runNews wires the browser, session, image fetcher and report into a
// pipeline, runs it and prints the summary.
func runNews(ctx context.Context, cfg *config.Config, out io.Writer, logger *slog.Logger) error {
	runID := uuid.NewString()
	logger = logger.With("run_id", runID)

	// an empty user agent picks one realistic UA for both browser and images
	if cfg.UserAgent == "" {
		cfg.UserAgent = useragent.NewPool(nil).Random()
	}

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	sel, err := cfg.Selectors()
	if err != nil {
		return err
	}
	format, err := report.ParseFormat(cfg.ReportFormat)
	if err != nil {
		return err
	}
	rep, err := report.New(format)
	if err != nil {
		return err
	}

	var proxies *proxy.Pool
	if cfg.ProxyFile != "" {
		proxies = proxy.NewPool(proxy.Config{})
		if err := proxies.LoadFile(cfg.ProxyFile); err != nil {
			return err
		}
		logger.Info("proxies loaded", "count", proxies.Len())
	}

	fetcher, err := newFetcher(cfg, proxies, logger)
	if err != nil {
		return err
	}

	if cfg.MetricsPort > 0 {
		srv, err := metrics.Start(fmt.Sprintf(":%d", cfg.MetricsPort), logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := srv.Stop(context.Background()); err != nil {
				logger.Warn("stopping metrics server", "err", err)
			}
		}()
	}

	opts := browser.Options{
		Headless:  cfg.Headless,
		ExecPath:  cfg.ChromePath,
		UserAgent: cfg.UserAgent,
		Timeout:   cfg.ActionTimeout,
	}
	if proxies != nil {
		if u := proxies.Next(); u != nil {
			opts.ProxyServer = u.String()
		}
	}
	chrome, err := browser.Launch(ctx, opts, logger)
	if err != nil {
		return err
	}

	p := &pipeline.Pipeline{
		Session: serp.NewSession(chrome, serp.Options{
			Selectors:   sel,
			Delays:      cfg.Delays(),
			MaxLoadMore: cfg.MaxLoadMore,
			Logger:      logger,
		}),
		Images:     fetcher,
		Report:     rep,
		OutputDir:  cfg.OutputDir,
		ReportFile: cfg.ReportFile,
		UserAgent:  cfg.UserAgent,
		RunID:      runID,
		Logger:     logger,
	}
	if cfg.RespectRobots {
		p.Robots = scraper.NewRobotsTxtAuditor(fetcher, logger)
	}

	summary, err := p.Run(ctx, cfg.SiteURL, cfg.Criteria())
	if err != nil {
		return err
	}
	return report.WriteSummary(out, cfg.SummaryFormat, *summary)
}

func newFetcher(cfg *config.Config, proxies *proxy.Pool, logger *slog.Logger) (*scraper.Fetcher, error) {
	profile, err := fingerprint.ParseProfile(cfg.Fingerprint)
	if err != nil {
		return nil, err
	}
	return scraper.NewFetcher(scraper.FetchConfig{
		OutputDir:   cfg.OutputDir,
		Timeout:     cfg.ImageTimeout,
		ProxyPool:   proxies,
		UAPool:      useragent.Fixed(cfg.UserAgent),
		Fingerprint: profile,
		Limiter:     ratelimit.NewLimiter(cfg.ImageRPS, cfg.ImageJitter),
	}, logger)
}
