// Package pipeline runs one search from the site's front page to the saved
// report.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/FranksOps/newshound/internal/analyzer"
	"github.com/FranksOps/newshound/internal/daterange"
	"github.com/FranksOps/newshound/internal/metrics"
	"github.com/FranksOps/newshound/internal/news"
	"github.com/FranksOps/newshound/internal/report"
	"github.com/FranksOps/newshound/internal/serp"
)

// DefaultReportName is the report file name without extension.
const DefaultReportName = "data"

var (
	// ErrNoSiteURL is returned when the run has no site to open.
	ErrNoSiteURL = errors.New("site url is required")
	// ErrDisallowed is returned when robots.txt forbids the search page.
	ErrDisallowed = errors.New("disallowed by robots.txt")
)

// ImageFetcher downloads one article image. Failures are reported on the
// returned Download, never as an error.
type ImageFetcher interface {
	Download(ctx context.Context, imageURL, filename string) *news.Download
}

// RobotsChecker answers whether a URL may be fetched.
type RobotsChecker interface {
	IsAllowed(ctx context.Context, targetURL, userAgent string) (bool, error)
}

// Pipeline wires the stages of a run. Session, Images and Report are
// required; the rest is optional.
type Pipeline struct {
	Session *serp.Session
	Images  ImageFetcher
	Report  *report.Report

	// OutputDir receives the report; images land wherever Images writes.
	OutputDir string
	// ReportFile overrides DefaultReportName plus the format extension.
	ReportFile string

	Robots    RobotsChecker
	UserAgent string

	RunID  string
	Logger *slog.Logger
	Now    func() time.Time
}

func (p *Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// ReportPath is where Run saves the report.
func (p *Pipeline) ReportPath() string {
	name := p.ReportFile
	if name == "" {
		name = DefaultReportName + p.Report.Format().Ext()
	}
	return filepath.Join(p.OutputDir, name)
}

// Run executes the search for c against siteURL and saves one report row
// per extracted article. The session is closed on every path. Nothing is
// written unless extraction completes.
func (p *Pipeline) Run(ctx context.Context, siteURL string, c news.Criteria) (summary *report.Summary, err error) {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	defer func() {
		if cerr := p.Session.Close(); cerr != nil {
			logger.Warn("closing session", "err", cerr)
		}
		metrics.RecordRun(err)
	}()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid criteria: %w", err)
	}
	if siteURL == "" {
		return nil, ErrNoSiteURL
	}

	if p.Robots != nil {
		allowed, err := p.Robots.IsAllowed(ctx, siteURL, p.UserAgent)
		if err != nil {
			return nil, fmt.Errorf("robots check: %w", err)
		}
		if !allowed {
			return nil, fmt.Errorf("%w: %s", ErrDisallowed, siteURL)
		}
	}

	start := p.now()
	window := daterange.Calculate(start, c.WindowMonths())
	summary = report.NewSummary(p.RunID, c.Query(), start)
	summary.WindowStart, summary.WindowEnd = window.Start, window.End

	logger.Info("starting run", "query", c.Query(), "months", c.Months, "window", window.String())

	ex, err := p.collect(ctx, siteURL, c, window, summary)
	if err != nil {
		return nil, err
	}

	if err := p.Report.SetHeaders(news.Headers...); err != nil {
		return nil, fmt.Errorf("report headers: %w", err)
	}

	for _, a := range ex.Articles {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("processing articles: %w", err)
		}
		row := p.process(ctx, c.Phrase, a, summary, logger)
		if err := p.Report.AddRow(row.Values()...); err != nil {
			return nil, fmt.Errorf("report row %d: %w", a.Index, err)
		}
		summary.AddRow(row)
	}

	path := p.ReportPath()
	if err := p.Report.Save(path); err != nil {
		return nil, err
	}
	summary.ReportPath = path
	logger.Info("report saved", "path", path, "rows", p.Report.Len())

	if err := p.Session.Finish(); err != nil {
		return nil, err
	}

	summary.Finish(p.now())
	return summary, nil
}

// collect drives the session from the front page to the extracted list.
func (p *Pipeline) collect(ctx context.Context, siteURL string, c news.Criteria, w daterange.Window, summary *report.Summary) (serp.Extraction, error) {
	s := p.Session
	if err := s.Open(ctx, siteURL); err != nil {
		return serp.Extraction{}, err
	}
	if err := s.Search(ctx, c.Query()); err != nil {
		return serp.Extraction{}, err
	}
	if err := s.FilterDates(ctx, w); err != nil {
		return serp.Extraction{}, err
	}

	clicks, err := s.LoadAll(ctx)
	summary.LoadMoreClicks = clicks
	metrics.LoadMoreClicks.Add(float64(clicks))
	if err != nil {
		return serp.Extraction{}, err
	}

	ex, err := s.Extract(ctx)
	if err != nil {
		return serp.Extraction{}, err
	}
	summary.TotalFound = ex.Total
	summary.Skipped = ex.Skipped
	for range ex.Skipped {
		metrics.RecordArticle(metrics.OutcomeSkipped)
	}
	return ex, nil
}

// process analyzes one article and fetches its image. Image failures are
// already logged by the fetcher and only counted here.
func (p *Pipeline) process(ctx context.Context, phrase string, a news.Article, summary *report.Summary, logger *slog.Logger) news.Row {
	res := analyzer.Analyze(a.Title, a.Description, phrase)
	if res.ContainsMoney {
		logger.Debug("money mention", "index", a.Index, "sentences", analyzer.MoneySentences(a.Title+" "+a.Description))
	}

	summary.AddDownload(p.Images.Download(ctx, a.ImageURL, a.ImageFilename))
	metrics.RecordArticle(metrics.OutcomeReported)

	logger.Debug("processed article", "index", a.Index, "title", a.Title, "phrase_count", res.PhraseCount)

	return news.Row{
		Title:         a.Title,
		Date:          a.PublishedDate,
		Description:   a.Description,
		ImageFilename: a.ImageFilename,
		PhraseCount:   res.PhraseCount,
		ContainsMoney: res.ContainsMoney,
	}
}
