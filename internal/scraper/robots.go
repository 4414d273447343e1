package scraper

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"

	"github.com/temoto/robotstxt"
)

const robotsLimit = 512 << 10

// RobotsTxtAuditor manages robots.txt fetching and enforcement.
type RobotsTxtAuditor struct {
	fetcher *Fetcher
	logger  *slog.Logger
	mu      sync.Mutex
	cache   map[string]*robotstxt.RobotsData
}

// NewRobotsTxtAuditor creates an auditor that fetches through fetcher's
// client, so proxy rotation and fingerprinting apply to robots.txt too.
func NewRobotsTxtAuditor(fetcher *Fetcher, logger *slog.Logger) *RobotsTxtAuditor {
	if logger == nil {
		logger = slog.Default()
	}
	return &RobotsTxtAuditor{
		fetcher: fetcher,
		logger:  logger,
		cache:   make(map[string]*robotstxt.RobotsData),
	}
}

// IsAllowed determines if the given URL is allowed by the host's robots.txt
// for the provided User-Agent. Unreachable or missing robots.txt allows all.
func (r *RobotsTxtAuditor) IsAllowed(ctx context.Context, targetURL string, userAgent string) (bool, error) {
	u, err := url.Parse(targetURL)
	if err != nil {
		return false, fmt.Errorf("invalid url: %w", err)
	}

	host := u.Scheme + "://" + u.Host

	data, err := r.getOrFetch(ctx, host)
	if err != nil {
		r.logger.Debug("robots.txt fetch failed, defaulting to allow", "host", host, "err", err)
		return true, nil
	}
	if data == nil {
		return true, nil
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return data.FindGroup(userAgent).Test(path), nil
}

// getOrFetch holds the lock across the fetch; runs are sequential and this
// keeps a host from being fetched twice.
func (r *RobotsTxtAuditor) getOrFetch(ctx context.Context, host string) (*robotstxt.RobotsData, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if data, ok := r.cache[host]; ok {
		return data, nil
	}

	data, err := r.fetch(ctx, host+"/robots.txt")
	// failures are cached as allow-all for the rest of the run
	r.cache[host] = data
	return data, err
}

func (r *RobotsTxtAuditor) fetch(ctx context.Context, robotsURL string) (*robotstxt.RobotsData, error) {
	resp, _, err := r.fetcher.get(ctx, robotsURL)
	if err != nil {
		return nil, fmt.Errorf("fetch error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, robotsLimit))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	parsed, err := robotstxt.FromBytes(body)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	return parsed, nil
}
