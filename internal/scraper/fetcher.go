// Package scraper downloads article images to disk and checks robots.txt
// before a run touches a host.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/FranksOps/newshound/internal/bypass"
	"github.com/FranksOps/newshound/internal/fingerprint"
	"github.com/FranksOps/newshound/internal/metrics"
	"github.com/FranksOps/newshound/internal/news"
	"github.com/FranksOps/newshound/pkg/httpclient"
	"github.com/FranksOps/newshound/pkg/proxy"
	"github.com/FranksOps/newshound/pkg/ratelimit"
	"github.com/FranksOps/newshound/pkg/useragent"
)

type contextKey string

const proxyKey contextKey = "proxy_url"

// inspectLimit caps how much of a failed response is read for bot detection.
const inspectLimit = 64 << 10

// ErrUnsupportedScheme is recorded when an image URL is not http or https.
var ErrUnsupportedScheme = errors.New("unsupported url scheme")

// FetchConfig configures image downloads.
type FetchConfig struct {
	OutputDir    string
	Timeout      time.Duration
	MaxRedirects int
	ProxyPool    *proxy.Pool
	UAPool       *useragent.Pool
	Fingerprint  fingerprint.Profile
	Limiter      *ratelimit.Limiter
	// InsecureSkipVerify is for tests against self-signed servers.
	InsecureSkipVerify bool
}

// Fetcher streams images to OutputDir. It is not safe to share across runs
// with different output directories.
type Fetcher struct {
	config FetchConfig
	client *httpclient.Client
	logger *slog.Logger
}

// NewFetcher builds a Fetcher with a single transport so connections are
// pooled across downloads.
func NewFetcher(cfg FetchConfig, logger *slog.Logger) (*Fetcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.UAPool == nil {
		cfg.UAPool = useragent.NewPool(nil)
	}
	if cfg.Fingerprint == "" {
		cfg.Fingerprint = fingerprint.ProfileGo
	}

	transport, err := fingerprint.Transport(fingerprint.Options{
		Profile:            cfg.Fingerprint,
		Proxy:              proxyFromContext,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
	})
	if err != nil {
		return nil, fmt.Errorf("setup transport: %w", err)
	}

	client, err := httpclient.New(httpclient.Config{
		Timeout:      cfg.Timeout,
		MaxRedirects: cfg.MaxRedirects,
		Transport:    transport,
		Header: http.Header{
			"Accept":          {"image/avif,image/webp,image/png,image/jpeg,*/*;q=0.8"},
			"Accept-Language": {"en-US,en;q=0.5"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}

	return &Fetcher{config: cfg, client: client, logger: logger}, nil
}

// proxyFromContext routes through the proxy stored on the request context.
// Without one, loopback targets go direct and everything else honors the
// environment.
func proxyFromContext(req *http.Request) (*url.URL, error) {
	if u, ok := req.Context().Value(proxyKey).(*url.URL); ok && u != nil {
		return u, nil
	}
	if ip := net.ParseIP(req.URL.Hostname()); (ip != nil && ip.IsLoopback()) || req.URL.Hostname() == "localhost" {
		return nil, nil
	}
	return http.ProxyFromEnvironment(req)
}

// Download fetches imageURL and writes it to OutputDir/filename when the
// server answers 200. Every failure is logged and recorded on the returned
// Download; the run carries on either way.
func (f *Fetcher) Download(ctx context.Context, imageURL, filename string) *news.Download {
	start := time.Now()
	d := &news.Download{
		URL:       imageURL,
		Filename:  filename,
		CreatedAt: start.UTC(),
	}
	defer func() {
		d.Duration = time.Since(start)
		metrics.RecordDownload(d)
	}()

	log := f.logger.With("url", imageURL, "file", filename)

	if err := f.download(ctx, d); err != nil {
		d.Error = err.Error()
		log.Error("image download failed", "status", d.StatusCode, "err", err, "bot_detected", d.DetectionSrc)
		// a file left by an earlier run must not pass for this row's image
		if filename != "" {
			if rerr := removeStale(filepath.Join(f.config.OutputDir, filename)); rerr != nil {
				log.Warn("removing stale image", "err", rerr)
			}
		}
		return d
	}

	log.Debug("image saved", "path", d.Path, "bytes", d.Bytes)
	return d
}

func (f *Fetcher) download(ctx context.Context, d *news.Download) error {
	u, err := url.Parse(d.URL)
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}

	if err := f.config.Limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	resp, activeProxy, err := f.get(ctx, d.URL)
	if err != nil {
		if activeProxy != nil {
			_ = f.config.ProxyPool.MarkFailure(activeProxy)
		}
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if activeProxy != nil {
		_ = f.config.ProxyPool.MarkSuccess(activeProxy)
	}

	d.StatusCode = resp.StatusCode
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, inspectLimit))
		if src := bypass.Detect(bypass.Response{
			StatusCode: resp.StatusCode,
			Headers:    resp.Header,
			Body:       body,
		}, bypass.DefaultSignatures()); src != "" {
			d.DetectedBot = true
			d.DetectionSrc = src
		}
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	path := filepath.Join(f.config.OutputDir, d.Filename)
	n, err := writeFile(path, resp.Body)
	if err != nil {
		return err
	}
	d.Path = path
	d.Bytes = n
	return nil
}

// get issues the GET, picking a proxy from the pool when one is configured.
func (f *Fetcher) get(ctx context.Context, rawURL string) (*http.Response, *url.URL, error) {
	var activeProxy *url.URL
	if f.config.ProxyPool != nil {
		activeProxy = f.config.ProxyPool.Next()
		if activeProxy != nil {
			ctx = context.WithValue(ctx, proxyKey, activeProxy)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.config.UAPool.Next())

	resp, err := f.client.Do(ctx, req)
	return resp, activeProxy, err
}

func removeStale(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// writeFile streams r into path, removing the file if the copy fails.
func writeFile(path string, r io.Reader) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("create output dir: %w", err)
	}

	out, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create file: %w", err)
	}

	n, err := io.Copy(out, r)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return 0, fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return n, nil
}
