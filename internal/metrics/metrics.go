// Package metrics exposes Prometheus counters for search runs.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/FranksOps/newshound/internal/news"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Article outcomes.
const (
	OutcomeReported = "reported"
	OutcomeSkipped  = "skipped"
)

var (
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newshound_runs_total",
			Help: "Search runs by final result",
		},
		[]string{"result"},
	)

	ArticlesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newshound_articles_total",
			Help: "Articles seen during extraction by outcome",
		},
		[]string{"outcome"},
	)

	LoadMoreClicks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "newshound_load_more_clicks_total",
			Help: "Load-more activations across runs",
		},
	)

	ImageDownloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newshound_image_downloads_total",
			Help: "Image download attempts",
		},
		[]string{"host", "status", "detected", "detection_src"},
	)

	ImageDownloadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "newshound_image_download_duration_seconds",
			Help:    "Duration of image downloads in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"host"},
	)

	ImageBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newshound_image_bytes_total",
			Help: "Total image bytes written to disk",
		},
		[]string{"host"},
	)
)

// RecordDownload updates the image metrics from a finished download.
func RecordDownload(d *news.Download) {
	if d == nil {
		return
	}

	host := "unknown"
	if u, err := url.Parse(d.URL); err == nil && u.Host != "" {
		host = u.Host
	}

	status := strconv.Itoa(d.StatusCode)
	if d.StatusCode == 0 {
		status = "error"
	}

	ImageDownloadsTotal.WithLabelValues(host, status, strconv.FormatBool(d.DetectedBot), d.DetectionSrc).Inc()
	ImageDownloadDuration.WithLabelValues(host).Observe(d.Duration.Seconds())
	if d.Bytes > 0 {
		ImageBytesTotal.WithLabelValues(host).Add(float64(d.Bytes))
	}
}

// RecordArticle counts one extracted article under the given outcome.
func RecordArticle(outcome string) {
	ArticlesTotal.WithLabelValues(outcome).Inc()
}

// RecordRun counts a finished run.
func RecordRun(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	RunsTotal.WithLabelValues(result).Inc()
}

// Server encapsulates an HTTP server for Prometheus metrics.
type Server struct {
	srv *http.Server
	ln  net.Listener
}

// Start binds addr and exposes /metrics in the background. Bind errors are
// returned immediately.
func Start(addr string, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listen %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()

	logger.Info("metrics server listening", "addr", ln.Addr().String())
	return &Server{srv: srv, ln: ln}, nil
}

// Addr is the bound listen address.
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	if s == nil || s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
