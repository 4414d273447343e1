package pipeline

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/FranksOps/newshound/internal/news"
	"github.com/FranksOps/newshound/internal/report"
	"github.com/FranksOps/newshound/internal/scraper"
	"github.com/FranksOps/newshound/internal/serp"
	"github.com/FranksOps/newshound/internal/serp/serptest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var fixedNow = time.Date(2024, time.March, 7, 10, 0, 0, 0, time.UTC)

// recorder counts download attempts and forwards them when next is set.
type recorder struct {
	mu       sync.Mutex
	next     ImageFetcher
	attempts []string
}

func (r *recorder) Download(ctx context.Context, imageURL, filename string) *news.Download {
	r.mu.Lock()
	r.attempts = append(r.attempts, filename)
	r.mu.Unlock()
	if r.next != nil {
		return r.next.Download(ctx, imageURL, filename)
	}
	return &news.Download{URL: imageURL, Filename: filename, StatusCode: 404, Error: "unexpected status 404"}
}

type robotsFunc func(ctx context.Context, targetURL, userAgent string) (bool, error)

func (f robotsFunc) IsAllowed(ctx context.Context, targetURL, userAgent string) (bool, error) {
	return f(ctx, targetURL, userAgent)
}

func newPipeline(t *testing.T, page *serptest.Page, images ImageFetcher, format report.Format) *Pipeline {
	t.Helper()
	rep, err := report.New(format)
	require.NoError(t, err)
	return &Pipeline{
		Session:   serp.NewSession(page, serp.Options{}),
		Images:    images,
		Report:    rep,
		OutputDir: t.TempDir(),
		RunID:     "test-run",
		Now:       func() time.Time { return fixedNow },
	}
}

// imageServer serves a small jpeg for every path except /images/1.jpg.
func imageServer(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/images/1.jpg" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte{0xff, 0xd8, 0xff, 0xd9})
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestRun_EndToEnd(t *testing.T) {
	ts := imageServer(t)

	page := serptest.NewPage(serptest.Articles(3))
	sel := serp.DefaultSelectors()
	page.Visibility[sel.LoadMore] = []bool{true, false}
	page.Visibility[sel.ResultCount] = []bool{true}
	page.Texts[sel.ResultCount] = "3"

	p := newPipeline(t, page, nil, report.FormatXLSX)
	fetcher, err := scraper.NewFetcher(scraper.FetchConfig{OutputDir: p.OutputDir, Timeout: 5 * time.Second}, nil)
	require.NoError(t, err)
	rec := &recorder{next: fetcher}
	p.Images = rec

	criteria := news.Criteria{Phrase: "Economy", Category: "Latin America", Months: 2}
	summary, err := p.Run(context.Background(), ts.URL, criteria)
	require.NoError(t, err)

	assert.Equal(t, []string{"img_0.jpg", "img_1.jpg", "img_2.jpg"}, rec.attempts)
	assert.Equal(t, 1, page.Closed())

	assert.Equal(t, "Economy in Latin America", summary.Query)
	assert.Equal(t, time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC), summary.WindowStart)
	assert.Equal(t, 3, summary.TotalFound)
	assert.Equal(t, 3, summary.Articles)
	assert.Equal(t, 1, summary.LoadMoreClicks)
	assert.Equal(t, 2, summary.ImagesSaved)
	assert.Equal(t, 1, summary.ImageErrors)
	assert.Equal(t, filepath.Join(p.OutputDir, "data.xlsx"), summary.ReportPath)

	f, err := excelize.OpenFile(summary.ReportPath)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(report.SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, news.Headers, rows[0])
	for i, row := range rows[1:] {
		assert.Equal(t, news.ImageFilename(i), row[3])
		assert.Equal(t, "2", row[4], "phrase appears once in title and once in description")
		assert.Equal(t, "TRUE", row[5])
	}

	// the failed image is still referenced but absent on disk
	_, err = os.Stat(filepath.Join(p.OutputDir, "img_1.jpg"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(p.OutputDir, "img_2.jpg"))
	assert.NoError(t, err)
}

func TestRun_FilterUsesWindow(t *testing.T) {
	page := serptest.NewPage(serptest.Articles(1))
	p := newPipeline(t, page, &recorder{}, report.FormatCSV)

	_, err := p.Run(context.Background(), "https://news.example.com", news.Criteria{Phrase: "x", Category: "y", Months: 13})
	require.NoError(t, err)

	sel := serp.DefaultSelectors()
	clicks := strings.Join(page.Clicks(), "\n")
	assert.Contains(t, clicks, sel.YearOptionFor("2023"))
	assert.Contains(t, clicks, sel.YearOptionFor("2024"))
	assert.FileExists(t, filepath.Join(p.OutputDir, "data.csv"))
}

func TestRun_NegativeMonths(t *testing.T) {
	page := serptest.NewPage(serptest.Articles(1))
	p := newPipeline(t, page, &recorder{}, report.FormatXLSX)

	_, err := p.Run(context.Background(), "https://news.example.com", news.Criteria{Months: -1})
	require.ErrorIs(t, err, news.ErrNegativeMonths)

	assert.Empty(t, page.Calls(), "browser is never touched")
	assert.Equal(t, 1, page.Closed())
	assert.NoFileExists(t, p.ReportPath())
}

func TestRun_MissingSiteURL(t *testing.T) {
	page := serptest.NewPage("")
	p := newPipeline(t, page, &recorder{}, report.FormatXLSX)

	_, err := p.Run(context.Background(), "", news.Criteria{})
	assert.ErrorIs(t, err, ErrNoSiteURL)
}

func TestRun_ElementNotFoundAborts(t *testing.T) {
	page := serptest.NewPage(serptest.Articles(3))
	sel := serp.DefaultSelectors()
	page.Errors[sel.ApplyFilter] = errors.New("could not find node")

	rec := &recorder{}
	p := newPipeline(t, page, rec, report.FormatXLSX)

	_, err := p.Run(context.Background(), "https://news.example.com", news.Criteria{Phrase: "Economy", Category: "World"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "filter dates")

	assert.Empty(t, rec.attempts)
	assert.Equal(t, 1, page.Closed(), "browser released on failure")
	assert.NoFileExists(t, p.ReportPath())
	assert.Equal(t, serp.StateFailed, p.Session.State())
}

func TestRun_RobotsDisallowed(t *testing.T) {
	page := serptest.NewPage(serptest.Articles(1))
	p := newPipeline(t, page, &recorder{}, report.FormatXLSX)
	p.UserAgent = "newshound"
	p.Robots = robotsFunc(func(_ context.Context, target, ua string) (bool, error) {
		assert.Equal(t, "newshound", ua)
		return false, nil
	})

	_, err := p.Run(context.Background(), "https://news.example.com", news.Criteria{})
	assert.ErrorIs(t, err, ErrDisallowed)
	assert.Empty(t, page.Calls())
}

func TestRun_CanceledDuringArticles(t *testing.T) {
	page := serptest.NewPage(serptest.Articles(3))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	canceler := &cancelOnFirst{cancel: cancel}
	p := newPipeline(t, page, canceler, report.FormatXLSX)

	_, err := p.Run(ctx, "https://news.example.com", news.Criteria{Phrase: "Economy", Category: "World"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoFileExists(t, p.ReportPath(), "no partial report")
}

type cancelOnFirst struct{ cancel context.CancelFunc }

func (c *cancelOnFirst) Download(_ context.Context, imageURL, filename string) *news.Download {
	c.cancel()
	return &news.Download{URL: imageURL, Filename: filename, Error: "canceled"}
}

func TestRun_SkippedArticlesKeepSequentialNames(t *testing.T) {
	html := `<html><body>
<article class="article"><h2><a>broken</a></h2></article>
` + strings.TrimPrefix(serptest.Articles(2), "<html><body>")

	page := serptest.NewPage(html)
	rec := &recorder{}
	p := newPipeline(t, page, rec, report.FormatCSV)

	summary, err := p.Run(context.Background(), "https://news.example.com", news.Criteria{Phrase: "story", Category: "World"})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 2, summary.Articles)
	assert.Equal(t, []string{"img_0.jpg", "img_1.jpg"}, rec.attempts)
}

func TestReportPath(t *testing.T) {
	rep, _ := report.New(report.FormatCSV)
	p := &Pipeline{Report: rep, OutputDir: "/out"}
	assert.Equal(t, filepath.Join("/out", "data.csv"), p.ReportPath())

	p.ReportFile = "news.csv"
	assert.Equal(t, filepath.Join("/out", "news.csv"), p.ReportPath())
}
