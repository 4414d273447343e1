//go:build integration

package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/FranksOps/newshound/internal/browser"
	"github.com/FranksOps/newshound/internal/news"
	"github.com/FranksOps/newshound/internal/report"
	"github.com/FranksOps/newshound/internal/scraper"
	"github.com/FranksOps/newshound/internal/serp"
	"github.com/FranksOps/newshound/pkg/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The stub site reveals one more article per load-more click and hides the
// control after two clicks.
const stubSite = `<!doctype html><html><body>
<a id="toggle" href="#" onclick="document.getElementById('box').style.display='block'; return false">Search</a>
<div id="box" style="display:none"><input id="q" type="text"><input id="submit" type="submit" value="Go" onclick="document.getElementById('filters').style.display='block'"></div>
<div id="filters" style="display:none">
  %[1]s
  <a id="apply" href="#" onclick="document.getElementById('results').style.display='block'; return false">Search</a>
</div>
<div id="results" style="display:none">
  <div class="num-found"><span>Found</span><span><span>3</span></span></div>
  <div id="list">%[2]s</div>
  <button id="more" onclick="loadMore()"><span>Load More</span></button>
</div>
<script>
var clicks = 0;
function loadMore() {
  clicks++;
  document.getElementById('list').insertAdjacentHTML('beforeend', article(clicks));
  if (clicks >= 2) { document.getElementById('more').style.display = 'none'; }
}
function article(i) {
  return '<article class="article"><div class="m"><img src="/img/' + i + '.jpg"></div>' +
    '<div class="info"><header class="info-header"><div class="meta"><span class="time">' + i + ' hours ago</span></div></header>' +
    '<h2><a href="/s/' + i + '">Economy headline ' + i + '</a></h2>' +
    '<div class="content"><p class="dek">Markets moved $' + i + ',000 today.</p></div></div></article>';
}
document.getElementById('list').innerHTML = article(0);
</script>
</body></html>`

func pickerHTML() string {
	var b string
	for _, side := range []string{"from", "to"} {
		for _, part := range []string{"month", "day", "year"} {
			b += fmt.Sprintf(`<button id="%s-%s">%s %s</button>`, side, part, side, part)
		}
	}
	for i := 1; i <= 31; i++ {
		v := fmt.Sprintf("%02d", i)
		b += fmt.Sprintf(`<li id="%[1]s" class="%[1]s">%[1]s</li>`, v)
	}
	for y := 2000; y <= 2100; y++ {
		b += fmt.Sprintf(`<li id="%d">%d</li>`, y, y)
	}
	return b
}

func stubSelectors() serp.Selectors {
	sel := serp.DefaultSelectors()
	sel.SearchToggle = "#toggle"
	sel.SearchInput = "#q"
	sel.SearchSubmit = "#submit"
	sel.From = serp.DatePicker{Month: "#from-month", Day: "#from-day", Year: "#from-year"}
	sel.To = serp.DatePicker{Month: "#to-month", Day: "#to-day", Year: "#to-year"}
	sel.ApplyFilter = "#apply"
	sel.LoadMore = "#more"
	return sel
}

func TestIntegration_ChromeRun(t *testing.T) {
	if os.Getenv("CI") != "" && os.Getenv("NEWSHOUND_CHROME") == "" {
		t.Skip("set NEWSHOUND_CHROME to run browser tests in CI")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, stubSite, pickerHTML(), "")
	})
	mux.HandleFunc("/img/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/img/2.jpg" {
			w.Header().Set("Server", "cloudflare")
			w.WriteHeader(http.StatusForbidden)
			fmt.Fprint(w, "cf-browser-verification")
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte{0xff, 0xd8, 0xff, 0xd9})
	})
	site := httptest.NewServer(mux)
	defer site.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	chrome, err := browser.Launch(ctx, browser.Options{
		Headless: true,
		ExecPath: os.Getenv("NEWSHOUND_CHROME"),
		Timeout:  15 * time.Second,
	}, logger)
	require.NoError(t, err)

	out := t.TempDir()
	fetcher, err := scraper.NewFetcher(scraper.FetchConfig{
		OutputDir: out,
		Timeout:   5 * time.Second,
		Limiter:   ratelimit.NewLimiter(0, 0),
	}, logger)
	require.NoError(t, err)

	rep, err := report.New(report.FormatXLSX)
	require.NoError(t, err)

	delays := serp.Delays{Action: 50 * time.Millisecond, LoadMore: 200 * time.Millisecond}
	p := &Pipeline{
		Session:   serp.NewSession(chrome, serp.Options{Selectors: stubSelectors(), Delays: delays, MaxLoadMore: 10, Logger: logger}),
		Images:    fetcher,
		Report:    rep,
		OutputDir: out,
		Logger:    logger,
	}

	summary, err := p.Run(ctx, site.URL, news.Criteria{Phrase: "Economy", Category: "World", Months: 2})
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Articles)
	assert.Equal(t, 2, summary.LoadMoreClicks)
	assert.Equal(t, 3, summary.TotalFound)
	assert.Equal(t, 2, summary.ImagesSaved)
	assert.Equal(t, map[string]int{"Cloudflare": 1}, summary.DetectionsBySrc)

	assert.FileExists(t, filepath.Join(out, "data.xlsx"))
	assert.FileExists(t, filepath.Join(out, "img_0.jpg"))
	assert.NoFileExists(t, filepath.Join(out, "img_2.jpg"))

	// the pipeline closed the browser
	assert.ErrorIs(t, chrome.Navigate(context.Background(), site.URL), browser.ErrClosed)
}
