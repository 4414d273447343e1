//go:build integration

package browser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const page = `<!doctype html><html><body>
<button id="go" onclick="document.getElementById('out').textContent = document.getElementById('q').value">Go</button>
<input id="q" value="stale">
<p id="out"></p>
<div id="hidden" style="display:none">secret</div>
<span id="invisible" style="visibility:hidden">Load More</span>
<span id="transparent" style="opacity:0">Load More</span>
<div style="visibility:hidden"><span id="nested">Load More</span></div>
<span id="more">Show More</span>
</body></html>`

func TestChrome_Actions(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(page))
	}))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	c, err := Launch(ctx, Options{Headless: true, Timeout: 10 * time.Second}, nil)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Navigate(ctx, ts.URL))
	require.NoError(t, c.Fill(ctx, "#q", "hello"))
	require.NoError(t, c.Click(ctx, "//button[@id='go']"))

	text, err := c.InnerText(ctx, "#out")
	require.NoError(t, err)
	assert.Equal(t, "hello", text)

	visible, err := c.Visible(ctx, "#hidden")
	require.NoError(t, err)
	assert.False(t, visible)

	visible, err = c.Visible(ctx, "#missing")
	require.NoError(t, err)
	assert.False(t, visible)

	visible, err = c.Visible(ctx, "#go")
	require.NoError(t, err)
	assert.True(t, visible)

	// a load-more control that is laid out but not shown must read as hidden
	for _, sel := range []string{"#invisible", "#transparent", "#nested", "//span[text()='Load More']"} {
		visible, err = c.Visible(ctx, sel)
		require.NoError(t, err, sel)
		assert.False(t, visible, sel)
	}

	visible, err = c.Visible(ctx, "//span[text()='Show More']")
	require.NoError(t, err)
	assert.True(t, visible)

	html, err := c.HTML(ctx)
	require.NoError(t, err)
	assert.Contains(t, html, `id="out"`)

	loc, err := c.Location(ctx)
	require.NoError(t, err)
	assert.Equal(t, ts.URL+"/", loc)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.ErrorIs(t, c.Navigate(ctx, ts.URL), ErrClosed)
}
