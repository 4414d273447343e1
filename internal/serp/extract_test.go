package serp

import (
	"context"
	"testing"

	"github.com/FranksOps/newshound/internal/serp/serptest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArticles(t *testing.T) {
	articles, skipped, err := ParseArticles(serptest.Articles(3), "https://news.example.com/search", DefaultSelectors(), nil)
	require.NoError(t, err)
	assert.Zero(t, skipped)
	require.Len(t, articles, 3)

	a := articles[1]
	assert.Equal(t, 1, a.Index)
	assert.Equal(t, "Economy story 1", a.Title)
	assert.Equal(t, "March 2, 2024", a.PublishedDate)
	assert.Equal(t, "The economy grew by $1,000 in story 1.", a.Description)
	assert.Equal(t, "https://news.example.com/images/1.jpg", a.ImageURL)
	assert.Equal(t, "img_1.jpg", a.ImageFilename)
}

func TestParseArticles_SkipsMalformed(t *testing.T) {
	html := `<html><body>
<article class="article">
  <div class="m"><img src="https://cdn.example.com/a.jpg"></div>
  <div class="info"><header class="info-header"><div class="meta"><span class="time">1 hour ago</span></div></header>
  <h2><a>  Kept
     first </a></h2>
  <div class="content"><p class="dek">desc</p></div></div>
</article>
<article class="article">
  <div class="m"><img src="https://cdn.example.com/b.jpg"></div>
  <h2><a>No description or date</a></h2>
</article>
<article class="article">
  <div class="m"><img></div>
  <div class="info"><header class="info-header"><div class="meta"><span class="time">2 hours ago</span></div></header>
  <h2><a>No image source</a></h2>
  <div class="content"><p class="dek">desc</p></div></div>
</article>
<article class="article">
  <div class="m"><img src="//cdn.example.com/d.jpg"></div>
  <div class="info"><header class="info-header"><div class="meta"><span class="time">3 hours ago</span></div></header>
  <h2><a>Kept second</a></h2>
  <div class="content"><p class="dek"></p></div></div>
</article>
</body></html>`

	var warned []string
	warn := func(msg string, args ...any) {
		for i := 0; i+1 < len(args); i += 2 {
			if args[i] == "missing" {
				warned = append(warned, args[i+1].(string))
			}
		}
	}

	articles, skipped, err := ParseArticles(html, "https://news.example.com/", DefaultSelectors(), warn)
	require.NoError(t, err)
	assert.Equal(t, 2, skipped)
	assert.Equal(t, []string{"date", "image"}, warned)

	require.Len(t, articles, 2)
	assert.Equal(t, "Kept first", articles[0].Title)
	assert.Equal(t, "img_0.jpg", articles[0].ImageFilename)
	assert.Equal(t, "Kept second", articles[1].Title)
	assert.Equal(t, "", articles[1].Description, "an empty description is still present")
	assert.Equal(t, 1, articles[1].Index, "index follows kept articles")
	assert.Equal(t, "img_1.jpg", articles[1].ImageFilename)
	assert.Equal(t, "https://cdn.example.com/d.jpg", articles[1].ImageURL)
}

func TestExtract_CountIsInformational(t *testing.T) {
	tests := []struct {
		name    string
		visible bool
		text    string
		want    int
	}{
		{"readable", true, "1,204", 1204},
		{"missing", false, "", -1},
		{"garbage", true, "many", -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := serptest.NewPage(serptest.Articles(2))
			sel := DefaultSelectors()
			page.Visibility[sel.ResultCount] = []bool{tt.visible}
			if tt.text != "" {
				page.Texts[sel.ResultCount] = tt.text
			}

			s := NewSession(page, Options{})
			advance(t, s)
			_, err := s.LoadAll(context.Background())
			require.NoError(t, err)

			ex, err := s.Extract(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, ex.Total)
			assert.Len(t, ex.Articles, 2, "extraction is not bounded by the count")
		})
	}
}
