package serp

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/FranksOps/newshound/internal/news"
	"github.com/PuerkitoBio/goquery"
)

// Extraction is the outcome of reading the result list.
type Extraction struct {
	// Total is the site's reported result count, or -1 when it could not be
	// read. It is informational only.
	Total    int
	Articles []news.Article
	Skipped  int
}

// Extract reads the result count and every article on the page. Articles
// missing a field are skipped and logged. Indexes and image filenames follow
// the order of the kept articles.
func (s *Session) Extract(ctx context.Context) (Extraction, error) {
	var ex Extraction
	err := s.step(ctx, "extract", StatePaginating, StateExtracting, func(ctx context.Context) error {
		ex.Total = s.resultCount(ctx)

		html, err := s.page.HTML(ctx)
		if err != nil {
			return fmt.Errorf("page html: %w", err)
		}
		loc, err := s.page.Location(ctx)
		if err != nil {
			return fmt.Errorf("page location: %w", err)
		}

		ex.Articles, ex.Skipped, err = ParseArticles(html, loc, s.sel, s.logger.Warn)
		return err
	})
	if err != nil {
		return Extraction{}, err
	}

	s.logger.Info("extracted articles", "total", ex.Total, "articles", len(ex.Articles), "skipped", ex.Skipped)
	return ex, nil
}

// resultCount is best effort; a failure only warns.
func (s *Session) resultCount(ctx context.Context) int {
	visible, err := s.page.Visible(ctx, s.sel.ResultCount)
	if err != nil || !visible {
		s.logger.Warn("result count not found", "selector", s.sel.ResultCount, "err", err)
		return -1
	}
	text, err := s.page.InnerText(ctx, s.sel.ResultCount)
	if err != nil {
		s.logger.Warn("result count unreadable", "err", err)
		return -1
	}
	n, err := parseCount(text)
	if err != nil {
		s.logger.Warn("result count unparsable", "text", text, "err", err)
		return -1
	}
	s.logger.Info("results found", "count", n)
	return n
}

func parseCount(text string) (int, error) {
	return strconv.Atoi(strings.NewReplacer(",", "", ".", "", " ", "").Replace(strings.TrimSpace(text)))
}

// ParseArticles extracts articles from an HTML document in document order.
// Relative image URLs are resolved against pageURL. warn receives one call
// per skipped container.
func ParseArticles(html, pageURL string, sel Selectors, warn func(msg string, args ...any)) ([]news.Article, int, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, 0, fmt.Errorf("parse html: %w", err)
	}
	base, _ := url.Parse(pageURL)

	var (
		articles []news.Article
		skipped  int
	)
	doc.Find(sel.Article).Each(func(pos int, c *goquery.Selection) {
		a, missing := parseArticle(c, sel, base)
		if missing != "" {
			skipped++
			if warn != nil {
				warn("skipping article", "position", pos, "missing", missing)
			}
			return
		}
		a.Index = len(articles)
		a.ImageFilename = news.ImageFilename(a.Index)
		articles = append(articles, a)
	})
	return articles, skipped, nil
}

// parseArticle returns the name of the first missing field, if any.
func parseArticle(c *goquery.Selection, sel Selectors, base *url.URL) (news.Article, string) {
	var a news.Article

	fields := []struct {
		name string
		sel  string
		dst  *string
	}{
		{"title", sel.Title, &a.Title},
		{"date", sel.Date, &a.PublishedDate},
		{"description", sel.Description, &a.Description},
	}
	for _, f := range fields {
		node := c.Find(f.sel).First()
		if node.Length() == 0 {
			return a, f.name
		}
		*f.dst = collapse(node.Text())
	}

	src, ok := c.Find(sel.Image).First().Attr(sel.ImageAttr)
	src = strings.TrimSpace(src)
	if !ok || src == "" {
		return a, "image"
	}
	a.ImageURL = resolve(base, src)
	return a, ""
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func resolve(base *url.URL, ref string) string {
	if base == nil {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(u).String()
}
