// Package serptest provides an in-memory serp.Page for tests.
package serptest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Call records one page action.
type Call struct {
	Op   string
	Sel  string
	Text string
}

func (c Call) String() string {
	if c.Text != "" {
		return c.Op + " " + c.Sel + " = " + c.Text
	}
	return c.Op + " " + c.Sel
}

// Page is a scripted serp.Page. Every action is recorded; errors and
// visibility are configured per selector.
type Page struct {
	mu sync.Mutex

	// Doc is returned by HTML.
	Doc string
	// URL is returned by Location. Navigate sets it.
	URL string
	// Texts maps selectors to InnerText results.
	Texts map[string]string
	// Errors fails any action on the given selector.
	Errors map[string]error
	// Visibility queues the answers for Visible per selector; once a queue
	// is drained the selector reports hidden.
	Visibility map[string][]bool

	calls  []Call
	waited time.Duration
	closed int
}

// NewPage returns a page that serves doc.
func NewPage(doc string) *Page {
	return &Page{
		Doc:        doc,
		Texts:      map[string]string{},
		Errors:     map[string]error{},
		Visibility: map[string][]bool{},
	}
}

func (p *Page) record(op, sel, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, Call{Op: op, Sel: sel, Text: text})
	if err, ok := p.Errors[sel]; ok {
		return err
	}
	return nil
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.record("navigate", url, ""); err != nil {
		return err
	}
	p.mu.Lock()
	p.URL = url
	p.mu.Unlock()
	return nil
}

func (p *Page) Click(ctx context.Context, sel string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.record("click", sel, "")
}

func (p *Page) Fill(ctx context.Context, sel, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.record("fill", sel, text)
}

// Wait does not sleep; it only totals the requested time.
func (p *Page) Wait(ctx context.Context, d time.Duration) error {
	p.mu.Lock()
	p.waited += d
	p.mu.Unlock()
	return ctx.Err()
}

func (p *Page) InnerText(ctx context.Context, sel string) (string, error) {
	if err := p.record("text", sel, ""); err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	text, ok := p.Texts[sel]
	if !ok {
		return "", fmt.Errorf("no node for %s", sel)
	}
	return text, nil
}

func (p *Page) Visible(ctx context.Context, sel string) (bool, error) {
	if err := p.record("visible", sel, ""); err != nil {
		return false, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	q := p.Visibility[sel]
	if len(q) == 0 {
		return false, nil
	}
	p.Visibility[sel] = q[1:]
	return q[0], nil
}

func (p *Page) HTML(ctx context.Context) (string, error) {
	if err := p.record("html", "", ""); err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Doc, nil
}

func (p *Page) Location(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.URL, nil
}

// Close counts calls so tests can assert the page was released.
func (p *Page) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed++
	return nil
}

// Calls returns the recorded actions in order.
func (p *Page) Calls() []Call {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Call(nil), p.calls...)
}

// Clicks returns the selectors clicked, in order.
func (p *Page) Clicks() []string {
	var out []string
	for _, c := range p.Calls() {
		if c.Op == "click" {
			out = append(out, c.Sel)
		}
	}
	return out
}

// Waited is the sum of all Wait durations.
func (p *Page) Waited() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.waited
}

// Closed reports how many times Close ran.
func (p *Page) Closed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Articles renders n article containers in the site's markup. Image sources
// are relative so callers exercise URL resolution.
func Articles(n int) string {
	var b strings.Builder
	b.WriteString("<html><body><div class=\"num-found\"><span>Results</span><span><span>")
	fmt.Fprintf(&b, "%d", n)
	b.WriteString("</span></span></div>")
	for i := range n {
		fmt.Fprintf(&b, `<article class="article">
  <div class="m"><a href="/story/%[1]d"><img src="/images/%[1]d.jpg" alt=""></a></div>
  <div class="info">
    <header class="info-header"><div class="meta"><span class="time">March %[2]d, 2024</span></div>
      <h2 class="title"><a href="/story/%[1]d">Economy story %[1]d</a></h2></header>
    <div class="content"><p class="dek">The economy grew by $%[1]d,000 in story %[1]d.</p></div>
  </div>
</article>
`, i, i+1)
	}
	b.WriteString("</body></html>")
	return b.String()
}
