package proxy

import (
	"bufio"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"
)

// ErrUnknownProxy is returned when reporting on a proxy the pool never handed out.
var ErrUnknownProxy = errors.New("proxy not found in pool")

// Config defines settings for the Proxy Pool.
type Config struct {
	// MaxFailures in a row before a proxy is benched.
	MaxFailures int
	// Cooldown is how long a benched proxy sits out.
	Cooldown time.Duration
}

type entry struct {
	url       *url.URL
	failures  int
	successes int
	benchedTo time.Time
}

// Pool rotates through proxies round-robin, skipping those that failed too
// often until their cooldown passes. Safe for concurrent use.
type Pool struct {
	cfg Config
	now func() time.Time

	mu      sync.Mutex
	entries []*entry
	byKey   map[string]*entry
	cursor  int
}

// NewPool creates an empty pool. Zero config values get defaults of 3
// failures and a 5 minute cooldown.
func NewPool(cfg Config) *Pool {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 5 * time.Minute
	}
	return &Pool{
		cfg:   cfg,
		now:   time.Now,
		byKey: make(map[string]*entry),
	}
}

// LoadFile adds proxies listed one per line in path. Blank lines and lines
// starting with '#' are skipped.
func (p *Pool) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open proxy list: %w", err)
	}
	defer f.Close()

	var raws []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line != "" && !strings.HasPrefix(line, "#") {
			raws = append(raws, line)
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read proxy list: %w", err)
	}
	return p.Add(raws...)
}

// Add parses and appends proxies. A missing scheme defaults to http.
// Duplicates are ignored.
func (p *Pool) Add(raws ...string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, raw := range raws {
		if !strings.Contains(raw, "://") {
			raw = "http://" + raw
		}
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("parse proxy %q: %w", raw, err)
		}
		key := u.String()
		if _, dup := p.byKey[key]; dup {
			continue
		}
		e := &entry{url: u}
		p.entries = append(p.entries, e)
		p.byKey[key] = e
	}
	return nil
}

// Len reports how many proxies the pool holds, benched ones included.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// Next returns the next usable proxy, or nil when the pool is empty or every
// proxy is cooling down.
func (p *Pool) Next() *url.URL {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	for range p.entries {
		e := p.entries[p.cursor]
		p.cursor = (p.cursor + 1) % len(p.entries)

		if !e.benchedTo.IsZero() {
			if now.Before(e.benchedTo) {
				continue
			}
			e.benchedTo = time.Time{}
			e.failures = 0
		}
		return e.url
	}
	return nil
}

// MarkSuccess records a successful request through u.
func (p *Pool) MarkSuccess(u *url.URL) error {
	return p.update(u, func(e *entry) {
		e.successes++
		if e.failures > 0 {
			e.failures--
		}
	})
}

// MarkFailure records a failed request through u and benches the proxy once
// it reaches MaxFailures.
func (p *Pool) MarkFailure(u *url.URL) error {
	return p.update(u, func(e *entry) {
		e.failures++
		if e.failures >= p.cfg.MaxFailures {
			e.benchedTo = p.now().Add(p.cfg.Cooldown)
		}
	})
}

func (p *Pool) update(u *url.URL, fn func(*entry)) error {
	if u == nil {
		return errors.New("proxy url cannot be nil")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	e, ok := p.byKey[u.String()]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownProxy, u.Redacted())
	}
	fn(e)
	return nil
}
