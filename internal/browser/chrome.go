// Package browser drives a Chrome instance over the DevTools protocol.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

// Defaults used when Options leaves a field zero.
const (
	DefaultTimeout      = 30 * time.Second
	DefaultWindowWidth  = 1920
	DefaultWindowHeight = 1080
)

// Options configures the Chrome process.
type Options struct {
	Headless    bool
	ExecPath    string // empty lets chromedp find Chrome
	UserAgent   string
	ProxyServer string
	// Timeout bounds every single page action.
	Timeout      time.Duration
	WindowWidth  int
	WindowHeight int
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.WindowWidth <= 0 {
		o.WindowWidth = DefaultWindowWidth
	}
	if o.WindowHeight <= 0 {
		o.WindowHeight = DefaultWindowHeight
	}
	return o
}

// AllocatorOptions builds the exec allocator flags for o. Sandboxing and
// /dev/shm are disabled so Chrome runs inside containers.
func AllocatorOptions(o Options) []chromedp.ExecAllocatorOption {
	o = o.withDefaults()

	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("headless", o.Headless),
		chromedp.NoSandbox,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(o.WindowWidth, o.WindowHeight),
	)
	if o.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(o.UserAgent))
	}
	if o.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(o.ExecPath))
	}
	if o.ProxyServer != "" {
		opts = append(opts, chromedp.ProxyServer(o.ProxyServer))
	}
	return opts
}

// ErrClosed is returned by actions on a closed browser.
var ErrClosed = errors.New("browser closed")

// Chrome is one browser tab. Actions are serialized by the caller; Close may
// be called from any goroutine.
type Chrome struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	timeout     time.Duration
	logger      *slog.Logger
	closeOnce   sync.Once
}

// Launch starts Chrome and opens a blank tab. The browser lives until Close,
// independent of ctx after launch.
func Launch(ctx context.Context, opts Options, logger *slog.Logger) (*Chrome, error) {
	if logger == nil {
		logger = slog.Default()
	}
	opts = opts.withDefaults()

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), AllocatorOptions(opts)...)
	tabCtx, cancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			logger.Debug(fmt.Sprintf(format, args...), "component", "chromedp")
		}),
	)

	c := &Chrome{
		ctx:         tabCtx,
		cancel:      cancel,
		allocCancel: allocCancel,
		timeout:     opts.Timeout,
		logger:      logger,
	}

	// The first Run starts the process; it must use the tab context itself.
	started := make(chan error, 1)
	go func() { started <- chromedp.Run(tabCtx) }()

	select {
	case err := <-started:
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("launch chrome: %w", err)
		}
	case <-ctx.Done():
		c.Close()
		return nil, fmt.Errorf("launch chrome: %w", ctx.Err())
	}

	logger.Info("browser started", "headless", opts.Headless)
	return c, nil
}

// run executes actions bounded by the per-action timeout and by ctx.
func (c *Chrome) run(ctx context.Context, actions ...chromedp.Action) error {
	if c.ctx.Err() != nil {
		return ErrClosed
	}

	actx, cancel := context.WithTimeout(c.ctx, c.timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(actx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// Navigate loads url and waits for the body to be ready.
func (c *Chrome) Navigate(ctx context.Context, url string) error {
	c.logger.Debug("navigate", "url", url)
	return c.run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

// Click clicks the first visible element matching sel (XPath or CSS).
func (c *Chrome) Click(ctx context.Context, sel string) error {
	return c.run(ctx, chromedp.Click(sel, chromedp.BySearch, chromedp.NodeVisible))
}

// Fill replaces the value of the input matching sel with text.
func (c *Chrome) Fill(ctx context.Context, sel, text string) error {
	return c.run(ctx,
		chromedp.WaitVisible(sel, chromedp.BySearch),
		chromedp.SetValue(sel, "", chromedp.BySearch),
		chromedp.SendKeys(sel, text, chromedp.BySearch),
	)
}

// Wait pauses for d or until ctx is done.
func (c *Chrome) Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// InnerText returns the visible text of the element matching sel.
func (c *Chrome) InnerText(ctx context.Context, sel string) (string, error) {
	var text string
	err := c.run(ctx, chromedp.Text(sel, &text, chromedp.BySearch, chromedp.NodeVisible))
	return text, err
}

// visibleJS runs with this bound to a matched node. Text nodes are judged by
// their parent element. Hidden, collapsed and fully transparent elements do
// not count as shown, nor do elements without a layout box.
const visibleJS = `function() {
	const el = this.nodeType === Node.ELEMENT_NODE ? this : this.parentElement;
	if (!el || !el.isConnected) return false;
	if (typeof el.checkVisibility === 'function') {
		return el.checkVisibility({opacityProperty: true, visibilityProperty: true});
	}
	const s = getComputedStyle(el);
	if (s.display === 'none' || s.visibility !== 'visible' || parseFloat(s.opacity) === 0) return false;
	return Boolean(el.offsetWidth || el.offsetHeight || el.getClientRects().length);
}`

// Visible reports whether any element matching sel is shown to the user. It
// does not wait for the element to appear.
func (c *Chrome) Visible(ctx context.Context, sel string) (bool, error) {
	var visible bool
	err := c.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var nodes []*cdp.Node
		if err := chromedp.Nodes(sel, &nodes, chromedp.BySearch, chromedp.AtLeast(0)).Do(ctx); err != nil {
			return err
		}
		for _, n := range nodes {
			shown, err := nodeShown(ctx, n)
			if err != nil {
				return err
			}
			if shown {
				visible = true
				return nil
			}
		}
		return nil
	}))
	return visible, err
}

func nodeShown(ctx context.Context, n *cdp.Node) (bool, error) {
	obj, err := dom.ResolveNode().WithNodeID(n.NodeID).Do(ctx)
	if err != nil {
		// detached since the search ran
		return false, nil
	}
	defer func() { _ = runtime.ReleaseObject(obj.ObjectID).Do(ctx) }()

	res, exc, err := runtime.CallFunctionOn(visibleJS).
		WithObjectID(obj.ObjectID).
		WithReturnByValue(true).
		Do(ctx)
	if err != nil {
		return false, fmt.Errorf("visibility check: %w", err)
	}
	if exc != nil {
		return false, fmt.Errorf("visibility check: %w", exc)
	}
	return string(res.Value) == "true", nil
}

// HTML returns the serialized document.
func (c *Chrome) HTML(ctx context.Context) (string, error) {
	var html string
	err := c.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}

// Location returns the current page URL.
func (c *Chrome) Location(ctx context.Context) (string, error) {
	var loc string
	err := c.run(ctx, chromedp.Location(&loc))
	return loc, err
}

// Close shuts the tab and the browser process. Safe to call more than once.
func (c *Chrome) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = chromedp.Cancel(c.ctx)
		c.cancel()
		c.allocCancel()
		c.logger.Debug("browser closed")
	})
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	return err
}
