// Package serp drives the news site's search page: it submits the query,
// narrows results to a date window, pages through "load more" and extracts
// the article list.
package serp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/FranksOps/newshound/internal/daterange"
)

// Page is the browser surface a Session needs. browser.Chrome implements it.
type Page interface {
	Navigate(ctx context.Context, url string) error
	Click(ctx context.Context, sel string) error
	Fill(ctx context.Context, sel, text string) error
	Wait(ctx context.Context, d time.Duration) error
	InnerText(ctx context.Context, sel string) (string, error)
	Visible(ctx context.Context, sel string) (bool, error)
	HTML(ctx context.Context) (string, error)
	Location(ctx context.Context) (string, error)
}

// State is a step in the session lifecycle.
type State int

const (
	StateInit State = iota
	StateNavigated
	StateSearched
	StateDateFiltered
	StatePaginating
	StateExtracting
	StateDone
	StateFailed
)

var stateNames = [...]string{
	StateInit:         "init",
	StateNavigated:    "navigated",
	StateSearched:     "searched",
	StateDateFiltered: "date_filtered",
	StatePaginating:   "paginating",
	StateExtracting:   "extracting",
	StateDone:         "done",
	StateFailed:       "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// ErrOutOfOrder is returned when an operation is called from the wrong state.
var ErrOutOfOrder = errors.New("session operation out of order")

// Delays are the fixed settle times around page interactions.
type Delays struct {
	Navigate    time.Duration // after opening the site
	Action      time.Duration // before every click
	Search      time.Duration // after submitting the query
	FilterGroup time.Duration // between the from and to pickers
	Filter      time.Duration // after applying the date filter
	LoadMore    time.Duration // after each load-more click
}

// DefaultDelays matches the pacing the site tolerates.
func DefaultDelays() Delays {
	return Delays{
		Navigate:    3 * time.Second,
		Action:      2 * time.Second,
		Search:      5 * time.Second,
		FilterGroup: time.Second,
		Filter:      3 * time.Second,
		LoadMore:    3 * time.Second,
	}
}

// HasMore reports whether another page of results can be loaded.
type HasMore func(ctx context.Context) (bool, error)

// Options configures a Session. Zero Delays mean no settle waits.
type Options struct {
	Selectors Selectors // zero value means DefaultSelectors
	Delays    Delays
	// MaxLoadMore caps load-more clicks when positive. Zero keeps clicking
	// until HasMore reports false.
	MaxLoadMore int
	// HasMore defaults to checking that the load-more control is visible.
	HasMore HasMore
	Logger  *slog.Logger
}

// Session walks one search through its states. It is not safe for
// concurrent use.
type Session struct {
	page    Page
	sel     Selectors
	delays  Delays
	maxMore int
	hasMore HasMore
	logger  *slog.Logger

	state  State
	closed bool
}

// NewSession binds a session to page. The session owns page from here on and
// closes it in Close when page implements io.Closer.
func NewSession(page Page, opts Options) *Session {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Selectors == (Selectors{}) {
		opts.Selectors = DefaultSelectors()
	}

	s := &Session{
		page:    page,
		sel:     opts.Selectors,
		delays:  opts.Delays,
		maxMore: opts.MaxLoadMore,
		hasMore: opts.HasMore,
		logger:  opts.Logger,
	}
	if s.hasMore == nil {
		s.hasMore = func(ctx context.Context) (bool, error) {
			return page.Visible(ctx, s.sel.LoadMore)
		}
	}
	return s
}

// State returns the current state.
func (s *Session) State() State { return s.state }

// step runs fn if the session is in from, then moves to to. Any error from fn
// fails the session.
func (s *Session) step(ctx context.Context, name string, from, to State, fn func(context.Context) error) error {
	if s.state != from {
		return fmt.Errorf("%w: %s needs %s, session is %s", ErrOutOfOrder, name, from, s.state)
	}
	if err := fn(ctx); err != nil {
		s.fail(name, err)
		return fmt.Errorf("%s: %w", name, err)
	}
	s.enter(to)
	return nil
}

func (s *Session) enter(st State) {
	s.state = st
	s.logger.Debug("session state", "state", st)
}

func (s *Session) fail(name string, err error) {
	s.state = StateFailed
	s.logger.Error("session step failed", "step", name, "err", err)
}

// click waits the action delay and clicks sel.
func (s *Session) click(ctx context.Context, sel string) error {
	if err := s.page.Wait(ctx, s.delays.Action); err != nil {
		return err
	}
	if err := s.page.Click(ctx, sel); err != nil {
		return fmt.Errorf("click %s: %w", sel, err)
	}
	return nil
}

// Open loads the site root.
func (s *Session) Open(ctx context.Context, url string) error {
	return s.step(ctx, "open", StateInit, StateNavigated, func(ctx context.Context) error {
		s.logger.Info("opening site", "url", url)
		if err := s.page.Navigate(ctx, url); err != nil {
			return err
		}
		return s.page.Wait(ctx, s.delays.Navigate)
	})
}

// Search opens the search box, types query and submits it.
func (s *Session) Search(ctx context.Context, query string) error {
	return s.step(ctx, "search", StateNavigated, StateSearched, func(ctx context.Context) error {
		s.logger.Info("searching", "query", query)
		if err := s.click(ctx, s.sel.SearchToggle); err != nil {
			return err
		}
		if err := s.page.Fill(ctx, s.sel.SearchInput, query); err != nil {
			return fmt.Errorf("fill %s: %w", s.sel.SearchInput, err)
		}
		if err := s.click(ctx, s.sel.SearchSubmit); err != nil {
			return err
		}
		return s.page.Wait(ctx, s.delays.Search)
	})
}

// FilterDates restricts the results to w and reruns the search.
func (s *Session) FilterDates(ctx context.Context, w daterange.Window) error {
	return s.step(ctx, "filter dates", StateSearched, StateDateFiltered, func(ctx context.Context) error {
		s.logger.Info("filtering dates", "window", w.String())
		if err := s.pick(ctx, s.sel.From, w.StartParts()); err != nil {
			return fmt.Errorf("from date: %w", err)
		}
		if err := s.page.Wait(ctx, s.delays.FilterGroup); err != nil {
			return err
		}
		if err := s.pick(ctx, s.sel.To, w.EndParts()); err != nil {
			return fmt.Errorf("to date: %w", err)
		}
		if err := s.click(ctx, s.sel.ApplyFilter); err != nil {
			return err
		}
		return s.page.Wait(ctx, s.delays.Filter)
	})
}

func (s *Session) pick(ctx context.Context, dp DatePicker, p daterange.Parts) error {
	clicks := []string{
		dp.Month, s.sel.OptionFor(p.Month),
		dp.Day, s.sel.OptionFor(p.Day),
		dp.Year, s.sel.YearOptionFor(p.Year),
	}
	for _, sel := range clicks {
		if err := s.click(ctx, sel); err != nil {
			return err
		}
	}
	return nil
}

// LoadAll keeps activating "load more" while HasMore reports true and returns
// the number of clicks. Without MaxLoadMore a page that never hides the
// control keeps the loop going until ctx ends.
func (s *Session) LoadAll(ctx context.Context) (int, error) {
	if s.state != StateDateFiltered {
		return 0, fmt.Errorf("%w: load more needs %s, session is %s", ErrOutOfOrder, StateDateFiltered, s.state)
	}
	s.enter(StatePaginating)

	clicks := 0
	for {
		more, err := s.hasMore(ctx)
		if err != nil {
			s.fail("load more", err)
			return clicks, fmt.Errorf("load more: check control: %w", err)
		}
		if !more {
			break
		}
		if s.maxMore > 0 && clicks >= s.maxMore {
			s.logger.Warn("load more cap reached, results may be incomplete", "clicks", clicks)
			break
		}
		if err := s.click(ctx, s.sel.LoadMore); err != nil {
			s.fail("load more", err)
			return clicks, fmt.Errorf("load more: %w", err)
		}
		if err := s.page.Wait(ctx, s.delays.LoadMore); err != nil {
			s.fail("load more", err)
			return clicks, fmt.Errorf("load more: %w", err)
		}
		clicks++
		s.logger.Debug("loaded more results", "clicks", clicks)
	}

	s.logger.Info("finished loading results", "clicks", clicks)
	return clicks, nil
}

// Finish marks a completed extraction as done.
func (s *Session) Finish() error {
	if s.state != StateExtracting {
		return fmt.Errorf("%w: finish needs %s, session is %s", ErrOutOfOrder, StateExtracting, s.state)
	}
	s.enter(StateDone)
	return nil
}

// Close releases the page. It is safe to call more than once and from any
// state.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if c, ok := s.page.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
