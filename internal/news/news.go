package news

import (
	"errors"
	"fmt"
	"time"
)

// Default search values used when a payload leaves them out.
const (
	DefaultPhrase   = "Economy"
	DefaultCategory = "LatinAmerica"
)

// ErrNegativeMonths is returned when the months-back count is below zero.
var ErrNegativeMonths = errors.New("months back must not be negative")

// Headers defines the report column order. Row.Values follows it.
var Headers = []string{
	"Title",
	"Date",
	"Description",
	"Picture Filename",
	"Count of Search Phrases",
	"Contains Money",
}

// Criteria describes a single search run.
type Criteria struct {
	Phrase   string
	Category string
	Months   int
}

// Query combines phrase and category into the string typed into the site search.
func (c Criteria) Query() string {
	return fmt.Sprintf("%s in %s", c.Phrase, c.Category)
}

// Validate rejects criteria that cannot produce a date window.
func (c Criteria) Validate() error {
	if c.Months < 0 {
		return fmt.Errorf("%w: %d", ErrNegativeMonths, c.Months)
	}
	return nil
}

// WindowMonths is the number of whole months to step back from the current
// month. The current month counts as the first one, so 0 and 1 both select
// only the current month.
func (c Criteria) WindowMonths() int {
	if c.Months <= 1 {
		return 0
	}
	return c.Months - 1
}

// Article is one search result as read from the page. It only lives for the
// duration of an extraction pass.
type Article struct {
	Index         int // position in document order
	Title         string
	PublishedDate string // site-native format, kept verbatim
	Description   string
	ImageURL      string
	ImageFilename string
}

// ImageFilename returns the deterministic name of the i-th article image.
func ImageFilename(i int) string {
	return fmt.Sprintf("img_%d.jpg", i)
}

// Row is one report line.
type Row struct {
	Title         string
	Date          string
	Description   string
	ImageFilename string
	PhraseCount   int
	ContainsMoney bool
}

// Values returns the row cells in Headers order.
func (r Row) Values() []any {
	return []any{
		r.Title,
		r.Date,
		r.Description,
		r.ImageFilename,
		r.PhraseCount,
		r.ContainsMoney,
	}
}

// Download represents the outcome of a single image fetch.
type Download struct {
	URL          string
	Filename     string
	Path         string // empty unless the file was written
	StatusCode   int
	Bytes        int64
	Duration     time.Duration
	DetectedBot  bool
	DetectionSrc string // e.g. "Cloudflare", "Akamai", "PerimeterX", "DataDome"
	CreatedAt    time.Time
	Error        string // non-empty if nothing was written
}

// OK reports whether the image landed on disk.
func (d *Download) OK() bool {
	return d != nil && d.Error == "" && d.Path != ""
}
