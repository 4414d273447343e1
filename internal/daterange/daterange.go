// Package daterange computes the month-aligned search window used to filter
// site search results.
package daterange

import (
	"fmt"
	"time"
)

// Window is an inclusive calendar range. Start is always the first day of a
// month and never after End.
type Window struct {
	Start time.Time
	End   time.Time
}

// Calculate steps back monthsBack whole months from ref's month. End is ref
// itself. A non-positive monthsBack selects the first day of ref's month.
func Calculate(ref time.Time, monthsBack int) Window {
	start := firstOfMonth(ref)
	for i := 0; i < monthsBack; i++ {
		// day 0 of the current month is the last day of the previous one
		start = firstOfMonth(start.AddDate(0, 0, -start.Day()))
	}
	return Window{Start: start, End: ref}
}

func firstOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// Parts holds the zero-padded strings used to pick a date in the site's
// month, day and year lists.
type Parts struct {
	Month string // "01".."12"
	Day   string // "01".."31"
	Year  string // four digits
}

func partsOf(t time.Time) Parts {
	return Parts{
		Month: fmt.Sprintf("%02d", int(t.Month())),
		Day:   fmt.Sprintf("%02d", t.Day()),
		Year:  fmt.Sprintf("%04d", t.Year()),
	}
}

// StartParts returns the picker values for the window start.
func (w Window) StartParts() Parts { return partsOf(w.Start) }

// EndParts returns the picker values for the window end.
func (w Window) EndParts() Parts { return partsOf(w.End) }

// Months reports how many calendar months the window touches, counting both
// ends.
func (w Window) Months() int {
	return (w.End.Year()-w.Start.Year())*12 + int(w.End.Month()) - int(w.Start.Month()) + 1
}

func (w Window) String() string {
	return w.Start.Format("2006-01-02") + ".." + w.End.Format("2006-01-02")
}
