// Package report accumulates article rows and writes them to a spreadsheet,
// and renders the end-of-run summary.
package report

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Format is an output encoding for the article table.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

var (
	// ErrNoHeaders is returned when a row is added before the headers.
	ErrNoHeaders = errors.New("headers must be set before rows")
	// ErrHeadersLocked is returned when headers change after rows exist.
	ErrHeadersLocked = errors.New("headers cannot change once rows are added")
	// ErrUnknownFormat is returned for an unsupported output format.
	ErrUnknownFormat = errors.New("unknown report format")
)

// ParseFormat maps a config value onto a Format. Empty means xlsx.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatXLSX, nil
	case FormatXLSX, FormatCSV:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// Ext is the file extension for f, with the dot.
func (f Format) Ext() string {
	return "." + string(f)
}

// Report is an ordered table with a fixed header row. Rows only live in
// memory until Save.
type Report struct {
	format  Format
	headers []string
	rows    [][]any
}

// New returns an empty report.
func New(format Format) (*Report, error) {
	if _, err := ParseFormat(string(format)); err != nil {
		return nil, err
	}
	if format == "" {
		format = FormatXLSX
	}
	return &Report{format: format}, nil
}

// Format returns the encoding Save uses.
func (r *Report) Format() Format { return r.format }

// SetHeaders defines the column order. It must come before the first row.
func (r *Report) SetHeaders(cols ...string) error {
	if len(r.rows) > 0 {
		return ErrHeadersLocked
	}
	r.headers = append([]string(nil), cols...)
	return nil
}

// AddRow appends values in call order. Arity is not checked against the
// headers.
func (r *Report) AddRow(values ...any) error {
	if r.headers == nil {
		return ErrNoHeaders
	}
	r.rows = append(r.rows, append([]any(nil), values...))
	return nil
}

// Len is the number of data rows.
func (r *Report) Len() int { return len(r.rows) }

// Save writes the header and every row to path, replacing any existing file
// and creating parent directories. It may be called again after more rows
// are added.
func (r *Report) Save(path string) error {
	if r.headers == nil {
		return ErrNoHeaders
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}

	var err error
	switch r.format {
	case FormatCSV:
		err = r.saveCSV(path)
	default:
		err = r.saveXLSX(path)
	}
	if err != nil {
		return fmt.Errorf("save %s report: %w", r.format, err)
	}
	return nil
}

func (r *Report) headerRow() []any {
	out := make([]any, len(r.headers))
	for i, h := range r.headers {
		out[i] = h
	}
	return out
}
