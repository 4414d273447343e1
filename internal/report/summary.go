package report

import (
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"maps"
	"slices"
	"strconv"
	texttemplate "text/template"
	"time"

	"github.com/FranksOps/newshound/internal/news"
	"github.com/nao1215/markdown"
)

// Summary aggregates one run for the operator.
type Summary struct {
	RunID          string    `json:"run_id"`
	Query          string    `json:"query"`
	WindowStart    time.Time `json:"window_start"`
	WindowEnd      time.Time `json:"window_end"`
	TotalFound     int       `json:"total_found"` // -1 when the site count was unreadable
	Articles       int       `json:"articles"`
	Skipped        int       `json:"skipped"`
	LoadMoreClicks int       `json:"load_more_clicks"`
	PhraseMatches  int       `json:"phrase_matches"`
	MoneyMentions  int       `json:"money_mentions"`

	ImagesSaved     int            `json:"images_saved"`
	ImageErrors     int            `json:"image_errors"`
	ImageBytes      int64          `json:"image_bytes"`
	StatusCodes     map[int]int    `json:"status_codes"`
	DetectionsBySrc map[string]int `json:"detections_by_src"`

	ReportPath string        `json:"report_path"`
	StartTime  time.Time     `json:"start_time"`
	EndTime    time.Time     `json:"end_time"`
	Duration   time.Duration `json:"duration"`
}

// NewSummary starts a summary at start.
func NewSummary(runID, query string, start time.Time) *Summary {
	return &Summary{
		RunID:           runID,
		Query:           query,
		TotalFound:      -1,
		StatusCodes:     make(map[int]int),
		DetectionsBySrc: make(map[string]int),
		StartTime:       start,
	}
}

// AddRow counts one reported article.
func (s *Summary) AddRow(r news.Row) {
	s.Articles++
	s.PhraseMatches += r.PhraseCount
	if r.ContainsMoney {
		s.MoneyMentions++
	}
}

// AddDownload folds one image fetch into the totals.
func (s *Summary) AddDownload(d *news.Download) {
	if d == nil {
		return
	}
	if d.OK() {
		s.ImagesSaved++
		s.ImageBytes += d.Bytes
	} else {
		s.ImageErrors++
	}
	if d.StatusCode > 0 {
		s.StatusCodes[d.StatusCode]++
	}
	if d.DetectedBot {
		s.DetectionsBySrc[d.DetectionSrc]++
	}
}

// Finish stamps the end time.
func (s *Summary) Finish(end time.Time) {
	s.EndTime = end
	s.Duration = end.Sub(s.StartTime)
}

// Summary output formats.
const (
	SummaryText     = "text"
	SummaryJSON     = "json"
	SummaryHTML     = "html"
	SummaryMarkdown = "markdown"
)

// SummaryFormats lists the accepted summary formats.
var SummaryFormats = []string{SummaryText, SummaryJSON, SummaryHTML, SummaryMarkdown}

// WriteSummary renders s in the named format.
func WriteSummary(w io.Writer, format string, s Summary) error {
	switch format {
	case SummaryText, "":
		return WriteText(w, s)
	case SummaryJSON:
		return WriteJSON(w, s)
	case SummaryHTML:
		return WriteHTML(w, s)
	case SummaryMarkdown, "md":
		return WriteMarkdown(w, s)
	default:
		return fmt.Errorf("%w: summary %q", ErrUnknownFormat, format)
	}
}

// WriteJSON writes the summary to the provided writer in JSON format.
func WriteJSON(w io.Writer, summary Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	return nil
}

var funcs = map[string]any{
	"date":  func(t time.Time) string { return t.Format("2006-01-02") },
	"stamp": func(t time.Time) string { return t.Format("2006-01-02 15:04:05") },
	"found": foundText,
}

func foundText(n int) string {
	if n < 0 {
		return "unknown"
	}
	return strconv.Itoa(n)
}

const textTmpl = `newshound run {{.RunID}}
------------------
Query:         {{.Query}}
Window:        {{date .WindowStart}} - {{date .WindowEnd}}
Time:          {{stamp .StartTime}} - {{stamp .EndTime}}
Duration:      {{.Duration}}
Site Results:  {{found .TotalFound}}
Articles:      {{.Articles}} reported, {{.Skipped}} skipped
Load More:     {{.LoadMoreClicks}} clicks
Phrase Hits:   {{.PhraseMatches}}
Money:         {{.MoneyMentions}} articles
Images:        {{.ImagesSaved}} saved, {{.ImageErrors}} failed, {{.ImageBytes}} bytes
Report:        {{.ReportPath}}

Image Status Codes:
{{- range $code, $count := .StatusCodes}}
  {{$code}}: {{$count}}
{{- else}}
  None
{{- end}}

Detections:
{{- range $src, $count := .DetectionsBySrc}}
  {{$src}}: {{$count}}
{{- else}}
  None
{{- end}}
`

// WriteText writes a human-readable text summary to the provided writer.
func WriteText(w io.Writer, summary Summary) error {
	t, err := texttemplate.New("textSummary").Funcs(funcs).Parse(textTmpl)
	if err != nil {
		return fmt.Errorf("parse text template: %w", err)
	}
	if err := t.Execute(w, summary); err != nil {
		return fmt.Errorf("render text summary: %w", err)
	}
	return nil
}

const htmlTmpl = `<!DOCTYPE html>
<html>
<head>
<title>newshound run {{.RunID}}</title>
<style>
  body { font-family: sans-serif; margin: 40px; color: #333; }
  h1 { border-bottom: 2px solid #ccc; padding-bottom: 10px; }
  .stat-card { display: inline-block; padding: 20px; margin: 10px 10px 10px 0; background: #f4f4f4; border-radius: 5px; min-width: 150px; }
  .stat-val { font-size: 24px; font-weight: bold; }
  table { border-collapse: collapse; margin-top: 10px; }
  th, td { padding: 8px 12px; border: 1px solid #ccc; text-align: left; }
  th { background: #eaeaea; }
</style>
</head>
<body>
  <h1>{{.Query}}</h1>
  <p><strong>Window:</strong> {{date .WindowStart}} to {{date .WindowEnd}}</p>
  <p><strong>Time:</strong> {{stamp .StartTime}} to {{stamp .EndTime}} ({{.Duration}})</p>

  <div class="stat-card">
    <div>Articles</div>
    <div class="stat-val">{{.Articles}}</div>
  </div>
  <div class="stat-card">
    <div>Skipped</div>
    <div class="stat-val">{{.Skipped}}</div>
  </div>
  <div class="stat-card">
    <div>Images Saved</div>
    <div class="stat-val">{{.ImagesSaved}}</div>
  </div>
  <div class="stat-card">
    <div>Image Errors</div>
    <div class="stat-val" style="color: {{if gt .ImageErrors 0}}red{{else}}green{{end}};">{{.ImageErrors}}</div>
  </div>

  <h3>Image Status Codes</h3>
  <table>
    <tr><th>Code</th><th>Count</th></tr>
    {{- range $code, $count := .StatusCodes}}
    <tr><td>{{$code}}</td><td>{{$count}}</td></tr>
    {{- else}}
    <tr><td colspan="2">None</td></tr>
    {{- end}}
  </table>

  <h3>Detections By Source</h3>
  <table>
    <tr><th>Source</th><th>Count</th></tr>
    {{- range $src, $count := .DetectionsBySrc}}
    <tr><td>{{$src}}</td><td>{{$count}}</td></tr>
    {{- else}}
    <tr><td colspan="2">None</td></tr>
    {{- end}}
  </table>

  <p>Report written to <code>{{.ReportPath}}</code></p>
</body>
</html>
`

// WriteHTML writes a basic HTML summary. Values are escaped.
func WriteHTML(w io.Writer, summary Summary) error {
	t, err := template.New("htmlSummary").Funcs(funcs).Parse(htmlTmpl)
	if err != nil {
		return fmt.Errorf("parse html template: %w", err)
	}
	if err := t.Execute(w, summary); err != nil {
		return fmt.Errorf("render html summary: %w", err)
	}
	return nil
}

// WriteMarkdown writes the summary as Markdown tables.
func WriteMarkdown(w io.Writer, s Summary) error {
	md := markdown.NewMarkdown(w)

	md.H1("newshound run " + s.RunID)
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Query", s.Query},
			{"Window", s.WindowStart.Format("2006-01-02") + " - " + s.WindowEnd.Format("2006-01-02")},
			{"Duration", s.Duration.String()},
			{"Site Results", foundText(s.TotalFound)},
			{"Report", "`" + s.ReportPath + "`"},
		},
	})
	md.PlainText("")

	md.H2("Articles")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Count"},
		Rows: [][]string{
			{"Reported", strconv.Itoa(s.Articles)},
			{"Skipped", strconv.Itoa(s.Skipped)},
			{"Load More Clicks", strconv.Itoa(s.LoadMoreClicks)},
			{"Phrase Hits", strconv.Itoa(s.PhraseMatches)},
			{"Money Mentions", strconv.Itoa(s.MoneyMentions)},
		},
	})
	md.PlainText("")

	md.H2("Images")
	md.PlainText("")
	rows := [][]string{
		{"Saved", strconv.Itoa(s.ImagesSaved)},
		{"Failed", strconv.Itoa(s.ImageErrors)},
		{"Bytes", strconv.FormatInt(s.ImageBytes, 10)},
	}
	for _, code := range slices.Sorted(maps.Keys(s.StatusCodes)) {
		rows = append(rows, []string{"HTTP " + strconv.Itoa(code), strconv.Itoa(s.StatusCodes[code])})
	}
	md.Table(markdown.TableSet{Header: []string{"Metric", "Count"}, Rows: rows})
	md.PlainText("")

	if len(s.DetectionsBySrc) > 0 {
		var items []string
		for _, src := range slices.Sorted(maps.Keys(s.DetectionsBySrc)) {
			items = append(items, fmt.Sprintf("%s: %d", src, s.DetectionsBySrc[src]))
		}
		md.H2("Bot Protection")
		md.PlainText("")
		md.BulletList(items...)
		md.PlainText("")
	}

	if err := md.Build(); err != nil {
		return fmt.Errorf("render markdown summary: %w", err)
	}
	return nil
}
