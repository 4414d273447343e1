package report

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/FranksOps/newshound/internal/news"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleRows() []news.Row {
	return []news.Row{
		{Title: "First", Date: "March 1, 2024", Description: "Economy up $5", ImageFilename: "img_0.jpg", PhraseCount: 1, ContainsMoney: true},
		{Title: "Second", Date: "March 2, 2024", Description: "quiet day", ImageFilename: "img_1.jpg", PhraseCount: 0, ContainsMoney: false},
		{Title: "Third, with comma", Date: "March 3, 2024", Description: `"quoted"`, ImageFilename: "img_2.jpg", PhraseCount: 3, ContainsMoney: false},
	}
}

func fill(t *testing.T, r *Report) {
	t.Helper()
	require.NoError(t, r.SetHeaders(news.Headers...))
	for _, row := range sampleRows() {
		require.NoError(t, r.AddRow(row.Values()...))
	}
}

func TestReport_XLSXRoundTrip(t *testing.T) {
	r, err := New(FormatXLSX)
	require.NoError(t, err)
	fill(t, r)
	assert.Equal(t, 3, r.Len())

	path := filepath.Join(t.TempDir(), "out", "data.xlsx")
	require.NoError(t, r.Save(path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 4, "header plus one line per row")
	assert.Equal(t, news.Headers, rows[0])
	assert.Equal(t, "First", rows[1][0])
	assert.Equal(t, "img_1.jpg", rows[2][3])
	assert.Equal(t, "3", rows[3][4])
	assert.Equal(t, "TRUE", rows[1][5])
	assert.Equal(t, "FALSE", rows[2][5])
}

func TestReport_CSVRoundTrip(t *testing.T) {
	r, err := New(FormatCSV)
	require.NoError(t, err)
	fill(t, r)

	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, r.Save(path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, news.Headers, records[0])
	assert.Equal(t, []string{"Third, with comma", "March 3, 2024", `"quoted"`, "img_2.jpg", "3", "false"}, records[3])
	assert.Equal(t, "true", records[1][5])
}

func TestReport_SaveOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte("stale,content\n1,2\n3,4\n5,6\n7,8\n"), 0o644))

	r, _ := New(FormatCSV)
	require.NoError(t, r.SetHeaders("A"))
	require.NoError(t, r.AddRow("x"))
	require.NoError(t, r.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "A\nx\n", string(data))

	// saving again after more rows rewrites the whole table
	require.NoError(t, r.AddRow("y"))
	require.NoError(t, r.Save(path))
	data, _ = os.ReadFile(path)
	assert.Equal(t, "A\nx\ny\n", string(data))
}

func TestReport_HeadersFirst(t *testing.T) {
	r, _ := New(FormatXLSX)
	assert.ErrorIs(t, r.AddRow("x"), ErrNoHeaders)
	assert.ErrorIs(t, r.Save(filepath.Join(t.TempDir(), "x.xlsx")), ErrNoHeaders)

	require.NoError(t, r.SetHeaders("A", "B"))
	require.NoError(t, r.AddRow("only one value"), "arity is the caller's concern")
	assert.ErrorIs(t, r.SetHeaders("C"), ErrHeadersLocked)
}

func TestReport_EmptyTable(t *testing.T) {
	r, _ := New(FormatXLSX)
	require.NoError(t, r.SetHeaders(news.Headers...))

	path := filepath.Join(t.TempDir(), "data.xlsx")
	require.NoError(t, r.Save(path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)

	f, err = ParseFormat(" CSV ")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)
	assert.Equal(t, ".csv", f.Ext())

	_, err = ParseFormat("ods")
	assert.ErrorIs(t, err, ErrUnknownFormat)

	_, err = New("ods")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}
