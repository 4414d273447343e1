package report

import (
	"encoding/csv"
	"fmt"
	"os"
)

func (r *Report) saveCSV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	if err := w.Write(r.headers); err != nil {
		f.Close()
		return err
	}
	for _, row := range r.rows {
		if err := w.Write(stringify(row)); err != nil {
			f.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func stringify(row []any) []string {
	out := make([]string, len(row))
	for i, v := range row {
		if v != nil {
			out[i] = fmt.Sprint(v)
		}
	}
	return out
}
