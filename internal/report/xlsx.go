package report

import (
	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet holding the article table.
const SheetName = "Articles"

func (r *Report) saveXLSX(path string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return err
	}

	if err := sw.SetRow("A1", r.headerRow(), excelize.RowOpts{StyleID: bold}); err != nil {
		return err
	}
	for i, row := range r.rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return err
		}
	}
	if err := sw.Flush(); err != nil {
		return err
	}

	return f.SaveAs(path)
}
