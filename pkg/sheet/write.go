package sheet

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// ExportSheetName is the worksheet name used for cleaned exports.
const ExportSheetName = "Données Corrigées"

// WriteWorkbook serializes the header and rows as a one-sheet xlsx workbook.
// Empty cells are left unset.
func WriteWorkbook(w io.Writer, t *Table, sheetName string) error {
	if sheetName == "" {
		sheetName = ExportSheetName
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	if err := writeRow(f, sheetName, 1, t.Header); err != nil {
		return err
	}
	for i, row := range t.Rows {
		if err := writeRow(f, sheetName, i+2, row); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, rowIdx int, row []Cell) error {
	for c, cell := range row {
		var v any
		switch cell.Kind {
		case KindText:
			v = cell.Text
		case KindNumber:
			v = cell.Number
		default:
			continue
		}
		axis, err := excelize.CoordinatesToCellName(c+1, rowIdx)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, axis, v); err != nil {
			return fmt.Errorf("set %s: %w", axis, err)
		}
	}
	return nil
}
