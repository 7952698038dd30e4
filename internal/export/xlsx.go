// Package export serialises tables to single-sheet .xlsx workbooks and reads
// them back.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/BerylCAtieno/airline-extractor/internal/table"
)

const (
	SheetName   = "Sheet1"
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	// dateNumFmt is the built-in short date format (m/d/yy in the default locale).
	dateNumFmt = 14
)

var ErrInvalidWorkbook = errors.New("invalid workbook")

// Filename is the download name for an export: extracao_<airline>_<unix ms>.xlsx.
func Filename(airline string, at time.Time) string {
	return fmt.Sprintf("extracao_%s_%d.xlsx", airline, at.UnixMilli())
}

// Workbook writes t to one sheet: a header row with the column names, then
// one row per record in table order. Nulls are left blank.
func Workbook(t *table.Table) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	dateStyle, err := f.NewStyle(&excelize.Style{NumFmt: dateNumFmt})
	if err != nil {
		return nil, fmt.Errorf("failed to create date style: %w", err)
	}

	for col, name := range t.Columns() {
		if err := setCell(f, col+1, 1, table.String(name), dateStyle); err != nil {
			return nil, err
		}
	}

	for i, r := range t.Records {
		for col, v := range r.Values() {
			if err := setCell(f, col+1, i+2, v, dateStyle); err != nil {
				return nil, err
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func setCell(f *excelize.File, col, row int, v table.Value, dateStyle int) error {
	if v.IsNull() {
		return nil
	}

	axis, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}

	switch v.Kind() {
	case table.KindString:
		err = f.SetCellStr(SheetName, axis, v.Str())
	case table.KindNumber:
		err = f.SetCellFloat(SheetName, axis, v.Num(), -1, 64)
	case table.KindDate:
		if err = f.SetCellValue(SheetName, axis, v.Time()); err == nil {
			err = f.SetCellStyle(SheetName, axis, axis, dateStyle)
		}
	}
	if err != nil {
		return fmt.Errorf("failed to write cell %s: %w", axis, err)
	}
	return nil
}

// ReadWorkbook parses the first sheet of an exported workbook. The first row
// is the header. Text cells become strings (empty ones included), numeric
// cells numbers (dates included, as spreadsheet serials) and blank cells nulls.
func ReadWorkbook(data []byte) (*table.Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWorkbook, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: no sheets", ErrInvalidWorkbook)
	}
	sheet := sheets[0]

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWorkbook, err)
	}
	if len(rows) == 0 {
		return &table.Table{}, nil
	}

	schema, err := table.NewSchema(rows[0]...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWorkbook, err)
	}

	t := &table.Table{Schema: schema, Records: make([]table.Record, 0, len(rows)-1)}
	columns := schema.Columns()
	for i, raw := range rows[1:] {
		rec := table.NewRecord(schema)
		// GetRows drops trailing blank cells, so every column is visited.
		for col := range columns {
			var text string
			if col < len(raw) {
				text = raw[col]
			}
			axis, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return nil, err
			}
			v, err := cellValue(f, sheet, axis, text)
			if err != nil {
				return nil, err
			}
			rec.MustSet(columns[col], v)
		}
		t.Records = append(t.Records, rec)
	}
	return t, nil
}

func cellValue(f *excelize.File, sheet, axis, text string) (table.Value, error) {
	typ, err := f.GetCellType(sheet, axis)
	if err != nil {
		return table.Value{}, fmt.Errorf("%w: %v", ErrInvalidWorkbook, err)
	}

	if text == "" {
		// A string cell holding "" is kept apart from a missing cell.
		if typ == excelize.CellTypeSharedString || typ == excelize.CellTypeInlineString {
			return table.String(""), nil
		}
		return table.Null(), nil
	}

	switch typ {
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeFormula, excelize.CellTypeBool, excelize.CellTypeError:
		return table.String(text), nil
	}

	n, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return table.String(text), nil
	}
	return table.Number(n), nil
}
