package export

import (
	"errors"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/pagora/pagora-edp/internal/analytics"
)

// ErrUnknownTable is returned for table names Tables does not produce.
var ErrUnknownTable = errors.New("unknown table")

// WriteWorkbook writes every table of set as a worksheet, summary first.
func WriteWorkbook(w io.Writer, set analytics.KPISet) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("export: xlsx style: %w", err)
	}
	moneyFmt := "#,##0"
	money, err := f.NewStyle(&excelize.Style{CustomNumFmt: &moneyFmt})
	if err != nil {
		return fmt.Errorf("export: xlsx style: %w", err)
	}

	for i, t := range Tables(set) {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", t.Name); err != nil {
				return fmt.Errorf("export: xlsx rename: %w", err)
			}
		} else if _, err := f.NewSheet(t.Name); err != nil {
			return fmt.Errorf("export: xlsx sheet %s: %w", t.Name, err)
		}
		if err := writeSheet(f, t, header, money); err != nil {
			return err
		}
	}
	f.SetActiveSheet(0)
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("export: xlsx write: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, t Table, headerStyle, moneyStyle int) error {
	header := make([]any, len(t.Header))
	for i, h := range t.Header {
		header[i] = h
	}
	if err := f.SetSheetRow(t.Name, "A1", &header); err != nil {
		return fmt.Errorf("export: xlsx header %s: %w", t.Name, err)
	}
	if len(t.Header) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(t.Header), 1)
		if err := f.SetCellStyle(t.Name, "A1", last, headerStyle); err != nil {
			return fmt.Errorf("export: xlsx header style: %w", err)
		}
	}
	for r, row := range t.Rows {
		cells := make([]any, len(row))
		for c, v := range row {
			cells[c] = v
			if d, ok := v.(decimal.Decimal); ok {
				cells[c] = d.InexactFloat64()
				cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
				if err := f.SetCellStyle(t.Name, cell, cell, moneyStyle); err != nil {
					return fmt.Errorf("export: xlsx money style: %w", err)
				}
			}
		}
		cell, _ := excelize.CoordinatesToCellName(1, r+2)
		if err := f.SetSheetRow(t.Name, cell, &cells); err != nil {
			return fmt.Errorf("export: xlsx row %s: %w", t.Name, err)
		}
	}
	return nil
}
