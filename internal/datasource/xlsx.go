package datasource

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"
)

// DefaultSheets maps entities onto the worksheets of an exported workbook.
var DefaultSheets = DefaultTabs

// XLSXSource reads an Excel export of the EDP spreadsheet.
type XLSXSource struct {
	open   func() (*excelize.File, error)
	sheets map[Entity]string
}

// NewXLSXSource opens the workbook at path on every fetch.
func NewXLSXSource(path string, sheets map[Entity]string) *XLSXSource {
	return &XLSXSource{
		open:   func() (*excelize.File, error) { return excelize.OpenFile(path) },
		sheets: sheetsOrDefault(sheets),
	}
}

// NewXLSXSourceFromReader buffers the workbook in memory.
func NewXLSXSourceFromReader(r io.Reader, sheets map[Entity]string) (*XLSXSource, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("datasource: xlsx: read: %w", err)
	}
	return &XLSXSource{
		open:   func() (*excelize.File, error) { return excelize.OpenReader(bytes.NewReader(data)) },
		sheets: sheetsOrDefault(sheets),
	}, nil
}

func sheetsOrDefault(sheets map[Entity]string) map[Entity]string {
	if len(sheets) == 0 {
		return DefaultSheets
	}
	return sheets
}

// FetchRecords implements Source. Numeric cells are returned as float64 and
// text cells as strings, so "0012" stays "0012".
func (s *XLSXSource) FetchRecords(ctx context.Context, entity Entity) ([]map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sheet, ok := s.sheets[entity]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, entity)
	}
	f, err := s.open()
	if err != nil {
		return nil, unavailable("xlsx open", entity, err)
	}
	defer func() { _ = f.Close() }()

	raw, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, unavailable("xlsx rows", entity, err)
	}
	grid := make([][]any, len(raw))
	for r, cells := range raw {
		grid[r] = make([]any, len(cells))
		for c, value := range cells {
			grid[r][c] = typedCell(f, sheet, c, r, value)
		}
	}
	return rowsFromGrid(grid), nil
}

func typedCell(f *excelize.File, sheet string, col, row int, value string) any {
	if value == "" {
		return nil
	}
	axis, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return value
	}
	kind, err := f.GetCellType(sheet, axis)
	if err != nil {
		return value
	}
	switch kind {
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeFormula, excelize.CellTypeError:
		return value
	case excelize.CellTypeBool:
		return value == "1" || value == "TRUE" || value == "true"
	default:
		if n, err := strconv.ParseFloat(value, 64); err == nil {
			return n
		}
		return value
	}
}
