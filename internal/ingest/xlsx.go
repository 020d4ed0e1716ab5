package ingest

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/dqi-engine/internal/model"
)

// XLSXOptions selects the sheet and header row of a workbook.
type XLSXOptions struct {
	SheetIndex int    // default 0
	SheetName  string // overrides SheetIndex
	// SkipRows drops leading rows before the header. When zero, rows above
	// the first row with at least two non-blank cells are treated as titles.
	SkipRows int
}

// ReadXLSXProperties reads one sheet of a broker workbook into payloads
// keyed by its header row.
func ReadXLSXProperties(ctx context.Context, path string, opts XLSXOptions) ([]model.RawProperty, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open file")
	}
	sheet, err := selectSheet(f, opts)
	if err != nil {
		return nil, err
	}

	props := []model.RawProperty{}
	var cols columns
	for i, row := range sheet.Rows {
		if i < opts.SkipRows || row == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "xlsx: context cancelled")
		}

		cells := cellStrings(row)
		if cols == nil {
			if opts.SkipRows == 0 && nonBlank(cells) < 2 {
				continue
			}
			cols = newColumns(cells)
			continue
		}
		if raw := cols.record(cells); raw != nil {
			props = append(props, raw)
		}
	}
	return props, nil
}

func selectSheet(f *xlsx.File, opts XLSXOptions) (*xlsx.Sheet, error) {
	if opts.SheetName != "" {
		sheet, ok := f.Sheet[opts.SheetName]
		if !ok {
			return nil, eris.Errorf("xlsx: sheet %q not found", opts.SheetName)
		}
		return sheet, nil
	}
	if opts.SheetIndex < 0 || opts.SheetIndex >= len(f.Sheets) {
		return nil, eris.Errorf("xlsx: sheet index %d out of range (file has %d sheets)", opts.SheetIndex, len(f.Sheets))
	}
	return f.Sheets[opts.SheetIndex], nil
}

func cellStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}

func nonBlank(cells []string) int {
	n := 0
	for _, c := range cells {
		if c != "" {
			n++
		}
	}
	return n
}
