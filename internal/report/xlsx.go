package report

import (
	"fmt"
	"io"
	"slices"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/dqi-engine/internal/engine"
	"github.com/sells-group/dqi-engine/internal/model"
)

// Sheet names of the XLSX report.
const (
	SheetResults = "DQI Results"
	SheetSummary = "Summary"
)

// WriteXLSX writes a workbook with a results sheet and a summary sheet.
func WriteXLSX(w io.Writer, results []engine.BatchResult, summary engine.BatchSummary) error {
	f := xlsx.NewFile()

	sheet, err := f.AddSheet(SheetResults)
	if err != nil {
		return eris.Wrap(err, "report: add results sheet")
	}
	addStringRow(sheet, Columns())
	for _, r := range results {
		addStringRow(sheet, buildRow(r))
	}

	sum, err := f.AddSheet(SheetSummary)
	if err != nil {
		return eris.Wrap(err, "report: add summary sheet")
	}
	for _, kv := range summaryRows(summary) {
		addStringRow(sum, kv)
	}

	return eris.Wrap(f.Write(w), "report: write XLSX")
}

func addStringRow(sheet *xlsx.Sheet, values []string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

// ratingOrder lists ratings best first.
var ratingOrder = []model.Rating{
	model.RatingExcellent,
	model.RatingGood,
	model.RatingFair,
	model.RatingBelowAverage,
	model.RatingPoor,
}

func summaryRows(s engine.BatchSummary) [][]string {
	rows := [][]string{
		{"Total", fmt.Sprint(s.Total)},
		{"Scored", fmt.Sprint(s.Scored)},
		{"Failed", fmt.Sprint(s.Failed)},
		{"Hard Failed", fmt.Sprint(s.HardFailed)},
		{"Average Score", fmt.Sprintf("%.1f", s.AverageScore)},
	}
	for _, r := range ratingOrder {
		rows = append(rows, []string{string(r), fmt.Sprint(s.ByRating[r])})
	}
	for r, n := range s.ByRating {
		if !slices.Contains(ratingOrder, r) {
			rows = append(rows, []string{string(r), fmt.Sprint(n)})
		}
	}
	return rows
}
