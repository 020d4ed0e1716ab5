package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/dqi-engine/internal/engine"
	"github.com/sells-group/dqi-engine/internal/model"
	"github.com/sells-group/dqi-engine/internal/pillar"
)

func sampleResults() []engine.BatchResult {
	good := &model.DQIAnalysis{
		PropertyID:   "la-1",
		PropertyName: "Wilshire Tower",
		OverallScore: 74,
		Rating:       model.RatingFair,
		Band:         "70-79",
		Metrics: []model.Metric{
			{Name: pillar.NameLeverage, Score: 80, Weight: 20},
			{Name: pillar.NameMarket, Score: 75, Weight: 15},
		},
		Safeguards:      model.Safeguards{HardFails: []string{}, Warnings: []string{"Missing square footage"}},
		Governance:      model.Governance{ConfidenceLevel: model.ConfidenceHigh, PeerRank: "top 40%", BenchmarkScore: 71, BenchmarkDelta: 3},
		NarrativeSource: model.NarrativeTemplate,
	}
	distressed := &model.DQIAnalysis{
		PropertyID:   "dx-2",
		PropertyName: "Distressed Plaza",
		OverallScore: 59,
		Rating:       model.RatingPoor,
		Band:         "50-59",
		Safeguards:   model.Safeguards{HardFails: []string{"Leverage & Coverage: DSCR 0.62x below 1.0x"}, Warnings: []string{}},
		Governance:   model.Governance{ConfidenceLevel: model.ConfidenceLow, PeerRank: "bottom 25%", BenchmarkDelta: -12},
	}
	return []engine.BatchResult{
		{Index: 0, PropertyID: "la-1", Analysis: good},
		{Index: 1, PropertyID: "dx-2", Analysis: distressed},
		{Index: 2, PropertyID: "bad-3", Err: errors.New("missing required field: propertyValue")},
	}
}

func TestParseFormat(t *testing.T) {
	for _, s := range []string{"csv", "JSON", " xlsx ", "table"} {
		_, err := ParseFormat(s)
		assert.NoError(t, err, s)
	}
	_, err := ParseFormat("pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unsupported format "pdf"`)
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleResults()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)

	header := records[0]
	assert.Equal(t, Columns(), header)
	for _, rec := range records {
		assert.Len(t, rec, len(header))
	}

	col := func(name string) int {
		for i, h := range header {
			if h == name {
				return i
			}
		}
		t.Fatalf("column %q not found", name)
		return -1
	}

	la := records[1]
	assert.Equal(t, "1", la[col("Row")])
	assert.Equal(t, "74", la[col("Overall Score")])
	assert.Equal(t, "Fair", la[col("Rating")])
	assert.Equal(t, "+3", la[col("Benchmark Delta")])
	assert.Equal(t, "80", la[col(pillar.NameLeverage)])
	assert.Equal(t, "", la[col(pillar.NameSponsor)])
	assert.Equal(t, "Missing square footage", la[col("Warnings")])

	dx := records[2]
	assert.Equal(t, "-12", dx[col("Benchmark Delta")])
	assert.Contains(t, dx[col("Hard Fails")], "DSCR")

	bad := records[3]
	assert.Equal(t, "bad-3", bad[col("Property ID")])
	assert.Equal(t, "", bad[col("Overall Score")])
	assert.Contains(t, bad[col("Error")], "propertyValue")
}

func TestWriteJSON(t *testing.T) {
	results := sampleResults()
	summary := engine.Summarize(results)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatJSON, results, summary))

	var doc struct {
		Summary engine.BatchSummary `json:"summary"`
		Results []struct {
			Row      int                `json:"row"`
			Analysis *model.DQIAnalysis `json:"analysis"`
			Error    string             `json:"error"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))

	assert.Equal(t, 3, doc.Summary.Total)
	assert.Equal(t, 2, doc.Summary.Scored)
	assert.Equal(t, 1, doc.Summary.HardFailed)
	require.Len(t, doc.Results, 3)
	require.NotNil(t, doc.Results[0].Analysis)
	assert.Equal(t, 74, doc.Results[0].Analysis.OverallScore)
	assert.Nil(t, doc.Results[2].Analysis)
	assert.Contains(t, doc.Results[2].Error, "propertyValue")
}

func TestWriteXLSX(t *testing.T) {
	results := sampleResults()

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatXLSX, results, engine.Summarize(results)))

	f, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)

	sheet, ok := f.Sheet[SheetResults]
	require.True(t, ok)
	require.Len(t, sheet.Rows, 4)
	assert.Equal(t, "Property ID", sheet.Rows[0].Cells[1].String())
	assert.Equal(t, "Wilshire Tower", sheet.Rows[1].Cells[2].String())

	sum, ok := f.Sheet[SheetSummary]
	require.True(t, ok)
	assert.Equal(t, "Total", sum.Rows[0].Cells[0].String())
	assert.Equal(t, "3", sum.Rows[0].Cells[1].String())
}

func TestWriteTable(t *testing.T) {
	results := sampleResults()

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatTable, results, engine.Summarize(results)))

	out := buf.String()
	assert.Contains(t, out, "Wilshire Tower")
	assert.Contains(t, out, "hard fail: Leverage & Coverage")
	assert.Contains(t, out, "ERROR")
	assert.Contains(t, out, "Total: 3  Scored: 2  Failed: 1  Hard failed: 1  Average: 66.5")
}

func TestWrite_UnknownFormat(t *testing.T) {
	err := Write(&bytes.Buffer{}, Format("pdf"), nil, engine.BatchSummary{})
	require.Error(t, err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}
