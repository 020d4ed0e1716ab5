// Package ingest reads property payloads from CSV, JSON, JSON-lines and XLSX files.
package ingest

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/dqi-engine/internal/model"
)

// Format identifies an input file layout.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json" // array of objects or JSON lines
	FormatXLSX Format = "xlsx"
	FormatAuto Format = ""
)

// DetectFormat infers the format from a file extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".tsv":
		return FormatCSV, nil
	case ".json", ".jsonl", ".ndjson":
		return FormatJSON, nil
	case ".xlsx":
		return FormatXLSX, nil
	default:
		return "", eris.Errorf("ingest: cannot infer format of %q", path)
	}
}

// ReadFile loads every property in path. FormatAuto selects the format by extension.
func ReadFile(ctx context.Context, path string, format Format) ([]model.RawProperty, error) {
	if format == FormatAuto {
		var err error
		if format, err = DetectFormat(path); err != nil {
			return nil, err
		}
	}

	if format == FormatXLSX {
		return ReadXLSXProperties(ctx, path, XLSXOptions{})
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	opts := CSVOptions{}
	if strings.EqualFold(filepath.Ext(path), ".tsv") {
		opts.Delimiter = '\t'
	}
	return Read(ctx, f, format, opts)
}

// Read loads properties from r. XLSX needs random access and is only
// supported through ReadFile.
func Read(ctx context.Context, r io.Reader, format Format, csvOpts CSVOptions) ([]model.RawProperty, error) {
	switch format {
	case FormatCSV:
		return ReadCSVProperties(ctx, r, csvOpts)
	case FormatJSON:
		return ReadJSONProperties(ctx, r)
	default:
		return nil, eris.Errorf("ingest: unsupported reader format %q", format)
	}
}

// columns maps header positions to payload keys. Header cells are trimmed
// and a leading byte-order mark is dropped.
type columns []string

func newColumns(header []string) columns {
	keys := make(columns, len(header))
	for i, h := range header {
		keys[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}
	return keys
}

// record builds one payload from row. Blank cells are omitted so Normalize
// can fall through to the next alias. It returns nil for a blank row.
func (c columns) record(row []string) model.RawProperty {
	var raw model.RawProperty
	for i, cell := range row {
		if i >= len(c) || c[i] == "" {
			continue
		}
		if cell = strings.TrimSpace(cell); cell == "" {
			continue
		}
		if raw == nil {
			raw = model.RawProperty{}
		}
		raw[c[i]] = cell
	}
	return raw
}
