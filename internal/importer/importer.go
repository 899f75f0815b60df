// Package importer turns an uploaded company spreadsheet into company rows
// using an explicit column mapping.
package importer

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/benchmark-cli/internal/model"
)

// Result is the outcome of mapping a spreadsheet.
type Result struct {
	Companies []model.Company `json:"companies"`
	Headers   []string        `json:"headers"`
	Skipped   int             `json:"skipped"`
}

// Load reads the file at path (.xlsx or .csv) and maps it with m.
func Load(path string, m model.MappingSettings) (*Result, error) {
	rows, err := ReadRows(path, m.SheetName)
	if err != nil {
		return nil, err
	}
	return Map(rows, m)
}

// ReadRows reads the raw cells of path, choosing the reader by extension.
func ReadRows(path, sheetName string) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return ReadXLSX(path, sheetName)
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrap(err, "importer: open csv")
		}
		defer f.Close() //nolint:errcheck
		return ReadCSV(f)
	default:
		return nil, eris.Errorf("importer: unsupported file type %q", filepath.Ext(path))
	}
}

// Headers returns the trimmed cells of the 1-based header row.
func Headers(rows [][]string, headerRow int) ([]string, error) {
	idx := headerIndex(headerRow)
	if idx >= len(rows) {
		return nil, eris.Errorf("importer: header row %d is past the end of the sheet (%d rows)", idx+1, len(rows))
	}
	headers := make([]string, len(rows[idx]))
	for i, h := range rows[idx] {
		headers[i] = cleanCell(h)
	}
	return headers, nil
}

// Map converts raw rows into companies. HeaderRow is 1-based and defaults to
// the first row; every row after it is data. Columns maps a company field to
// the header naming its column. Header matching ignores case and surrounding
// whitespace. Rows whose mapped cells are all blank are skipped.
func Map(rows [][]string, m model.MappingSettings) (*Result, error) {
	if len(m.Columns) == 0 {
		return nil, eris.New("importer: mapping has no columns")
	}
	for name := range m.Columns {
		f, ok := model.LookupCompanyField(name)
		if !ok || !f.Editable {
			return nil, eris.Errorf("importer: %q is not an importable company field", name)
		}
	}

	headers, err := Headers(rows, m.HeaderRow)
	if err != nil {
		return nil, err
	}
	byHeader := make(map[string]int, len(headers))
	for i, h := range headers {
		key := strings.ToLower(h)
		if _, dup := byHeader[key]; !dup && key != "" {
			byHeader[key] = i
		}
	}

	type binding struct {
		field string
		col   int
	}
	bindings := make([]binding, 0, len(m.Columns))
	for _, name := range model.CompanyFieldNames() {
		header, ok := m.Columns[name]
		if !ok || strings.TrimSpace(header) == "" {
			continue
		}
		col, found := byHeader[strings.ToLower(cleanCell(header))]
		if !found {
			return nil, eris.Errorf("importer: column %q for field %s not found in header row", header, name)
		}
		bindings = append(bindings, binding{field: name, col: col})
	}

	res := &Result{Headers: headers}
	for _, row := range rows[headerIndex(m.HeaderRow)+1:] {
		var c model.Company
		blank := true
		for _, b := range bindings {
			if b.col >= len(row) {
				continue
			}
			v := model.NullIfBlank(cleanCell(row[b.col]))
			if v == nil {
				continue
			}
			blank = false
			if err := model.SetCompanyField(&c, b.field, v); err != nil {
				return nil, err
			}
		}
		if blank {
			res.Skipped++
			continue
		}
		res.Companies = append(res.Companies, c)
	}
	return res, nil
}

func headerIndex(headerRow int) int {
	if headerRow < 1 {
		return 0
	}
	return headerRow - 1
}

func cleanCell(s string) string {
	return strings.TrimSpace(strings.TrimPrefix(s, "\ufeff"))
}
