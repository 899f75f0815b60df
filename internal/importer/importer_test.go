package importer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/benchmark-cli/internal/model"
)

func createTestXLSX(t *testing.T, sheets map[string][][]string, order ...string) string {
	t.Helper()
	f := xlsx.NewFile()
	if len(order) == 0 {
		for name := range sheets {
			order = append(order, name)
		}
	}
	for _, name := range order {
		sheet, err := f.AddSheet(name)
		require.NoError(t, err)
		for _, rowData := range sheets[name] {
			row := sheet.AddRow()
			for _, cellData := range rowData {
				row.AddCell().SetString(cellData)
			}
		}
	}
	path := filepath.Join(t.TempDir(), "companies.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func defaultMapping() model.MappingSettings {
	return model.MappingSettings{
		HeaderRow: 1,
		Columns: map[string]string{
			"name":    "Company Name",
			"country": "Country",
			"url":     "Website",
		},
	}
}

func TestMap_Basic(t *testing.T) {
	rows := [][]string{
		{"Company Name", "Country", "Website", "Ignored"},
		{"  Acme BV ", "NL", "acme.nl", "x"},
		{"", " ", "", "only ignored column"},
		{"Globex", "US", "", ""},
	}
	res, err := Map(rows, defaultMapping())
	require.NoError(t, err)

	require.Len(t, res.Companies, 2)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, []string{"Company Name", "Country", "Website", "Ignored"}, res.Headers)

	assert.Equal(t, "Acme BV", model.Str(res.Companies[0].Name))
	assert.Equal(t, "acme.nl", model.Str(res.Companies[0].URL))
	assert.Nil(t, res.Companies[1].URL)
	assert.Zero(t, res.Companies[0].ID)
}

func TestMap_HeaderRowAndCaseInsensitiveMatch(t *testing.T) {
	rows := [][]string{
		{"Exported by tool"},
		{},
		{"company name", " COUNTRY ", "website"},
		{"Acme", "NL", "acme.nl"},
	}
	m := defaultMapping()
	m.HeaderRow = 3

	res, err := Map(rows, m)
	require.NoError(t, err)
	require.Len(t, res.Companies, 1)
	assert.Equal(t, "NL", model.Str(res.Companies[0].Country))
}

func TestMap_ShortRows(t *testing.T) {
	rows := [][]string{
		{"Company Name", "Country", "Website"},
		{"Acme"},
	}
	res, err := Map(rows, defaultMapping())
	require.NoError(t, err)
	require.Len(t, res.Companies, 1)
	assert.Nil(t, res.Companies[0].Country)
}

func TestMap_Errors(t *testing.T) {
	rows := [][]string{{"Company Name", "Country", "Website"}}

	tests := []struct {
		name    string
		mapping model.MappingSettings
		wantErr string
	}{
		{"no_columns", model.MappingSettings{}, "no columns"},
		{"unknown_field", model.MappingSettings{Columns: map[string]string{"revenue": "Revenue"}}, "not an importable"},
		{"read_only_field", model.MappingSettings{Columns: map[string]string{"search_id": "Country"}}, "not an importable"},
		{"missing_header", model.MappingSettings{Columns: map[string]string{"name": "Legal Name"}}, `column "Legal Name"`},
		{"header_past_end", model.MappingSettings{HeaderRow: 5, Columns: map[string]string{"name": "Company Name"}}, "past the end"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Map(rows, tt.mapping)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_XLSX(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Notes": {{"ignore me"}},
		"Companies": {
			{"Company Name", "Country", "Website"},
			{"Acme", "NL", "acme.nl"},
		},
	}, "Notes", "Companies")

	m := defaultMapping()
	m.SheetName = "Companies"
	res, err := Load(path, m)
	require.NoError(t, err)
	require.Len(t, res.Companies, 1)
	assert.Equal(t, "Acme", model.Str(res.Companies[0].Name))

	names, err := SheetNames(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Notes", "Companies"}, names)
}

func TestLoad_XLSXSheetNotFound(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{"Sheet1": {{"a"}}})
	m := defaultMapping()
	m.SheetName = "Missing"
	_, err := Load(path, m)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `sheet "Missing" not found`)
}

func TestLoad_CSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "companies.csv")
	content := "\ufeffCompany Name,Country,Website\n\"Acme, Inc\",US,acme.com\n,,\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	res, err := Load(path, defaultMapping())
	require.NoError(t, err)
	require.Len(t, res.Companies, 1)
	assert.Equal(t, "Acme, Inc", model.Str(res.Companies[0].Name))
	assert.Equal(t, 1, res.Skipped)
}

func TestReadRows_UnsupportedType(t *testing.T) {
	_, err := ReadRows("companies.pdf", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported file type")
}

func TestReadCSV_VariableWidth(t *testing.T) {
	rows, err := ReadCSV(strings.NewReader("a,b,c\n1\n2,3\n"))
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a", "b", "c"}, {"1"}, {"2", "3"}}, rows)
}
