package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/benchmark-cli/internal/model"
)

func TestFormatBenchmarks(t *testing.T) {
	now := time.Date(2026, 1, 20, 14, 0, 0, 0, time.UTC)

	var buf bytes.Buffer
	formatBenchmarks(&buf, []model.Benchmark{
		{ID: 1, Name: "Pumps NL", Client: "Acme", Year: 2025, Strategy: &model.Strategy{Name: "Industrial pumps"}, CreatedAt: now},
		{ID: 2, Name: "Logistics DE", CreatedAt: now},
	})

	output := buf.String()
	assert.Contains(t, output, "STRATEGY")
	assert.Contains(t, output, "Pumps NL")
	assert.Contains(t, output, "2025")
	assert.Contains(t, output, "Industrial pumps")
	assert.Regexp(t, `2\s+Logistics DE\s+-\s+-`, output)
	assert.Contains(t, output, "2026-01-20 14:00")
}

func TestImportMapping(t *testing.T) {
	importColumns = nil
	assert.Nil(t, importMapping())

	importColumns = map[string]string{"name": "Company", "country": "Country"}
	importSheet = "Sheet1"
	importHeaderRow = 2
	t.Cleanup(func() { importColumns, importSheet, importHeaderRow = nil, "", 1 })

	m := importMapping()
	assert.Equal(t, &model.MappingSettings{
		SheetName: "Sheet1",
		HeaderRow: 2,
		Columns:   map[string]string{"name": "Company", "country": "Country"},
	}, m)
}
