package model

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Benchmark is a named study that owns a set of companies and an optional
// strategy copy used to drive comparability analysis.
type Benchmark struct {
	ID              int64            `json:"id"`
	Name            string           `json:"name" validate:"required,max=200"`
	Client          string           `json:"client,omitempty" validate:"max=200"`
	Year            int              `json:"year,omitempty" validate:"omitempty,min=1900,max=2200"`
	Strategy        *Strategy        `json:"strategy,omitempty"`
	MappingSettings *MappingSettings `json:"mapping_settings,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// Writable benchmark columns, in the order they are written.
var BenchmarkColumns = []string{"name", "client", "year", "strategy", "mapping_settings"}

// IsBenchmarkColumn reports whether name is a writable benchmark column.
func IsBenchmarkColumn(name string) bool {
	for _, c := range BenchmarkColumns {
		if c == name {
			return true
		}
	}
	return false
}

// ColumnValues returns every writable column in its stored text form, so two
// benchmarks can be compared field by field. Year 0 and absent JSON are nil.
func (b *Benchmark) ColumnValues() map[string]*string {
	out := map[string]*string{
		"name":             Ptr(b.Name),
		"client":           Ptr(b.Client),
		"year":             nil,
		"strategy":         jsonText(b.Strategy),
		"mapping_settings": jsonText(b.MappingSettings),
	}
	if b.Year != 0 {
		out["year"] = Ptr(strconv.Itoa(b.Year))
	}
	return out
}

func jsonText[T any](v *T) *string {
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return Ptr(string(raw))
}

// IndependenceEnabled reports whether the attached strategy checks independence.
func (b *Benchmark) IndependenceEnabled() bool {
	return b != nil && b.Strategy != nil && b.Strategy.IndependenceEnabled
}

// MappingSettings records how an uploaded spreadsheet maps onto company fields.
type MappingSettings struct {
	SheetName  string            `json:"sheet_name,omitempty"`
	HeaderRow  int               `json:"header_row"`
	Columns    map[string]string `json:"columns" validate:"required,min=1"` // company field -> column header
	SourceFile *SourceFile       `json:"source_file,omitempty"`
}

// SourceFile references the spreadsheet a benchmark was imported from.
type SourceFile struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	UploadedAt time.Time `json:"uploaded_at"`
}
