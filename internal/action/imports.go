package action

import (
	"context"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/benchmark-cli/internal/importer"
	"github.com/sells-group/benchmark-cli/internal/model"
)

// ImportSummary reports the outcome of a spreadsheet import.
type ImportSummary struct {
	Imported   int64             `json:"imported"`
	Skipped    int               `json:"skipped"`
	SourceFile *model.SourceFile `json:"source_file"`
}

// ImportSpreadsheet appends the companies of the file at path to the
// benchmark and remembers the mapping and file reference for the next upload.
// When mapping is nil the benchmark's saved mapping is used.
func (s *Service) ImportSpreadsheet(ctx context.Context, benchmarkID int64, path string, mapping *model.MappingSettings) Result[*ImportSummary] {
	b, msg := s.loadBenchmark(ctx, benchmarkID)
	if msg != "" {
		return fail[*ImportSummary](msg)
	}
	if mapping == nil {
		if b.MappingSettings == nil {
			return fail[*ImportSummary]("Choose which columns to import first.")
		}
		mapping = b.MappingSettings
	}
	if msg, valid := s.check(mapping); !valid {
		return fail[*ImportSummary](msg)
	}

	res, err := importer.Load(path, *mapping)
	if err != nil {
		zap.L().Warn("action: read spreadsheet", zap.String("path", path), zap.Error(err))
		return fail[*ImportSummary](ResolveMessage(err))
	}
	if len(res.Companies) == 0 {
		return fail[*ImportSummary]("The file contains no companies.")
	}

	n, err := s.store.ImportCompanies(ctx, benchmarkID, res.Companies)
	if err != nil {
		return fail[*ImportSummary](s.failure(serviceDatabase, "import the companies", err, zap.Int64("benchmark_id", benchmarkID)))
	}

	saved := *mapping
	saved.SourceFile = &model.SourceFile{
		ID:         uuid.New(),
		Name:       filepath.Base(path),
		UploadedAt: s.now(),
	}
	next := *b
	next.MappingSettings = &saved
	summary := &ImportSummary{Imported: n, Skipped: res.Skipped, SourceFile: saved.SourceFile}
	if err := s.saveBenchmark(ctx, b, &next); err != nil {
		return partial(summary, s.failure(serviceDatabase, "save the mapping settings", err, zap.Int64("benchmark_id", benchmarkID)))
	}

	zap.L().Info("action: companies imported",
		zap.Int64("benchmark_id", benchmarkID),
		zap.String("file", saved.SourceFile.Name),
		zap.Int64("imported", n),
		zap.Int("skipped", res.Skipped),
	)
	return ok(summary)
}
