package action

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/benchmark-cli/internal/changeset"
	"github.com/sells-group/benchmark-cli/internal/model"
)

// BenchmarkInput is the editable part of a benchmark.
type BenchmarkInput struct {
	Name   string `json:"name" validate:"required,max=200"`
	Client string `json:"client" validate:"max=200"`
	Year   int    `json:"year" validate:"omitempty,min=1900,max=2200"`
}

func (in *BenchmarkInput) trim() {
	in.Name = strings.TrimSpace(in.Name)
	in.Client = strings.TrimSpace(in.Client)
}

// CreateBenchmark stores a new, empty benchmark.
func (s *Service) CreateBenchmark(ctx context.Context, in BenchmarkInput) Result[*model.Benchmark] {
	in.trim()
	if msg, valid := s.check(in); !valid {
		return fail[*model.Benchmark](msg)
	}

	b := &model.Benchmark{Name: in.Name, Client: in.Client, Year: in.Year}
	if err := s.store.CreateBenchmark(ctx, b); err != nil {
		return fail[*model.Benchmark](s.failure(serviceDatabase, "create the benchmark", err))
	}
	zap.L().Info("action: benchmark created", zap.Int64("benchmark_id", b.ID), zap.String("name", b.Name))
	return ok(b)
}

// GetBenchmark returns one benchmark.
func (s *Service) GetBenchmark(ctx context.Context, id int64) Result[*model.Benchmark] {
	b, msg := s.loadBenchmark(ctx, id)
	if msg != "" {
		return fail[*model.Benchmark](msg)
	}
	return ok(b)
}

// ListBenchmarks returns every benchmark, newest first.
func (s *Service) ListBenchmarks(ctx context.Context) Result[[]model.Benchmark] {
	list, err := s.store.ListBenchmarks(ctx)
	if err != nil {
		return fail[[]model.Benchmark](s.failure(serviceDatabase, "list benchmarks", err))
	}
	if list == nil {
		list = []model.Benchmark{}
	}
	return ok(list)
}

// benchmarkChanges diffs two versions of a benchmark column by column.
func benchmarkChanges(stored, next *model.Benchmark) changeset.Changes {
	changes := changeset.Changes{}
	before, after := stored.ColumnValues(), next.ColumnValues()
	for _, col := range model.BenchmarkColumns {
		changes.Record(col, before[col], after[col])
	}
	return changes
}

// saveBenchmark writes the columns of next that differ from stored. Nothing
// is written when they match.
func (s *Service) saveBenchmark(ctx context.Context, stored, next *model.Benchmark) error {
	changes := benchmarkChanges(stored, next)
	if !changes.Dirty() {
		next.UpdatedAt = stored.UpdatedAt
		return nil
	}
	if err := s.store.UpdateBenchmarkFields(ctx, next, changes.Fields()); err != nil {
		return err
	}
	zap.L().Debug("action: benchmark saved",
		zap.Int64("benchmark_id", next.ID),
		zap.Strings("fields", changes.Fields()),
	)
	return nil
}

// UpdateBenchmark saves the editable fields of a benchmark that changed.
func (s *Service) UpdateBenchmark(ctx context.Context, id int64, in BenchmarkInput) Result[*model.Benchmark] {
	in.trim()
	if msg, valid := s.check(in); !valid {
		return fail[*model.Benchmark](msg)
	}
	stored, msg := s.loadBenchmark(ctx, id)
	if msg != "" {
		return fail[*model.Benchmark](msg)
	}

	b := *stored
	b.Name, b.Client, b.Year = in.Name, in.Client, in.Year
	if err := s.saveBenchmark(ctx, stored, &b); err != nil {
		return fail[*model.Benchmark](s.failure(serviceDatabase, "update the benchmark", err, zap.Int64("benchmark_id", id)))
	}
	return ok(&b)
}

// DeleteBenchmark removes a benchmark and its companies.
func (s *Service) DeleteBenchmark(ctx context.Context, id int64) Result[bool] {
	if err := s.store.DeleteBenchmark(ctx, id); err != nil {
		return fail[bool](s.failure(serviceDatabase, "delete the benchmark", err, zap.Int64("benchmark_id", id)))
	}
	return ok(true)
}

// AttachStrategy copies a saved strategy onto the benchmark. Later edits to
// the strategy do not change benchmarks it was attached to.
func (s *Service) AttachStrategy(ctx context.Context, benchmarkID, strategyID int64) Result[*model.Benchmark] {
	stored, msg := s.loadBenchmark(ctx, benchmarkID)
	if msg != "" {
		return fail[*model.Benchmark](msg)
	}
	st, err := s.store.GetStrategy(ctx, strategyID)
	if err != nil {
		return fail[*model.Benchmark](s.failure(serviceDatabase, "load the strategy", err, zap.Int64("strategy_id", strategyID)))
	}
	if st == nil {
		return fail[*model.Benchmark]("Strategy not found.")
	}

	b := *stored
	b.Strategy = st
	if err := s.saveBenchmark(ctx, stored, &b); err != nil {
		return fail[*model.Benchmark](s.failure(serviceDatabase, "attach the strategy", err, zap.Int64("benchmark_id", benchmarkID)))
	}
	zap.L().Info("action: strategy attached",
		zap.Int64("benchmark_id", benchmarkID),
		zap.Int64("strategy_id", strategyID),
	)
	return ok(&b)
}

// SaveMappingSettings stores the spreadsheet column mapping of a benchmark.
func (s *Service) SaveMappingSettings(ctx context.Context, benchmarkID int64, m model.MappingSettings) Result[*model.Benchmark] {
	if msg, valid := s.check(m); !valid {
		return fail[*model.Benchmark](msg)
	}
	for field := range m.Columns {
		if f, known := model.LookupCompanyField(field); !known || !f.Editable {
			return failf[*model.Benchmark]("%q is not a company field that can be imported.", field)
		}
	}
	stored, msg := s.loadBenchmark(ctx, benchmarkID)
	if msg != "" {
		return fail[*model.Benchmark](msg)
	}

	if m.SourceFile == nil && stored.MappingSettings != nil {
		m.SourceFile = stored.MappingSettings.SourceFile
	}
	b := *stored
	b.MappingSettings = &m
	if err := s.saveBenchmark(ctx, stored, &b); err != nil {
		return fail[*model.Benchmark](s.failure(serviceDatabase, "save the mapping settings", err, zap.Int64("benchmark_id", benchmarkID)))
	}
	return ok(&b)
}
