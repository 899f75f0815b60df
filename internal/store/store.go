package store

import (
	"context"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/sells-group/benchmark-cli/internal/model"
)

// Store defines the persistence interface for benchmarks and their companies.
// Getters return (nil, nil) when the row does not exist; updates and deletes
// of missing rows return an error.
type Store interface {
	// Benchmarks
	CreateBenchmark(ctx context.Context, b *model.Benchmark) error
	GetBenchmark(ctx context.Context, id int64) (*model.Benchmark, error)
	ListBenchmarks(ctx context.Context) ([]model.Benchmark, error)
	UpdateBenchmark(ctx context.Context, b *model.Benchmark) error
	// UpdateBenchmarkFields writes only the named columns of b. No columns
	// means no write.
	UpdateBenchmarkFields(ctx context.Context, b *model.Benchmark, fields []string) error
	DeleteBenchmark(ctx context.Context, id int64) error

	// Strategies
	CreateStrategy(ctx context.Context, st *model.Strategy) error
	GetStrategy(ctx context.Context, id int64) (*model.Strategy, error)
	ListStrategies(ctx context.Context) ([]model.Strategy, error)
	UpdateStrategy(ctx context.Context, st *model.Strategy) error
	DeleteStrategy(ctx context.Context, id int64) error

	// Companies
	CreateCompany(ctx context.Context, c *model.Company) error
	GetCompany(ctx context.Context, id int64) (*model.Company, error)
	ListCompanies(ctx context.Context, benchmarkID int64) ([]model.Company, error)
	UpdateCompanyFields(ctx context.Context, id int64, fields map[string]any) error
	DeleteCompanies(ctx context.Context, ids []int64) (int64, error)
	ImportCompanies(ctx context.Context, benchmarkID int64, rows []model.Company) (int64, error)

	// Strategy tests
	CreateStrategyTest(ctx context.Context, t *model.StrategyTest) error
	ListStrategyTests(ctx context.Context, strategyID int64) ([]model.StrategyTest, error)
	SetStrategyTestSearchID(ctx context.Context, id int64, searchID string) error
	DeleteStrategyTest(ctx context.Context, id int64) error

	// Analysis results, written by the external services.
	SearchedCompanies(ctx context.Context, searchIDs []string) (map[string]*model.SearchedCompany, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

var (
	_ Store = (*PostgresStore)(nil)
	_ Store = (*SQLiteStore)(nil)
)

// companyTextColumns are the nullable text columns of companies, in
// registry order.
var companyTextColumns = model.CompanyFieldNames()

// companySelectColumns is the column list read back for every company.
var companySelectColumns = func() []string {
	cols := []string{"id", "benchmark_id"}
	cols = append(cols, companyTextColumns...)
	return append(cols, model.URLValidationValidField, "created_at", "updated_at")
}()

// companyDests returns scan targets matching companySelectColumns.
func companyDests(c *model.Company) []any {
	dests := []any{&c.ID, &c.BenchmarkID}
	for _, f := range model.CompanyFields() {
		dests = append(dests, f.Ref(c))
	}
	return append(dests, &c.URLValidationValid, &c.CreatedAt, &c.UpdatedAt)
}

// companyTextValues returns the text column values of c in registry order.
func companyTextValues(c *model.Company) []any {
	vals := make([]any, 0, len(companyTextColumns))
	for _, f := range model.CompanyFields() {
		vals = append(vals, *f.Ref(c))
	}
	return vals
}

// benchmarkPatch returns the named benchmark columns in write order with
// their values. JSON columns are passed through jsonArg.
func benchmarkPatch(b *model.Benchmark, fields []string, jsonArg func([]byte) any) ([]string, []any, error) {
	want := make(map[string]bool, len(fields))
	for _, f := range fields {
		if !model.IsBenchmarkColumn(f) {
			return nil, nil, eris.Errorf("store: unknown benchmark column %q", f)
		}
		want[f] = true
	}
	strategy, mapping, err := marshalBenchmarkJSON(b)
	if err != nil {
		return nil, nil, err
	}
	var cols []string
	var args []any
	for _, col := range model.BenchmarkColumns {
		if !want[col] {
			continue
		}
		cols = append(cols, col)
		switch col {
		case "name":
			args = append(args, b.Name)
		case "client":
			args = append(args, b.Client)
		case "year":
			args = append(args, b.Year)
		case "strategy":
			args = append(args, jsonArg(strategy))
		case "mapping_settings":
			args = append(args, jsonArg(mapping))
		}
	}
	return cols, args, nil
}

// patchColumns validates the keys of a field patch and returns them sorted so
// generated statements are deterministic.
func patchColumns(fields map[string]any) ([]string, error) {
	cols := make([]string, 0, len(fields))
	for name, v := range fields {
		if !model.IsCompanyColumn(name) {
			return nil, eris.Errorf("store: unknown company column %q", name)
		}
		valid := name == model.URLValidationValidField
		switch tv := v.(type) {
		case nil:
		case *string:
			if valid && tv != nil {
				return nil, eris.Errorf("store: column %q expects a bool", name)
			}
		case string:
			if valid {
				return nil, eris.Errorf("store: column %q expects a bool", name)
			}
		case *bool:
			if !valid && tv != nil {
				return nil, eris.Errorf("store: column %q expects a string", name)
			}
		case bool:
			if !valid {
				return nil, eris.Errorf("store: column %q expects a string", name)
			}
		default:
			return nil, eris.Errorf("store: unsupported value %T for column %q", v, name)
		}
		cols = append(cols, name)
	}
	sort.Strings(cols)
	return cols, nil
}
