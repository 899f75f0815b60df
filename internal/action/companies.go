package action

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/benchmark-cli/internal/category"
	"github.com/sells-group/benchmark-cli/internal/model"
)

// CompanyView is a company with its derived categories and analysis record.
type CompanyView struct {
	model.Company
	Searched   *model.SearchedCompany `json:"searched,omitempty"`
	Categories category.Values        `json:"categories"`
}

func (s *Service) view(b *model.Benchmark, c model.Company, sc *model.SearchedCompany) CompanyView {
	return CompanyView{
		Company:  c,
		Searched: sc,
		Categories: category.Categorize(category.Input{
			Company:  &c,
			Searched: sc,
			Settings: s.Settings(b),
		}),
	}
}

// benchmarkCompanies loads the companies of a benchmark with their analysis
// records.
func (s *Service) benchmarkCompanies(ctx context.Context, b *model.Benchmark) ([]model.Company, map[string]*model.SearchedCompany, error) {
	companies, err := s.store.ListCompanies(ctx, b.ID)
	if err != nil {
		return nil, nil, err
	}
	searched, err := s.searchedFor(ctx, companies)
	if err != nil {
		return nil, nil, err
	}
	return companies, searched, nil
}

// ListCompanies returns the companies of a benchmark with their categories.
func (s *Service) ListCompanies(ctx context.Context, benchmarkID int64) Result[[]CompanyView] {
	b, msg := s.loadBenchmark(ctx, benchmarkID)
	if msg != "" {
		return fail[[]CompanyView](msg)
	}
	companies, searched, err := s.benchmarkCompanies(ctx, b)
	if err != nil {
		return fail[[]CompanyView](s.failure(serviceDatabase, "list companies", err, zap.Int64("benchmark_id", benchmarkID)))
	}

	out := make([]CompanyView, len(companies))
	for i, c := range companies {
		out[i] = s.view(b, c, searched[model.Str(c.SearchID)])
	}
	return ok(out)
}

// CompanyInput holds the editable text fields of a company, keyed by field
// name. A nil value clears the field.
type CompanyInput map[string]*string

// CreateCompany adds a company to a benchmark.
func (s *Service) CreateCompany(ctx context.Context, benchmarkID int64, in CompanyInput) Result[*CompanyView] {
	b, msg := s.loadBenchmark(ctx, benchmarkID)
	if msg != "" {
		return fail[*CompanyView](msg)
	}

	c := model.Company{BenchmarkID: benchmarkID}
	if _, err := model.ApplyCompanyPatch(&c, in); err != nil {
		return fail[*CompanyView](ResolveMessage(err))
	}
	if err := s.store.CreateCompany(ctx, &c); err != nil {
		return fail[*CompanyView](s.failure(serviceDatabase, "create the company", err, zap.Int64("benchmark_id", benchmarkID)))
	}
	v := s.view(b, c, nil)
	return ok(&v)
}

// UpdateCompany writes the changed fields of patch. Fields equal to the
// stored value are not written.
func (s *Service) UpdateCompany(ctx context.Context, id int64, patch CompanyInput) Result[*CompanyView] {
	c, msg := s.loadCompany(ctx, id)
	if msg != "" {
		return fail[*CompanyView](msg)
	}
	changed, err := model.ApplyCompanyPatch(c, patch)
	if err != nil {
		return fail[*CompanyView](ResolveMessage(err))
	}

	if len(changed) > 0 {
		fields := make(map[string]any, len(changed))
		for _, name := range changed {
			v, _ := model.GetCompanyField(c, name)
			fields[name] = v
		}
		if err := s.store.UpdateCompanyFields(ctx, id, fields); err != nil {
			return fail[*CompanyView](s.failure(serviceDatabase, "save the company", err, zap.Int64("company_id", id)))
		}
	}
	return s.companyView(ctx, c)
}

// DeleteCompanies removes companies and reports how many were deleted.
func (s *Service) DeleteCompanies(ctx context.Context, ids []int64) Result[int64] {
	if len(ids) == 0 {
		return fail[int64]("Select at least one company.")
	}
	n, err := s.store.DeleteCompanies(ctx, ids)
	if err != nil {
		return fail[int64](s.failure(serviceDatabase, "delete companies", err, zap.Int("count", len(ids))))
	}
	return ok(n)
}

// companyView reloads the benchmark and analysis record for one company.
func (s *Service) companyView(ctx context.Context, c *model.Company) Result[*CompanyView] {
	b, msg := s.loadBenchmark(ctx, c.BenchmarkID)
	if msg != "" {
		return fail[*CompanyView](msg)
	}
	searched, err := s.searchedFor(ctx, []model.Company{*c})
	if err != nil {
		return fail[*CompanyView](s.failure(serviceDatabase, "load analysis results", err, zap.Int64("company_id", c.ID)))
	}
	v := s.view(b, *c, searched[model.Str(c.SearchID)])
	return ok(&v)
}
