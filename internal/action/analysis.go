package action

import (
	"context"
	"fmt"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/benchmark-cli/internal/category"
	"github.com/sells-group/benchmark-cli/internal/model"
	"github.com/sells-group/benchmark-cli/pkg/analysis"
)

var errNoSearchHandle = eris.New("analysis: backend returned no search handle")

// Skipped explains why a selected company was not submitted.
type Skipped struct {
	CompanyID int64  `json:"company_id"`
	Reason    string `json:"reason"`
}

// StartSummary reports the outcome of a batch start.
type StartSummary struct {
	Started []int64   `json:"started"`
	Skipped []Skipped `json:"skipped"`
	Failed  []int64   `json:"failed"`
}

// summaryMessage describes a partially failed batch start, or returns ""
// when every submitted company went through.
func (s *Service) summaryMessage(sum *StartSummary, what, action string, err error) string {
	if len(sum.Failed) == 0 {
		return ""
	}
	total := len(sum.Started) + len(sum.Failed)
	return fmt.Sprintf("%s started for %d of %d companies. %s", what, len(sum.Started), total,
		s.failure(serviceAnalysis, action, err, zap.Int("failed", len(sum.Failed))))
}

var webSearchSkipReasons = map[category.Key]string{
	category.KeyNotReady:            "name, country and website are required",
	category.KeyFrontendInitialized: "web search is already starting",
	category.KeyInQueue:             "web search is already queued",
	category.KeyInProgress:          "web search is already running",
	category.KeyCompleted:           "web search is already completed",
	category.KeyRejected:            "rejected during web search",
}

var analysisSkipReasons = map[category.Key]string{
	category.KeyNotReady:   "web search has not completed",
	category.KeyInQueue:    "analysis is already queued",
	category.KeyInProgress: "analysis is already running",
	category.KeyAccepted:   "analysis is already completed",
	category.KeyRejected:   "analysis is already completed",
}

// gate decides whether a company may be submitted, returning the skip reason
// when it may not.
type gate func(in category.Input) (reason string, eligible bool)

func keyGate(d category.Dimension, allowed map[category.Key]bool, reasons map[category.Key]string) gate {
	return func(in category.Input) (string, bool) {
		key := category.Evaluate(d, in).Key
		if allowed[key] {
			return "", true
		}
		if reason, known := reasons[key]; known {
			return reason, false
		}
		return "not ready", false
	}
}

var webSearchGate = keyGate(category.DimWebSearch,
	map[category.Key]bool{category.KeyReady: true, category.KeyFailed: true}, webSearchSkipReasons)

var analysisKeyGate = keyGate(category.DimAcceptReject,
	map[category.Key]bool{category.KeyReady: true, category.KeyFailed: true, category.KeyError: true}, analysisSkipReasons)

// analysisGate only lets through companies whose web search completed.
// ACCEPT_REJECT mirrors a failed or rejected web search, so its FAILED key
// alone does not mean the analysis itself failed.
func analysisGate(in category.Input) (string, bool) {
	switch category.Evaluate(category.DimWebSearch, in).Key {
	case category.KeyCompleted:
		return analysisKeyGate(in)
	case category.KeyRejected:
		return "rejected during web search", false
	default:
		return "web search has not completed", false
	}
}

// selection resolves ids against the benchmark and keeps the companies the
// gate lets through.
func (s *Service) selection(ctx context.Context, b *model.Benchmark, ids []int64, allow gate) ([]model.Company, []Skipped, error) {
	companies, searched, err := s.benchmarkCompanies(ctx, b)
	if err != nil {
		return nil, nil, err
	}
	byID := make(map[int64]model.Company, len(companies))
	for _, c := range companies {
		byID[c.ID] = c
	}

	var eligible []model.Company
	skipped := []Skipped{}
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		c, found := byID[id]
		if !found {
			skipped = append(skipped, Skipped{CompanyID: id, Reason: "not part of this benchmark"})
			continue
		}
		in := category.Input{Company: &c, Searched: searched[model.Str(c.SearchID)], Settings: s.Settings(b)}
		if reason, eligible := allow(in); !eligible {
			skipped = append(skipped, Skipped{CompanyID: id, Reason: reason})
			continue
		}
		eligible = append(eligible, c)
	}
	return eligible, skipped, nil
}

func chunk[T any](items []T, size int) [][]T {
	var out [][]T
	for size < len(items) {
		items, out = items[size:], append(out, items[:size:size])
	}
	if len(items) > 0 {
		out = append(out, items)
	}
	return out
}

// StartWebSearch submits the selected companies for web search in batches.
// Companies that are not ready, or already searched, are skipped. A company
// whose previous search failed can be submitted again.
func (s *Service) StartWebSearch(ctx context.Context, benchmarkID int64, ids []int64) Result[*StartSummary] {
	if s.analysis == nil {
		return fail[*StartSummary]("The analysis service is not configured.")
	}
	if len(ids) == 0 {
		return fail[*StartSummary]("Select at least one company.")
	}
	b, msg := s.loadBenchmark(ctx, benchmarkID)
	if msg != "" {
		return fail[*StartSummary](msg)
	}

	eligible, skipped, err := s.selection(ctx, b, ids, webSearchGate)
	if err != nil {
		return fail[*StartSummary](s.failure(serviceDatabase, "load companies", err, zap.Int64("benchmark_id", benchmarkID)))
	}
	summary := &StartSummary{Started: []int64{}, Skipped: skipped, Failed: []int64{}}

	var (
		mu      sync.Mutex
		lastErr error
		g       errgroup.Group
	)
	g.SetLimit(s.opts.Concurrency)
	for _, batch := range chunk(eligible, s.opts.BatchSize) {
		g.Go(func() error {
			req := analysis.WebSearchRequest{Companies: make([]analysis.SearchCompany, len(batch))}
			for i, c := range batch {
				req.Companies[i] = analysis.SearchCompany{
					CompanyID: c.ID,
					Name:      model.Str(c.Name),
					Country:   model.Str(c.Country),
					URL:       category.NormalizeURL(model.Str(c.URL)),
					Street:    model.Str(c.Street),
					City:      model.Str(c.City),
					ZipCode:   model.Str(c.ZipCode),
					State:     model.Str(c.State),
				}
			}
			resp, err := callAnalysis(ctx, s, func(ctx context.Context, c analysis.Client) (*analysis.WebSearchResponse, error) {
				return c.StartWebSearch(ctx, req)
			})

			handles := map[int64]string{}
			if err == nil {
				for _, h := range resp.Searches {
					if h.SearchID != "" {
						handles[h.CompanyID] = h.SearchID
					}
				}
			}

			var started, failed []int64
			batchErr := err
			for _, c := range batch {
				searchID, found := handles[c.ID]
				if !found {
					failed = append(failed, c.ID)
					if batchErr == nil {
						batchErr = errNoSearchHandle
					}
					continue
				}
				if uerr := s.store.UpdateCompanyFields(ctx, c.ID, map[string]any{"search_id": searchID}); uerr != nil {
					zap.L().Error("action: save search id", zap.Int64("company_id", c.ID), zap.Error(uerr))
					failed = append(failed, c.ID)
					batchErr = uerr
					continue
				}
				started = append(started, c.ID)
			}

			mu.Lock()
			defer mu.Unlock()
			summary.Started = append(summary.Started, started...)
			summary.Failed = append(summary.Failed, failed...)
			if batchErr != nil {
				lastErr = batchErr
			}
			return nil
		})
	}
	_ = g.Wait()

	zap.L().Info("action: web search started",
		zap.Int64("benchmark_id", benchmarkID),
		zap.Int("started", len(summary.Started)),
		zap.Int("skipped", len(summary.Skipped)),
		zap.Int("failed", len(summary.Failed)),
	)
	if msg := s.summaryMessage(summary, "Web search", "start the web search", lastErr); msg != "" {
		return partial(summary, msg)
	}
	return ok(summary)
}

// StartComparabilityAnalysis submits companies whose web search completed
// for comparability analysis against the benchmark's strategy.
func (s *Service) StartComparabilityAnalysis(ctx context.Context, benchmarkID int64, ids []int64) Result[*StartSummary] {
	if s.analysis == nil {
		return fail[*StartSummary]("The analysis service is not configured.")
	}
	if len(ids) == 0 {
		return fail[*StartSummary]("Select at least one company.")
	}
	b, msg := s.loadBenchmark(ctx, benchmarkID)
	if msg != "" {
		return fail[*StartSummary](msg)
	}
	if b.Strategy == nil {
		return fail[*StartSummary]("Attach a strategy to the benchmark before starting the analysis.")
	}

	eligible, skipped, err := s.selection(ctx, b, ids, analysisGate)
	if err != nil {
		return fail[*StartSummary](s.failure(serviceDatabase, "load companies", err, zap.Int64("benchmark_id", benchmarkID)))
	}
	summary := &StartSummary{Started: []int64{}, Skipped: skipped, Failed: []int64{}}

	criteria := analysis.Criteria{
		IdealProducts:       b.Strategy.IdealProducts,
		RejectProducts:      b.Strategy.RejectProducts,
		IdealFunctions:      b.Strategy.IdealFunctions,
		RejectFunctions:     b.Strategy.RejectFunctions,
		RelaxedProducts:     b.Strategy.RelaxedProducts,
		RelaxedFunctions:    b.Strategy.RelaxedFunctions,
		IndependenceEnabled: b.Strategy.IndependenceEnabled,
	}

	var lastErr error
	for _, batch := range chunk(eligible, s.opts.BatchSize) {
		req := analysis.ComparabilityRequest{Criteria: criteria, Companies: make([]analysis.AnalysisTarget, len(batch))}
		for i, c := range batch {
			req.Companies[i] = analysis.AnalysisTarget{CompanyID: c.ID, SearchID: model.Str(c.SearchID)}
		}
		resp, err := callAnalysis(ctx, s, func(ctx context.Context, c analysis.Client) (*analysis.ComparabilityResponse, error) {
			return c.StartComparabilityAnalysis(ctx, req)
		})
		accepted := map[string]bool{}
		if err == nil {
			for _, h := range resp.Accepted {
				accepted[h.SearchID] = true
			}
		} else {
			lastErr = err
		}
		for _, c := range batch {
			if accepted[model.Str(c.SearchID)] {
				summary.Started = append(summary.Started, c.ID)
				continue
			}
			summary.Failed = append(summary.Failed, c.ID)
			if lastErr == nil {
				lastErr = eris.New("analysis: backend did not accept the company")
			}
		}
	}

	zap.L().Info("action: comparability analysis started",
		zap.Int64("benchmark_id", benchmarkID),
		zap.Int("started", len(summary.Started)),
		zap.Int("skipped", len(summary.Skipped)),
		zap.Int("failed", len(summary.Failed)),
	)
	if msg := s.summaryMessage(summary, "Analysis", "start the analysis", lastErr); msg != "" {
		return partial(summary, msg)
	}
	return ok(summary)
}

// ValidateWebsite asks the backend whether the company's website belongs to
// it and stores the verdict with a fingerprint of the inputs it was based on.
func (s *Service) ValidateWebsite(ctx context.Context, id int64) Result[*CompanyView] {
	if s.analysis == nil {
		return fail[*CompanyView]("The analysis service is not configured.")
	}
	c, msg := s.loadCompany(ctx, id)
	if msg != "" {
		return fail[*CompanyView](msg)
	}
	if category.Evaluate(category.DimInput, category.Input{Company: c}).Key != category.KeyCompleted {
		return fail[*CompanyView]("Enter a name, country and valid website before validating.")
	}

	name, country, url := model.Str(c.Name), model.Str(c.Country), model.Str(c.URL)
	resp, err := callAnalysis(ctx, s, func(ctx context.Context, ac analysis.Client) (*analysis.ValidateWebsiteResponse, error) {
		return ac.ValidateWebsite(ctx, analysis.ValidateWebsiteRequest{
			Name:    name,
			Country: country,
			URL:     category.NormalizeURL(url),
		})
	})
	if err != nil {
		return fail[*CompanyView](s.failure(serviceAnalysis, "validate the website", err, zap.Int64("company_id", id)))
	}

	c.URLValidationURL = model.NullIfBlank(resp.URL)
	c.URLValidationInput = model.Ptr(category.Fingerprint(name, country, url))
	c.URLValidationValid = model.Ptr(resp.Valid)
	if err := s.store.UpdateCompanyFields(ctx, id, map[string]any{
		"url_validation_url":          c.URLValidationURL,
		"url_validation_input":        c.URLValidationInput,
		model.URLValidationValidField: c.URLValidationValid,
	}); err != nil {
		return fail[*CompanyView](s.failure(serviceDatabase, "save the validation result", err, zap.Int64("company_id", id)))
	}
	return s.companyView(ctx, c)
}
