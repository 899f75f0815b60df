package action

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/benchmark-cli/internal/category"
	"github.com/sells-group/benchmark-cli/internal/model"
	"github.com/sells-group/benchmark-cli/pkg/analysis"
)

// CreateStrategy stores a new strategy.
func (s *Service) CreateStrategy(ctx context.Context, st model.Strategy) Result[*model.Strategy] {
	st.Name = strings.TrimSpace(st.Name)
	if msg, valid := s.check(st); !valid {
		return fail[*model.Strategy](msg)
	}
	st.ID = 0
	if err := s.store.CreateStrategy(ctx, &st); err != nil {
		return fail[*model.Strategy](s.failure(serviceDatabase, "create the strategy", err))
	}
	return ok(&st)
}

// GetStrategy returns one strategy.
func (s *Service) GetStrategy(ctx context.Context, id int64) Result[*model.Strategy] {
	st, err := s.store.GetStrategy(ctx, id)
	if err != nil {
		return fail[*model.Strategy](s.failure(serviceDatabase, "load the strategy", err, zap.Int64("strategy_id", id)))
	}
	if st == nil {
		return fail[*model.Strategy]("Strategy not found.")
	}
	return ok(st)
}

// ListStrategies returns every saved strategy.
func (s *Service) ListStrategies(ctx context.Context) Result[[]model.Strategy] {
	list, err := s.store.ListStrategies(ctx)
	if err != nil {
		return fail[[]model.Strategy](s.failure(serviceDatabase, "list strategies", err))
	}
	if list == nil {
		list = []model.Strategy{}
	}
	return ok(list)
}

// UpdateStrategy replaces a strategy.
func (s *Service) UpdateStrategy(ctx context.Context, id int64, st model.Strategy) Result[*model.Strategy] {
	st.Name = strings.TrimSpace(st.Name)
	if msg, valid := s.check(st); !valid {
		return fail[*model.Strategy](msg)
	}
	st.ID = id
	if err := s.store.UpdateStrategy(ctx, &st); err != nil {
		return fail[*model.Strategy](s.failure(serviceDatabase, "update the strategy", err, zap.Int64("strategy_id", id)))
	}
	return ok(&st)
}

// DeleteStrategy removes a strategy. Benchmarks keep their attached copy.
func (s *Service) DeleteStrategy(ctx context.Context, id int64) Result[bool] {
	if err := s.store.DeleteStrategy(ctx, id); err != nil {
		return fail[bool](s.failure(serviceDatabase, "delete the strategy", err, zap.Int64("strategy_id", id)))
	}
	return ok(true)
}

// StrategyTestView is a strategy test with its current categories.
type StrategyTestView struct {
	model.StrategyTest
	Categories category.Values `json:"categories"`
}

// CreateStrategyTest saves a sample company for a strategy and schedules its
// web search right away. The test is kept even when the search could not be
// started, so the user can see what failed.
func (s *Service) CreateStrategyTest(ctx context.Context, strategyID int64, t model.StrategyTest) Result[*StrategyTestView] {
	t.CompanyName = strings.TrimSpace(t.CompanyName)
	t.Country = strings.TrimSpace(t.Country)
	t.URL = strings.TrimSpace(t.URL)
	if msg, valid := s.check(t); !valid {
		return fail[*StrategyTestView](msg)
	}
	if !category.IsValidURL(t.URL) {
		return fail[*StrategyTestView]("The website is not a valid URL.")
	}
	st := s.GetStrategy(ctx, strategyID)
	if !st.OK() {
		return fail[*StrategyTestView](*st.Error)
	}

	t.ID = 0
	t.StrategyID = strategyID
	t.SearchID = nil
	if err := s.store.CreateStrategyTest(ctx, &t); err != nil {
		return fail[*StrategyTestView](s.failure(serviceDatabase, "save the strategy test", err, zap.Int64("strategy_id", strategyID)))
	}

	view := &StrategyTestView{StrategyTest: t}
	if s.analysis == nil {
		view.Categories = s.categorizeTest(&t, nil, st.Data)
		return partial(view, "The analysis service is not configured.")
	}

	resp, err := callAnalysis(ctx, s, func(ctx context.Context, c analysis.Client) (*analysis.WebSearchResponse, error) {
		return c.StartWebSearch(ctx, analysis.WebSearchRequest{Companies: []analysis.SearchCompany{{
			CompanyID: t.ID,
			Name:      t.CompanyName,
			Country:   t.Country,
			URL:       category.NormalizeURL(t.URL),
		}}})
	})
	if err == nil && (len(resp.Searches) == 0 || resp.Searches[0].SearchID == "") {
		err = errNoSearchHandle
	}
	if err != nil {
		view.Categories = s.categorizeTest(&t, nil, st.Data)
		return partial(view, s.failure(serviceAnalysis, "start the web search", err, zap.Int64("strategy_test_id", t.ID)))
	}

	searchID := resp.Searches[0].SearchID
	if err := s.store.SetStrategyTestSearchID(ctx, t.ID, searchID); err != nil {
		return partial(view, s.failure(serviceDatabase, "save the search ID", err, zap.Int64("strategy_test_id", t.ID)))
	}
	view.SearchID = &searchID
	view.Categories = s.categorizeTest(&view.StrategyTest, nil, st.Data)
	return ok(view)
}

// ListStrategyTests returns the tests of a strategy with their categories.
func (s *Service) ListStrategyTests(ctx context.Context, strategyID int64) Result[[]StrategyTestView] {
	st := s.GetStrategy(ctx, strategyID)
	if !st.OK() {
		return fail[[]StrategyTestView](*st.Error)
	}
	tests, err := s.store.ListStrategyTests(ctx, strategyID)
	if err != nil {
		return fail[[]StrategyTestView](s.failure(serviceDatabase, "list strategy tests", err, zap.Int64("strategy_id", strategyID)))
	}

	var ids []string
	for _, t := range tests {
		if t.SearchID != nil {
			ids = append(ids, *t.SearchID)
		}
	}
	searched := map[string]*model.SearchedCompany{}
	if len(ids) > 0 {
		if searched, err = s.store.SearchedCompanies(ctx, ids); err != nil {
			return fail[[]StrategyTestView](s.failure(serviceDatabase, "load analysis results", err, zap.Int64("strategy_id", strategyID)))
		}
	}

	out := make([]StrategyTestView, len(tests))
	for i := range tests {
		out[i] = StrategyTestView{
			StrategyTest: tests[i],
			Categories:   s.categorizeTest(&tests[i], searched[model.Str(tests[i].SearchID)], st.Data),
		}
	}
	return ok(out)
}

// DeleteStrategyTest removes a strategy test.
func (s *Service) DeleteStrategyTest(ctx context.Context, id int64) Result[bool] {
	if err := s.store.DeleteStrategyTest(ctx, id); err != nil {
		return fail[bool](s.failure(serviceDatabase, "delete the strategy test", err, zap.Int64("strategy_test_id", id)))
	}
	return ok(true)
}

func (s *Service) categorizeTest(t *model.StrategyTest, sc *model.SearchedCompany, st *model.Strategy) category.Values {
	c := t.AsCompany()
	return category.Categorize(category.Input{
		Company:  &c,
		Searched: sc,
		Settings: category.Settings{
			IndependenceEnabled: st != nil && st.IndependenceEnabled,
			MinDescriptionWords: s.opts.MinDescriptionWords,
		},
	})
}
