package action

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/benchmark-cli/internal/category"
	"github.com/sells-group/benchmark-cli/internal/model"
	"github.com/sells-group/benchmark-cli/internal/resilience"
	"github.com/sells-group/benchmark-cli/pkg/analysis"
)

func requestFor(name string) any {
	return mock.MatchedBy(func(r analysis.WebSearchRequest) bool {
		return len(r.Companies) == 1 && r.Companies[0].Name == name
	})
}

func searchResponse(companyID int64, searchID string) *analysis.WebSearchResponse {
	return &analysis.WebSearchResponse{Searches: []analysis.SearchHandle{{CompanyID: companyID, SearchID: searchID, Status: "In Queue"}}}
}

func TestStartWebSearch_BatchesAndPartialFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.benchmark(t)
	acme := f.company(t, b.ID, "Acme", "NL", "acme.nl")
	globex := f.company(t, b.ID, "Globex", "US", "globex.com")
	incomplete := f.company(t, b.ID, "Initech", "", "")

	f.analysis.On("StartWebSearch", mock.Anything, requestFor("Acme")).
		Return(searchResponse(acme.ID, "s-acme"), nil).Once()
	f.analysis.On("StartWebSearch", mock.Anything, requestFor("Globex")).
		Return(nil, resilience.NewTransientError(errors.New("analysis: unexpected status 503"), 503)).Once()

	r := f.svc.StartWebSearch(ctx, b.ID, []int64{acme.ID, globex.ID, incomplete.ID, acme.ID, 999})
	require.NotNil(t, r.Data)
	require.NotNil(t, r.Error)
	assert.Contains(t, *r.Error, "Web search started for 1 of 2 companies.")
	assert.Contains(t, *r.Error, "did not respond")

	assert.Equal(t, []int64{acme.ID}, r.Data.Started)
	assert.Equal(t, []int64{globex.ID}, r.Data.Failed)
	assert.ElementsMatch(t, []Skipped{
		{CompanyID: incomplete.ID, Reason: "name, country and website are required"},
		{CompanyID: 999, Reason: "not part of this benchmark"},
	}, r.Data.Skipped)

	stored, err := f.st.GetCompany(ctx, acme.ID)
	require.NoError(t, err)
	assert.Equal(t, "s-acme", model.Str(stored.SearchID))
	f.analysis.AssertExpectations(t)

	// A queued company is not submitted twice.
	again := f.svc.StartWebSearch(ctx, b.ID, []int64{acme.ID})
	require.True(t, again.OK())
	assert.Empty(t, again.Data.Started)
	assert.Equal(t, "web search is already queued", again.Data.Skipped[0].Reason)
}

func TestStartWebSearch_MissingHandleFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.benchmark(t)
	acme := f.company(t, b.ID, "Acme", "NL", "acme.nl")

	f.analysis.On("StartWebSearch", mock.Anything, requestFor("Acme")).
		Return(&analysis.WebSearchResponse{}, nil).Once()

	r := f.svc.StartWebSearch(ctx, b.ID, []int64{acme.ID})
	require.False(t, r.OK())
	assert.Equal(t, []int64{acme.ID}, r.Data.Failed)
	assert.Contains(t, *r.Error, "no search handle")
}

func TestStartWebSearch_Guards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.benchmark(t)

	r := f.svc.StartWebSearch(ctx, b.ID, nil)
	require.False(t, r.OK())
	assert.Equal(t, "Select at least one company.", *r.Error)

	r = f.svc.StartWebSearch(ctx, 404, []int64{1})
	assert.Equal(t, "Benchmark not found.", *r.Error)

	unconfigured := NewService(f.st, nil, nil, Options{})
	r = unconfigured.StartWebSearch(ctx, b.ID, []int64{1})
	assert.Equal(t, "The analysis service is not configured.", *r.Error)
}

func TestStartWebSearch_BreakerOpens(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.svc = NewService(f.st, f.analysis, f.claude, Options{
		Concurrency: 1,
		BatchSize:   1,
		Breaker:     resilience.BreakerConfig{FailureThreshold: 1},
	})
	b := f.benchmark(t)
	acme := f.company(t, b.ID, "Acme", "NL", "acme.nl")

	f.analysis.On("StartWebSearch", mock.Anything, mock.Anything).
		Return(nil, resilience.NewTransientError(errors.New("gateway timeout"), 504)).Once()

	first := f.svc.StartWebSearch(ctx, b.ID, []int64{acme.ID})
	require.False(t, first.OK())

	second := f.svc.StartWebSearch(ctx, b.ID, []int64{acme.ID})
	require.False(t, second.OK())
	assert.Contains(t, *second.Error, "unavailable right now")
	assert.Equal(t, "open", f.svc.BreakerStates()["analysis"])
	f.analysis.AssertNumberOfCalls(t, "StartWebSearch", 1)
}

func TestStartComparabilityAnalysis(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.benchmark(t)

	noStrategy := f.svc.StartComparabilityAnalysis(ctx, b.ID, []int64{1})
	require.False(t, noStrategy.OK())
	assert.Contains(t, *noStrategy.Error, "Attach a strategy")

	b.Strategy = &model.Strategy{Name: "Distributors", IdealProducts: "pumps", IndependenceEnabled: true}
	require.NoError(t, f.st.UpdateBenchmark(ctx, b))

	searched := f.company(t, b.ID, "Acme", "NL", "acme.nl")
	f.searched(t, searched.ID, "s-1", "Completed", "", "", "")
	pending := f.company(t, b.ID, "Globex", "US", "globex.com")
	f.searched(t, pending.ID, "s-2", "In Progress", "", "", "")

	f.analysis.On("StartComparabilityAnalysis", mock.Anything, mock.MatchedBy(func(r analysis.ComparabilityRequest) bool {
		return r.Criteria.IdealProducts == "pumps" && r.Criteria.IndependenceEnabled &&
			len(r.Companies) == 1 && r.Companies[0].SearchID == "s-1"
	})).Return(&analysis.ComparabilityResponse{Accepted: []analysis.SearchHandle{{SearchID: "s-1"}}}, nil).Once()

	r := f.svc.StartComparabilityAnalysis(ctx, b.ID, []int64{searched.ID, pending.ID})
	require.True(t, r.OK(), "error: %v", r.Error)
	assert.Equal(t, []int64{searched.ID}, r.Data.Started)
	require.Len(t, r.Data.Skipped, 1)
	assert.Equal(t, "web search has not completed", r.Data.Skipped[0].Reason)
	f.analysis.AssertExpectations(t)
}

func TestStartComparabilityAnalysis_RequiresCompletedWebSearch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.benchmark(t)
	b.Strategy = &model.Strategy{Name: "Distributors", IdealProducts: "pumps"}
	require.NoError(t, f.st.UpdateBenchmark(ctx, b))

	searchFailed := f.company(t, b.ID, "Acme", "NL", "acme.nl")
	f.searched(t, searchFailed.ID, "s-1", "Failed", "", "", "")
	searchRejected := f.company(t, b.ID, "Globex", "US", "globex.com")
	f.searched(t, searchRejected.ID, "s-2", "Rejected", "", "", "")
	analysisFailed := f.company(t, b.ID, "Initech", "DE", "initech.de")
	f.searched(t, analysisFailed.ID, "s-3", "Completed", "Failed", "", "")

	f.analysis.On("StartComparabilityAnalysis", mock.Anything, mock.MatchedBy(func(r analysis.ComparabilityRequest) bool {
		return len(r.Companies) == 1 && r.Companies[0].SearchID == "s-3"
	})).Return(&analysis.ComparabilityResponse{Accepted: []analysis.SearchHandle{{SearchID: "s-3"}}}, nil).Once()

	r := f.svc.StartComparabilityAnalysis(ctx, b.ID, []int64{searchFailed.ID, searchRejected.ID, analysisFailed.ID})
	require.True(t, r.OK(), "error: %v", r.Error)
	assert.Equal(t, []int64{analysisFailed.ID}, r.Data.Started)
	assert.Equal(t, []Skipped{
		{CompanyID: searchFailed.ID, Reason: "web search has not completed"},
		{CompanyID: searchRejected.ID, Reason: "rejected during web search"},
	}, r.Data.Skipped)
	f.analysis.AssertExpectations(t)
}

func TestValidateWebsite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.benchmark(t)
	c := f.company(t, b.ID, "Acme", "NL", "acme.nl")
	incomplete := f.company(t, b.ID, "Acme", "", "")

	r := f.svc.ValidateWebsite(ctx, incomplete.ID)
	require.False(t, r.OK())
	assert.Contains(t, *r.Error, "before validating")

	f.analysis.On("ValidateWebsite", mock.Anything, analysis.ValidateWebsiteRequest{
		Name: "Acme", Country: "NL", URL: "https://acme.nl",
	}).Return(&analysis.ValidateWebsiteResponse{URL: "https://www.acme.nl", Valid: true}, nil).Once()

	r = f.svc.ValidateWebsite(ctx, c.ID)
	require.True(t, r.OK(), "error: %v", r.Error)
	assert.Equal(t, category.KeyValid, r.Data.Categories.Key(category.DimWebsite))

	stored, err := f.st.GetCompany(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://www.acme.nl", model.Str(stored.URLValidationURL))
	assert.Equal(t, category.Fingerprint("Acme", "NL", "acme.nl"), model.Str(stored.URLValidationInput))
	require.NotNil(t, stored.URLValidationValid)
	assert.True(t, *stored.URLValidationValid)

	// Editing the website invalidates the stored result.
	upd := f.svc.UpdateCompany(ctx, c.ID, CompanyInput{"url": model.Ptr("acme.com")})
	require.True(t, upd.OK())
	assert.Equal(t, category.KeyNotValidated, upd.Data.Categories.Key(category.DimWebsite))
}

func TestValidateWebsite_PermanentError(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.benchmark(t)
	c := f.company(t, b.ID, "Acme", "NL", "acme.nl")

	f.analysis.On("ValidateWebsite", mock.Anything, mock.Anything).
		Return(nil, errors.New("unexpected status 400: unknown country")).Once()

	r := f.svc.ValidateWebsite(ctx, c.ID)
	require.False(t, r.OK())
	assert.Equal(t, "Could not validate the website: unexpected status 400: unknown country", *r.Error)
}
