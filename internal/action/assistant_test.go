package action

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/benchmark-cli/internal/category"
	"github.com/sells-group/benchmark-cli/internal/model"
	"github.com/sells-group/benchmark-cli/pkg/anthropic"
)

func promptContains(parts ...string) any {
	return mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		if len(req.Messages) != 1 {
			return false
		}
		for _, p := range parts {
			if !strings.Contains(req.Messages[0].Content, p) {
				return false
			}
		}
		return true
	})
}

func TestTranslateDescription(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.benchmark(t)
	c := f.company(t, b.ID, "Acme", "NL", "acme.nl")
	require.NoError(t, f.st.UpdateCompanyFields(ctx, c.ID, map[string]any{
		"trade_description_original": "Groothandel in industriële pompen.",
	}))

	f.claude.On("CreateMessage", mock.Anything, promptContains("Translate into English", "Groothandel")).
		Return(reply("Wholesaler of industrial pumps."), nil).Once()
	f.claude.On("CreateMessage", mock.Anything, promptContains("Translate into German")).
		Return(reply("Großhandel mit Industriepumpen."), nil).Once()

	en := f.svc.TranslateDescription(ctx, c.ID, TranslateInput{Language: "en"})
	require.True(t, en.OK(), "error: %v", en.Error)
	assert.True(t, en.Data.Saved)
	assert.Equal(t, "English", en.Data.Name)
	assert.Equal(t, "Wholesaler of industrial pumps.", en.Data.Text)

	de := f.svc.TranslateDescription(ctx, c.ID, TranslateInput{Language: "de"})
	require.True(t, de.OK(), "error: %v", de.Error)
	assert.False(t, de.Data.Saved)
	assert.Equal(t, "German", de.Data.Name)

	stored, err := f.st.GetCompany(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Wholesaler of industrial pumps.", model.Str(stored.TradeDescriptionEnglish))
	f.claude.AssertExpectations(t)
}

func TestTranslateDescription_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.benchmark(t)
	c := f.company(t, b.ID, "Acme", "NL", "acme.nl")

	bad := f.svc.TranslateDescription(ctx, c.ID, TranslateInput{Language: "not a language"})
	require.False(t, bad.OK())
	assert.Equal(t, "Language must be a language tag such as nl or de-CH.", *bad.Error)

	empty := f.svc.TranslateDescription(ctx, c.ID, TranslateInput{Language: "en"})
	require.False(t, empty.OK())
	assert.Equal(t, "There is no description to translate.", *empty.Error)

	require.NoError(t, f.st.UpdateCompanyFields(ctx, c.ID, map[string]any{"full_overview": "Pompen."}))
	f.claude.On("CreateMessage", mock.Anything, mock.Anything).Return(nil, errors.New("invalid api key")).Once()
	failed := f.svc.TranslateDescription(ctx, c.ID, TranslateInput{Language: "en"})
	require.False(t, failed.OK())
	assert.Equal(t, "Could not translate the description: invalid api key", *failed.Error)

	unconfigured := NewService(f.st, f.analysis, nil, Options{})
	r := unconfigured.TranslateDescription(ctx, c.ID, TranslateInput{Language: "en"})
	assert.Equal(t, "The assistant is not configured.", *r.Error)
}

func TestSubstantiateDecision(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.benchmark(t)
	c := f.company(t, b.ID, "Acme", "NL", "acme.nl")
	f.searched(t, c.ID, "s-1", "Completed", "Completed", "Accept", "Reject")

	f.claude.On("CreateMessage", mock.Anything, promptContains("Factor: products services", "Decision: Accept", "Analysis notes: sells industrial pumps")).
		Return(reply("Acme sells industrial pumps, which matches the tested party."), nil).Once()

	r := f.svc.SubstantiateDecision(ctx, c.ID, category.FactorProducts)
	require.True(t, r.OK(), "error: %v", r.Error)
	assert.Equal(t, category.Accept, r.Data.Decision)
	assert.False(t, r.Data.Overridden)
	assert.Contains(t, r.Data.Text, "industrial pumps")

	undecided := f.svc.SubstantiateDecision(ctx, c.ID, category.FactorIndependence)
	require.False(t, undecided.OK())
	assert.Equal(t, "There is no decision to substantiate yet.", *undecided.Error)

	unknown := f.svc.SubstantiateDecision(ctx, c.ID, "price")
	require.False(t, unknown.OK())
	assert.Equal(t, `Unknown factor "price".`, *unknown.Error)
	f.claude.AssertExpectations(t)
}

func TestGenerateStrategy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.claude.On("CreateMessage", mock.Anything, promptContains("Tested party: Dutch pump distributor", "Industry: wholesale")).
		Return(reply("```json\n{\"description\":\"Pump distributors\",\"ideal_products\":\"pumps, valves\",\"reject_functions\":\"manufacturing\"}\n```"), nil).Once()

	r := f.svc.GenerateStrategy(ctx, StrategyBrief{
		Name:                " Pumps NL ",
		Business:            "Dutch pump distributor",
		Industry:            "wholesale",
		IndependenceEnabled: true,
	})
	require.True(t, r.OK(), "error: %v", r.Error)
	assert.Zero(t, r.Data.ID)
	assert.Equal(t, "Pumps NL", r.Data.Name)
	assert.Equal(t, "pumps, valves", r.Data.IdealProducts)
	assert.Equal(t, "manufacturing", r.Data.RejectFunctions)
	assert.True(t, r.Data.IndependenceEnabled)

	list := f.svc.ListStrategies(ctx)
	require.True(t, list.OK())
	assert.Empty(t, list.Data)
}

func TestGenerateStrategy_Unreadable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	missing := f.svc.GenerateStrategy(ctx, StrategyBrief{Name: "x"})
	require.False(t, missing.OK())
	assert.Equal(t, "Business is required.", *missing.Error)

	f.claude.On("CreateMessage", mock.Anything, mock.Anything).
		Return(reply("I would look for distributors of pumps."), nil).Once()
	r := f.svc.GenerateStrategy(ctx, StrategyBrief{Name: "Pumps", Business: "pump distributor"})
	require.False(t, r.OK())
	assert.Equal(t, "The assistant returned an unreadable strategy. Please try again.", *r.Error)
}
