package action

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/benchmark-cli/internal/category"
	"github.com/sells-group/benchmark-cli/internal/model"
)

func TestCreateCompany(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.benchmark(t)

	r := f.svc.CreateCompany(ctx, b.ID, CompanyInput{"name": model.Ptr(" Acme "), "country": model.Ptr("NL")})
	require.True(t, r.OK(), "error: %v", r.Error)
	assert.Positive(t, r.Data.ID)
	assert.Equal(t, category.KeyInputRequired, r.Data.Categories.Key(category.DimInput))
	assert.Equal(t, "Website required", r.Data.Categories[category.DimInput].Label)

	readOnly := f.svc.CreateCompany(ctx, b.ID, CompanyInput{"search_id": model.Ptr("s-1")})
	require.False(t, readOnly.OK())
	assert.Equal(t, `Company field "search_id" is read-only.`, *readOnly.Error)

	unknown := f.svc.CreateCompany(ctx, b.ID, CompanyInput{"revenue": model.Ptr("1m")})
	require.False(t, unknown.OK())
	assert.Equal(t, `Unknown company field "revenue".`, *unknown.Error)
}

func TestUpdateCompany(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.benchmark(t)
	c := f.company(t, b.ID, "Acme", "NL", "")

	r := f.svc.UpdateCompany(ctx, c.ID, CompanyInput{"url": model.Ptr("acme.nl"), "name": model.Ptr("Acme")})
	require.True(t, r.OK(), "error: %v", r.Error)
	assert.Equal(t, category.KeyCompleted, r.Data.Categories.Key(category.DimInput))
	assert.Equal(t, category.KeyReady, r.Data.Categories.Key(category.DimWebSearch))

	cleared := f.svc.UpdateCompany(ctx, c.ID, CompanyInput{"country": nil})
	require.True(t, cleared.OK())
	assert.Nil(t, cleared.Data.Country)

	stored, err := f.st.GetCompany(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "acme.nl", model.Str(stored.URL))
	assert.Nil(t, stored.Country)

	missing := f.svc.UpdateCompany(ctx, 999, CompanyInput{"name": model.Ptr("x")})
	require.False(t, missing.OK())
	assert.Equal(t, "Company not found.", *missing.Error)
}

func TestListCompanies_Categories(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.benchmark(t)
	fresh := f.company(t, b.ID, "", "", "")
	searched := f.company(t, b.ID, "Acme", "NL", "acme.nl")
	f.searched(t, searched.ID, "s-1", "Completed", "Completed", "Accept", "Accept")

	r := f.svc.ListCompanies(ctx, b.ID)
	require.True(t, r.OK(), "error: %v", r.Error)
	require.Len(t, r.Data, 2)

	assert.Equal(t, fresh.ID, r.Data[0].ID)
	assert.Equal(t, category.KeyNew, r.Data[0].Categories.Key(category.DimInput))
	assert.Nil(t, r.Data[0].Searched)

	got := r.Data[1]
	require.NotNil(t, got.Searched)
	assert.Equal(t, category.KeyCompleted, got.Categories.Key(category.DimWebSearch))
	assert.Equal(t, category.KeyAccepted, got.Categories.Key(category.DimAcceptReject))
	assert.Equal(t, category.KeyHigh, got.Categories.Key(category.DimReviewPriority))
}

func TestDeleteCompanies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.benchmark(t)
	a := f.company(t, b.ID, "Acme", "NL", "acme.nl")
	g := f.company(t, b.ID, "Globex", "US", "globex.com")

	none := f.svc.DeleteCompanies(ctx, nil)
	require.False(t, none.OK())
	assert.Equal(t, "Select at least one company.", *none.Error)

	r := f.svc.DeleteCompanies(ctx, []int64{a.ID, 999})
	require.True(t, r.OK())
	assert.Equal(t, int64(1), r.Data)

	list := f.svc.ListCompanies(ctx, b.ID)
	require.True(t, list.OK())
	require.Len(t, list.Data, 1)
	assert.Equal(t, g.ID, list.Data[0].ID)
}
