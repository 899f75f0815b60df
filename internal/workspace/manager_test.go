package workspace

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/benchmark-cli/internal/model"
)

func TestManager_GetCachesWorkspace(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	b, companies := seed(t, st, "acme")
	m := NewManager(st, Options{})

	w, err := m.Get(ctx, b.ID)
	require.NoError(t, err)
	_, err = w.Edit(companies[0].ID, map[string]*string{"city": model.Ptr("Delft")})
	require.NoError(t, err)

	again, err := m.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Same(t, w, again)
	assert.True(t, again.Dirty())

	m.Drop(b.ID)
	fresh, err := m.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.NotSame(t, w, fresh)
	assert.False(t, fresh.Dirty())

	_, err = m.Get(ctx, 999)
	assert.ErrorIs(t, err, ErrBenchmarkNotFound)
}

func TestManager_RefreshAllDropsDeletedBenchmarks(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	b, _ := seed(t, st, "acme")
	m := NewManager(st, Options{})

	_, err := m.Get(ctx, b.ID)
	require.NoError(t, err)
	require.NoError(t, st.DeleteBenchmark(ctx, b.ID))

	m.RefreshAll(ctx)
	assert.Empty(t, m.all())
}
