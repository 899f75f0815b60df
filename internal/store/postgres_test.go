package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/benchmark-cli/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS strategies`).WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Ping_Error(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`SELECT 1`).WillReturnError(errors.New("connection refused"))

	err := s.Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: ping")
}

func TestPostgresStore_CreateBenchmark(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`INSERT INTO benchmarks`).
		WithArgs("Retail 2026", "Acme", 2026, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(42)))

	b := &model.Benchmark{Name: "Retail 2026", Client: "Acme", Year: 2026, Strategy: &model.Strategy{Name: "Distributors"}}
	require.NoError(t, s.CreateBenchmark(context.Background(), b))
	assert.Equal(t, int64(42), b.ID)
	assert.False(t, b.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetBenchmark(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	strategy, err := json.Marshal(model.Strategy{Name: "Distributors", IndependenceEnabled: true})
	require.NoError(t, err)
	mapping, err := json.Marshal(model.MappingSettings{HeaderRow: 1, Columns: map[string]string{"name": "Company"}})
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT id, name, client, year, strategy, mapping_settings, created_at, updated_at FROM benchmarks WHERE id = \$1`).
		WithArgs(int64(42)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "client", "year", "strategy", "mapping_settings", "created_at", "updated_at"}).
			AddRow(int64(42), "Retail 2026", "Acme", 2026, strategy, mapping, now, now))

	b, err := s.GetBenchmark(context.Background(), 42)
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.True(t, b.IndependenceEnabled())
	require.NotNil(t, b.MappingSettings)
	assert.Equal(t, "Company", b.MappingSettings.Columns["name"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetBenchmark_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM benchmarks WHERE id = \$1`).
		WithArgs(int64(9)).
		WillReturnError(pgx.ErrNoRows)

	b, err := s.GetBenchmark(context.Background(), 9)
	require.NoError(t, err)
	assert.Nil(t, b)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateBenchmark_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE benchmarks SET`).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateBenchmark(context.Background(), &model.Benchmark{ID: 5, Name: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "benchmark not found: 5")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateBenchmarkFields(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE benchmarks SET client = \$1, strategy = \$2, updated_at = \$3 WHERE id = \$4`).
		WithArgs("Globex", pgxmock.AnyArg(), pgxmock.AnyArg(), int64(5)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	b := &model.Benchmark{ID: 5, Name: "Pumps", Client: "Globex", Strategy: &model.Strategy{Name: "Distributors"}}
	require.NoError(t, s.UpdateBenchmarkFields(context.Background(), b, []string{"strategy", "client"}))
	assert.False(t, b.UpdatedAt.IsZero())

	// No fields, no statement.
	require.NoError(t, s.UpdateBenchmarkFields(context.Background(), b, nil))

	err := s.UpdateBenchmarkFields(context.Background(), b, []string{"created_at"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown benchmark column")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteBenchmark(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM benchmarks WHERE id = \$1`).
		WithArgs(int64(5)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, s.DeleteBenchmark(context.Background(), 5))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListStrategies(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	cols := []string{"id", "name", "description", "ideal_products", "reject_products", "ideal_functions",
		"reject_functions", "relaxed_products", "relaxed_functions", "independence_enabled", "created_at", "updated_at"}
	mock.ExpectQuery(`FROM strategies ORDER BY name`).
		WillReturnRows(pgxmock.NewRows(cols).
			AddRow(int64(1), "Distributors", "", "wholesale", "retail", "buy-sell", "manufacturing", false, true, false, now, now).
			AddRow(int64(2), "Services", "", "", "", "", "", false, false, true, now, now))

	list, err := s.ListStrategies(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "wholesale", list[0].IdealProducts)
	assert.True(t, list[0].RelaxedFunctions)
	assert.True(t, list[1].IndependenceEnabled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetCompany_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM companies WHERE id = \$1`).
		WithArgs(int64(3)).
		WillReturnError(pgx.ErrNoRows)

	c, err := s.GetCompany(context.Background(), 3)
	require.NoError(t, err)
	assert.Nil(t, c)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateCompanyFields(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE companies SET name = \$1, url_validation_valid = \$2, updated_at = \$3 WHERE id = \$4`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), int64(7)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.UpdateCompanyFields(context.Background(), 7, map[string]any{
		"url_validation_valid": model.Ptr(true),
		"name":                 model.Ptr("Acme BV"),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateCompanyFields_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE companies SET`).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateCompanyFields(context.Background(), 7, map[string]any{"city": nil})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "company not found: 7")
}

func TestPostgresStore_UpdateCompanyFields_Rejected(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	tests := []struct {
		name   string
		fields map[string]any
		msg    string
	}{
		{"unknown column", map[string]any{"drop table": "x"}, "unknown company column"},
		{"bool into text", map[string]any{"name": true}, "expects a string"},
		{"text into bool", map[string]any{"url_validation_valid": "yes"}, "expects a bool"},
		{"unsupported type", map[string]any{"name": 12}, "unsupported value int"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.UpdateCompanyFields(context.Background(), 1, tt.fields)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateCompanyFields_Empty(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	require.NoError(t, s.UpdateCompanyFields(context.Background(), 1, nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteCompanies(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM companies WHERE id = ANY\(\$1\)`).
		WithArgs([]int64{1, 2, 3}).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))

	n, err := s.DeleteCompanies(context.Background(), []int64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ImportCompanies(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	cols := append([]string{"benchmark_id"}, model.CompanyFieldNames()...)
	cols = append(cols, "created_at", "updated_at")
	mock.ExpectBegin()
	mock.ExpectCopyFrom(pgx.Identifier{"companies"}, cols).WillReturnResult(2)
	mock.ExpectExec(`UPDATE benchmarks SET updated_at`).
		WithArgs(pgxmock.AnyArg(), int64(4)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	rows := []model.Company{
		{Name: model.Ptr("Acme"), Country: model.Ptr("NL"), URL: model.Ptr("acme.nl")},
		{Name: model.Ptr("Globex"), Country: model.Ptr("DE")},
	}
	n, err := s.ImportCompanies(context.Background(), 4, rows)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ImportCompanies_RollsBackOnCopyError(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	cols := append([]string{"benchmark_id"}, model.CompanyFieldNames()...)
	cols = append(cols, "created_at", "updated_at")
	mock.ExpectBegin()
	mock.ExpectCopyFrom(pgx.Identifier{"companies"}, cols).WillReturnError(errors.New("copy failed"))
	mock.ExpectRollback()

	_, err := s.ImportCompanies(context.Background(), 4, []model.Company{{Name: model.Ptr("Acme")}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "import companies into benchmark 4")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ImportCompanies_Empty(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	n, err := s.ImportCompanies(context.Background(), 4, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SetStrategyTestSearchID_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE strategy_tests SET search_id = \$1 WHERE id = \$2`).
		WithArgs("s-1", int64(8)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.SetStrategyTestSearchID(context.Background(), 8, "s-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "strategy test not found: 8")
}

func TestPostgresStore_SearchedCompanies_NoIDs(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	out, err := s.SearchedCompanies(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SearchedCompanies_QueryError(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM searched_companies sc`).
		WithArgs([]string{"s-1"}).
		WillReturnError(errors.New("relation does not exist"))

	_, err := s.SearchedCompanies(context.Background(), []string{"s-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: searched companies")
	assert.NoError(t, mock.ExpectationsWereMet())
}
