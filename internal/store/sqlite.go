package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/benchmark-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
// Foreign keys are enabled through the DSN because the pragma is per
// connection.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	if !strings.Contains(dsn, "foreign_keys") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_pragma=foreign_keys(1)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

// DB exposes the underlying handle, used by tooling that seeds analysis
// results.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS strategies (
	id                   INTEGER PRIMARY KEY AUTOINCREMENT,
	name                 TEXT NOT NULL,
	description          TEXT NOT NULL DEFAULT '',
	ideal_products       TEXT NOT NULL DEFAULT '',
	reject_products      TEXT NOT NULL DEFAULT '',
	ideal_functions      TEXT NOT NULL DEFAULT '',
	reject_functions     TEXT NOT NULL DEFAULT '',
	relaxed_products     BOOLEAN NOT NULL DEFAULT 0,
	relaxed_functions    BOOLEAN NOT NULL DEFAULT 0,
	independence_enabled BOOLEAN NOT NULL DEFAULT 0,
	created_at           DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at           DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS benchmarks (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	name             TEXT NOT NULL,
	client           TEXT NOT NULL DEFAULT '',
	year             INTEGER NOT NULL DEFAULT 0,
	strategy         TEXT,
	mapping_settings TEXT,
	created_at       DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at       DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS companies (
	id                                  INTEGER PRIMARY KEY AUTOINCREMENT,
	benchmark_id                        INTEGER NOT NULL REFERENCES benchmarks(id) ON DELETE CASCADE,
	name                                TEXT,
	country                             TEXT,
	url                                 TEXT,
	street                              TEXT,
	city                                TEXT,
	zip_code                            TEXT,
	state                               TEXT,
	trade_description_original          TEXT,
	trade_description_english           TEXT,
	full_overview                       TEXT,
	full_overview_manual                TEXT,
	search_id                           TEXT,
	url_validation_url                  TEXT,
	url_validation_input                TEXT,
	url_validation_valid                BOOLEAN,
	cf_products_services_hr_decision    TEXT,
	cf_products_services_hr_motivation  TEXT,
	cf_functional_profile_hr_decision   TEXT,
	cf_functional_profile_hr_motivation TEXT,
	cf_independence_hr_decision         TEXT,
	cf_independence_hr_motivation       TEXT,
	created_at                          DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at                          DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_companies_benchmark_id ON companies(benchmark_id);
CREATE INDEX IF NOT EXISTS idx_companies_search_id ON companies(search_id);

CREATE TABLE IF NOT EXISTS strategy_tests (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	strategy_id  INTEGER NOT NULL REFERENCES strategies(id) ON DELETE CASCADE,
	company_name TEXT NOT NULL,
	country      TEXT NOT NULL,
	url          TEXT NOT NULL,
	search_id    TEXT,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_strategy_tests_strategy_id ON strategy_tests(strategy_id);

CREATE TABLE IF NOT EXISTS searched_companies (
	search_id                             TEXT PRIMARY KEY,
	overall_status                        TEXT NOT NULL DEFAULT '',
	comparability_analysis_status         TEXT NOT NULL DEFAULT '',
	productservicecomparability_status    TEXT NOT NULL DEFAULT '',
	functionalprofilecomparability_status TEXT NOT NULL DEFAULT '',
	independence_status                   TEXT NOT NULL DEFAULT '',
	productservice_motivation             TEXT NOT NULL DEFAULT '',
	functionalprofile_motivation          TEXT NOT NULL DEFAULT '',
	independence_motivation               TEXT NOT NULL DEFAULT '',
	trade_description_english             TEXT NOT NULL DEFAULT '',
	full_overview                         TEXT NOT NULL DEFAULT '',
	updated_at                            DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS site_matches (
	search_id      TEXT PRIMARY KEY REFERENCES searched_companies(search_id) ON DELETE CASCADE,
	overall_result TEXT NOT NULL DEFAULT '',
	motivation     TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS scraped_websites (
	search_id  TEXT PRIMARY KEY REFERENCES searched_companies(search_id) ON DELETE CASCADE,
	url        TEXT NOT NULL DEFAULT '',
	title      TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL DEFAULT '',
	scraped_at DATETIME
);
`

// Migrate creates all tables if they do not exist.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Ping checks that the database file is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

// Close closes the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Benchmarks ---

func nullableText(b []byte) any {
	if b == nil {
		return nil
	}
	return string(b)
}

func (s *SQLiteStore) CreateBenchmark(ctx context.Context, b *model.Benchmark) error {
	strategy, mapping, err := marshalBenchmarkJSON(b)
	if err != nil {
		return eris.Wrap(err, "sqlite: create benchmark")
	}
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO benchmarks (name, client, year, strategy, mapping_settings, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.Name, b.Client, b.Year, nullableText(strategy), nullableText(mapping), now, now,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: insert benchmark")
	}
	if b.ID, err = res.LastInsertId(); err != nil {
		return eris.Wrap(err, "sqlite: benchmark id")
	}
	b.CreatedAt, b.UpdatedAt = now, now
	return nil
}

func (s *SQLiteStore) scanBenchmark(row scannable) (*model.Benchmark, error) {
	var b model.Benchmark
	var strategy, mapping sql.NullString
	if err := row.Scan(&b.ID, &b.Name, &b.Client, &b.Year, &strategy, &mapping, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	if err := unmarshalBenchmarkJSON(&b, []byte(strategy.String), []byte(mapping.String)); err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *SQLiteStore) GetBenchmark(ctx context.Context, id int64) (*model.Benchmark, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, client, year, strategy, mapping_settings, created_at, updated_at FROM benchmarks WHERE id = ?`,
		id,
	)
	b, err := s.scanBenchmark(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get benchmark %d", id)
	}
	return b, nil
}

func (s *SQLiteStore) ListBenchmarks(ctx context.Context) ([]model.Benchmark, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, client, year, strategy, mapping_settings, created_at, updated_at FROM benchmarks ORDER BY created_at DESC, id DESC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list benchmarks")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Benchmark
	for rows.Next() {
		b, err := s.scanBenchmark(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan benchmark")
		}
		out = append(out, *b)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list benchmarks iterate")
}

func (s *SQLiteStore) UpdateBenchmark(ctx context.Context, b *model.Benchmark) error {
	strategy, mapping, err := marshalBenchmarkJSON(b)
	if err != nil {
		return eris.Wrap(err, "sqlite: update benchmark")
	}
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE benchmarks SET name = ?, client = ?, year = ?, strategy = ?, mapping_settings = ?, updated_at = ? WHERE id = ?`,
		b.Name, b.Client, b.Year, nullableText(strategy), nullableText(mapping), now, b.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update benchmark %d", b.ID)
	}
	if err := checkRowsAffected(res, "benchmark", b.ID); err != nil {
		return err
	}
	b.UpdatedAt = now
	return nil
}

func (s *SQLiteStore) UpdateBenchmarkFields(ctx context.Context, b *model.Benchmark, fields []string) error {
	cols, args, err := benchmarkPatch(b, fields, nullableText)
	if err != nil {
		return eris.Wrap(err, "sqlite: update benchmark")
	}
	if len(cols) == 0 {
		return nil
	}

	sets := make([]string, 0, len(cols)+1)
	for _, col := range cols {
		sets = append(sets, col+" = ?")
	}
	sets = append(sets, "updated_at = ?")
	now := time.Now().UTC()
	args = append(args, now, b.ID)

	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE benchmarks SET %s WHERE id = ?`, strings.Join(sets, ", ")), args...)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update benchmark %d", b.ID)
	}
	if err := checkRowsAffected(res, "benchmark", b.ID); err != nil {
		return err
	}
	b.UpdatedAt = now
	return nil
}

func (s *SQLiteStore) DeleteBenchmark(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM benchmarks WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete benchmark %d", id)
	}
	return checkRowsAffected(res, "benchmark", id)
}

// --- Strategies ---

func (s *SQLiteStore) CreateStrategy(ctx context.Context, st *model.Strategy) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO strategies (name, description, ideal_products, reject_products, ideal_functions, reject_functions,
			relaxed_products, relaxed_functions, independence_enabled, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		st.Name, st.Description, st.IdealProducts, st.RejectProducts, st.IdealFunctions, st.RejectFunctions,
		st.RelaxedProducts, st.RelaxedFunctions, st.IndependenceEnabled, now, now,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: insert strategy")
	}
	if st.ID, err = res.LastInsertId(); err != nil {
		return eris.Wrap(err, "sqlite: strategy id")
	}
	st.CreatedAt, st.UpdatedAt = now, now
	return nil
}

func (s *SQLiteStore) GetStrategy(ctx context.Context, id int64) (*model.Strategy, error) {
	var st model.Strategy
	err := s.db.QueryRowContext(ctx, `SELECT `+strategyColumns+` FROM strategies WHERE id = ?`, id).Scan(strategyDests(&st)...)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get strategy %d", id)
	}
	return &st, nil
}

func (s *SQLiteStore) ListStrategies(ctx context.Context) ([]model.Strategy, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+strategyColumns+` FROM strategies ORDER BY name, id`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list strategies")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Strategy
	for rows.Next() {
		var st model.Strategy
		if err := rows.Scan(strategyDests(&st)...); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan strategy")
		}
		out = append(out, st)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list strategies iterate")
}

func (s *SQLiteStore) UpdateStrategy(ctx context.Context, st *model.Strategy) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE strategies SET name = ?, description = ?, ideal_products = ?, reject_products = ?,
			ideal_functions = ?, reject_functions = ?, relaxed_products = ?, relaxed_functions = ?,
			independence_enabled = ?, updated_at = ?
		 WHERE id = ?`,
		st.Name, st.Description, st.IdealProducts, st.RejectProducts, st.IdealFunctions, st.RejectFunctions,
		st.RelaxedProducts, st.RelaxedFunctions, st.IndependenceEnabled, now, st.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update strategy %d", st.ID)
	}
	if err := checkRowsAffected(res, "strategy", st.ID); err != nil {
		return err
	}
	st.UpdatedAt = now
	return nil
}

func (s *SQLiteStore) DeleteStrategy(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM strategies WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete strategy %d", id)
	}
	return checkRowsAffected(res, "strategy", id)
}

// --- Companies ---

var sqliteInsertCompanySQL = func() string {
	cols := append([]string{"benchmark_id"}, companyTextColumns...)
	cols = append(cols, model.URLValidationValidField, "created_at", "updated_at")
	return fmt.Sprintf(`INSERT INTO companies (%s) VALUES (%s)`,
		strings.Join(cols, ", "), placeholders(len(cols)))
}()

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func (s *SQLiteStore) CreateCompany(ctx context.Context, c *model.Company) error {
	now := time.Now().UTC()
	args := append([]any{c.BenchmarkID}, companyTextValues(c)...)
	args = append(args, c.URLValidationValid, now, now)

	res, err := s.db.ExecContext(ctx, sqliteInsertCompanySQL, args...)
	if err != nil {
		return eris.Wrap(err, "sqlite: insert company")
	}
	if c.ID, err = res.LastInsertId(); err != nil {
		return eris.Wrap(err, "sqlite: company id")
	}
	c.CreatedAt, c.UpdatedAt = now, now
	return nil
}

func (s *SQLiteStore) GetCompany(ctx context.Context, id int64) (*model.Company, error) {
	var c model.Company
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT %s FROM companies WHERE id = ?`, strings.Join(companySelectColumns, ", ")), id,
	).Scan(companyDests(&c)...)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get company %d", id)
	}
	return &c, nil
}

func (s *SQLiteStore) ListCompanies(ctx context.Context, benchmarkID int64) ([]model.Company, error) {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT %s FROM companies WHERE benchmark_id = ? ORDER BY id`, strings.Join(companySelectColumns, ", ")),
		benchmarkID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list companies for benchmark %d", benchmarkID)
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Company
	for rows.Next() {
		var c model.Company
		if err := rows.Scan(companyDests(&c)...); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan company")
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list companies iterate")
}

func (s *SQLiteStore) UpdateCompanyFields(ctx context.Context, id int64, fields map[string]any) error {
	cols, err := patchColumns(fields)
	if err != nil {
		return err
	}
	if len(cols) == 0 {
		return nil
	}

	sets := make([]string, 0, len(cols)+1)
	args := make([]any, 0, len(cols)+2)
	for _, col := range cols {
		sets = append(sets, col+" = ?")
		args = append(args, fields[col])
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC(), id)

	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE companies SET %s WHERE id = ?`, strings.Join(sets, ", ")), args...)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update company %d", id)
	}
	return checkRowsAffected(res, "company", id)
}

func (s *SQLiteStore) DeleteCompanies(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM companies WHERE id IN (%s)`, placeholders(len(ids))), args...)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete companies")
	}
	n, err := res.RowsAffected()
	return n, eris.Wrap(err, "sqlite: rows affected")
}

// ImportCompanies inserts rows in a single transaction.
func (s *SQLiteStore) ImportCompanies(ctx context.Context, benchmarkID int64, rows []model.Company) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin import")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, sqliteInsertCompanySQL)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare import")
	}
	defer stmt.Close() //nolint:errcheck

	now := time.Now().UTC()
	for i := range rows {
		args := append([]any{benchmarkID}, companyTextValues(&rows[i])...)
		args = append(args, nil, now, now)
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, eris.Wrapf(err, "sqlite: import row %d", i)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit import")
	}
	return int64(len(rows)), nil
}

// --- Strategy tests ---

func (s *SQLiteStore) CreateStrategyTest(ctx context.Context, t *model.StrategyTest) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO strategy_tests (strategy_id, company_name, country, url, search_id, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		t.StrategyID, t.CompanyName, t.Country, t.URL, t.SearchID, now,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: insert strategy test")
	}
	if t.ID, err = res.LastInsertId(); err != nil {
		return eris.Wrap(err, "sqlite: strategy test id")
	}
	t.CreatedAt = now
	return nil
}

func (s *SQLiteStore) ListStrategyTests(ctx context.Context, strategyID int64) ([]model.StrategyTest, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, strategy_id, company_name, country, url, search_id, created_at
		 FROM strategy_tests WHERE strategy_id = ? ORDER BY created_at DESC, id DESC`,
		strategyID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list strategy tests for strategy %d", strategyID)
	}
	defer rows.Close() //nolint:errcheck

	var out []model.StrategyTest
	for rows.Next() {
		var t model.StrategyTest
		if err := rows.Scan(&t.ID, &t.StrategyID, &t.CompanyName, &t.Country, &t.URL, &t.SearchID, &t.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan strategy test")
		}
		out = append(out, t)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list strategy tests iterate")
}

func (s *SQLiteStore) SetStrategyTestSearchID(ctx context.Context, id int64, searchID string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE strategy_tests SET search_id = ? WHERE id = ?`, searchID, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set strategy test %d search id", id)
	}
	return checkRowsAffected(res, "strategy test", id)
}

func (s *SQLiteStore) DeleteStrategyTest(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM strategy_tests WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete strategy test %d", id)
	}
	return checkRowsAffected(res, "strategy test", id)
}

// --- Searched companies ---

func (s *SQLiteStore) SearchedCompanies(ctx context.Context, searchIDs []string) (map[string]*model.SearchedCompany, error) {
	out := make(map[string]*model.SearchedCompany, len(searchIDs))
	if len(searchIDs) == 0 {
		return out, nil
	}
	args := make([]any, len(searchIDs))
	for i, id := range searchIDs {
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx,
		searchedCompaniesSQL+fmt.Sprintf(` WHERE sc.search_id IN (%s)`, placeholders(len(searchIDs))), args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: searched companies")
	}
	defer rows.Close() //nolint:errcheck

	for rows.Next() {
		sc, err := scanSearchedCompany(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan searched company")
		}
		out[sc.SearchID] = sc
	}
	return out, eris.Wrap(rows.Err(), "sqlite: searched companies iterate")
}

func checkRowsAffected(res sql.Result, entity string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %d", entity, id)
	}
	return nil
}
