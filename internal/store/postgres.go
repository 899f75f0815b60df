package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/benchmark-cli/internal/db"
	"github.com/sells-group/benchmark-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

var (
	listCompaniesSQL = fmt.Sprintf(`SELECT %s FROM companies WHERE benchmark_id = $1 ORDER BY id`,
		strings.Join(companySelectColumns, ", "))
	getCompanySQL = fmt.Sprintf(`SELECT %s FROM companies WHERE id = $1`,
		strings.Join(companySelectColumns, ", "))
)

const searchedCompaniesSQL = `SELECT sc.search_id, sc.overall_status, sc.comparability_analysis_status,
	sc.productservicecomparability_status, sc.functionalprofilecomparability_status, sc.independence_status,
	sc.productservice_motivation, sc.functionalprofile_motivation, sc.independence_motivation,
	sc.trade_description_english, sc.full_overview, sc.updated_at,
	sm.overall_result, sm.motivation, sw.url, sw.title, sw.status, sw.scraped_at
FROM searched_companies sc
LEFT JOIN site_matches sm ON sm.search_id = sc.search_id
LEFT JOIN scraped_websites sw ON sw.search_id = sc.search_id`

const searchedCompaniesByIDSQL = searchedCompaniesSQL + ` WHERE sc.search_id = ANY($1)`

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresFromPool wraps an existing pool. The caller keeps ownership.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Pool returns the underlying database pool.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS strategies (
	id                   BIGSERIAL PRIMARY KEY,
	name                 TEXT NOT NULL,
	description          TEXT NOT NULL DEFAULT '',
	ideal_products       TEXT NOT NULL DEFAULT '',
	reject_products      TEXT NOT NULL DEFAULT '',
	ideal_functions      TEXT NOT NULL DEFAULT '',
	reject_functions     TEXT NOT NULL DEFAULT '',
	relaxed_products     BOOLEAN NOT NULL DEFAULT false,
	relaxed_functions    BOOLEAN NOT NULL DEFAULT false,
	independence_enabled BOOLEAN NOT NULL DEFAULT false,
	created_at           TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at           TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS benchmarks (
	id               BIGSERIAL PRIMARY KEY,
	name             TEXT NOT NULL,
	client           TEXT NOT NULL DEFAULT '',
	year             INTEGER NOT NULL DEFAULT 0,
	strategy         JSONB,
	mapping_settings JSONB,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS companies (
	id                                  BIGSERIAL PRIMARY KEY,
	benchmark_id                        BIGINT NOT NULL REFERENCES benchmarks(id) ON DELETE CASCADE,
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
	created_at                          TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at                          TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_companies_benchmark_id ON companies(benchmark_id);
CREATE INDEX IF NOT EXISTS idx_companies_search_id ON companies(search_id);

CREATE TABLE IF NOT EXISTS strategy_tests (
	id           BIGSERIAL PRIMARY KEY,
	strategy_id  BIGINT NOT NULL REFERENCES strategies(id) ON DELETE CASCADE,
	company_name TEXT NOT NULL,
	country      TEXT NOT NULL,
	url          TEXT NOT NULL,
	search_id    TEXT,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
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
	updated_at                            TIMESTAMPTZ NOT NULL DEFAULT now()
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
	scraped_at TIMESTAMPTZ
);
`

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

// Migrate creates all tables if they do not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

// Close releases the pool when the store owns it.
func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// --- Benchmarks ---

func marshalBenchmarkJSON(b *model.Benchmark) (strategy, mapping []byte, err error) {
	if b.Strategy != nil {
		if strategy, err = json.Marshal(b.Strategy); err != nil {
			return nil, nil, eris.Wrap(err, "marshal strategy")
		}
	}
	if b.MappingSettings != nil {
		if mapping, err = json.Marshal(b.MappingSettings); err != nil {
			return nil, nil, eris.Wrap(err, "marshal mapping settings")
		}
	}
	return strategy, mapping, nil
}

func unmarshalBenchmarkJSON(b *model.Benchmark, strategy, mapping []byte) error {
	if len(strategy) > 0 && string(strategy) != "null" {
		b.Strategy = &model.Strategy{}
		if err := json.Unmarshal(strategy, b.Strategy); err != nil {
			return eris.Wrap(err, "unmarshal strategy")
		}
	}
	if len(mapping) > 0 && string(mapping) != "null" {
		b.MappingSettings = &model.MappingSettings{}
		if err := json.Unmarshal(mapping, b.MappingSettings); err != nil {
			return eris.Wrap(err, "unmarshal mapping settings")
		}
	}
	return nil
}

func (s *PostgresStore) CreateBenchmark(ctx context.Context, b *model.Benchmark) error {
	strategy, mapping, err := marshalBenchmarkJSON(b)
	if err != nil {
		return eris.Wrap(err, "postgres: create benchmark")
	}
	now := time.Now().UTC()
	err = s.pool.QueryRow(ctx,
		`INSERT INTO benchmarks (name, client, year, strategy, mapping_settings, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		b.Name, b.Client, b.Year, strategy, mapping, now, now,
	).Scan(&b.ID)
	if err != nil {
		return eris.Wrap(err, "postgres: insert benchmark")
	}
	b.CreatedAt, b.UpdatedAt = now, now
	return nil
}

func (s *PostgresStore) GetBenchmark(ctx context.Context, id int64) (*model.Benchmark, error) {
	var b model.Benchmark
	var strategy, mapping []byte
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, client, year, strategy, mapping_settings, created_at, updated_at FROM benchmarks WHERE id = $1`,
		id,
	).Scan(&b.ID, &b.Name, &b.Client, &b.Year, &strategy, &mapping, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get benchmark %d", id)
	}
	if err := unmarshalBenchmarkJSON(&b, strategy, mapping); err != nil {
		return nil, eris.Wrapf(err, "postgres: get benchmark %d", id)
	}
	return &b, nil
}

func (s *PostgresStore) ListBenchmarks(ctx context.Context) ([]model.Benchmark, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, client, year, strategy, mapping_settings, created_at, updated_at FROM benchmarks ORDER BY created_at DESC, id DESC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list benchmarks")
	}
	defer rows.Close()

	var out []model.Benchmark
	for rows.Next() {
		var b model.Benchmark
		var strategy, mapping []byte
		if err := rows.Scan(&b.ID, &b.Name, &b.Client, &b.Year, &strategy, &mapping, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan benchmark")
		}
		if err := unmarshalBenchmarkJSON(&b, strategy, mapping); err != nil {
			return nil, eris.Wrapf(err, "postgres: benchmark %d", b.ID)
		}
		out = append(out, b)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list benchmarks iterate")
}

func (s *PostgresStore) UpdateBenchmark(ctx context.Context, b *model.Benchmark) error {
	strategy, mapping, err := marshalBenchmarkJSON(b)
	if err != nil {
		return eris.Wrap(err, "postgres: update benchmark")
	}
	now := time.Now().UTC()
	tag, err := s.pool.Exec(ctx,
		`UPDATE benchmarks SET name = $1, client = $2, year = $3, strategy = $4, mapping_settings = $5, updated_at = $6 WHERE id = $7`,
		b.Name, b.Client, b.Year, strategy, mapping, now, b.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update benchmark %d", b.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("benchmark not found: %d", b.ID)
	}
	b.UpdatedAt = now
	return nil
}

func (s *PostgresStore) UpdateBenchmarkFields(ctx context.Context, b *model.Benchmark, fields []string) error {
	cols, args, err := benchmarkPatch(b, fields, func(raw []byte) any { return raw })
	if err != nil {
		return eris.Wrap(err, "postgres: update benchmark")
	}
	if len(cols) == 0 {
		return nil
	}

	sets := make([]string, 0, len(cols)+1)
	for i, col := range cols {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, i+1))
	}
	sets = append(sets, fmt.Sprintf("updated_at = $%d", len(cols)+1))
	now := time.Now().UTC()
	args = append(args, now, b.ID)
	query := fmt.Sprintf(`UPDATE benchmarks SET %s WHERE id = $%d`, strings.Join(sets, ", "), len(cols)+2)

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return eris.Wrapf(err, "postgres: update benchmark %d", b.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("benchmark not found: %d", b.ID)
	}
	b.UpdatedAt = now
	return nil
}

func (s *PostgresStore) DeleteBenchmark(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM benchmarks WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete benchmark %d", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("benchmark not found: %d", id)
	}
	return nil
}

// --- Strategies ---

const strategyColumns = `id, name, description, ideal_products, reject_products, ideal_functions, reject_functions,
	relaxed_products, relaxed_functions, independence_enabled, created_at, updated_at`

func strategyDests(st *model.Strategy) []any {
	return []any{
		&st.ID, &st.Name, &st.Description, &st.IdealProducts, &st.RejectProducts,
		&st.IdealFunctions, &st.RejectFunctions, &st.RelaxedProducts, &st.RelaxedFunctions,
		&st.IndependenceEnabled, &st.CreatedAt, &st.UpdatedAt,
	}
}

func (s *PostgresStore) CreateStrategy(ctx context.Context, st *model.Strategy) error {
	now := time.Now().UTC()
	err := s.pool.QueryRow(ctx,
		`INSERT INTO strategies (name, description, ideal_products, reject_products, ideal_functions, reject_functions,
			relaxed_products, relaxed_functions, independence_enabled, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING id`,
		st.Name, st.Description, st.IdealProducts, st.RejectProducts, st.IdealFunctions, st.RejectFunctions,
		st.RelaxedProducts, st.RelaxedFunctions, st.IndependenceEnabled, now, now,
	).Scan(&st.ID)
	if err != nil {
		return eris.Wrap(err, "postgres: insert strategy")
	}
	st.CreatedAt, st.UpdatedAt = now, now
	return nil
}

func (s *PostgresStore) GetStrategy(ctx context.Context, id int64) (*model.Strategy, error) {
	var st model.Strategy
	err := s.pool.QueryRow(ctx, `SELECT `+strategyColumns+` FROM strategies WHERE id = $1`, id).Scan(strategyDests(&st)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get strategy %d", id)
	}
	return &st, nil
}

func (s *PostgresStore) ListStrategies(ctx context.Context) ([]model.Strategy, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+strategyColumns+` FROM strategies ORDER BY name, id`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list strategies")
	}
	defer rows.Close()

	var out []model.Strategy
	for rows.Next() {
		var st model.Strategy
		if err := rows.Scan(strategyDests(&st)...); err != nil {
			return nil, eris.Wrap(err, "postgres: scan strategy")
		}
		out = append(out, st)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list strategies iterate")
}

func (s *PostgresStore) UpdateStrategy(ctx context.Context, st *model.Strategy) error {
	now := time.Now().UTC()
	tag, err := s.pool.Exec(ctx,
		`UPDATE strategies SET name = $1, description = $2, ideal_products = $3, reject_products = $4,
			ideal_functions = $5, reject_functions = $6, relaxed_products = $7, relaxed_functions = $8,
			independence_enabled = $9, updated_at = $10
		 WHERE id = $11`,
		st.Name, st.Description, st.IdealProducts, st.RejectProducts, st.IdealFunctions, st.RejectFunctions,
		st.RelaxedProducts, st.RelaxedFunctions, st.IndependenceEnabled, now, st.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update strategy %d", st.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("strategy not found: %d", st.ID)
	}
	st.UpdatedAt = now
	return nil
}

func (s *PostgresStore) DeleteStrategy(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM strategies WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete strategy %d", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("strategy not found: %d", id)
	}
	return nil
}

// --- Companies ---

func (s *PostgresStore) CreateCompany(ctx context.Context, c *model.Company) error {
	now := time.Now().UTC()
	cols := append([]string{"benchmark_id"}, companyTextColumns...)
	cols = append(cols, model.URLValidationValidField, "created_at", "updated_at")
	args := append([]any{c.BenchmarkID}, companyTextValues(c)...)
	args = append(args, c.URLValidationValid, now, now)

	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	query := fmt.Sprintf(`INSERT INTO companies (%s) VALUES (%s) RETURNING id`,
		strings.Join(cols, ", "), strings.Join(placeholders, ", "))

	if err := s.pool.QueryRow(ctx, query, args...).Scan(&c.ID); err != nil {
		return eris.Wrap(err, "postgres: insert company")
	}
	c.CreatedAt, c.UpdatedAt = now, now
	return nil
}

func (s *PostgresStore) GetCompany(ctx context.Context, id int64) (*model.Company, error) {
	var c model.Company
	if err := s.pool.QueryRow(ctx, getCompanySQL, id).Scan(companyDests(&c)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get company %d", id)
	}
	return &c, nil
}

func (s *PostgresStore) ListCompanies(ctx context.Context, benchmarkID int64) ([]model.Company, error) {
	rows, err := s.pool.Query(ctx, listCompaniesSQL, benchmarkID)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list companies for benchmark %d", benchmarkID)
	}
	defer rows.Close()

	var out []model.Company
	for rows.Next() {
		var c model.Company
		if err := rows.Scan(companyDests(&c)...); err != nil {
			return nil, eris.Wrap(err, "postgres: scan company")
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list companies iterate")
}

func (s *PostgresStore) UpdateCompanyFields(ctx context.Context, id int64, fields map[string]any) error {
	cols, err := patchColumns(fields)
	if err != nil {
		return err
	}
	if len(cols) == 0 {
		return nil
	}

	sets := make([]string, 0, len(cols)+1)
	args := make([]any, 0, len(cols)+2)
	for i, col := range cols {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, i+1))
		args = append(args, fields[col])
	}
	sets = append(sets, fmt.Sprintf("updated_at = $%d", len(cols)+1))
	args = append(args, time.Now().UTC(), id)
	query := fmt.Sprintf(`UPDATE companies SET %s WHERE id = $%d`, strings.Join(sets, ", "), len(cols)+2)

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return eris.Wrapf(err, "postgres: update company %d", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("company not found: %d", id)
	}
	return nil
}

func (s *PostgresStore) DeleteCompanies(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM companies WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete companies")
	}
	return tag.RowsAffected(), nil
}

// ImportCompanies bulk-loads rows into a benchmark with COPY and bumps the
// benchmark's updated_at in the same transaction.
func (s *PostgresStore) ImportCompanies(ctx context.Context, benchmarkID int64, rows []model.Company) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	now := time.Now().UTC()
	cols := append([]string{"benchmark_id"}, companyTextColumns...)
	cols = append(cols, "created_at", "updated_at")

	data := make([][]any, 0, len(rows))
	for i := range rows {
		row := append([]any{benchmarkID}, companyTextValues(&rows[i])...)
		data = append(data, append(row, now, now))
	}

	var n int64
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		var err error
		n, err = db.CopyFrom(ctx, tx, "companies", cols, data)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `UPDATE benchmarks SET updated_at = $1 WHERE id = $2`, now, benchmarkID)
		return err
	})
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: import companies into benchmark %d", benchmarkID)
	}
	return n, nil
}

// --- Strategy tests ---

func (s *PostgresStore) CreateStrategyTest(ctx context.Context, t *model.StrategyTest) error {
	now := time.Now().UTC()
	err := s.pool.QueryRow(ctx,
		`INSERT INTO strategy_tests (strategy_id, company_name, country, url, search_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		t.StrategyID, t.CompanyName, t.Country, t.URL, t.SearchID, now,
	).Scan(&t.ID)
	if err != nil {
		return eris.Wrap(err, "postgres: insert strategy test")
	}
	t.CreatedAt = now
	return nil
}

func (s *PostgresStore) ListStrategyTests(ctx context.Context, strategyID int64) ([]model.StrategyTest, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, strategy_id, company_name, country, url, search_id, created_at
		 FROM strategy_tests WHERE strategy_id = $1 ORDER BY created_at DESC, id DESC`,
		strategyID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list strategy tests for strategy %d", strategyID)
	}
	defer rows.Close()

	var out []model.StrategyTest
	for rows.Next() {
		var t model.StrategyTest
		if err := rows.Scan(&t.ID, &t.StrategyID, &t.CompanyName, &t.Country, &t.URL, &t.SearchID, &t.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan strategy test")
		}
		out = append(out, t)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list strategy tests iterate")
}

func (s *PostgresStore) SetStrategyTestSearchID(ctx context.Context, id int64, searchID string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE strategy_tests SET search_id = $1 WHERE id = $2`, searchID, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: set strategy test %d search id", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("strategy test not found: %d", id)
	}
	return nil
}

func (s *PostgresStore) DeleteStrategyTest(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM strategy_tests WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete strategy test %d", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("strategy test not found: %d", id)
	}
	return nil
}

// --- Searched companies ---

func (s *PostgresStore) SearchedCompanies(ctx context.Context, searchIDs []string) (map[string]*model.SearchedCompany, error) {
	out := make(map[string]*model.SearchedCompany, len(searchIDs))
	if len(searchIDs) == 0 {
		return out, nil
	}
	rows, err := s.pool.Query(ctx, searchedCompaniesByIDSQL, searchIDs)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: searched companies")
	}
	defer rows.Close()

	for rows.Next() {
		sc, err := scanSearchedCompany(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan searched company")
		}
		out[sc.SearchID] = sc
	}
	return out, eris.Wrap(rows.Err(), "postgres: searched companies iterate")
}

type scannable interface {
	Scan(dest ...any) error
}

// scanSearchedCompany reads one row of searchedCompaniesSQL. The joined site
// match and scraped website are nil when absent.
func scanSearchedCompany(row scannable) (*model.SearchedCompany, error) {
	var sc model.SearchedCompany
	var smResult, smMotivation, swURL, swTitle, swStatus *string
	var swScrapedAt *time.Time
	err := row.Scan(
		&sc.SearchID, &sc.OverallStatus, &sc.ComparabilityAnalysisStatus,
		&sc.ProductServiceComparabilityStatus, &sc.FunctionalProfileComparabilityStatus, &sc.IndependenceStatus,
		&sc.ProductServiceMotivation, &sc.FunctionalProfileMotivation, &sc.IndependenceMotivation,
		&sc.TradeDescriptionEnglish, &sc.FullOverview, &sc.UpdatedAt,
		&smResult, &smMotivation, &swURL, &swTitle, &swStatus, &swScrapedAt,
	)
	if err != nil {
		return nil, err
	}
	if smResult != nil {
		sc.SiteMatch = &model.SiteMatch{OverallResult: *smResult, Motivation: model.Str(smMotivation)}
	}
	if swURL != nil {
		sc.ScrapedWebsite = &model.ScrapedWebsite{
			URL:       *swURL,
			Title:     model.Str(swTitle),
			Status:    model.Str(swStatus),
			ScrapedAt: swScrapedAt,
		}
	}
	return &sc, nil
}
