package model

import "time"

// Strategy is a reusable criteria set describing the ideal comparable company.
type Strategy struct {
	ID                  int64     `json:"id" yaml:"-"`
	Name                string    `json:"name" yaml:"name" validate:"required,max=200"`
	Description         string    `json:"description,omitempty" yaml:"description"`
	IdealProducts       string    `json:"ideal_products,omitempty" yaml:"ideal_products"`
	RejectProducts      string    `json:"reject_products,omitempty" yaml:"reject_products"`
	IdealFunctions      string    `json:"ideal_functions,omitempty" yaml:"ideal_functions"`
	RejectFunctions     string    `json:"reject_functions,omitempty" yaml:"reject_functions"`
	RelaxedProducts     bool      `json:"relaxed_products" yaml:"relaxed_products"`
	RelaxedFunctions    bool      `json:"relaxed_functions" yaml:"relaxed_functions"`
	IndependenceEnabled bool      `json:"independence_enabled" yaml:"independence_enabled"`
	CreatedAt           time.Time `json:"created_at" yaml:"-"`
	UpdatedAt           time.Time `json:"updated_at" yaml:"-"`
}

// StrategyTest is a sample run of a strategy against a single company, used
// to tune the criteria before attaching the strategy to a benchmark.
type StrategyTest struct {
	ID          int64     `json:"id"`
	StrategyID  int64     `json:"strategy_id"`
	CompanyName string    `json:"company_name" validate:"required"`
	Country     string    `json:"country" validate:"required"`
	URL         string    `json:"url" validate:"required"`
	SearchID    *string   `json:"search_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// AsCompany projects the test onto a company so it can be categorized.
func (t *StrategyTest) AsCompany() Company {
	return Company{
		ID:       t.ID,
		Name:     NullIfBlank(t.CompanyName),
		Country:  NullIfBlank(t.Country),
		URL:      NullIfBlank(t.URL),
		SearchID: t.SearchID,
	}
}
