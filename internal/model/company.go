// Package model defines the benchmark, strategy, and company records shared
// across the store, action, and workspace layers.
package model

import (
	"strings"
	"time"
)

// Company is one entity being benchmarked. A positive ID means the row is
// persisted; a negative ID marks a local row that has not been saved yet.
type Company struct {
	ID          int64 `json:"id"`
	BenchmarkID int64 `json:"benchmark_id"`

	// Input fields, supplied by upload or manual edit.
	Name                     *string `json:"name"`
	Country                  *string `json:"country"`
	URL                      *string `json:"url"`
	Street                   *string `json:"street,omitempty"`
	City                     *string `json:"city,omitempty"`
	ZipCode                  *string `json:"zip_code,omitempty"`
	State                    *string `json:"state,omitempty"`
	TradeDescriptionOriginal *string `json:"trade_description_original,omitempty"`
	TradeDescriptionEnglish  *string `json:"trade_description_english,omitempty"`
	FullOverview             *string `json:"full_overview,omitempty"`
	FullOverviewManual       *string `json:"full_overview_manual,omitempty"`

	// Backend-derived state.
	SearchID           *string `json:"search_id,omitempty"`
	URLValidationURL   *string `json:"url_validation_url,omitempty"`
	URLValidationInput *string `json:"url_validation_input,omitempty"`
	URLValidationValid *bool   `json:"url_validation_valid,omitempty"`

	// Human review overrides. These win over the AI decision when set.
	CFProductsServicesHRDecision    *string `json:"cf_products_services_hr_decision,omitempty"`
	CFProductsServicesHRMotivation  *string `json:"cf_products_services_hr_motivation,omitempty"`
	CFFunctionalProfileHRDecision   *string `json:"cf_functional_profile_hr_decision,omitempty"`
	CFFunctionalProfileHRMotivation *string `json:"cf_functional_profile_hr_motivation,omitempty"`
	CFIndependenceHRDecision        *string `json:"cf_independence_hr_decision,omitempty"`
	CFIndependenceHRMotivation      *string `json:"cf_independence_hr_motivation,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsPersisted reports whether the company has a database ID.
func (c *Company) IsPersisted() bool {
	return c.ID > 0
}

// HasHumanReview reports whether any human review decision is set.
func (c *Company) HasHumanReview() bool {
	return !IsBlank(c.CFProductsServicesHRDecision) ||
		!IsBlank(c.CFFunctionalProfileHRDecision) ||
		!IsBlank(c.CFIndependenceHRDecision)
}

// Clone returns a deep copy so cached entries never share pointers with callers.
func (c Company) Clone() Company {
	out := c
	for _, f := range companyFields {
		if f.str != nil {
			if p := *f.str(&c); p != nil {
				*f.str(&out) = Ptr(*p)
			}
		}
	}
	if c.URLValidationValid != nil {
		out.URLValidationValid = Ptr(*c.URLValidationValid)
	}
	return out
}

// ViewState holds transient per-row UI flags. It is joined with a Company at
// render time and never persisted.
type ViewState struct {
	Selected                 bool `json:"selected"`
	Expanded                 bool `json:"expanded"`
	WebSearchInitialized     bool `json:"web_search_initialized"`
	AcceptRejectInitialized  bool `json:"accept_reject_initialized"`
	URLValidationInitialized bool `json:"url_validation_initialized"`
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

// Str dereferences a nullable string, returning "" for nil.
func Str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// IsBlank reports whether p is nil or only whitespace.
func IsBlank(p *string) bool {
	return p == nil || strings.TrimSpace(*p) == ""
}

// NullIfBlank trims s and returns nil when nothing is left.
func NullIfBlank(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
