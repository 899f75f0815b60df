package model

import "time"

// SearchedCompany is a read-only record produced asynchronously by the
// external analysis services. Status fields hold the raw strings emitted by
// those services.
type SearchedCompany struct {
	SearchID                             string          `json:"search_id"`
	OverallStatus                        string          `json:"overall_status"`
	ComparabilityAnalysisStatus          string          `json:"comparability_analysis_status"`
	ProductServiceComparabilityStatus    string          `json:"productservicecomparability_status"`
	FunctionalProfileComparabilityStatus string          `json:"functionalprofilecomparability_status"`
	IndependenceStatus                   string          `json:"independence_status"`
	ProductServiceMotivation             string          `json:"productservice_motivation,omitempty"`
	FunctionalProfileMotivation          string          `json:"functionalprofile_motivation,omitempty"`
	IndependenceMotivation               string          `json:"independence_motivation,omitempty"`
	TradeDescriptionEnglish              string          `json:"trade_description_english,omitempty"`
	FullOverview                         string          `json:"full_overview,omitempty"`
	SiteMatch                            *SiteMatch      `json:"site_match,omitempty"`
	ScrapedWebsite                       *ScrapedWebsite `json:"scraped_website,omitempty"`
	UpdatedAt                            time.Time       `json:"updated_at"`
}

// SiteMatch is the verdict on whether the scraped site belongs to the company.
type SiteMatch struct {
	OverallResult string `json:"overall_result"`
	Motivation    string `json:"motivation,omitempty"`
}

// ScrapedWebsite describes the page the search service scraped.
type ScrapedWebsite struct {
	URL       string     `json:"url"`
	Title     string     `json:"title,omitempty"`
	Status    string     `json:"status,omitempty"`
	ScrapedAt *time.Time `json:"scraped_at,omitempty"`
}
