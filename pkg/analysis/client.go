// Package analysis is the HTTP client for the company analysis backend that
// runs web searches, comparability analysis, and website validation.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/benchmark-cli/internal/resilience"
)

const defaultBaseURL = "http://localhost:8000"

// Client starts work on the analysis backend. Every call only schedules the
// job; results land in the searched-company tables asynchronously.
type Client interface {
	StartWebSearch(ctx context.Context, req WebSearchRequest) (*WebSearchResponse, error)
	StartComparabilityAnalysis(ctx context.Context, req ComparabilityRequest) (*ComparabilityResponse, error)
	ValidateWebsite(ctx context.Context, req ValidateWebsiteRequest) (*ValidateWebsiteResponse, error)
}

// SearchCompany is one company submitted for web search.
type SearchCompany struct {
	CompanyID int64  `json:"company_id"`
	Name      string `json:"name"`
	Country   string `json:"country"`
	URL       string `json:"url"`
	Street    string `json:"street,omitempty"`
	City      string `json:"city,omitempty"`
	ZipCode   string `json:"zip_code,omitempty"`
	State     string `json:"state,omitempty"`
}

// WebSearchRequest is the body for POST /v1/searches.
type WebSearchRequest struct {
	Companies []SearchCompany `json:"companies"`
}

// SearchHandle identifies a scheduled job for one company.
type SearchHandle struct {
	CompanyID int64  `json:"company_id"`
	SearchID  string `json:"search_id"`
	Status    string `json:"status"`
}

// WebSearchResponse lists the search handles created for the batch.
type WebSearchResponse struct {
	Searches []SearchHandle `json:"searches"`
}

// Criteria is the strategy profile the analysis compares against.
type Criteria struct {
	IdealProducts       string `json:"ideal_products"`
	RejectProducts      string `json:"reject_products"`
	IdealFunctions      string `json:"ideal_functions"`
	RejectFunctions     string `json:"reject_functions"`
	RelaxedProducts     bool   `json:"relaxed_products"`
	RelaxedFunctions    bool   `json:"relaxed_functions"`
	IndependenceEnabled bool   `json:"independence_enabled"`
}

// AnalysisTarget is a company with a completed search.
type AnalysisTarget struct {
	CompanyID int64  `json:"company_id"`
	SearchID  string `json:"search_id"`
}

// ComparabilityRequest is the body for POST /v1/comparability.
type ComparabilityRequest struct {
	Criteria  Criteria         `json:"criteria"`
	Companies []AnalysisTarget `json:"companies"`
}

// ComparabilityResponse lists the jobs the backend accepted.
type ComparabilityResponse struct {
	Accepted []SearchHandle `json:"accepted"`
}

// ValidateWebsiteRequest is the body for POST /v1/website-validations.
type ValidateWebsiteRequest struct {
	Name    string `json:"name"`
	Country string `json:"country"`
	URL     string `json:"url"`
}

// ValidateWebsiteResponse carries the resolved URL and whether it belongs to
// the company.
type ValidateWebsiteResponse struct {
	URL   string `json:"url"`
	Valid bool   `json:"valid"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		if url != "" {
			c.baseURL = url
		}
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit throttles requests to rps per second. Zero disables it.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		} else {
			c.limiter = nil
		}
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates an analysis backend client. apiKey may be empty for
// local backends.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(5, 5),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) StartWebSearch(ctx context.Context, req WebSearchRequest) (*WebSearchResponse, error) {
	if len(req.Companies) == 0 {
		return &WebSearchResponse{}, nil
	}
	var out WebSearchResponse
	if err := c.post(ctx, "/v1/searches", req, &out); err != nil {
		return nil, eris.Wrap(err, "analysis: start web search")
	}
	return &out, nil
}

func (c *httpClient) StartComparabilityAnalysis(ctx context.Context, req ComparabilityRequest) (*ComparabilityResponse, error) {
	if len(req.Companies) == 0 {
		return &ComparabilityResponse{}, nil
	}
	var out ComparabilityResponse
	if err := c.post(ctx, "/v1/comparability", req, &out); err != nil {
		return nil, eris.Wrap(err, "analysis: start comparability analysis")
	}
	return &out, nil
}

func (c *httpClient) ValidateWebsite(ctx context.Context, req ValidateWebsiteRequest) (*ValidateWebsiteResponse, error) {
	var out ValidateWebsiteResponse
	if err := c.post(ctx, "/v1/website-validations", req, &out); err != nil {
		return nil, eris.Wrap(err, "analysis: validate website")
	}
	return &out, nil
}

func (c *httpClient) post(ctx context.Context, path string, in, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return eris.Wrap(err, "analysis: rate limit")
		}
	}

	body, err := json.Marshal(in)
	if err != nil {
		return eris.Wrap(err, "analysis: marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return eris.Wrap(err, "analysis: create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return eris.Wrap(err, "analysis: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "analysis: read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := eris.Errorf("analysis: unexpected status %d: %s", resp.StatusCode, string(respBody))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return resilience.NewTransientError(statusErr, resp.StatusCode)
		}
		return statusErr
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return eris.Wrap(err, "analysis: unmarshal response")
	}
	return nil
}
