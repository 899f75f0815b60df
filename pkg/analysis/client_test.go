package analysis

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/benchmark-cli/internal/resilience"
)

func TestStartWebSearch(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		body          string
		wantErr       string
		wantTransient bool
		wantSearchID  string
	}{
		{
			name:         "success",
			status:       http.StatusOK,
			body:         `{"searches":[{"company_id":7,"search_id":"s-7","status":"In Queue"}]}`,
			wantSearchID: "s-7",
		},
		{
			name:          "rate_limit",
			status:        http.StatusTooManyRequests,
			body:          `{"error":"slow down"}`,
			wantErr:       "unexpected status 429",
			wantTransient: true,
		},
		{
			name:          "server_error",
			status:        http.StatusBadGateway,
			body:          `bad gateway`,
			wantErr:       "unexpected status 502",
			wantTransient: true,
		},
		{
			name:    "bad_request",
			status:  http.StatusBadRequest,
			body:    `{"error":"missing url"}`,
			wantErr: "missing url",
		},
		{
			name:    "malformed_response",
			status:  http.StatusOK,
			body:    `{invalid`,
			wantErr: "unmarshal response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/v1/searches", r.URL.Path)
				assert.Equal(t, "test-key", r.Header.Get("X-API-Key"))

				var req WebSearchRequest
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				assert.Len(t, req.Companies, 1)

				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewClient("test-key", WithBaseURL(srv.URL), WithRateLimit(0))
			resp, err := client.StartWebSearch(context.Background(), WebSearchRequest{
				Companies: []SearchCompany{{CompanyID: 7, Name: "Acme", Country: "NL", URL: "acme.nl"}},
			})

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Equal(t, tt.wantTransient, resilience.IsTransient(err))
				assert.Nil(t, resp)
				return
			}
			require.NoError(t, err)
			require.Len(t, resp.Searches, 1)
			assert.Equal(t, tt.wantSearchID, resp.Searches[0].SearchID)
			assert.Equal(t, int64(7), resp.Searches[0].CompanyID)
		})
	}
}

func TestStartWebSearch_EmptyBatchSkipsRequest(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	resp, err := NewClient("", WithBaseURL(srv.URL)).StartWebSearch(context.Background(), WebSearchRequest{})
	require.NoError(t, err)
	assert.Empty(t, resp.Searches)
	assert.Equal(t, int32(0), calls.Load())
}

func TestStartComparabilityAnalysis(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/comparability", r.URL.Path)
		assert.Empty(t, r.Header.Get("X-API-Key"))

		var req ComparabilityRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Criteria.IndependenceEnabled)
		assert.Equal(t, "software", req.Criteria.IdealProducts)
		require.Len(t, req.Companies, 2)

		_, _ = w.Write([]byte(`{"accepted":[{"company_id":1,"search_id":"a","status":"In Queue"},{"company_id":2,"search_id":"b","status":"In Queue"}]}`))
	}))
	defer srv.Close()

	client := NewClient("", WithBaseURL(srv.URL))
	resp, err := client.StartComparabilityAnalysis(context.Background(), ComparabilityRequest{
		Criteria:  Criteria{IdealProducts: "software", IndependenceEnabled: true},
		Companies: []AnalysisTarget{{CompanyID: 1, SearchID: "a"}, {CompanyID: 2, SearchID: "b"}},
	})
	require.NoError(t, err)
	assert.Len(t, resp.Accepted, 2)
}

func TestValidateWebsite(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/website-validations", r.URL.Path)

		var req ValidateWebsiteRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "acme.nl", req.URL)

		_, _ = w.Write([]byte(`{"url":"https://www.acme.nl","valid":true}`))
	}))
	defer srv.Close()

	resp, err := NewClient("", WithBaseURL(srv.URL)).ValidateWebsite(context.Background(), ValidateWebsiteRequest{
		Name: "Acme", Country: "NL", URL: "acme.nl",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://www.acme.nl", resp.URL)
	assert.True(t, resp.Valid)
}

func TestClient_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := NewClient("", WithBaseURL(srv.URL)).ValidateWebsite(ctx, ValidateWebsiteRequest{URL: "x.nl"})
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
}

func TestWithRateLimit(t *testing.T) {
	c := NewClient("", WithRateLimit(2)).(*httpClient)
	require.NotNil(t, c.limiter)
	assert.Equal(t, 2, c.limiter.Burst())

	c = NewClient("", WithRateLimit(0)).(*httpClient)
	assert.Nil(t, c.limiter)
}

func TestWithHTTPClient(t *testing.T) {
	hc := &http.Client{Timeout: time.Second}
	c := NewClient("", WithHTTPClient(hc), WithBaseURL("")).(*httpClient)
	assert.Same(t, hc, c.http)
	assert.Equal(t, defaultBaseURL, c.baseURL)
}
