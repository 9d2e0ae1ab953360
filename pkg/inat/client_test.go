package inat

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/taxon-cli/internal/resilience"
)

func TestAutocomplete(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		body          string
		wantErr       string
		wantTransient bool
		wantResults   int
	}{
		{
			name:   "success",
			status: http.StatusOK,
			body: `{"total_results":1,"page":1,"per_page":10,"results":[
				{"id":48461,"name":"Lupinus","rank":"genus","rank_level":20,"matched_term":"Lupinus","is_active":true}
			]}`,
			wantResults: 1,
		},
		{
			name:          "rate_limited",
			status:        http.StatusTooManyRequests,
			body:          `{"error":"slow down"}`,
			wantErr:       "unexpected status 429",
			wantTransient: true,
		},
		{
			name:    "bad_request",
			status:  http.StatusBadRequest,
			body:    `{"error":"bad"}`,
			wantErr: "unexpected status 400",
		},
		{
			name:    "malformed",
			status:  http.StatusOK,
			body:    `{nope`,
			wantErr: "unmarshal response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				assert.Equal(t, "/taxa/autocomplete", r.URL.Path)
				assert.Equal(t, "Lupinus", r.URL.Query().Get("q"))
				assert.Equal(t, "sk", r.URL.Query().Get("locale"))
				assert.Equal(t, "5", r.URL.Query().Get("per_page"))

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewClient(WithBaseURL(srv.URL), WithPerPage(5), WithRateLimit(1000))
			resp, err := client.Autocomplete(context.Background(), "Lupinus")

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Equal(t, tt.wantTransient, resilience.IsTransient(err))
				assert.Nil(t, resp)
				return
			}

			require.NoError(t, err)
			require.Len(t, resp.Results, tt.wantResults)
			assert.Equal(t, int64(48461), resp.Results[0].ID)
			assert.Equal(t, "genus", resp.Results[0].Rank)
		})
	}
}

func TestAutocomplete_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewClient(WithBaseURL(srv.URL)).Autocomplete(ctx, "Lupinus")
	require.Error(t, err)
}
