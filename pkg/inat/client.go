// Package inat is a minimal client for the iNaturalist taxa search API.
package inat

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/taxon-cli/internal/resilience"
)

const (
	defaultBaseURL = "https://api.inaturalist.org/v1"
	defaultLocale  = "sk"
	defaultPerPage = 10
)

// Client searches taxa by name.
type Client interface {
	Autocomplete(ctx context.Context, query string) (*AutocompleteResponse, error)
}

// AutocompleteResponse is the body of GET /taxa/autocomplete.
type AutocompleteResponse struct {
	TotalResults int     `json:"total_results"`
	Page         int     `json:"page"`
	PerPage      int     `json:"per_page"`
	Results      []Taxon `json:"results"`
}

// Taxon is one search hit.
type Taxon struct {
	ID                  int64   `json:"id"`
	Name                string  `json:"name"`
	Rank                string  `json:"rank"`
	RankLevel           float64 `json:"rank_level"`
	MatchedTerm         string  `json:"matched_term"`
	PreferredCommonName string  `json:"preferred_common_name"`
	IsActive            bool    `json:"is_active"`
	IconicTaxonName     string  `json:"iconic_taxon_name"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) { c.baseURL = u }
}

// WithLocale sets the locale used for common names.
func WithLocale(locale string) Option {
	return func(c *httpClient) {
		if locale != "" {
			c.locale = locale
		}
	}
}

// WithPerPage sets the maximum number of hits per query.
func WithPerPage(n int) Option {
	return func(c *httpClient) {
		if n > 0 {
			c.perPage = n
		}
	}
}

// WithRateLimit caps requests per second. The public API asks for at most one.
func WithRateLimit(perSecond float64) Option {
	return func(c *httpClient) {
		if perSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

type httpClient struct {
	baseURL string
	locale  string
	perPage int
	limiter *rate.Limiter
	http    *http.Client
}

// NewClient returns an iNaturalist client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: defaultBaseURL,
		locale:  defaultLocale,
		perPage: defaultPerPage,
		limiter: rate.NewLimiter(1, 1),
		http: &http.Client{
			Timeout: 20 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Autocomplete(ctx context.Context, query string) (*AutocompleteResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "inat: rate limit wait")
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("locale", c.locale)
	params.Set("per_page", strconv.Itoa(c.perPage))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/taxa/autocomplete?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "inat: create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "inat: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "inat: read response")
	}

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("inat: unexpected status %d: %s", resp.StatusCode, string(body))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	var out AutocompleteResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, eris.Wrap(err, "inat: unmarshal response")
	}
	return &out, nil
}
