// Package landregistry provides a client for the HM Land Registry corporate
// ownership datasets (CCOD/OCOD) query API.
package landregistry

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Client defines the title lookups the gauntlet consumes. The source does not
// guarantee indexing by both keys, so callers query by company number and by
// proprietor name and dedupe the union.
type Client interface {
	SearchByCompanyNumber(ctx context.Context, companyNumber string) ([]Title, error)
	SearchByProprietorName(ctx context.Context, name string) ([]Title, error)
}

// Title is a raw land-registry record.
type Title struct {
	TitleNumber         string `json:"title_number"`
	Tenure              string `json:"tenure"`
	PropertyAddress     string `json:"property_address"`
	Postcode            string `json:"postcode"`
	District            string `json:"district"`
	County              string `json:"county"`
	Region              string `json:"region"`
	CountryCode         string `json:"country_code"`
	ProprietorName      string `json:"proprietor_name"`
	CompanyRegistration string `json:"company_registration_no"`
	DateProprietorAdded string `json:"date_proprietor_added"`
	Dataset             string `json:"dataset"`
}

// Option configures the land registry client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(baseURL string) Option {
	return func(c *httpClient) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates an HM Land Registry client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: "https://use-land-property-data.service.gov.uk/api",
		http:    &http.Client{Timeout: 20 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(2), 4),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) search(ctx context.Context, params url.Values) ([]Title, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "landregistry: rate limit")
	}

	reqURL := c.baseURL + "/v1/titles?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "landregistry: build request")
	}
	req.Header.Set("Authorization", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "landregistry: search request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("landregistry: search returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "landregistry: read response")
	}

	var sr struct {
		Titles []Title `json:"titles"`
	}
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, eris.Wrap(err, "landregistry: parse response")
	}
	return sr.Titles, nil
}

// SearchByCompanyNumber looks up titles by registered company number.
func (c *httpClient) SearchByCompanyNumber(ctx context.Context, companyNumber string) ([]Title, error) {
	return c.search(ctx, url.Values{"company_registration_no": {companyNumber}})
}

// SearchByProprietorName looks up titles by proprietor name.
func (c *httpClient) SearchByProprietorName(ctx context.Context, name string) ([]Title, error) {
	return c.search(ctx, url.Values{"proprietor_name": {name}})
}
