// Package planit provides a client for the PlanIt national planning
// application aggregator (planit.org.uk).
package planit

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
)

// Client defines the PlanIt search operation. Implementations are stateless
// functions of (term, postcodes) so test doubles can substitute canned
// responses.
type Client interface {
	Search(ctx context.Context, term string, postcodes []string) ([]Application, error)
}

// Application is a raw PlanIt record. Field names follow the source payload;
// the struct is retained verbatim in the normalized record for audit.
type Application struct {
	Name          string `json:"name"`
	Reference     string `json:"reference"`
	AreaName      string `json:"area_name"`
	Address       string `json:"address"`
	Postcode      string `json:"postcode"`
	Description   string `json:"description"`
	ApplicantName string `json:"applicant_name"`
	Organisation  string `json:"organisation"`
	AppState      string `json:"app_state"`
	StartDate     string `json:"start_date"`
	DecidedDate   string `json:"decided_date"`
	URL           string `json:"url"`
}

// searchResponse is the envelope around PlanIt results.
type searchResponse struct {
	Total   int           `json:"total"`
	Records []Application `json:"records"`
}

// Option configures the PlanIt client.
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

// WithPageSize caps the number of records per search.
func WithPageSize(n int) Option {
	return func(c *httpClient) {
		c.pageSize = n
	}
}

type httpClient struct {
	baseURL  string
	http     *http.Client
	limiter  *rate.Limiter
	pageSize int
}

// NewClient creates a PlanIt client. PlanIt is a public aggregator with no
// auth; the limiter keeps us polite.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL:  "https://www.planit.org.uk",
		http:     &http.Client{Timeout: 20 * time.Second},
		limiter:  rate.NewLimiter(rate.Limit(1), 2),
		pageSize: 100,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search queries PlanIt for applications whose text matches term, optionally
// narrowed to the given postcodes.
func (c *httpClient) Search(ctx context.Context, term string, postcodes []string) ([]Application, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "planit: rate limit")
	}

	params := url.Values{
		"search":   {term},
		"pg_sz":    {strconv.Itoa(c.pageSize)},
		"compress": {"on"},
	}
	for _, pc := range postcodes {
		params.Add("postcode", pc)
	}

	reqURL := c.baseURL + "/api/applics/json?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "planit: build request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "planit: search request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("planit: search returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "planit: read response")
	}

	var sr searchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, eris.Wrap(err, "planit: parse response")
	}
	return sr.Records, nil
}
