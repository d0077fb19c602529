// Package londondatahub provides a client for the GLA London Planning
// Datahub guest search API (an Elasticsearch endpoint).
package londondatahub

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Client defines the datahub search operation.
type Client interface {
	Search(ctx context.Context, term string, postcodes []string) ([]Application, error)
}

// Application is a raw datahub record (_source of a search hit).
type Application struct {
	LPAAppNo         string `json:"lpa_app_no"`
	BoroughName      string `json:"borough"`
	SiteAddress      string `json:"development_address"`
	Postcode         string `json:"postcode"`
	ApplicantName    string `json:"applicant_name"`
	OrganisationName string `json:"applicant_organisation"`
	Status           string `json:"status"`
	DecisionDate     string `json:"decision_date"`
	ValidDate        string `json:"valid_date"`
	Description      string `json:"description"`
}

// esResponse is the Elasticsearch search envelope.
type esResponse struct {
	Hits struct {
		Hits []struct {
			Source Application `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Option configures the datahub client.
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
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	size    int
}

// NewClient creates a London Planning Datahub client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: "https://planningdata.london.gov.uk/api-guest/applications",
		http:    &http.Client{Timeout: 20 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(2), 4),
		size:    100,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search runs a multi_match query over applicant fields, optionally filtered
// to the given site postcodes.
func (c *httpClient) Search(ctx context.Context, term string, postcodes []string) ([]Application, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "londondatahub: rate limit")
	}

	must := []map[string]any{
		{
			"multi_match": map[string]any{
				"query":  term,
				"fields": []string{"applicant_organisation", "applicant_name", "description"},
			},
		},
	}
	query := map[string]any{
		"size": c.size,
		"query": map[string]any{
			"bool": map[string]any{"must": must},
		},
	}
	if len(postcodes) > 0 {
		query["query"].(map[string]any)["bool"].(map[string]any)["should"] = []map[string]any{
			{"terms": map[string]any{"postcode.keyword": postcodes}},
		}
	}

	payload, err := json.Marshal(query)
	if err != nil {
		return nil, eris.Wrap(err, "londondatahub: marshal query")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/_search", bytes.NewReader(payload))
	if err != nil {
		return nil, eris.Wrap(err, "londondatahub: build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "londondatahub: search request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("londondatahub: search returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "londondatahub: read response")
	}

	var er esResponse
	if err := json.Unmarshal(body, &er); err != nil {
		return nil, eris.Wrap(err, "londondatahub: parse response")
	}

	records := make([]Application, 0, len(er.Hits.Hits))
	for _, h := range er.Hits.Hits {
		records = append(records, h.Source)
	}
	return records, nil
}
