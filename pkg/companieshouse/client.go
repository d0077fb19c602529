// Package companieshouse provides a client for the Companies House REST API.
package companieshouse

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Client defines the company-registry lookups the gauntlet consumes.
type Client interface {
	// Profile fetches the core company profile.
	Profile(ctx context.Context, companyNumber string) (*CompanyProfile, error)
	// Officers lists active officers of the company.
	Officers(ctx context.Context, companyNumber string) ([]Officer, error)
	// PersonsWithSignificantControl lists active PSC entries.
	PersonsWithSignificantControl(ctx context.Context, companyNumber string) ([]PSC, error)
	// Charges lists registered charges (mortgages) against the company.
	Charges(ctx context.Context, companyNumber string) ([]Charge, error)
}

// CompanyProfile is the raw profile response subset we consume.
type CompanyProfile struct {
	CompanyNumber    string `json:"company_number"`
	CompanyName      string `json:"company_name"`
	CompanyStatus    string `json:"company_status"`
	RegisteredOffice struct {
		AddressLine1 string `json:"address_line_1"`
		Locality     string `json:"locality"`
		PostalCode   string `json:"postal_code"`
	} `json:"registered_office_address"`
}

// Officer is a single officer appointment.
type Officer struct {
	Name        string `json:"name"`
	OfficerRole string `json:"officer_role"`
	ResignedOn  string `json:"resigned_on,omitempty"`
}

// PSC is a person with significant control.
type PSC struct {
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	CeasedOn string `json:"ceased_on,omitempty"`
}

// Charge is a registered charge; the particulars sometimes carry the secured
// property's address.
type Charge struct {
	Status      string `json:"status"`
	Particulars struct {
		Description string `json:"description"`
	} `json:"particulars"`
	PostalCode string `json:"postal_code,omitempty"`
}

// Option configures the Companies House client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
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

// NewClient creates a Companies House client. The API allows 600 requests per
// 5 minutes per key; the limiter stays under that.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: "https://api.company-information.service.gov.uk",
		http:    &http.Client{Timeout: 15 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(1.5), 5),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) get(ctx context.Context, path string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "companieshouse: rate limit")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return eris.Wrapf(err, "companieshouse: build request %s", path)
	}
	req.SetBasicAuth(c.apiKey, "")

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrapf(err, "companieshouse: GET %s", path)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return eris.Errorf("companieshouse: GET %s returned %d", path, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrapf(err, "companieshouse: read %s", path)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrapf(err, "companieshouse: parse %s", path)
	}
	return nil
}

// ErrNotFound indicates the company number does not exist.
var ErrNotFound = eris.New("companieshouse: not found")

// Profile fetches the core company profile.
func (c *httpClient) Profile(ctx context.Context, companyNumber string) (*CompanyProfile, error) {
	var profile CompanyProfile
	if err := c.get(ctx, "/company/"+companyNumber, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// Officers lists active officers, skipping resigned appointments.
func (c *httpClient) Officers(ctx context.Context, companyNumber string) ([]Officer, error) {
	var page struct {
		Items []Officer `json:"items"`
	}
	if err := c.get(ctx, fmt.Sprintf("/company/%s/officers", companyNumber), &page); err != nil {
		return nil, err
	}
	var active []Officer
	for _, o := range page.Items {
		if o.ResignedOn == "" {
			active = append(active, o)
		}
	}
	return active, nil
}

// PersonsWithSignificantControl lists active PSC entries.
func (c *httpClient) PersonsWithSignificantControl(ctx context.Context, companyNumber string) ([]PSC, error) {
	var page struct {
		Items []PSC `json:"items"`
	}
	if err := c.get(ctx, fmt.Sprintf("/company/%s/persons-with-significant-control", companyNumber), &page); err != nil {
		return nil, err
	}
	var active []PSC
	for _, p := range page.Items {
		if p.CeasedOn == "" {
			active = append(active, p)
		}
	}
	return active, nil
}

// Charges lists registered charges.
func (c *httpClient) Charges(ctx context.Context, companyNumber string) ([]Charge, error) {
	var page struct {
		Items []Charge `json:"items"`
	}
	if err := c.get(ctx, fmt.Sprintf("/company/%s/charges", companyNumber), &page); err != nil {
		return nil, err
	}
	return page.Items, nil
}
