package model

import "encoding/json"

// PropertyTitle is a normalized land-registry title. TitleNumber is the
// natural key and is unique across the corpus.
type PropertyTitle struct {
	ID          string          `json:"id,omitempty"`
	TitleNumber string          `json:"title_number"`
	CountryCode string          `json:"country_code,omitempty"`
	Address     string          `json:"address,omitempty"`
	Postcode    string          `json:"postcode,omitempty"`
	Raw         json.RawMessage `json:"raw,omitempty"`
}

