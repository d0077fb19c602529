package model

// CompanyProfile is the registry view of a company, loaded once per gauntlet
// run and treated as immutable for its duration.
type CompanyProfile struct {
	CompanyNumber      string              `json:"company_number"`
	LegalName          string              `json:"legal_name"`
	RegisteredPostcode string              `json:"registered_postcode"`
	Officers           []Officer           `json:"officers,omitempty"`
	ControllingPersons []ControllingPerson `json:"controlling_persons,omitempty"`
	ChargePostcodes    []string            `json:"charge_postcodes,omitempty"`
}

// Officer is a current company officer.
type Officer struct {
	Name string `json:"name"`
}

// ControllingPerson is a person with significant control over the company.
type ControllingPerson struct {
	Name string `json:"name"`
}
