package model

import (
	"encoding/json"
	"time"
)

// PlanningSource identifies which register a planning application came from.
type PlanningSource string

const (
	// SourcePlanIt is the national planning register aggregator.
	SourcePlanIt PlanningSource = "planit"
	// SourceLondonDatahub is the GLA London Planning Datahub.
	SourceLondonDatahub PlanningSource = "london_datahub"
)

// CanonicalStatus is the normalized planning decision state. Each source has
// its own status vocabulary; adapters map into this enum before persistence.
type CanonicalStatus string

const (
	StatusApproved           CanonicalStatus = "APPROVED"
	StatusRejected           CanonicalStatus = "REJECTED"
	StatusUnderConsideration CanonicalStatus = "UNDER_CONSIDERATION"
	StatusWithdrawn          CanonicalStatus = "WITHDRAWN"
	StatusUnknown            CanonicalStatus = "UNKNOWN"
)

// PlanningApplication is the source-independent representation of a single
// planning application. (Source, ExternalID) is globally unique; re-ingestion
// updates the row in place.
type PlanningApplication struct {
	ID            string          `json:"id,omitempty"`
	Source        PlanningSource  `json:"source"`
	ExternalID    string          `json:"external_id"`
	Authority     string          `json:"authority,omitempty"`
	SiteAddress   string          `json:"site_address,omitempty"`
	SitePostcode  string          `json:"site_postcode,omitempty"`
	ApplicantName string          `json:"applicant_name,omitempty"`
	ApplicantOrg  string          `json:"applicant_org,omitempty"`
	Status        CanonicalStatus `json:"status"`
	DecisionDate  *time.Time      `json:"decision_date,omitempty"`
	ReceivedDate  *time.Time      `json:"received_date,omitempty"`
	Raw           json.RawMessage `json:"raw,omitempty"`
}

// RelevantDate is the date used for recency scoring: the decision date when
// present, otherwise the received date.
func (p PlanningApplication) RelevantDate() *time.Time {
	if p.DecisionDate != nil {
		return p.DecisionDate
	}
	return p.ReceivedDate
}
