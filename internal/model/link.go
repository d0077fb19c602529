package model

import "time"

// PlanningLink is a company-to-planning-application association read back for
// scoring, joined with the record fields scoring needs. Confidence and reason
// reflect the most recent re-match of the pair.
type PlanningLink struct {
	PlanningID   string          `json:"planning_id"`
	Confidence   Confidence      `json:"confidence"`
	MatchReason  string          `json:"match_reason"`
	Status       CanonicalStatus `json:"status"`
	DecisionDate *time.Time      `json:"decision_date,omitempty"`
	ReceivedDate *time.Time      `json:"received_date,omitempty"`
	SitePostcode string          `json:"site_postcode,omitempty"`
}

// RelevantDate is the decision date when present, else the received date.
func (l PlanningLink) RelevantDate() *time.Time {
	if l.DecisionDate != nil {
		return l.DecisionDate
	}
	return l.ReceivedDate
}

// PropertyLink is a company-to-title association read back for scoring.
// AcquiredDate is recorded but not weighted by the scorer.
type PropertyLink struct {
	PropertyID    string     `json:"property_id"`
	TitleNumber   string     `json:"title_number"`
	Postcode      string     `json:"postcode,omitempty"`
	OwnershipType string     `json:"ownership_type,omitempty"`
	DatasetTag    string     `json:"dataset_tag,omitempty"`
	AcquiredDate  *time.Time `json:"acquired_date,omitempty"`
}
