package gauntlet

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/groundsight/prospector/internal/match"
	"github.com/groundsight/prospector/internal/model"
	"github.com/groundsight/prospector/pkg/landregistry"
	"github.com/groundsight/prospector/pkg/londondatahub"
	"github.com/groundsight/prospector/pkg/planit"
)

// planitStatuses maps PlanIt app_state values onto the canonical enum.
var planitStatuses = map[string]model.CanonicalStatus{
	"permitted":  model.StatusApproved,
	"conditions": model.StatusApproved,
	"rejected":   model.StatusRejected,
	"withdrawn":  model.StatusWithdrawn,
	"undecided":  model.StatusUnderConsideration,
	"unresolved": model.StatusUnderConsideration,
	"referred":   model.StatusUnderConsideration,
}

// normalizePlanIt converts a raw PlanIt record to the shared shape, keeping
// the source payload for audit.
func normalizePlanIt(raw planit.Application) model.PlanningApplication {
	externalID := raw.Name
	if externalID == "" {
		externalID = raw.Reference
	}
	rawJSON, _ := json.Marshal(raw)
	return model.PlanningApplication{
		Source:        model.SourcePlanIt,
		ExternalID:    externalID,
		Authority:     raw.AreaName,
		SiteAddress:   raw.Address,
		SitePostcode:  raw.Postcode,
		ApplicantName: raw.ApplicantName,
		ApplicantOrg:  raw.Organisation,
		Status:        canonicalStatus(raw.AppState, planitStatuses),
		DecisionDate:  parseSourceDate(raw.DecidedDate),
		ReceivedDate:  parseSourceDate(raw.StartDate),
		Raw:           rawJSON,
	}
}

// datahubStatuses maps London Datahub status values onto the canonical enum.
var datahubStatuses = map[string]model.CanonicalStatus{
	"approved":          model.StatusApproved,
	"granted":           model.StatusApproved,
	"completed":         model.StatusApproved,
	"refused":           model.StatusRejected,
	"rejected":          model.StatusRejected,
	"withdrawn":         model.StatusWithdrawn,
	"lapsed":            model.StatusWithdrawn,
	"registered":        model.StatusUnderConsideration,
	"awaiting decision": model.StatusUnderConsideration,
	"under consultation": model.StatusUnderConsideration,
}

// normalizeDatahub converts a raw datahub record to the shared shape.
func normalizeDatahub(raw londondatahub.Application) model.PlanningApplication {
	rawJSON, _ := json.Marshal(raw)
	return model.PlanningApplication{
		Source:        model.SourceLondonDatahub,
		ExternalID:    raw.LPAAppNo,
		Authority:     raw.BoroughName,
		SiteAddress:   raw.SiteAddress,
		SitePostcode:  raw.Postcode,
		ApplicantName: raw.ApplicantName,
		ApplicantOrg:  raw.OrganisationName,
		Status:        canonicalStatus(raw.Status, datahubStatuses),
		DecisionDate:  parseSourceDate(raw.DecisionDate),
		ReceivedDate:  parseSourceDate(raw.ValidDate),
		Raw:           rawJSON,
	}
}

// normalizeTitle converts a raw land-registry record to the shared shape.
func normalizeTitle(raw landregistry.Title) model.PropertyTitle {
	rawJSON, _ := json.Marshal(raw)
	country := raw.CountryCode
	if country == "" {
		country = "GB"
	}
	return model.PropertyTitle{
		TitleNumber: strings.ToUpper(strings.TrimSpace(raw.TitleNumber)),
		CountryCode: country,
		Address:     raw.PropertyAddress,
		Postcode:    raw.Postcode,
		Raw:         rawJSON,
	}
}

// candidateOf extracts the fields the classifier inspects.
func candidateOf(rec model.PlanningApplication) match.Candidate {
	return match.Candidate{
		ApplicantOrg:  rec.ApplicantOrg,
		ApplicantName: rec.ApplicantName,
		Postcode:      rec.SitePostcode,
	}
}

// canonicalStatus maps a source status string using the vocabulary table,
// falling back to UNKNOWN.
func canonicalStatus(raw string, vocab map[string]model.CanonicalStatus) model.CanonicalStatus {
	key := strings.ToLower(strings.TrimSpace(raw))
	if s, ok := vocab[key]; ok {
		return s
	}
	return model.StatusUnknown
}

// sourceDateLayouts covers the date formats seen across the registers.
var sourceDateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"02/01/2006",
}

// parseSourceDate parses a source date string, returning nil when absent or
// unparseable.
func parseSourceDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range sourceDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
