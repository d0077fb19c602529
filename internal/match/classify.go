package match

import (
	"strings"

	"github.com/groundsight/prospector/internal/model"
)

// Match reason tags persisted on company-planning links.
const (
	ReasonOrgAndPostcode    = "ORG_NAME_MATCH+POSTCODE_MATCH"
	ReasonPersonAndPostcode = "PERSON_NAME_MATCH+POSTCODE_MATCH"
	ReasonOrgFuzzy          = "ORG_NAME_FUZZY_MATCH"
	ReasonPerson            = "PERSON_NAME_MATCH"
	ReasonWeak              = "WEAK_MATCH"
)

// Candidate is the slice of a raw planning record the classifier inspects.
type Candidate struct {
	ApplicantOrg  string
	ApplicantName string
	Postcode      string
}

// Classify scores a candidate planning record against a company profile and
// returns a match reason plus confidence tier. Pure function; first matching
// rule wins:
//
//  1. HIGH   — applicant organisation contains the legal name AND the site
//             postcode equals a company postcode.
//  2. MEDIUM — person-derived candidate whose postcode equals a company
//             postcode.
//  3. MEDIUM — fuzzy organisation-name match, no postcode requirement.
//  4. LOW    — person-derived candidate with no corroboration.
//  5. LOW    — fallback.
//
// A person-derived candidate that would land HIGH under rule 1 is downgraded
// one tier: officer/PSC association is weaker evidence than a direct
// organisation match. Rules 2-4 already cap at MEDIUM/LOW and are not
// downgraded further.
func Classify(cand Candidate, profile model.CompanyProfile, postcodes []string, personSearch bool) (string, model.Confidence) {
	legalName := foldName(profile.LegalName)
	org := foldName(cand.ApplicantOrg)
	postcodeHit := cand.Postcode != "" && ContainsPostcode(postcodes, cand.Postcode)

	// Rule 1: direct organisation + postcode corroboration.
	if legalName != "" && org != "" && strings.Contains(org, legalName) && postcodeHit {
		conf := model.ConfidenceHigh
		if personSearch {
			conf = conf.Downgrade()
		}
		return ReasonOrgAndPostcode, conf
	}

	// Rule 2: person-derived with postcode corroboration.
	if personSearch && postcodeHit {
		return ReasonPersonAndPostcode, model.ConfidenceMedium
	}

	// Rule 3: fuzzy organisation name, postcode not required.
	if cand.ApplicantOrg != "" && FuzzyNameMatch(cand.ApplicantOrg, profile.LegalName) {
		return ReasonOrgFuzzy, model.ConfidenceMedium
	}

	// Rule 4: bare person association.
	if personSearch {
		return ReasonPerson, model.ConfidenceLow
	}

	return ReasonWeak, model.ConfidenceLow
}
