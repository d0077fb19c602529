package match

import (
	"strings"

	"github.com/groundsight/prospector/internal/model"
)

// SearchTerm is a single candidate search string. Person-derived terms are
// tracked so the classifier can weigh their matches more weakly.
type SearchTerm struct {
	Value  string `json:"value"`
	Person bool   `json:"person"`
}

// BuildSearchTerms derives the ordered search strings and postcode set for a
// gauntlet run: the legal name first, then officer names, then controlling
// persons; postcodes come from the registered office and any charge
// addresses. Terms and postcodes are deduplicated; order is preserved.
//
// A company with no officers, no PSC and no postcode yields a single-term,
// zero-postcode search. Callers degrade to organisation-name-only matching.
func BuildSearchTerms(profile model.CompanyProfile) ([]SearchTerm, []string) {
	var terms []SearchTerm
	seen := make(map[string]bool)

	add := func(value string, person bool) {
		value = strings.TrimSpace(value)
		if value == "" {
			return
		}
		key := strings.ToUpper(value)
		if seen[key] {
			return
		}
		seen[key] = true
		terms = append(terms, SearchTerm{Value: value, Person: person})
	}

	add(profile.LegalName, false)
	for _, o := range profile.Officers {
		add(o.Name, true)
	}
	for _, p := range profile.ControllingPersons {
		add(p.Name, true)
	}

	var postcodes []string
	seenPC := make(map[string]bool)
	addPC := func(pc string) {
		norm := NormalizePostcode(pc)
		if norm == "" || seenPC[norm] {
			return
		}
		seenPC[norm] = true
		postcodes = append(postcodes, strings.TrimSpace(pc))
	}

	addPC(profile.RegisteredPostcode)
	for _, pc := range profile.ChargePostcodes {
		addPC(pc)
	}

	return terms, postcodes
}
