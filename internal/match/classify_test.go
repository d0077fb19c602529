package match

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/groundsight/prospector/internal/model"
)

func testProfile() model.CompanyProfile {
	return model.CompanyProfile{
		CompanyNumber:      "01234567",
		LegalName:          "Acme Developments Limited",
		RegisteredPostcode: "SW1A 1AA",
		Officers:           []model.Officer{{Name: "Jane Smith"}},
	}
}

func TestClassify_OrgAndPostcode(t *testing.T) {
	cand := Candidate{
		ApplicantOrg: "ACME DEVELOPMENTS LIMITED",
		Postcode:     "sw1a1aa",
	}

	reason, conf := Classify(cand, testProfile(), []string{"SW1A 1AA"}, false)
	assert.Equal(t, ReasonOrgAndPostcode, reason)
	assert.Equal(t, model.ConfidenceHigh, conf)
}

func TestClassify_OrgAndPostcode_PersonSearchDowngraded(t *testing.T) {
	cand := Candidate{
		ApplicantOrg: "Acme Developments Limited and Partners",
		Postcode:     "SW1A 1AA",
	}

	// Same evidence discovered via an officer-name search lands one tier
	// lower, but the reason is unchanged.
	reason, conf := Classify(cand, testProfile(), []string{"SW1A 1AA"}, true)
	assert.Equal(t, ReasonOrgAndPostcode, reason)
	assert.Equal(t, model.ConfidenceMedium, conf)
}

func TestClassify_PersonWithPostcode(t *testing.T) {
	cand := Candidate{
		ApplicantName: "Jane Smith",
		Postcode:      "SW1A 1AA",
	}

	reason, conf := Classify(cand, testProfile(), []string{"SW1A 1AA"}, true)
	assert.Equal(t, ReasonPersonAndPostcode, reason)
	assert.Equal(t, model.ConfidenceMedium, conf)
}

func TestClassify_FuzzyOrgName(t *testing.T) {
	cand := Candidate{
		ApplicantOrg: "Acme Developments (Southern)",
		Postcode:     "M1 1AE", // no postcode corroboration
	}

	reason, conf := Classify(cand, testProfile(), []string{"SW1A 1AA"}, false)
	assert.Equal(t, ReasonOrgFuzzy, reason)
	assert.Equal(t, model.ConfidenceMedium, conf)
}

func TestClassify_BarePerson(t *testing.T) {
	cand := Candidate{
		ApplicantName: "Jane Smith",
		Postcode:      "M1 1AE",
	}

	reason, conf := Classify(cand, testProfile(), []string{"SW1A 1AA"}, true)
	assert.Equal(t, ReasonPerson, reason)
	assert.Equal(t, model.ConfidenceLow, conf)
}

func TestClassify_WeakFallback(t *testing.T) {
	cand := Candidate{
		ApplicantOrg: "Bluebird Properties",
		Postcode:     "M1 1AE",
	}

	reason, conf := Classify(cand, testProfile(), []string{"SW1A 1AA"}, false)
	assert.Equal(t, ReasonWeak, reason)
	assert.Equal(t, model.ConfidenceLow, conf)
}

func TestClassify_PostcodeAloneIsNotHigh(t *testing.T) {
	// Matching postcode without an organisation match never reaches HIGH.
	cand := Candidate{
		ApplicantOrg: "Bluebird Properties",
		Postcode:     "SW1A 1AA",
	}

	reason, conf := Classify(cand, testProfile(), []string{"SW1A 1AA"}, false)
	assert.Equal(t, ReasonWeak, reason)
	assert.Equal(t, model.ConfidenceLow, conf)
}
