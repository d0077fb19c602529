package gauntlet

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groundsight/prospector/internal/model"
)

var scoreNow = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

func datePtr(t time.Time) *time.Time { return &t }

func TestScoreLinks_PlanningInsideLookback(t *testing.T) {
	planning := []model.PlanningLink{
		{Status: model.StatusApproved, DecisionDate: datePtr(scoreNow.AddDate(0, -6, 0))},
		{Status: model.StatusUnderConsideration, ReceivedDate: datePtr(scoreNow.AddDate(0, -1, 0))},
	}

	got := ScoreLinks(planning, nil, scoreNow, DefaultWeights())
	assert.Equal(t, 6, got.Total)
	assert.Equal(t, model.TierB, got.Tier)
}

func TestScoreLinks_OldPlanningExcluded(t *testing.T) {
	planning := []model.PlanningLink{
		{Status: model.StatusApproved, DecisionDate: datePtr(scoreNow.AddDate(0, -30, 0))},
	}

	got := ScoreLinks(planning, nil, scoreNow, DefaultWeights())
	assert.Equal(t, 0, got.Total)
	assert.Equal(t, model.TierUnqualified, got.Tier)
}

func TestScoreLinks_NonQualifyingStatusExcluded(t *testing.T) {
	recent := datePtr(scoreNow.AddDate(0, -2, 0))
	planning := []model.PlanningLink{
		{Status: model.StatusRejected, DecisionDate: recent},
		{Status: model.StatusWithdrawn, DecisionDate: recent},
		{Status: model.StatusUnknown, DecisionDate: recent},
	}

	got := ScoreLinks(planning, nil, scoreNow, DefaultWeights())
	assert.Equal(t, 0, got.Total)
}

func TestScoreLinks_UndatedPlanningExcluded(t *testing.T) {
	planning := []model.PlanningLink{{Status: model.StatusApproved}}

	got := ScoreLinks(planning, nil, scoreNow, DefaultWeights())
	assert.Equal(t, 0, got.Total)
}

func TestScoreLinks_PropertyRegardlessOfAge(t *testing.T) {
	old := datePtr(scoreNow.AddDate(-10, 0, 0))
	property := []model.PropertyLink{
		{TitleNumber: "NGL1", AcquiredDate: old},
		{TitleNumber: "NGL2"},
	}

	got := ScoreLinks(nil, property, scoreNow, DefaultWeights())
	assert.Equal(t, 4, got.Total)
	assert.Equal(t, model.TierUnqualified, model.TierForScore(0))
	assert.Equal(t, model.TierC, got.Tier)
}

func TestScoreLinks_OverlapBonusOnce(t *testing.T) {
	recent := datePtr(scoreNow.AddDate(0, -3, 0))
	planning := []model.PlanningLink{
		{Status: model.StatusApproved, DecisionDate: recent, SitePostcode: "SW1A 1AA"},
		{Status: model.StatusApproved, DecisionDate: recent, SitePostcode: "E1 6AN"},
	}
	property := []model.PropertyLink{
		{TitleNumber: "NGL1", Postcode: "sw1a1aa"}, // overlaps first site
		{TitleNumber: "NGL2", Postcode: "E16AN"},   // overlaps second site
	}

	// 2 planning * 3 + 2 property * 2 + overlap bonus once = 11.
	got := ScoreLinks(planning, property, scoreNow, DefaultWeights())
	assert.Equal(t, 11, got.Total)
	assert.Equal(t, model.TierA, got.Tier)
}

func TestScoreLinks_OverlapCountsExpiredPlanningPostcodes(t *testing.T) {
	// An out-of-window planning site still contributes its postcode to the
	// overlap check even though it earns no points itself.
	planning := []model.PlanningLink{
		{Status: model.StatusApproved, DecisionDate: datePtr(scoreNow.AddDate(0, -36, 0)), SitePostcode: "SW1A 1AA"},
	}
	property := []model.PropertyLink{
		{TitleNumber: "NGL1", Postcode: "SW1A 1AA"},
	}

	got := ScoreLinks(planning, property, scoreNow, DefaultWeights())
	assert.Equal(t, 3, got.Total) // 2 property + 1 overlap
}

func TestScoreLinks_Monotonic(t *testing.T) {
	recent := datePtr(scoreNow.AddDate(0, -1, 0))
	planning := []model.PlanningLink{}

	prev := ScoreLinks(planning, nil, scoreNow, DefaultWeights()).Total
	for i := 0; i < 5; i++ {
		planning = append(planning, model.PlanningLink{Status: model.StatusApproved, DecisionDate: recent})
		got := ScoreLinks(planning, nil, scoreNow, DefaultWeights()).Total
		assert.GreaterOrEqual(t, got, prev)
		prev = got
	}
}

func TestTierBoundaries(t *testing.T) {
	tests := []struct {
		score int
		tier  model.Tier
	}{
		{12, model.TierA},
		{10, model.TierA},
		{9, model.TierB},
		{5, model.TierB},
		{4, model.TierC},
		{1, model.TierC},
		{0, model.TierUnqualified},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.tier, model.TierForScore(tt.score), "score %d", tt.score)
	}
}

func TestLoadWeights(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weights.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scoring:\n  planning_points: 5\n  lookback_months: 12\n"), 0o600))

	w, err := LoadWeights(path)
	require.NoError(t, err)
	assert.Equal(t, 5, w.PlanningPoints)
	assert.Equal(t, 12, w.LookbackMonths)
	// Unspecified fields keep their defaults.
	assert.Equal(t, 2, w.PropertyPoints)
	assert.Equal(t, 1, w.OverlapBonus)
}

func TestLoadWeights_MissingFile(t *testing.T) {
	_, err := LoadWeights(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
