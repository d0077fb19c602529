package gauntlet

import (
	"os"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/groundsight/prospector/internal/match"
	"github.com/groundsight/prospector/internal/model"
)

// Weights holds the scoring knobs. Defaults reproduce production behavior;
// an optional YAML file can override them for experimentation.
type Weights struct {
	LookbackMonths int `yaml:"lookback_months"`
	PlanningPoints int `yaml:"planning_points"`
	PropertyPoints int `yaml:"property_points"`
	OverlapBonus   int `yaml:"overlap_bonus"`
}

// DefaultWeights returns the production scoring weights.
func DefaultWeights() Weights {
	return Weights{
		LookbackMonths: 24,
		PlanningPoints: 3,
		PropertyPoints: 2,
		OverlapBonus:   1,
	}
}

// LoadWeights reads scoring weights from a YAML file. Missing fields keep
// their defaults.
func LoadWeights(path string) (Weights, error) {
	w := DefaultWeights()

	data, err := os.ReadFile(path)
	if err != nil {
		return w, eris.Wrapf(err, "gauntlet: read weights %s", path)
	}

	var wrapper struct {
		Scoring Weights `yaml:"scoring"`
	}
	wrapper.Scoring = w
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return w, eris.Wrap(err, "gauntlet: parse weights")
	}
	return wrapper.Scoring, nil
}

// ScoreResult is the outcome of scoring a company's accumulated links.
type ScoreResult struct {
	Total int        `json:"total"`
	Tier  model.Tier `json:"tier"`
}

// ScoreLinks computes the cumulative prospect score over all persisted links:
//
//   - each planning link whose relevant date falls inside the lookback window
//     and whose status is APPROVED or UNDER_CONSIDERATION earns PlanningPoints;
//   - each owned title earns PropertyPoints regardless of acquisition date;
//   - OverlapBonus is added at most once when any postcode appears on both a
//     linked planning site and a linked title.
//
// Adding a qualifying link never decreases the total.
func ScoreLinks(planning []model.PlanningLink, property []model.PropertyLink, now time.Time, w Weights) ScoreResult {
	lookbackStart := now.AddDate(0, -w.LookbackMonths, 0)

	total := 0
	planningPostcodes := make(map[string]bool)
	for _, l := range planning {
		if pc := match.NormalizePostcode(l.SitePostcode); pc != "" {
			planningPostcodes[pc] = true
		}

		date := l.RelevantDate()
		if date == nil || date.Before(lookbackStart) {
			continue
		}
		if l.Status == model.StatusApproved || l.Status == model.StatusUnderConsideration {
			total += w.PlanningPoints
		}
	}

	overlap := false
	for _, l := range property {
		total += w.PropertyPoints
		if pc := match.NormalizePostcode(l.Postcode); pc != "" && planningPostcodes[pc] {
			overlap = true
		}
	}
	if overlap {
		total += w.OverlapBonus
	}

	return ScoreResult{Total: total, Tier: model.TierForScore(total)}
}
