package model

import "time"

// Tier is the qualification band derived from a prospect's score.
type Tier string

const (
	TierA           Tier = "A"
	TierB           Tier = "B"
	TierC           Tier = "C"
	TierUnqualified Tier = "UNQUALIFIED"
)

// TierForScore maps a cumulative score onto a tier.
// Boundaries are inclusive at the bottom of each band: 10 is A, 5 is B, 1 is C.
func TierForScore(score int) Tier {
	switch {
	case score >= 10:
		return TierA
	case score >= 5:
		return TierB
	case score > 0:
		return TierC
	default:
		return TierUnqualified
	}
}

// Prospect is the persisted, cumulative qualification record for a company.
// One row per company number; mutated by every gauntlet run, never deleted.
type Prospect struct {
	CompanyNumber        string    `json:"company_number"`
	CompanyName          string    `json:"company_name,omitempty"`
	Score                int       `json:"score"`
	Tier                 Tier      `json:"tier"`
	HasPlanningHits      bool      `json:"has_planning_hits"`
	HasOwnedPropertyHits bool      `json:"has_owned_property_hits"`
	LastRunAt            time.Time `json:"last_run_at"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}
