package store

import (
	"context"
	"time"

	"github.com/groundsight/prospector/internal/model"
)

// ProspectFilter specifies criteria for listing prospects.
type ProspectFilter struct {
	Tier   model.Tier `json:"tier,omitempty"`
	Limit  int        `json:"limit,omitempty"`
	Offset int        `json:"offset,omitempty"`
}

// PropertyLinkAttrs is the run-specific evidence carried on a
// company-property link.
type PropertyLinkAttrs struct {
	OwnershipType string     `json:"ownership_type,omitempty"`
	DatasetTag    string     `json:"dataset_tag,omitempty"`
	AcquiredDate  *time.Time `json:"acquired_date,omitempty"`
}

// Store is the persistence gateway for the gauntlet. All upsert and link
// operations are idempotent: calling them repeatedly with identical inputs
// never creates duplicate rows.
type Store interface {
	// Prospects
	UpsertProspect(ctx context.Context, companyNumber, companyName string) (*model.Prospect, error)
	GetProspect(ctx context.Context, companyNumber string) (*model.Prospect, error)
	ListProspects(ctx context.Context, filter ProspectFilter) ([]model.Prospect, error)
	// ListStaleProspects returns every prospect whose last run predates the
	// cutoff (or that has never run). Callers apply any batch cap.
	ListStaleProspects(ctx context.Context, cutoff time.Time) ([]model.Prospect, error)
	UpdateProspectResult(ctx context.Context, companyNumber string, score int, tier model.Tier, hasPlanning, hasProperty bool, runAt time.Time) error

	// Planning applications, keyed by (source, external_id).
	UpsertPlanningApplication(ctx context.Context, rec model.PlanningApplication) (string, error)
	LinkCompanyToPlanning(ctx context.Context, companyNumber, planningID string, confidence model.Confidence, reason string) error

	// Property titles, keyed by title number.
	UpsertPropertyTitle(ctx context.Context, rec model.PropertyTitle) (string, error)
	LinkCompanyToProperty(ctx context.Context, companyNumber, propertyID string, attrs PropertyLinkAttrs) error

	// Link read-back for cumulative scoring.
	ListPlanningLinks(ctx context.Context, companyNumber string) ([]model.PlanningLink, error)
	ListPropertyLinks(ctx context.Context, companyNumber string) ([]model.PropertyLink, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
