package gauntlet

import (
	"context"
	"sync"
	"time"

	"github.com/groundsight/prospector/internal/model"
	"github.com/groundsight/prospector/internal/store"
	"github.com/groundsight/prospector/pkg/companieshouse"
	"github.com/groundsight/prospector/pkg/landregistry"
	"github.com/groundsight/prospector/pkg/londondatahub"
	"github.com/groundsight/prospector/pkg/planit"
)

// mockStore implements store.Store for testing.
type mockStore struct {
	mu sync.Mutex

	upsertedProspects map[string]string // company number -> name
	staleProspects    []model.Prospect
	staleErr          error
	listStaleCutoff   time.Time

	planningByKey  map[string]string // source/external_id -> id
	planningRecs   map[string]model.PlanningApplication
	planningLinks  map[string][]model.PlanningLink
	propertyByKey  map[string]string // title number -> id
	propertyRecs   map[string]model.PropertyTitle
	propertyLinks  map[string][]model.PropertyLink
	planningUpsert int
	propertyUpsert int

	planningUpsertErr error
	planningLinkErr   error

	resultScore int
	resultTier  model.Tier
	resultRunAt time.Time
}

func newMockStore() *mockStore {
	return &mockStore{
		upsertedProspects: make(map[string]string),
		planningByKey:     make(map[string]string),
		planningRecs:      make(map[string]model.PlanningApplication),
		planningLinks:     make(map[string][]model.PlanningLink),
		propertyByKey:     make(map[string]string),
		propertyRecs:      make(map[string]model.PropertyTitle),
		propertyLinks:     make(map[string][]model.PropertyLink),
	}
}

func (m *mockStore) UpsertProspect(_ context.Context, companyNumber, companyName string) (*model.Prospect, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upsertedProspects[companyNumber] = companyName
	return &model.Prospect{CompanyNumber: companyNumber, CompanyName: companyName, Tier: model.TierUnqualified}, nil
}

func (m *mockStore) GetProspect(_ context.Context, companyNumber string) (*model.Prospect, error) {
	return &model.Prospect{CompanyNumber: companyNumber}, nil
}

func (m *mockStore) ListProspects(_ context.Context, _ store.ProspectFilter) ([]model.Prospect, error) {
	return nil, nil
}

func (m *mockStore) ListStaleProspects(_ context.Context, cutoff time.Time) ([]model.Prospect, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listStaleCutoff = cutoff
	if m.staleErr != nil {
		return nil, m.staleErr
	}
	return m.staleProspects, nil
}

func (m *mockStore) UpdateProspectResult(_ context.Context, companyNumber string, score int, tier model.Tier, hasPlanning, hasProperty bool, runAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resultScore = score
	m.resultTier = tier
	m.resultRunAt = runAt
	return nil
}

func (m *mockStore) UpsertPlanningApplication(_ context.Context, rec model.PlanningApplication) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.planningUpsertErr != nil {
		return "", m.planningUpsertErr
	}
	m.planningUpsert++
	key := string(rec.Source) + "/" + rec.ExternalID
	id, ok := m.planningByKey[key]
	if !ok {
		id = "plan-" + rec.ExternalID
		m.planningByKey[key] = id
	}
	m.planningRecs[id] = rec
	return id, nil
}

func (m *mockStore) LinkCompanyToPlanning(_ context.Context, companyNumber, planningID string, confidence model.Confidence, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.planningLinkErr != nil {
		return m.planningLinkErr
	}
	for _, l := range m.planningLinks[companyNumber] {
		if l.PlanningID == planningID {
			return nil
		}
	}
	rec := m.planningRecs[planningID]
	m.planningLinks[companyNumber] = append(m.planningLinks[companyNumber], model.PlanningLink{
		PlanningID:   planningID,
		Confidence:   confidence,
		MatchReason:  reason,
		Status:       rec.Status,
		DecisionDate: rec.DecisionDate,
		ReceivedDate: rec.ReceivedDate,
		SitePostcode: rec.SitePostcode,
	})
	return nil
}

func (m *mockStore) UpsertPropertyTitle(_ context.Context, rec model.PropertyTitle) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.propertyUpsert++
	id, ok := m.propertyByKey[rec.TitleNumber]
	if !ok {
		id = "title-" + rec.TitleNumber
		m.propertyByKey[rec.TitleNumber] = id
	}
	m.propertyRecs[id] = rec
	return id, nil
}

func (m *mockStore) LinkCompanyToProperty(_ context.Context, companyNumber, propertyID string, attrs store.PropertyLinkAttrs) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.propertyLinks[companyNumber] {
		if l.PropertyID == propertyID {
			return nil
		}
	}
	rec := m.propertyRecs[propertyID]
	m.propertyLinks[companyNumber] = append(m.propertyLinks[companyNumber], model.PropertyLink{
		PropertyID:    propertyID,
		TitleNumber:   rec.TitleNumber,
		Postcode:      rec.Postcode,
		OwnershipType: attrs.OwnershipType,
		DatasetTag:    attrs.DatasetTag,
		AcquiredDate:  attrs.AcquiredDate,
	})
	return nil
}

func (m *mockStore) ListPlanningLinks(_ context.Context, companyNumber string) ([]model.PlanningLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.planningLinks[companyNumber], nil
}

func (m *mockStore) ListPropertyLinks(_ context.Context, companyNumber string) ([]model.PropertyLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.propertyLinks[companyNumber], nil
}

func (m *mockStore) Migrate(_ context.Context) error { return nil }
func (m *mockStore) Close() error                    { return nil }

// mockRegistry implements companieshouse.Client.
type mockRegistry struct {
	profile     *companieshouse.CompanyProfile
	profileErr  error
	officers    []companieshouse.Officer
	officersErr error
	pscs        []companieshouse.PSC
	charges     []companieshouse.Charge
}

func (m *mockRegistry) Profile(_ context.Context, _ string) (*companieshouse.CompanyProfile, error) {
	return m.profile, m.profileErr
}

func (m *mockRegistry) Officers(_ context.Context, _ string) ([]companieshouse.Officer, error) {
	return m.officers, m.officersErr
}

func (m *mockRegistry) PersonsWithSignificantControl(_ context.Context, _ string) ([]companieshouse.PSC, error) {
	return m.pscs, nil
}

func (m *mockRegistry) Charges(_ context.Context, _ string) ([]companieshouse.Charge, error) {
	return m.charges, nil
}

// mockPlanIt implements planit.Client; results are keyed by search term.
type mockPlanIt struct {
	mu      sync.Mutex
	results map[string][]planit.Application
	err     error
	terms   []string
}

func (m *mockPlanIt) Search(_ context.Context, term string, _ []string) ([]planit.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.terms = append(m.terms, term)
	if m.err != nil {
		return nil, m.err
	}
	return m.results[term], nil
}

// mockDatahub implements londondatahub.Client.
type mockDatahub struct {
	mu      sync.Mutex
	results map[string][]londondatahub.Application
	terms   []string
}

func (m *mockDatahub) Search(_ context.Context, term string, _ []string) ([]londondatahub.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.terms = append(m.terms, term)
	return m.results[term], nil
}

// mockLand implements landregistry.Client.
type mockLand struct {
	byNumber []landregistry.Title
	byName   []landregistry.Title
	err      error
}

func (m *mockLand) SearchByCompanyNumber(_ context.Context, _ string) ([]landregistry.Title, error) {
	return m.byNumber, m.err
}

func (m *mockLand) SearchByProprietorName(_ context.Context, _ string) ([]landregistry.Title, error) {
	return m.byName, m.err
}
