// Package gauntlet implements the end-to-end qualification pipeline: derive
// search terms from a company's registry profile, fan out across planning and
// land-ownership registers, classify matches, persist the evidence and keep a
// recency-weighted prospect score.
package gauntlet

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/groundsight/prospector/internal/match"
	"github.com/groundsight/prospector/internal/model"
	"github.com/groundsight/prospector/internal/store"
	"github.com/groundsight/prospector/pkg/companieshouse"
	"github.com/groundsight/prospector/pkg/landregistry"
	"github.com/groundsight/prospector/pkg/londondatahub"
	"github.com/groundsight/prospector/pkg/planit"
)

// Runner executes gauntlet runs. All external collaborators are injected so
// tests can substitute canned responses.
type Runner struct {
	store    store.Store
	registry companieshouse.Client
	planit   planit.Client
	datahub  londondatahub.Client
	land     landregistry.Client

	metroAreas []string
	weights    Weights
	now        func() time.Time
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithWeights overrides the scoring weights.
func WithWeights(w Weights) RunnerOption {
	return func(r *Runner) {
		r.weights = w
	}
}

// WithMetroAreas sets the postcode areas that gate the metro datahub search.
func WithMetroAreas(areas []string) RunnerOption {
	return func(r *Runner) {
		r.metroAreas = areas
	}
}

// WithClock overrides the time source (for tests).
func WithClock(now func() time.Time) RunnerOption {
	return func(r *Runner) {
		r.now = now
	}
}

// NewRunner creates a Runner with all dependencies.
func NewRunner(st store.Store, registry companieshouse.Client, planitClient planit.Client, datahub londondatahub.Client, land landregistry.Client, opts ...RunnerOption) *Runner {
	r := &Runner{
		store:      st,
		registry:   registry,
		planit:     planitClient,
		datahub:    datahub,
		land:       land,
		metroAreas: DefaultMetroAreas(),
		weights:    DefaultWeights(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// DefaultMetroAreas lists the London postcode areas that make the metro
// datahub worth querying.
func DefaultMetroAreas() []string {
	return []string{
		"E", "EC", "N", "NW", "SE", "SW", "W", "WC",
		"BR", "CR", "DA", "EN", "HA", "IG", "KT", "RM", "SM", "TW", "UB", "WD",
	}
}

// RunResult reports the outcome of a single gauntlet run.
type RunResult struct {
	CompanyNumber string     `json:"company_number"`
	CompanyName   string     `json:"company_name"`
	PlanningFound int        `json:"planning_found"`
	PlanningSaved int        `json:"planning_saved"`
	PropertyFound int        `json:"property_found"`
	PropertySaved int        `json:"property_saved"`
	Score         int        `json:"score"`
	Tier          model.Tier `json:"tier"`
}

// planningCandidate pairs a normalized record with how it was discovered.
type planningCandidate struct {
	rec          model.PlanningApplication
	personSearch bool
}

// Run executes the full gauntlet for one company. Adapter and persistence
// failures degrade the run (logged, skipped); only an unresolvable company is
// a terminal error.
func (r *Runner) Run(ctx context.Context, companyNumber string) (*RunResult, error) {
	log := zap.L().With(zap.String("company_number", companyNumber))
	log.Info("gauntlet: starting run")

	profile, err := r.loadProfile(ctx, companyNumber)
	if err != nil {
		return nil, eris.Wrapf(err, "gauntlet: resolve company %s", companyNumber)
	}

	if _, err := r.store.UpsertProspect(ctx, profile.CompanyNumber, profile.LegalName); err != nil {
		return nil, eris.Wrapf(err, "gauntlet: upsert prospect %s", companyNumber)
	}

	terms, postcodes := match.BuildSearchTerms(*profile)

	candidates, titles := r.collect(ctx, *profile, terms, postcodes)

	planningSaved := r.persistPlanning(ctx, *profile, postcodes, candidates)
	propertySaved := r.persistTitles(ctx, *profile, titles)

	planningLinks, err := r.store.ListPlanningLinks(ctx, profile.CompanyNumber)
	if err != nil {
		return nil, eris.Wrap(err, "gauntlet: read planning links")
	}
	propertyLinks, err := r.store.ListPropertyLinks(ctx, profile.CompanyNumber)
	if err != nil {
		return nil, eris.Wrap(err, "gauntlet: read property links")
	}

	now := r.now()
	scored := ScoreLinks(planningLinks, propertyLinks, now, r.weights)

	if err := r.store.UpdateProspectResult(ctx, profile.CompanyNumber, scored.Total, scored.Tier, planningSaved > 0, propertySaved > 0, now); err != nil {
		return nil, eris.Wrap(err, "gauntlet: update prospect result")
	}

	result := &RunResult{
		CompanyNumber: profile.CompanyNumber,
		CompanyName:   profile.LegalName,
		PlanningFound: len(candidates),
		PlanningSaved: planningSaved,
		PropertyFound: len(titles),
		PropertySaved: propertySaved,
		Score:         scored.Total,
		Tier:          scored.Tier,
	}
	log.Info("gauntlet: run complete",
		zap.Int("planning_found", result.PlanningFound),
		zap.Int("planning_saved", result.PlanningSaved),
		zap.Int("property_found", result.PropertyFound),
		zap.Int("property_saved", result.PropertySaved),
		zap.Int("score", result.Score),
		zap.String("tier", string(result.Tier)),
	)
	return result, nil
}

// loadProfile assembles the company profile. The core profile is required;
// officers, PSC and charges degrade to empty on failure.
func (r *Runner) loadProfile(ctx context.Context, companyNumber string) (*model.CompanyProfile, error) {
	log := zap.L().With(zap.String("company_number", companyNumber))

	raw, err := r.registry.Profile(ctx, companyNumber)
	if err != nil {
		return nil, err
	}

	profile := &model.CompanyProfile{
		CompanyNumber:      raw.CompanyNumber,
		LegalName:          raw.CompanyName,
		RegisteredPostcode: raw.RegisteredOffice.PostalCode,
	}
	if profile.CompanyNumber == "" {
		profile.CompanyNumber = companyNumber
	}

	officers, err := r.registry.Officers(ctx, companyNumber)
	if err != nil {
		log.Warn("gauntlet: officers lookup failed", zap.Error(err))
	}
	for _, o := range officers {
		profile.Officers = append(profile.Officers, model.Officer{Name: o.Name})
	}

	pscs, err := r.registry.PersonsWithSignificantControl(ctx, companyNumber)
	if err != nil {
		log.Warn("gauntlet: psc lookup failed", zap.Error(err))
	}
	for _, p := range pscs {
		profile.ControllingPersons = append(profile.ControllingPersons, model.ControllingPerson{Name: p.Name})
	}

	charges, err := r.registry.Charges(ctx, companyNumber)
	if err != nil {
		log.Warn("gauntlet: charges lookup failed", zap.Error(err))
	}
	for _, ch := range charges {
		if ch.PostalCode != "" {
			profile.ChargePostcodes = append(profile.ChargePostcodes, ch.PostalCode)
		}
		profile.ChargePostcodes = append(profile.ChargePostcodes, match.ExtractPostcodes(ch.Particulars.Description)...)
	}

	return profile, nil
}

// collect fans out across the registers and accumulates raw candidates. The
// company-name searches and land lookups run concurrently; person-name
// searches run sequentially to keep register load bounded. Every adapter
// failure is logged and contributes zero results.
func (r *Runner) collect(ctx context.Context, profile model.CompanyProfile, terms []match.SearchTerm, postcodes []string) ([]planningCandidate, []landregistry.Title) {
	log := zap.L().With(zap.String("company_number", profile.CompanyNumber))
	metro := match.AnyInPostcodeAreas(postcodes, r.metroAreas)

	var mu sync.Mutex
	var candidates []planningCandidate
	var titles []landregistry.Title

	addPlanning := func(recs []model.PlanningApplication, person bool) {
		mu.Lock()
		defer mu.Unlock()
		for _, rec := range recs {
			candidates = append(candidates, planningCandidate{rec: rec, personSearch: person})
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	// Company-name planning searches and both land lookups are independent
	// reads; run them concurrently.
	g.Go(func() error {
		recs, err := r.planit.Search(gctx, profile.LegalName, postcodes)
		if err != nil {
			log.Warn("gauntlet: planit company search failed", zap.Error(err))
			return nil
		}
		normalized := make([]model.PlanningApplication, 0, len(recs))
		for _, rec := range recs {
			normalized = append(normalized, normalizePlanIt(rec))
		}
		addPlanning(normalized, false)
		return nil
	})

	if metro {
		g.Go(func() error {
			recs, err := r.datahub.Search(gctx, profile.LegalName, postcodes)
			if err != nil {
				log.Warn("gauntlet: datahub company search failed", zap.Error(err))
				return nil
			}
			normalized := make([]model.PlanningApplication, 0, len(recs))
			for _, rec := range recs {
				normalized = append(normalized, normalizeDatahub(rec))
			}
			addPlanning(normalized, false)
			return nil
		})
	}

	// The land register does not guarantee indexing by both keys; query by
	// company number and by legal name and dedupe the union afterwards.
	g.Go(func() error {
		recs, err := r.land.SearchByCompanyNumber(gctx, profile.CompanyNumber)
		if err != nil {
			log.Warn("gauntlet: land search by number failed", zap.Error(err))
			return nil
		}
		mu.Lock()
		titles = append(titles, recs...)
		mu.Unlock()
		return nil
	})
	g.Go(func() error {
		recs, err := r.land.SearchByProprietorName(gctx, profile.LegalName)
		if err != nil {
			log.Warn("gauntlet: land search by name failed", zap.Error(err))
			return nil
		}
		mu.Lock()
		titles = append(titles, recs...)
		mu.Unlock()
		return nil
	})

	_ = g.Wait()

	// Person-name searches stay sequential: a company with many officers
	// must not turn into an unbounded fan-out against the registers.
	for _, term := range terms {
		if !term.Person {
			continue
		}
		if ctx.Err() != nil {
			break
		}

		recs, err := r.planit.Search(ctx, term.Value, postcodes)
		if err != nil {
			log.Warn("gauntlet: planit person search failed", zap.String("term", term.Value), zap.Error(err))
		} else {
			normalized := make([]model.PlanningApplication, 0, len(recs))
			for _, rec := range recs {
				normalized = append(normalized, normalizePlanIt(rec))
			}
			addPlanning(normalized, true)
		}

		if metro {
			recs, err := r.datahub.Search(ctx, term.Value, postcodes)
			if err != nil {
				log.Warn("gauntlet: datahub person search failed", zap.String("term", term.Value), zap.Error(err))
				continue
			}
			normalized := make([]model.PlanningApplication, 0, len(recs))
			for _, rec := range recs {
				normalized = append(normalized, normalizeDatahub(rec))
			}
			addPlanning(normalized, true)
		}
	}

	return candidates, DedupeTitles(titles)
}

// persistPlanning classifies and saves planning candidates. Individual
// failures drop that candidate and continue.
func (r *Runner) persistPlanning(ctx context.Context, profile model.CompanyProfile, postcodes []string, candidates []planningCandidate) int {
	log := zap.L().With(zap.String("company_number", profile.CompanyNumber))

	saved := 0
	seen := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		if c.rec.ExternalID == "" {
			continue
		}
		key := string(c.rec.Source) + "/" + c.rec.ExternalID
		if seen[key] {
			continue
		}
		seen[key] = true

		reason, confidence := match.Classify(candidateOf(c.rec), profile, postcodes, c.personSearch)

		id, err := r.store.UpsertPlanningApplication(ctx, c.rec)
		if err != nil {
			log.Warn("gauntlet: planning upsert failed", zap.String("external_id", c.rec.ExternalID), zap.Error(err))
			continue
		}
		if err := r.store.LinkCompanyToPlanning(ctx, profile.CompanyNumber, id, confidence, reason); err != nil {
			log.Warn("gauntlet: planning link failed", zap.String("planning_id", id), zap.Error(err))
			continue
		}
		saved++
	}
	return saved
}

// persistTitles saves deduplicated titles with their ownership evidence.
func (r *Runner) persistTitles(ctx context.Context, profile model.CompanyProfile, titles []landregistry.Title) int {
	log := zap.L().With(zap.String("company_number", profile.CompanyNumber))

	saved := 0
	for _, t := range titles {
		rec := normalizeTitle(t)
		id, err := r.store.UpsertPropertyTitle(ctx, rec)
		if err != nil {
			log.Warn("gauntlet: title upsert failed", zap.String("title_number", rec.TitleNumber), zap.Error(err))
			continue
		}

		dataset := t.Dataset
		if dataset == "" {
			dataset = "ccod"
		}
		attrs := store.PropertyLinkAttrs{
			OwnershipType: t.Tenure,
			DatasetTag:    dataset,
			AcquiredDate:  parseSourceDate(t.DateProprietorAdded),
		}
		if err := r.store.LinkCompanyToProperty(ctx, profile.CompanyNumber, id, attrs); err != nil {
			log.Warn("gauntlet: title link failed", zap.String("property_id", id), zap.Error(err))
			continue
		}
		saved++
	}
	return saved
}
