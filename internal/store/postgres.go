package store

import (
	"context"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/groundsight/prospector/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// Ensure PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	cfg.MaxConns = 10
	cfg.MinConns = 2
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool. Used by tests.
func NewPostgresFromPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS prospects (
	company_number          TEXT PRIMARY KEY,
	company_name            TEXT NOT NULL DEFAULT '',
	score                   INTEGER NOT NULL DEFAULT 0,
	tier                    TEXT NOT NULL DEFAULT 'UNQUALIFIED',
	has_planning_hits       BOOLEAN NOT NULL DEFAULT FALSE,
	has_owned_property_hits BOOLEAN NOT NULL DEFAULT FALSE,
	last_run_at             TIMESTAMPTZ,
	created_at              TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at              TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS planning_applications (
	id             TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	source         TEXT NOT NULL,
	external_id    TEXT NOT NULL,
	authority      TEXT NOT NULL DEFAULT '',
	site_address   TEXT NOT NULL DEFAULT '',
	site_postcode  TEXT NOT NULL DEFAULT '',
	applicant_name TEXT NOT NULL DEFAULT '',
	applicant_org  TEXT NOT NULL DEFAULT '',
	status         TEXT NOT NULL DEFAULT 'UNKNOWN',
	decision_date  TIMESTAMPTZ,
	received_date  TIMESTAMPTZ,
	raw            JSONB,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (source, external_id)
);

CREATE TABLE IF NOT EXISTS property_titles (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	title_number TEXT NOT NULL UNIQUE,
	country_code TEXT NOT NULL DEFAULT '',
	address      TEXT NOT NULL DEFAULT '',
	postcode     TEXT NOT NULL DEFAULT '',
	raw          JSONB,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS company_planning_links (
	company_number TEXT NOT NULL REFERENCES prospects(company_number),
	planning_id    TEXT NOT NULL REFERENCES planning_applications(id),
	confidence     TEXT NOT NULL,
	match_reason   TEXT NOT NULL DEFAULT '',
	matched_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (company_number, planning_id)
);

CREATE TABLE IF NOT EXISTS company_property_links (
	company_number TEXT NOT NULL REFERENCES prospects(company_number),
	property_id    TEXT NOT NULL REFERENCES property_titles(id),
	ownership_type TEXT NOT NULL DEFAULT '',
	dataset_tag    TEXT NOT NULL DEFAULT '',
	acquired_date  TIMESTAMPTZ,
	linked_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (company_number, property_id)
);

CREATE INDEX IF NOT EXISTS idx_prospects_last_run_at ON prospects(last_run_at);
CREATE INDEX IF NOT EXISTS idx_prospects_tier ON prospects(tier);
CREATE INDEX IF NOT EXISTS idx_planning_site_postcode ON planning_applications(site_postcode);
CREATE INDEX IF NOT EXISTS idx_property_postcode ON property_titles(postcode);
CREATE INDEX IF NOT EXISTS idx_planning_links_company ON company_planning_links(company_number);
CREATE INDEX IF NOT EXISTS idx_property_links_company ON company_property_links(company_number);
`

// Migrate applies the embedded schema.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

const upsertProspectSQL = `
INSERT INTO prospects (company_number, company_name, created_at, updated_at)
VALUES ($1, $2, $3, $3)
ON CONFLICT (company_number) DO UPDATE SET
	company_name = CASE WHEN EXCLUDED.company_name <> '' THEN EXCLUDED.company_name ELSE prospects.company_name END,
	updated_at = EXCLUDED.updated_at
RETURNING company_number, company_name, score, tier, has_planning_hits, has_owned_property_hits, last_run_at, created_at, updated_at`

// UpsertProspect creates the prospect row on first contact and returns the
// current row on every subsequent call.
func (s *PostgresStore) UpsertProspect(ctx context.Context, companyNumber, companyName string) (*model.Prospect, error) {
	row := s.pool.QueryRow(ctx, upsertProspectSQL, companyNumber, companyName, time.Now().UTC())
	p, err := scanProspect(row)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: upsert prospect %s", companyNumber)
	}
	return p, nil
}

const getProspectSQL = `
SELECT company_number, company_name, score, tier, has_planning_hits, has_owned_property_hits, last_run_at, created_at, updated_at
FROM prospects WHERE company_number = $1`

// GetProspect returns the prospect or nil when absent.
func (s *PostgresStore) GetProspect(ctx context.Context, companyNumber string) (*model.Prospect, error) {
	p, err := scanProspect(s.pool.QueryRow(ctx, getProspectSQL, companyNumber))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get prospect %s", companyNumber)
	}
	return p, nil
}

// ListProspects returns prospects matching the filter, most recently run first.
func (s *PostgresStore) ListProspects(ctx context.Context, filter ProspectFilter) ([]model.Prospect, error) {
	query := `SELECT company_number, company_name, score, tier, has_planning_hits, has_owned_property_hits, last_run_at, created_at, updated_at FROM prospects`
	var args []any
	if filter.Tier != "" {
		query += ` WHERE tier = $1`
		args = append(args, string(filter.Tier))
	}
	query += ` ORDER BY last_run_at DESC NULLS LAST`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += ` LIMIT $` + strconv.Itoa(len(args))
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list prospects")
	}
	defer rows.Close()
	return collectProspects(rows)
}

const listStaleSQL = `
SELECT company_number, company_name, score, tier, has_planning_hits, has_owned_property_hits, last_run_at, created_at, updated_at
FROM prospects
WHERE last_run_at IS NULL OR last_run_at < $1
ORDER BY last_run_at ASC NULLS FIRST`

// ListStaleProspects returns every prospect not refreshed since the cutoff.
func (s *PostgresStore) ListStaleProspects(ctx context.Context, cutoff time.Time) ([]model.Prospect, error) {
	rows, err := s.pool.Query(ctx, listStaleSQL, cutoff)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list stale prospects")
	}
	defer rows.Close()
	return collectProspects(rows)
}

const updateProspectResultSQL = `
UPDATE prospects SET score = $1, tier = $2, has_planning_hits = $3, has_owned_property_hits = $4, last_run_at = $5, updated_at = $5
WHERE company_number = $6`

// UpdateProspectResult writes back the outcome of a gauntlet run.
func (s *PostgresStore) UpdateProspectResult(ctx context.Context, companyNumber string, score int, tier model.Tier, hasPlanning, hasProperty bool, runAt time.Time) error {
	tag, err := s.pool.Exec(ctx, updateProspectResultSQL, score, string(tier), hasPlanning, hasProperty, runAt.UTC(), companyNumber)
	if err != nil {
		return eris.Wrapf(err, "postgres: update prospect result %s", companyNumber)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: prospect not found: %s", companyNumber)
	}
	return nil
}

const upsertPlanningSQL = `
INSERT INTO planning_applications (source, external_id, authority, site_address, site_postcode, applicant_name, applicant_org, status, decision_date, received_date, raw, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (source, external_id) DO UPDATE SET
	authority = EXCLUDED.authority,
	site_address = EXCLUDED.site_address,
	site_postcode = EXCLUDED.site_postcode,
	applicant_name = EXCLUDED.applicant_name,
	applicant_org = EXCLUDED.applicant_org,
	status = EXCLUDED.status,
	decision_date = EXCLUDED.decision_date,
	received_date = EXCLUDED.received_date,
	raw = EXCLUDED.raw,
	updated_at = EXCLUDED.updated_at
RETURNING id`

// UpsertPlanningApplication inserts or refreshes a planning application and
// returns its row id. Keyed by (source, external_id).
func (s *PostgresStore) UpsertPlanningApplication(ctx context.Context, rec model.PlanningApplication) (string, error) {
	if rec.ExternalID == "" {
		return "", eris.New("postgres: planning application external id is required")
	}
	var id string
	err := s.pool.QueryRow(ctx, upsertPlanningSQL,
		string(rec.Source), rec.ExternalID, rec.Authority, rec.SiteAddress, rec.SitePostcode,
		rec.ApplicantName, rec.ApplicantOrg, string(rec.Status), rec.DecisionDate, rec.ReceivedDate,
		[]byte(rec.Raw), time.Now().UTC(),
	).Scan(&id)
	if err != nil {
		return "", eris.Wrapf(err, "postgres: upsert planning application %s/%s", rec.Source, rec.ExternalID)
	}
	return id, nil
}

const linkPlanningSQL = `
INSERT INTO company_planning_links (company_number, planning_id, confidence, match_reason, matched_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (company_number, planning_id) DO UPDATE SET
	confidence = EXCLUDED.confidence,
	match_reason = EXCLUDED.match_reason,
	matched_at = EXCLUDED.matched_at`

// LinkCompanyToPlanning records the association; re-matching the same pair
// overwrites confidence and reason.
func (s *PostgresStore) LinkCompanyToPlanning(ctx context.Context, companyNumber, planningID string, confidence model.Confidence, reason string) error {
	_, err := s.pool.Exec(ctx, linkPlanningSQL, companyNumber, planningID, string(confidence), reason, time.Now().UTC())
	return eris.Wrapf(err, "postgres: link company %s to planning %s", companyNumber, planningID)
}

const upsertPropertySQL = `
INSERT INTO property_titles (title_number, country_code, address, postcode, raw, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (title_number) DO UPDATE SET
	country_code = EXCLUDED.country_code,
	address = EXCLUDED.address,
	postcode = EXCLUDED.postcode,
	raw = EXCLUDED.raw,
	updated_at = EXCLUDED.updated_at
RETURNING id`

// UpsertPropertyTitle inserts or refreshes a title keyed by title number.
func (s *PostgresStore) UpsertPropertyTitle(ctx context.Context, rec model.PropertyTitle) (string, error) {
	if rec.TitleNumber == "" {
		return "", eris.New("postgres: property title number is required")
	}
	var id string
	err := s.pool.QueryRow(ctx, upsertPropertySQL,
		rec.TitleNumber, rec.CountryCode, rec.Address, rec.Postcode, []byte(rec.Raw), time.Now().UTC(),
	).Scan(&id)
	if err != nil {
		return "", eris.Wrapf(err, "postgres: upsert property title %s", rec.TitleNumber)
	}
	return id, nil
}

const linkPropertySQL = `
INSERT INTO company_property_links (company_number, property_id, ownership_type, dataset_tag, acquired_date, linked_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (company_number, property_id) DO UPDATE SET
	ownership_type = EXCLUDED.ownership_type,
	dataset_tag = EXCLUDED.dataset_tag,
	acquired_date = EXCLUDED.acquired_date,
	linked_at = EXCLUDED.linked_at`

// LinkCompanyToProperty records the ownership association.
func (s *PostgresStore) LinkCompanyToProperty(ctx context.Context, companyNumber, propertyID string, attrs PropertyLinkAttrs) error {
	_, err := s.pool.Exec(ctx, linkPropertySQL, companyNumber, propertyID, attrs.OwnershipType, attrs.DatasetTag, attrs.AcquiredDate, time.Now().UTC())
	return eris.Wrapf(err, "postgres: link company %s to property %s", companyNumber, propertyID)
}

const listPlanningLinksSQL = `
SELECT l.planning_id, l.confidence, l.match_reason, p.status, p.decision_date, p.received_date, p.site_postcode
FROM company_planning_links l
JOIN planning_applications p ON p.id = l.planning_id
WHERE l.company_number = $1`

// ListPlanningLinks returns all planning links for a company with the record
// fields scoring needs.
func (s *PostgresStore) ListPlanningLinks(ctx context.Context, companyNumber string) ([]model.PlanningLink, error) {
	rows, err := s.pool.Query(ctx, listPlanningLinksSQL, companyNumber)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list planning links %s", companyNumber)
	}
	defer rows.Close()

	var links []model.PlanningLink
	for rows.Next() {
		var l model.PlanningLink
		var confidence, status string
		if err := rows.Scan(&l.PlanningID, &confidence, &l.MatchReason, &status, &l.DecisionDate, &l.ReceivedDate, &l.SitePostcode); err != nil {
			return nil, eris.Wrap(err, "postgres: scan planning link")
		}
		l.Confidence = model.Confidence(confidence)
		l.Status = model.CanonicalStatus(status)
		links = append(links, l)
	}
	return links, eris.Wrap(rows.Err(), "postgres: iterate planning links")
}

const listPropertyLinksSQL = `
SELECT l.property_id, t.title_number, t.postcode, l.ownership_type, l.dataset_tag, l.acquired_date
FROM company_property_links l
JOIN property_titles t ON t.id = l.property_id
WHERE l.company_number = $1`

// ListPropertyLinks returns all property links for a company.
func (s *PostgresStore) ListPropertyLinks(ctx context.Context, companyNumber string) ([]model.PropertyLink, error) {
	rows, err := s.pool.Query(ctx, listPropertyLinksSQL, companyNumber)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list property links %s", companyNumber)
	}
	defer rows.Close()

	var links []model.PropertyLink
	for rows.Next() {
		var l model.PropertyLink
		if err := rows.Scan(&l.PropertyID, &l.TitleNumber, &l.Postcode, &l.OwnershipType, &l.DatasetTag, &l.AcquiredDate); err != nil {
			return nil, eris.Wrap(err, "postgres: scan property link")
		}
		links = append(links, l)
	}
	return links, eris.Wrap(rows.Err(), "postgres: iterate property links")
}

// helpers

type scannable interface {
	Scan(dest ...any) error
}

func scanProspect(row scannable) (*model.Prospect, error) {
	var p model.Prospect
	var tier string
	var lastRun *time.Time
	if err := row.Scan(&p.CompanyNumber, &p.CompanyName, &p.Score, &tier, &p.HasPlanningHits, &p.HasOwnedPropertyHits, &lastRun, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Tier = model.Tier(tier)
	if lastRun != nil {
		p.LastRunAt = *lastRun
	}
	return &p, nil
}

func collectProspects(rows pgx.Rows) ([]model.Prospect, error) {
	var out []model.Prospect
	for rows.Next() {
		p, err := scanProspect(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan prospect")
		}
		out = append(out, *p)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate prospects")
}
