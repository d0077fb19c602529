package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/groundsight/prospector/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. Intended for local
// runs without a Postgres instance.
type SQLiteStore struct {
	db *sql.DB
}

// Ensure SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS prospects (
	company_number          TEXT PRIMARY KEY,
	company_name            TEXT NOT NULL DEFAULT '',
	score                   INTEGER NOT NULL DEFAULT 0,
	tier                    TEXT NOT NULL DEFAULT 'UNQUALIFIED',
	has_planning_hits       INTEGER NOT NULL DEFAULT 0,
	has_owned_property_hits INTEGER NOT NULL DEFAULT 0,
	last_run_at             DATETIME,
	created_at              DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at              DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS planning_applications (
	id             TEXT PRIMARY KEY,
	source         TEXT NOT NULL,
	external_id    TEXT NOT NULL,
	authority      TEXT NOT NULL DEFAULT '',
	site_address   TEXT NOT NULL DEFAULT '',
	site_postcode  TEXT NOT NULL DEFAULT '',
	applicant_name TEXT NOT NULL DEFAULT '',
	applicant_org  TEXT NOT NULL DEFAULT '',
	status         TEXT NOT NULL DEFAULT 'UNKNOWN',
	decision_date  DATETIME,
	received_date  DATETIME,
	raw            TEXT,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at     DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (source, external_id)
);

CREATE TABLE IF NOT EXISTS property_titles (
	id           TEXT PRIMARY KEY,
	title_number TEXT NOT NULL UNIQUE,
	country_code TEXT NOT NULL DEFAULT '',
	address      TEXT NOT NULL DEFAULT '',
	postcode     TEXT NOT NULL DEFAULT '',
	raw          TEXT,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS company_planning_links (
	company_number TEXT NOT NULL REFERENCES prospects(company_number),
	planning_id    TEXT NOT NULL REFERENCES planning_applications(id),
	confidence     TEXT NOT NULL,
	match_reason   TEXT NOT NULL DEFAULT '',
	matched_at     DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (company_number, planning_id)
);

CREATE TABLE IF NOT EXISTS company_property_links (
	company_number TEXT NOT NULL REFERENCES prospects(company_number),
	property_id    TEXT NOT NULL REFERENCES property_titles(id),
	ownership_type TEXT NOT NULL DEFAULT '',
	dataset_tag    TEXT NOT NULL DEFAULT '',
	acquired_date  DATETIME,
	linked_at      DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (company_number, property_id)
);

CREATE INDEX IF NOT EXISTS idx_prospects_last_run_at ON prospects(last_run_at);
CREATE INDEX IF NOT EXISTS idx_planning_links_company ON company_planning_links(company_number);
CREATE INDEX IF NOT EXISTS idx_property_links_company ON company_property_links(company_number);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertProspect(ctx context.Context, companyNumber, companyName string) (*model.Prospect, error) {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO prospects (company_number, company_name, created_at, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (company_number) DO UPDATE SET
			company_name = CASE WHEN excluded.company_name <> '' THEN excluded.company_name ELSE prospects.company_name END,
			updated_at = excluded.updated_at`,
		companyNumber, companyName, now, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: upsert prospect %s", companyNumber)
	}
	return s.GetProspect(ctx, companyNumber)
}

const sqliteProspectCols = `company_number, company_name, score, tier, has_planning_hits, has_owned_property_hits, last_run_at, created_at, updated_at`

func (s *SQLiteStore) GetProspect(ctx context.Context, companyNumber string) (*model.Prospect, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteProspectCols+` FROM prospects WHERE company_number = ?`, companyNumber)
	p, err := scanSQLiteProspect(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get prospect %s", companyNumber)
	}
	return p, nil
}

func (s *SQLiteStore) ListProspects(ctx context.Context, filter ProspectFilter) ([]model.Prospect, error) {
	query := `SELECT ` + sqliteProspectCols + ` FROM prospects WHERE 1=1`
	var args []any
	if filter.Tier != "" {
		query += ` AND tier = ?`
		args = append(args, string(filter.Tier))
	}
	query += ` ORDER BY last_run_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list prospects")
	}
	defer rows.Close()
	return collectSQLiteProspects(rows)
}

func (s *SQLiteStore) ListStaleProspects(ctx context.Context, cutoff time.Time) ([]model.Prospect, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteProspectCols+` FROM prospects
		 WHERE last_run_at IS NULL OR last_run_at < ?
		 ORDER BY last_run_at ASC`, cutoff.UTC())
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list stale prospects")
	}
	defer rows.Close()
	return collectSQLiteProspects(rows)
}

func (s *SQLiteStore) UpdateProspectResult(ctx context.Context, companyNumber string, score int, tier model.Tier, hasPlanning, hasProperty bool, runAt time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE prospects SET score = ?, tier = ?, has_planning_hits = ?, has_owned_property_hits = ?, last_run_at = ?, updated_at = ? WHERE company_number = ?`,
		score, string(tier), hasPlanning, hasProperty, runAt.UTC(), runAt.UTC(), companyNumber,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update prospect result %s", companyNumber)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("sqlite: prospect not found: %s", companyNumber)
	}
	return nil
}

func (s *SQLiteStore) UpsertPlanningApplication(ctx context.Context, rec model.PlanningApplication) (string, error) {
	if rec.ExternalID == "" {
		return "", eris.New("sqlite: planning application external id is required")
	}
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO planning_applications (id, source, external_id, authority, site_address, site_postcode, applicant_name, applicant_org, status, decision_date, received_date, raw, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (source, external_id) DO UPDATE SET
			authority = excluded.authority,
			site_address = excluded.site_address,
			site_postcode = excluded.site_postcode,
			applicant_name = excluded.applicant_name,
			applicant_org = excluded.applicant_org,
			status = excluded.status,
			decision_date = excluded.decision_date,
			received_date = excluded.received_date,
			raw = excluded.raw,
			updated_at = excluded.updated_at`,
		uuid.New().String(), string(rec.Source), rec.ExternalID, rec.Authority, rec.SiteAddress, rec.SitePostcode,
		rec.ApplicantName, rec.ApplicantOrg, string(rec.Status), rec.DecisionDate, rec.ReceivedDate,
		string(rec.Raw), now, now,
	)
	if err != nil {
		return "", eris.Wrapf(err, "sqlite: upsert planning application %s/%s", rec.Source, rec.ExternalID)
	}

	var id string
	err = s.db.QueryRowContext(ctx,
		`SELECT id FROM planning_applications WHERE source = ? AND external_id = ?`,
		string(rec.Source), rec.ExternalID,
	).Scan(&id)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: read back planning id")
	}
	return id, nil
}

func (s *SQLiteStore) LinkCompanyToPlanning(ctx context.Context, companyNumber, planningID string, confidence model.Confidence, reason string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO company_planning_links (company_number, planning_id, confidence, match_reason, matched_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (company_number, planning_id) DO UPDATE SET
			confidence = excluded.confidence,
			match_reason = excluded.match_reason,
			matched_at = excluded.matched_at`,
		companyNumber, planningID, string(confidence), reason, time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: link company %s to planning %s", companyNumber, planningID)
}

func (s *SQLiteStore) UpsertPropertyTitle(ctx context.Context, rec model.PropertyTitle) (string, error) {
	if rec.TitleNumber == "" {
		return "", eris.New("sqlite: property title number is required")
	}
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO property_titles (id, title_number, country_code, address, postcode, raw, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (title_number) DO UPDATE SET
			country_code = excluded.country_code,
			address = excluded.address,
			postcode = excluded.postcode,
			raw = excluded.raw,
			updated_at = excluded.updated_at`,
		uuid.New().String(), rec.TitleNumber, rec.CountryCode, rec.Address, rec.Postcode, string(rec.Raw), now, now,
	)
	if err != nil {
		return "", eris.Wrapf(err, "sqlite: upsert property title %s", rec.TitleNumber)
	}

	var id string
	err = s.db.QueryRowContext(ctx,
		`SELECT id FROM property_titles WHERE title_number = ?`, rec.TitleNumber,
	).Scan(&id)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: read back property id")
	}
	return id, nil
}

func (s *SQLiteStore) LinkCompanyToProperty(ctx context.Context, companyNumber, propertyID string, attrs PropertyLinkAttrs) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO company_property_links (company_number, property_id, ownership_type, dataset_tag, acquired_date, linked_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (company_number, property_id) DO UPDATE SET
			ownership_type = excluded.ownership_type,
			dataset_tag = excluded.dataset_tag,
			acquired_date = excluded.acquired_date,
			linked_at = excluded.linked_at`,
		companyNumber, propertyID, attrs.OwnershipType, attrs.DatasetTag, attrs.AcquiredDate, time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: link company %s to property %s", companyNumber, propertyID)
}

func (s *SQLiteStore) ListPlanningLinks(ctx context.Context, companyNumber string) ([]model.PlanningLink, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT l.planning_id, l.confidence, l.match_reason, p.status, p.decision_date, p.received_date, p.site_postcode
		 FROM company_planning_links l
		 JOIN planning_applications p ON p.id = l.planning_id
		 WHERE l.company_number = ?`, companyNumber)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list planning links %s", companyNumber)
	}
	defer rows.Close()

	var links []model.PlanningLink
	for rows.Next() {
		var l model.PlanningLink
		var confidence, status string
		var decision, received sql.NullTime
		if err := rows.Scan(&l.PlanningID, &confidence, &l.MatchReason, &status, &decision, &received, &l.SitePostcode); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan planning link")
		}
		l.Confidence = model.Confidence(confidence)
		l.Status = model.CanonicalStatus(status)
		if decision.Valid {
			d := decision.Time
			l.DecisionDate = &d
		}
		if received.Valid {
			r := received.Time
			l.ReceivedDate = &r
		}
		links = append(links, l)
	}
	return links, eris.Wrap(rows.Err(), "sqlite: iterate planning links")
}

func (s *SQLiteStore) ListPropertyLinks(ctx context.Context, companyNumber string) ([]model.PropertyLink, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT l.property_id, t.title_number, t.postcode, l.ownership_type, l.dataset_tag, l.acquired_date
		 FROM company_property_links l
		 JOIN property_titles t ON t.id = l.property_id
		 WHERE l.company_number = ?`, companyNumber)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list property links %s", companyNumber)
	}
	defer rows.Close()

	var links []model.PropertyLink
	for rows.Next() {
		var l model.PropertyLink
		var acquired sql.NullTime
		if err := rows.Scan(&l.PropertyID, &l.TitleNumber, &l.Postcode, &l.OwnershipType, &l.DatasetTag, &acquired); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan property link")
		}
		if acquired.Valid {
			a := acquired.Time
			l.AcquiredDate = &a
		}
		links = append(links, l)
	}
	return links, eris.Wrap(rows.Err(), "sqlite: iterate property links")
}

// helpers

func scanSQLiteProspect(row scannable) (*model.Prospect, error) {
	var p model.Prospect
	var tier string
	var lastRun sql.NullTime
	if err := row.Scan(&p.CompanyNumber, &p.CompanyName, &p.Score, &tier, &p.HasPlanningHits, &p.HasOwnedPropertyHits, &lastRun, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Tier = model.Tier(tier)
	if lastRun.Valid {
		p.LastRunAt = lastRun.Time
	}
	return &p, nil
}

func collectSQLiteProspects(rows *sql.Rows) ([]model.Prospect, error) {
	var out []model.Prospect
	for rows.Next() {
		p, err := scanSQLiteProspect(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan prospect")
		}
		out = append(out, *p)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate prospects")
}
