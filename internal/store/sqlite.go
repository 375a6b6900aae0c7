package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("not found")

type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// The partial unique index on variants(is_default) enforces the
// at-most-one-default invariant at the storage layer, so a botched admin
// sequence can never leave two defaults behind.
const schema = `
CREATE TABLE IF NOT EXISTS variants (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    headline TEXT NOT NULL,
    subheadline TEXT,
    cta_text TEXT NOT NULL,
    description TEXT,
    is_active INTEGER NOT NULL DEFAULT 1,
    is_default INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL DEFAULT (unixepoch()),
    updated_at INTEGER NOT NULL DEFAULT (unixepoch())
);

CREATE INDEX IF NOT EXISTS idx_variants_active ON variants(is_active);
CREATE UNIQUE INDEX IF NOT EXISTS idx_variants_default ON variants(is_default) WHERE is_default = 1;

CREATE TABLE IF NOT EXISTS variant_events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    variant_id INTEGER NOT NULL,
    event_type TEXT NOT NULL,
    session_id TEXT NOT NULL,
    user_agent TEXT,
    lead_id INTEGER,
    created_at INTEGER NOT NULL DEFAULT (unixepoch()),
    FOREIGN KEY (variant_id) REFERENCES variants(id)
);

CREATE INDEX IF NOT EXISTS idx_variant_events_variant ON variant_events(variant_id, event_type);
CREATE UNIQUE INDEX IF NOT EXISTS idx_variant_events_dedup ON variant_events(session_id, event_type);

CREATE TABLE IF NOT EXISTS leads (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    age INTEGER NOT NULL,
    state TEXT NOT NULL,
    zip_code TEXT NOT NULL,
    vehicle_type TEXT NOT NULL,
    vehicle_year INTEGER NOT NULL,
    has_recent_accidents TEXT NOT NULL,
    current_insurer TEXT NOT NULL,
    coverage_type TEXT NOT NULL,
    ownership_status TEXT NOT NULL,
    first_name TEXT NOT NULL,
    last_name TEXT NOT NULL,
    email TEXT NOT NULL,
    phone TEXT NOT NULL,
    ip_address TEXT,
    user_agent TEXT,
    referrer TEXT,
    utm_source TEXT,
    utm_medium TEXT,
    utm_campaign TEXT,
    status TEXT NOT NULL DEFAULT 'new',
    sent_to_network TEXT,
    sent_at INTEGER,
    created_at INTEGER NOT NULL DEFAULT (unixepoch()),
    updated_at INTEGER NOT NULL DEFAULT (unixepoch())
);

CREATE INDEX IF NOT EXISTS idx_leads_status ON leads(status);
CREATE INDEX IF NOT EXISTS idx_leads_created ON leads(created_at);

CREATE TABLE IF NOT EXISTS express_leads (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    email TEXT NOT NULL,
    phone TEXT NOT NULL,
    ip_address TEXT,
    user_agent TEXT,
    referrer TEXT,
    utm_source TEXT,
    utm_medium TEXT,
    utm_campaign TEXT,
    status TEXT NOT NULL DEFAULT 'new',
    created_at INTEGER NOT NULL DEFAULT (unixepoch())
);

CREATE TABLE IF NOT EXISTS contact_messages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    email TEXT NOT NULL,
    phone TEXT,
    subject TEXT,
    message TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'new',
    ip_address TEXT,
    user_agent TEXT,
    created_at INTEGER NOT NULL DEFAULT (unixepoch())
);
`

func Open(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Apply schema
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection for health checks
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

func (s *SQLiteStore) CreateVariant(ctx context.Context, v *Variant) (*Variant, error) {
	now := time.Now().Unix()
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO variants (name, headline, subheadline, cta_text, description, is_active, is_default, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		v.Name, v.Headline, nullIfEmpty(v.Subheadline), v.CTAText, nullIfEmpty(v.Description), boolToInt(v.IsActive), now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert variant: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	created := *v
	created.ID = id
	created.IsDefault = false
	created.CreatedAt = time.Unix(now, 0)
	created.UpdatedAt = time.Unix(now, 0)
	return &created, nil
}

const variantColumns = `id, name, headline, subheadline, cta_text, description, is_active, is_default, created_at, updated_at`

func scanVariant(row interface{ Scan(...any) error }) (*Variant, error) {
	var v Variant
	var subheadline, description sql.NullString
	var isActive, isDefault int
	var createdAt, updatedAt int64

	err := row.Scan(&v.ID, &v.Name, &v.Headline, &subheadline, &v.CTAText, &description, &isActive, &isDefault, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	v.Subheadline = subheadline.String
	v.Description = description.String
	v.IsActive = isActive != 0
	v.IsDefault = isDefault != 0
	v.CreatedAt = time.Unix(createdAt, 0)
	v.UpdatedAt = time.Unix(updatedAt, 0)
	return &v, nil
}

func (s *SQLiteStore) GetVariant(ctx context.Context, id int64) (*Variant, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+variantColumns+` FROM variants WHERE id = ?`, id)
	v, err := scanVariant(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get variant: %w", err)
	}
	return v, nil
}

func (s *SQLiteStore) queryVariants(ctx context.Context, query string, args ...any) ([]*Variant, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query variants: %w", err)
	}
	defer rows.Close()

	var variants []*Variant
	for rows.Next() {
		v, err := scanVariant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan variant: %w", err)
		}
		variants = append(variants, v)
	}
	return variants, rows.Err()
}

func (s *SQLiteStore) ListVariants(ctx context.Context) ([]*Variant, error) {
	return s.queryVariants(ctx, `SELECT `+variantColumns+` FROM variants ORDER BY id`)
}

// GetActiveVariants returns active variants ordered by id so that
// hash-based bucketing indexes into a stable sequence.
func (s *SQLiteStore) GetActiveVariants(ctx context.Context) ([]*Variant, error) {
	return s.queryVariants(ctx, `SELECT `+variantColumns+` FROM variants WHERE is_active = 1 ORDER BY id`)
}

// GetDefaultVariant returns the default variant, or nil when none is set.
func (s *SQLiteStore) GetDefaultVariant(ctx context.Context) (*Variant, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+variantColumns+` FROM variants WHERE is_default = 1`)
	v, err := scanVariant(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get default variant: %w", err)
	}
	return v, nil
}

func (s *SQLiteStore) UpdateVariant(ctx context.Context, v *Variant) error {
	now := time.Now().Unix()
	result, err := s.db.ExecContext(ctx,
		`UPDATE variants SET name = ?, headline = ?, subheadline = ?, cta_text = ?, description = ?, updated_at = ? WHERE id = ?`,
		v.Name, v.Headline, nullIfEmpty(v.Subheadline), v.CTAText, nullIfEmpty(v.Description), now, v.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update variant: %w", err)
	}
	return checkAffected(result)
}

func (s *SQLiteStore) SetVariantActive(ctx context.Context, id int64, active bool) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE variants SET is_active = ?, updated_at = ? WHERE id = ?`,
		boolToInt(active), time.Now().Unix(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to set variant active: %w", err)
	}
	return checkAffected(result)
}

// SetDefaultVariant promotes one variant to default. The previous default
// is cleared in the same transaction, so there is never a window where
// zero or two defaults are visible.
func (s *SQLiteStore) SetDefaultVariant(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	if _, err := tx.ExecContext(ctx,
		`UPDATE variants SET is_default = 0, updated_at = ? WHERE is_default = 1`, now,
	); err != nil {
		return fmt.Errorf("failed to clear previous default: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE variants SET is_default = 1, updated_at = ? WHERE id = ?`, now, id,
	)
	if err != nil {
		return fmt.Errorf("failed to set default variant: %w", err)
	}
	if err := checkAffected(result); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *SQLiteStore) ClearDefaultVariant(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE variants SET is_default = 0, updated_at = ? WHERE is_default = 1`, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to clear default variant: %w", err)
	}
	return nil
}

func (s *SQLiteStore) DeleteVariant(ctx context.Context, id int64) error {
	// Events first, then the variant itself
	if _, err := s.db.ExecContext(ctx, `DELETE FROM variant_events WHERE variant_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete variant events: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM variants WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete variant: %w", err)
	}
	return checkAffected(result)
}

// RecordVariantEvent stores a view or conversion. The unique index on
// (session_id, event_type) makes repeats per session a no-op, so a page
// re-render or a double beacon never inflates the stats.
func (s *SQLiteStore) RecordVariantEvent(ctx context.Context, variantID int64, eventType EventType, sessionID, userAgent string, leadID *int64) error {
	var lead sql.NullInt64
	if leadID != nil {
		lead = sql.NullInt64{Int64: *leadID, Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO variant_events (variant_id, event_type, session_id, user_agent, lead_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		variantID, string(eventType), sessionID, nullIfEmpty(userAgent), lead, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to record variant event: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetVariantStats(ctx context.Context) ([]VariantStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			variant_id,
			COUNT(DISTINCT CASE WHEN event_type = 'view' THEN session_id END) as views,
			COUNT(DISTINCT CASE WHEN event_type = 'conversion' THEN session_id END) as conversions
		FROM variant_events
		GROUP BY variant_id
		ORDER BY variant_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get variant stats: %w", err)
	}
	defer rows.Close()

	var stats []VariantStats
	for rows.Next() {
		var vs VariantStats
		if err := rows.Scan(&vs.VariantID, &vs.Views, &vs.Conversions); err != nil {
			return nil, fmt.Errorf("failed to scan stats: %w", err)
		}
		stats = append(stats, vs)
	}
	return stats, rows.Err()
}

func (s *SQLiteStore) GetVariantEvents(ctx context.Context, variantID int64) ([]*VariantEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, variant_id, event_type, session_id, user_agent, lead_id, created_at
		 FROM variant_events WHERE variant_id = ? ORDER BY created_at DESC`,
		variantID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get variant events: %w", err)
	}
	defer rows.Close()

	var events []*VariantEvent
	for rows.Next() {
		var e VariantEvent
		var eventType string
		var userAgent sql.NullString
		var leadID sql.NullInt64
		var createdAt int64
		if err := rows.Scan(&e.ID, &e.VariantID, &eventType, &e.SessionID, &userAgent, &leadID, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.EventType = EventType(eventType)
		e.UserAgent = userAgent.String
		if leadID.Valid {
			id := leadID.Int64
			e.LeadID = &id
		}
		e.CreatedAt = time.Unix(createdAt, 0)
		events = append(events, &e)
	}
	return events, rows.Err()
}

func (s *SQLiteStore) CreateLead(ctx context.Context, lead *Lead) (int64, error) {
	now := time.Now().Unix()
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO leads (age, state, zip_code, vehicle_type, vehicle_year, has_recent_accidents,
		   current_insurer, coverage_type, ownership_status, first_name, last_name, email, phone,
		   ip_address, user_agent, referrer, utm_source, utm_medium, utm_campaign, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 'new', ?, ?)`,
		lead.Age, lead.State, lead.ZipCode, lead.VehicleType, lead.VehicleYear, lead.HasRecentAccidents,
		lead.CurrentInsurer, lead.CoverageType, lead.OwnershipStatus, lead.FirstName, lead.LastName,
		lead.Email, lead.Phone,
		nullIfEmpty(lead.IPAddress), nullIfEmpty(lead.UserAgent), nullIfEmpty(lead.Referrer),
		nullIfEmpty(lead.UTMSource), nullIfEmpty(lead.UTMMedium), nullIfEmpty(lead.UTMCampaign),
		now, now,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert lead: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert id: %w", err)
	}
	return id, nil
}

const leadColumns = `id, age, state, zip_code, vehicle_type, vehicle_year, has_recent_accidents,
	current_insurer, coverage_type, ownership_status, first_name, last_name, email, phone,
	ip_address, user_agent, referrer, utm_source, utm_medium, utm_campaign, status,
	sent_to_network, sent_at, created_at, updated_at`

func scanLead(row interface{ Scan(...any) error }) (*Lead, error) {
	var l Lead
	var ip, ua, ref, src, med, camp, network sql.NullString
	var status string
	var sentAt sql.NullInt64
	var createdAt, updatedAt int64

	err := row.Scan(&l.ID, &l.Age, &l.State, &l.ZipCode, &l.VehicleType, &l.VehicleYear, &l.HasRecentAccidents,
		&l.CurrentInsurer, &l.CoverageType, &l.OwnershipStatus, &l.FirstName, &l.LastName, &l.Email, &l.Phone,
		&ip, &ua, &ref, &src, &med, &camp, &status, &network, &sentAt, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	l.IPAddress = ip.String
	l.UserAgent = ua.String
	l.Referrer = ref.String
	l.UTMSource = src.String
	l.UTMMedium = med.String
	l.UTMCampaign = camp.String
	l.Status = LeadStatus(status)
	l.SentToNetwork = network.String
	if sentAt.Valid {
		t := time.Unix(sentAt.Int64, 0)
		l.SentAt = &t
	}
	l.CreatedAt = time.Unix(createdAt, 0)
	l.UpdatedAt = time.Unix(updatedAt, 0)
	return &l, nil
}

func (s *SQLiteStore) GetLead(ctx context.Context, id int64) (*Lead, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = ?`, id)
	lead, err := scanLead(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get lead: %w", err)
	}
	return lead, nil
}

func (s *SQLiteStore) ListLeads(ctx context.Context, limit int) ([]*Lead, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+leadColumns+` FROM leads ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	defer rows.Close()

	var leads []*Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lead: %w", err)
		}
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}

func (s *SQLiteStore) UpdateLeadStatus(ctx context.Context, id int64, status LeadStatus, network string) error {
	now := time.Now().Unix()

	var result sql.Result
	var err error
	if status == LeadStatusSent {
		result, err = s.db.ExecContext(ctx,
			`UPDATE leads SET status = ?, sent_to_network = ?, sent_at = ?, updated_at = ? WHERE id = ?`,
			string(status), nullIfEmpty(network), now, now, id,
		)
	} else {
		result, err = s.db.ExecContext(ctx,
			`UPDATE leads SET status = ?, updated_at = ? WHERE id = ?`,
			string(status), now, id,
		)
	}
	if err != nil {
		return fmt.Errorf("failed to update lead status: %w", err)
	}
	return checkAffected(result)
}

func (s *SQLiteStore) CreateExpressLead(ctx context.Context, lead *ExpressLead) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO express_leads (email, phone, ip_address, user_agent, referrer, utm_source, utm_medium, utm_campaign, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, 'new', ?)`,
		lead.Email, lead.Phone,
		nullIfEmpty(lead.IPAddress), nullIfEmpty(lead.UserAgent), nullIfEmpty(lead.Referrer),
		nullIfEmpty(lead.UTMSource), nullIfEmpty(lead.UTMMedium), nullIfEmpty(lead.UTMCampaign),
		time.Now().Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert express lead: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert id: %w", err)
	}
	return id, nil
}

func (s *SQLiteStore) ListExpressLeads(ctx context.Context, limit int) ([]*ExpressLead, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, email, phone, ip_address, user_agent, referrer, utm_source, utm_medium, utm_campaign, status, created_at
		 FROM express_leads ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list express leads: %w", err)
	}
	defer rows.Close()

	var leads []*ExpressLead
	for rows.Next() {
		var l ExpressLead
		var ip, ua, ref, src, med, camp sql.NullString
		var createdAt int64
		if err := rows.Scan(&l.ID, &l.Email, &l.Phone, &ip, &ua, &ref, &src, &med, &camp, &l.Status, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan express lead: %w", err)
		}
		l.IPAddress = ip.String
		l.UserAgent = ua.String
		l.Referrer = ref.String
		l.UTMSource = src.String
		l.UTMMedium = med.String
		l.UTMCampaign = camp.String
		l.CreatedAt = time.Unix(createdAt, 0)
		leads = append(leads, &l)
	}
	return leads, rows.Err()
}

func (s *SQLiteStore) CreateContactMessage(ctx context.Context, msg *ContactMessage) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO contact_messages (name, email, phone, subject, message, status, ip_address, user_agent, created_at)
		 VALUES (?, ?, ?, ?, ?, 'new', ?, ?, ?)`,
		msg.Name, msg.Email, nullIfEmpty(msg.Phone), nullIfEmpty(msg.Subject), msg.Message,
		nullIfEmpty(msg.IPAddress), nullIfEmpty(msg.UserAgent), time.Now().Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert contact message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert id: %w", err)
	}
	return id, nil
}

func checkAffected(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
