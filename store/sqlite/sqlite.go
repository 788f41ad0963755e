/*
Package sqlite provides a SQLite-backed implementation of ledger.Store.

PURPOSE:
  Durable local persistence for the loan book. Areas, villages, customers
  and events are independent flat tables; cross references are ids only.

INTERFACES IMPLEMENTED:
  ledger.EventStore:    Append-only event log
  ledger.RegistryStore: Areas, villages, customers
  ledger.SettingsStore: Device id, selected area
  ledger.TxStore:       WithTx for multi-write atomicity

APPEND-ONLY ENFORCEMENT:
  - No UPDATE statements on the events table
  - No single-event DELETE; events go only with their area (DeleteArea)
  - Corrections are ADJUSTMENT_EVENT rows

KEY TABLES:
  events:    Immutable ledger; payload stored as JSON next to its type
  areas:     Top-level partitions
  villages:  Serial counters (next_serial_number only increases)
  customers: Borrowers with their immutable serial number
  settings:  Key/value facts (device_id, selected_area)

ORDERING:
  created_at is stored as Unix nanoseconds. Reads order by created_at
  DESC, seq DESC so equal timestamps list the later insertion first.

CONCURRENCY:
  One open connection. The ledger is single-writer and this also keeps
  ":memory:" databases shared across calls.

TIMESTAMPS:
  Loaded times are converted to the store's location (WithLocation) so
  they carry the same zone the ledger clock stamped them in.

USAGE:
  store, err := sqlite.New("./loanbook.db", sqlite.WithLocation(loc))
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - ledger/store.go: Interface definitions
  - ledger/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/warp/loanbook/ledger"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	*queries
}

var _ ledger.TxStore = (*Store)(nil)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// queries implements ledger.Store against a querier. Store uses it with
// the database handle, WithTx with a transaction.
type queries struct {
	q   querier
	loc *time.Location
}

// at converts a stored Unix-nanosecond timestamp into the store's location.
func (q *queries) at(ns int64) time.Time {
	return time.Unix(0, ns).In(q.loc)
}

// Option configures a Store.
type Option func(*Store)

// WithLocation sets the zone loaded timestamps are expressed in. It should
// match the ledger clock so display dates read the same before and after a
// round trip. Defaults to time.Local.
func WithLocation(loc *time.Location) Option {
	return func(s *Store) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db, queries: &queries{q: db, loc: time.Local}}
	for _, opt := range opts {
		opt(store)
	}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Events (append-only ledger)
	CREATE TABLE IF NOT EXISTS events (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		schema_version INTEGER NOT NULL,
		account_id TEXT NOT NULL,
		area_id TEXT NOT NULL,
		created_by TEXT NOT NULL,
		device_id TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		synced_at INTEGER,
		event_type TEXT NOT NULL,
		customer_id TEXT,
		payload_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_area_created
		ON events(area_id, created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_events_customer
		ON events(customer_id) WHERE customer_id IS NOT NULL;

	CREATE TABLE IF NOT EXISTS areas (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		is_onboarding BOOLEAN NOT NULL DEFAULT FALSE,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS villages (
		id TEXT PRIMARY KEY,
		area_id TEXT NOT NULL,
		name TEXT NOT NULL,
		next_serial_number INTEGER NOT NULL DEFAULT 1,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_villages_area ON villages(area_id);

	CREATE TABLE IF NOT EXISTS customers (
		id TEXT PRIMARY KEY,
		area_id TEXT NOT NULL,
		village_id TEXT NOT NULL,
		village_name TEXT NOT NULL,
		name TEXT NOT NULL,
		phone TEXT NOT NULL DEFAULT '',
		serial_number INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_customers_area ON customers(area_id);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TRANSACTIONAL STORE (ledger.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store ledger.Store) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&queries{q: sqlTx, loc: s.loc}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// AppendBatch adds multiple events atomically.
func (s *Store) AppendBatch(ctx context.Context, events []ledger.FinanceEvent) error {
	return s.WithTx(ctx, func(tx ledger.Store) error {
		return tx.AppendBatch(ctx, events)
	})
}

// DeleteArea removes the area and everything it owns in one transaction.
func (s *Store) DeleteArea(ctx context.Context, id ledger.AreaID) error {
	return s.WithTx(ctx, func(tx ledger.Store) error {
		return tx.DeleteArea(ctx, id)
	})
}

// =============================================================================
// EVENT STORE (ledger.EventStore interface)
// =============================================================================

const eventColumns = `id, schema_version, account_id, area_id, created_by, device_id,
	created_at, synced_at, event_type, payload_json`

// Append adds an event to the ledger.
func (q *queries) Append(ctx context.Context, e ledger.FinanceEvent) error {
	payloadJSON, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	var customerID sql.NullString
	if id, ok := e.CustomerID(); ok {
		customerID = sql.NullString{String: string(id), Valid: true}
	}
	var syncedAt sql.NullInt64
	if e.SyncedAt != nil {
		syncedAt = sql.NullInt64{Int64: e.SyncedAt.UnixNano(), Valid: true}
	}

	query := `
		INSERT INTO events
		(id, schema_version, account_id, area_id, created_by, device_id,
		 created_at, synced_at, event_type, customer_id, payload_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = q.q.ExecContext(ctx, query,
		e.EventID,
		e.SchemaVersion,
		e.AccountID,
		e.AreaID,
		e.CreatedBy,
		e.DeviceID,
		e.CreatedAt.UnixNano(),
		syncedAt,
		e.EventType,
		customerID,
		string(payloadJSON),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ledger.ErrDuplicateEvent
		}
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

// AppendBatch appends each event with the current querier. Store overrides
// it to run inside a transaction.
func (q *queries) AppendBatch(ctx context.Context, events []ledger.FinanceEvent) error {
	for _, e := range events {
		if err := q.Append(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// LoadByArea returns all events of an area, newest first.
func (q *queries) LoadByArea(ctx context.Context, areaID ledger.AreaID) ([]ledger.FinanceEvent, error) {
	query := `SELECT ` + eventColumns + `
		FROM events
		WHERE area_id = ?
		ORDER BY created_at DESC, seq DESC`
	return q.queryEvents(ctx, query, areaID)
}

// LoadByCustomer returns the customer's events across all areas, newest first.
func (q *queries) LoadByCustomer(ctx context.Context, customerID ledger.CustomerID) ([]ledger.FinanceEvent, error) {
	query := `SELECT ` + eventColumns + `
		FROM events
		WHERE customer_id = ?
		ORDER BY created_at DESC, seq DESC`
	return q.queryEvents(ctx, query, customerID)
}

// GetEvent retrieves a single event by id.
func (q *queries) GetEvent(ctx context.Context, id ledger.EventID) (*ledger.FinanceEvent, error) {
	events, err := q.queryEvents(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, nil
	}
	return &events[0], nil
}

type eventRow struct {
	event       ledger.FinanceEvent
	createdAt   int64
	syncedAt    sql.NullInt64
	payloadJSON string
}

func (q *queries) queryEvents(ctx context.Context, query string, args ...any) ([]ledger.FinanceEvent, error) {
	rows, err := q.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var scanned []eventRow
	for rows.Next() {
		var r eventRow
		err := rows.Scan(
			&r.event.EventID, &r.event.SchemaVersion, &r.event.AccountID, &r.event.AreaID,
			&r.event.CreatedBy, &r.event.DeviceID, &r.createdAt, &r.syncedAt,
			&r.event.EventType, &r.payloadJSON,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		scanned = append(scanned, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	events := make([]ledger.FinanceEvent, 0, len(scanned))
	for _, r := range scanned {
		e := r.event
		e.CreatedAt = q.at(r.createdAt)
		if r.syncedAt.Valid {
			t := q.at(r.syncedAt.Int64)
			e.SyncedAt = &t
		}
		e.Payload, err = ledger.DecodePayload(e.EventType, []byte(r.payloadJSON))
		if err != nil {
			return nil, fmt.Errorf("event %s: %w", e.EventID, err)
		}
		events = append(events, e)
	}
	return events, nil
}

// =============================================================================
// AREA STORE
// =============================================================================

// SaveArea inserts or renames an area.
func (q *queries) SaveArea(ctx context.Context, a ledger.Area) error {
	query := `
		INSERT INTO areas (id, name, is_onboarding, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name
	`
	_, err := q.q.ExecContext(ctx, query, a.ID, a.Name, a.IsOnboarding, a.CreatedAt.UnixNano())
	return err
}

// GetArea retrieves an area by id.
func (q *queries) GetArea(ctx context.Context, id ledger.AreaID) (*ledger.Area, error) {
	var (
		a         ledger.Area
		createdAt int64
	)
	err := q.q.QueryRowContext(ctx,
		"SELECT id, name, is_onboarding, created_at FROM areas WHERE id = ?", id,
	).Scan(&a.ID, &a.Name, &a.IsOnboarding, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	a.CreatedAt = q.at(createdAt)
	return &a, nil
}

// ListAreas returns all areas, oldest first.
func (q *queries) ListAreas(ctx context.Context) ([]ledger.Area, error) {
	rows, err := q.q.QueryContext(ctx,
		"SELECT id, name, is_onboarding, created_at FROM areas ORDER BY created_at, id",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	areas := []ledger.Area{}
	for rows.Next() {
		var (
			a         ledger.Area
			createdAt int64
		)
		if err := rows.Scan(&a.ID, &a.Name, &a.IsOnboarding, &createdAt); err != nil {
			return nil, err
		}
		a.CreatedAt = q.at(createdAt)
		areas = append(areas, a)
	}
	return areas, rows.Err()
}

// DeleteArea removes an area with its villages, customers and events.
func (q *queries) DeleteArea(ctx context.Context, id ledger.AreaID) error {
	for _, stmt := range []string{
		"DELETE FROM events WHERE area_id = ?",
		"DELETE FROM customers WHERE area_id = ?",
		"DELETE FROM villages WHERE area_id = ?",
		"DELETE FROM areas WHERE id = ?",
	} {
		if _, err := q.q.ExecContext(ctx, stmt, id); err != nil {
			return fmt.Errorf("failed to delete area: %w", err)
		}
	}
	return nil
}

// =============================================================================
// VILLAGE STORE
// =============================================================================

// SaveVillage inserts or renames a village. The counter is never lowered.
func (q *queries) SaveVillage(ctx context.Context, v ledger.Village) error {
	query := `
		INSERT INTO villages (id, area_id, name, next_serial_number, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name
	`
	_, err := q.q.ExecContext(ctx, query, v.ID, v.AreaID, v.Name, v.NextSerialNumber, v.CreatedAt.UnixNano())
	return err
}

const villageColumns = "id, area_id, name, next_serial_number, created_at"

func (q *queries) scanVillage(scan func(dest ...any) error) (ledger.Village, error) {
	var (
		v         ledger.Village
		createdAt int64
	)
	if err := scan(&v.ID, &v.AreaID, &v.Name, &v.NextSerialNumber, &createdAt); err != nil {
		return v, err
	}
	v.CreatedAt = q.at(createdAt)
	return v, nil
}

// GetVillage retrieves a village by id.
func (q *queries) GetVillage(ctx context.Context, id ledger.VillageID) (*ledger.Village, error) {
	v, err := q.scanVillage(q.q.QueryRowContext(ctx,
		"SELECT "+villageColumns+" FROM villages WHERE id = ?", id,
	).Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// ListVillages returns the area's villages, oldest first.
func (q *queries) ListVillages(ctx context.Context, areaID ledger.AreaID) ([]ledger.Village, error) {
	rows, err := q.q.QueryContext(ctx,
		"SELECT "+villageColumns+" FROM villages WHERE area_id = ? ORDER BY created_at, id", areaID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	villages := []ledger.Village{}
	for rows.Next() {
		v, err := q.scanVillage(rows.Scan)
		if err != nil {
			return nil, err
		}
		villages = append(villages, v)
	}
	return villages, rows.Err()
}

// DeleteVillage removes a village. Its customers and events stay.
func (q *queries) DeleteVillage(ctx context.Context, id ledger.VillageID) error {
	_, err := q.q.ExecContext(ctx, "DELETE FROM villages WHERE id = ?", id)
	return err
}

// NextSerial hands out the village's next serial number.
func (q *queries) NextSerial(ctx context.Context, id ledger.VillageID) (int, error) {
	var next int
	err := q.q.QueryRowContext(ctx,
		`UPDATE villages SET next_serial_number = next_serial_number + 1
		 WHERE id = ? RETURNING next_serial_number`, id,
	).Scan(&next)
	if err == sql.ErrNoRows {
		return 0, ledger.ErrVillageNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to allocate serial: %w", err)
	}
	return next - 1, nil
}

// =============================================================================
// CUSTOMER STORE
// =============================================================================

// SaveCustomer inserts or updates a customer. The serial number is never
// rewritten.
func (q *queries) SaveCustomer(ctx context.Context, c ledger.Customer) error {
	query := `
		INSERT INTO customers
		(id, area_id, village_id, village_name, name, phone, serial_number, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			phone = excluded.phone,
			village_name = excluded.village_name
	`
	_, err := q.q.ExecContext(ctx, query,
		c.ID, c.AreaID, c.VillageID, c.VillageName, c.Name, c.Phone, c.SerialNumber,
		c.CreatedAt.UnixNano(),
	)
	return err
}

const customerColumns = "id, area_id, village_id, village_name, name, phone, serial_number, created_at"

func (q *queries) scanCustomer(scan func(dest ...any) error) (ledger.Customer, error) {
	var (
		c         ledger.Customer
		createdAt int64
	)
	err := scan(&c.ID, &c.AreaID, &c.VillageID, &c.VillageName, &c.Name, &c.Phone, &c.SerialNumber, &createdAt)
	if err != nil {
		return c, err
	}
	c.CreatedAt = q.at(createdAt)
	return c, nil
}

// GetCustomer retrieves a customer by id.
func (q *queries) GetCustomer(ctx context.Context, id ledger.CustomerID) (*ledger.Customer, error) {
	c, err := q.scanCustomer(q.q.QueryRowContext(ctx,
		"SELECT "+customerColumns+" FROM customers WHERE id = ?", id,
	).Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListCustomers returns the area's customers ordered by village and serial.
func (q *queries) ListCustomers(ctx context.Context, areaID ledger.AreaID) ([]ledger.Customer, error) {
	rows, err := q.q.QueryContext(ctx,
		"SELECT "+customerColumns+" FROM customers WHERE area_id = ? ORDER BY village_id, serial_number",
		areaID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := []ledger.Customer{}
	for rows.Next() {
		c, err := q.scanCustomer(rows.Scan)
		if err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

// DeleteCustomer removes the customer record. Their events are kept.
func (q *queries) DeleteCustomer(ctx context.Context, id ledger.CustomerID) error {
	_, err := q.q.ExecContext(ctx, "DELETE FROM customers WHERE id = ?", id)
	return err
}

// =============================================================================
// SETTINGS STORE
// =============================================================================

func (q *queries) Setting(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := q.q.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (q *queries) SetSetting(ctx context.Context, key, value string) error {
	_, err := q.q.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}

// =============================================================================
// HELPERS
// =============================================================================

func isUniqueConstraintError(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.ExtendedCode == sqlite3.ErrConstraintUnique ||
		se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}
