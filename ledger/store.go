/*
store.go - Persistence interfaces for events, the registry and settings

PURPOSE:
  Defines the boundary between the ledger engine and whatever holds the
  data. Folds never touch a store; the Ledger and the lending service do.
  Concrete backings are supplied by the caller.

KEY INTERFACES:
  EventStore:    Append-only event persistence (append, batch, load)
  RegistryStore: Areas, villages and customers (flat collections, id refs)
  SettingsStore: Small key/value facts (device id, selected area)
  Store:         All of the above
  TxStore:       Store plus WithTx for multi-write atomicity

APPEND-ONLY CONTRACT:
  EventStore has no Update and no per-event Delete. Events disappear only
  through RegistryStore.DeleteArea, which cascades to the area's villages,
  customers and events.

ATOMIC BATCHES:
  AppendBatch is all-or-nothing. Onboarding an existing loan writes the
  loan plus its synthetic payment history as one batch, so a failure never
  leaves a loan with part of its history.

ORDERING:
  LoadByArea and LoadByCustomer return newest first (CreatedAt descending,
  later insertion first on equal timestamps).

IMPLEMENTATIONS:
  - ledger/store/memory.go: In-memory for tests and ":memory:" dev runs
  - store/sqlite/sqlite.go: Durable SQLite

SEE ALSO:
  - ledger.go: Higher-level event creation on top of Store
*/
package ledger

import "context"

// =============================================================================
// EVENT STORE - append-only
// =============================================================================

type EventStore interface {
	// Append persists one event. Returns ErrDuplicateEvent if the id exists.
	Append(ctx context.Context, e FinanceEvent) error

	// AppendBatch persists events atomically. Either all succeed or none do.
	AppendBatch(ctx context.Context, events []FinanceEvent) error

	// LoadByArea returns all events of an area, newest first.
	LoadByArea(ctx context.Context, areaID AreaID) ([]FinanceEvent, error)

	// LoadByCustomer returns events whose payload names the customer, across
	// all areas, newest first.
	LoadByCustomer(ctx context.Context, customerID CustomerID) ([]FinanceEvent, error)

	// GetEvent returns nil, nil when the event does not exist.
	GetEvent(ctx context.Context, id EventID) (*FinanceEvent, error)
}

// =============================================================================
// REGISTRY STORE - areas, villages, customers
// =============================================================================

// RegistryStore persists the entity graph events refer to. Getters return
// nil, nil for unknown ids.
type RegistryStore interface {
	SaveArea(ctx context.Context, a Area) error
	GetArea(ctx context.Context, id AreaID) (*Area, error)
	ListAreas(ctx context.Context) ([]Area, error)
	// DeleteArea removes the area with its villages, customers and events.
	DeleteArea(ctx context.Context, id AreaID) error

	SaveVillage(ctx context.Context, v Village) error
	GetVillage(ctx context.Context, id VillageID) (*Village, error)
	ListVillages(ctx context.Context, areaID AreaID) ([]Village, error)
	DeleteVillage(ctx context.Context, id VillageID) error

	// NextSerial returns the village's current counter value and increments
	// it. Fails with ErrVillageNotFound when the village is missing.
	NextSerial(ctx context.Context, id VillageID) (int, error)

	SaveCustomer(ctx context.Context, c Customer) error
	GetCustomer(ctx context.Context, id CustomerID) (*Customer, error)
	ListCustomers(ctx context.Context, areaID AreaID) ([]Customer, error)
	// DeleteCustomer removes the customer record only; events are kept.
	DeleteCustomer(ctx context.Context, id CustomerID) error
}

// =============================================================================
// SETTINGS STORE
// =============================================================================

const (
	SettingDeviceID     = "device_id"
	SettingSelectedArea = "selected_area"
)

type SettingsStore interface {
	Setting(ctx context.Context, key string) (string, bool, error)
	SetSetting(ctx context.Context, key, value string) error
}

// =============================================================================
// COMBINED + TRANSACTIONAL
// =============================================================================

type Store interface {
	EventStore
	RegistryStore
	SettingsStore
}

// TxStore wraps Store with transaction support.
// If fn returns an error every write made through the provided Store is
// rolled back.
type TxStore interface {
	Store
	WithTx(ctx context.Context, fn func(Store) error) error
}
