/*
ledger.go - Append-only event log for one installation

PURPOSE:
  Ledger turns payloads into FinanceEvents and hands them to the store.
  It is the only place events are created, so every event gets the same
  envelope: a fresh UUID, the creation time, schema version 1, the account
  and actor tags, and the stable id of this installation.

CRITICAL INVARIANTS:
  1. APPEND-ONLY: No Update, No Delete of individual events.
  2. IMMUTABLE: Once written, events are never modified.
  3. ORDERED: CreatedAt is strictly increasing within a Ledger, so events
     of one batch keep their order after sorting by time.
  4. DURABLE: Append returns only after the store has persisted the event.

DEVICE ID:
  Generated once per installation and kept in the settings store. It is
  carried on every event for future multi-device reconciliation; nothing
  reads it today.

SEE ALSO:
  - store.go: Persistence interfaces
  - event.go: Payload variants
*/
package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// LEDGER
// =============================================================================

// Clock returns the current time. Tests inject fixed clocks.
type Clock func() time.Time

// LedgerStore is the part of Store the Ledger needs.
type LedgerStore interface {
	EventStore
	SettingsStore
}

type Ledger struct {
	store     LedgerStore
	now       Clock
	accountID string
	actor     string

	mu       sync.Mutex
	deviceID string
	last     time.Time
}

type Option func(*Ledger)

// WithClock overrides time.Now.
func WithClock(c Clock) Option {
	return func(l *Ledger) { l.now = c }
}

// WithAccount sets the account tag stamped on events.
func WithAccount(accountID string) Option {
	return func(l *Ledger) { l.accountID = accountID }
}

// WithActor sets the createdBy tag stamped on events.
func WithActor(actor string) Option {
	return func(l *Ledger) { l.actor = actor }
}

func NewLedger(store LedgerStore, opts ...Option) *Ledger {
	l := &Ledger{
		store:     store,
		now:       time.Now,
		accountID: "default",
		actor:     "owner",
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Now returns the ledger clock's current time.
func (l *Ledger) Now() time.Time {
	return l.now()
}

// DeviceID returns the installation id, creating and persisting it on
// first use.
func (l *Ledger) DeviceID(ctx context.Context) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.deviceIDLocked(ctx)
}

func (l *Ledger) deviceIDLocked(ctx context.Context) (string, error) {
	if l.deviceID != "" {
		return l.deviceID, nil
	}
	id, ok, err := l.store.Setting(ctx, SettingDeviceID)
	if err != nil {
		return "", fmt.Errorf("load device id: %w", err)
	}
	if !ok || id == "" {
		id = uuid.NewString()
		if err := l.store.SetSetting(ctx, SettingDeviceID, id); err != nil {
			return "", fmt.Errorf("save device id: %w", err)
		}
	}
	l.deviceID = id
	return id, nil
}

// Append records one event for the area.
func (l *Ledger) Append(ctx context.Context, areaID AreaID, payload Payload) (FinanceEvent, error) {
	events, err := l.build(ctx, areaID, []Payload{payload})
	if err != nil {
		return FinanceEvent{}, err
	}
	if err := l.store.Append(ctx, events[0]); err != nil {
		return FinanceEvent{}, err
	}
	return events[0], nil
}

// AppendBatch records all payloads atomically, in order.
func (l *Ledger) AppendBatch(ctx context.Context, areaID AreaID, payloads ...Payload) ([]FinanceEvent, error) {
	if len(payloads) == 0 {
		return nil, nil
	}
	events, err := l.Stamp(ctx, areaID, payloads...)
	if err != nil {
		return nil, err
	}
	if err := l.Commit(ctx, events); err != nil {
		return nil, err
	}
	return events, nil
}

// Stamp builds events without persisting them. It lets a caller reference
// the id of one event from a later payload before writing both with
// Commit. Timestamps keep increasing across Stamp calls.
func (l *Ledger) Stamp(ctx context.Context, areaID AreaID, payloads ...Payload) ([]FinanceEvent, error) {
	return l.build(ctx, areaID, payloads)
}

// Commit persists stamped events as one atomic batch.
func (l *Ledger) Commit(ctx context.Context, events []FinanceEvent) error {
	return l.store.AppendBatch(ctx, events)
}

func (l *Ledger) build(ctx context.Context, areaID AreaID, payloads []Payload) ([]FinanceEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	deviceID, err := l.deviceIDLocked(ctx)
	if err != nil {
		return nil, err
	}

	events := make([]FinanceEvent, 0, len(payloads))
	for _, p := range payloads {
		events = append(events, FinanceEvent{
			EventID:       EventID(uuid.NewString()),
			SchemaVersion: SchemaVersion,
			AccountID:     l.accountID,
			AreaID:        areaID,
			CreatedBy:     l.actor,
			DeviceID:      deviceID,
			CreatedAt:     l.tickLocked(),
			EventType:     p.EventType(),
			Payload:       p,
		})
	}
	return events, nil
}

// tickLocked returns a timestamp strictly after the previous one.
func (l *Ledger) tickLocked() time.Time {
	t := l.now()
	if !t.After(l.last) {
		t = l.last.Add(time.Nanosecond)
	}
	l.last = t
	return t
}

// ListByArea returns the area's events, newest first.
func (l *Ledger) ListByArea(ctx context.Context, areaID AreaID) ([]FinanceEvent, error) {
	return l.store.LoadByArea(ctx, areaID)
}

// ListByCustomer returns the customer's events across areas, newest first.
func (l *Ledger) ListByCustomer(ctx context.Context, customerID CustomerID) ([]FinanceEvent, error) {
	return l.store.LoadByCustomer(ctx, customerID)
}

// Get returns nil, nil when the event does not exist.
func (l *Ledger) Get(ctx context.Context, id EventID) (*FinanceEvent, error) {
	return l.store.GetEvent(ctx, id)
}
