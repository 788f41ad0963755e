// Package store provides Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/loanbook/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu sync.RWMutex
	st *state
}

var _ ledger.TxStore = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{st: newState()}
}

// state holds the data and implements ledger.Store without locking. Memory
// wraps every call in its mutex; WithTx hands the bare state to fn.
type state struct {
	events    []ledger.FinanceEvent
	eventIDs  map[ledger.EventID]bool
	areas     map[ledger.AreaID]ledger.Area
	villages  map[ledger.VillageID]ledger.Village
	customers map[ledger.CustomerID]ledger.Customer
	settings  map[string]string
}

func newState() *state {
	return &state{
		eventIDs:  make(map[ledger.EventID]bool),
		areas:     make(map[ledger.AreaID]ledger.Area),
		villages:  make(map[ledger.VillageID]ledger.Village),
		customers: make(map[ledger.CustomerID]ledger.Customer),
		settings:  make(map[string]string),
	}
}

func (s *state) clone() *state {
	c := newState()
	c.events = append([]ledger.FinanceEvent(nil), s.events...)
	for k, v := range s.eventIDs {
		c.eventIDs[k] = v
	}
	for k, v := range s.areas {
		c.areas[k] = v
	}
	for k, v := range s.villages {
		c.villages[k] = v
	}
	for k, v := range s.customers {
		c.customers[k] = v
	}
	for k, v := range s.settings {
		c.settings[k] = v
	}
	return c
}

// =============================================================================
// EVENTS
// =============================================================================

// Append adds a single event. Append-only.
func (m *Memory) Append(ctx context.Context, e ledger.FinanceEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.Append(ctx, e)
}

// AppendBatch adds multiple events atomically.
func (m *Memory) AppendBatch(ctx context.Context, events []ledger.FinanceEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.AppendBatch(ctx, events)
}

func (m *Memory) LoadByArea(ctx context.Context, areaID ledger.AreaID) ([]ledger.FinanceEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.LoadByArea(ctx, areaID)
}

func (m *Memory) LoadByCustomer(ctx context.Context, customerID ledger.CustomerID) ([]ledger.FinanceEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.LoadByCustomer(ctx, customerID)
}

func (m *Memory) GetEvent(ctx context.Context, id ledger.EventID) (*ledger.FinanceEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.GetEvent(ctx, id)
}

func (s *state) Append(_ context.Context, e ledger.FinanceEvent) error {
	if s.eventIDs[e.EventID] {
		return ledger.ErrDuplicateEvent
	}
	s.events = append(s.events, e)
	s.eventIDs[e.EventID] = true
	return nil
}

func (s *state) AppendBatch(ctx context.Context, events []ledger.FinanceEvent) error {
	// Check all ids first (atomic check)
	seen := make(map[ledger.EventID]bool, len(events))
	for _, e := range events {
		if s.eventIDs[e.EventID] || seen[e.EventID] {
			return ledger.ErrDuplicateEvent
		}
		seen[e.EventID] = true
	}
	for _, e := range events {
		if err := s.Append(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (s *state) LoadByArea(_ context.Context, areaID ledger.AreaID) ([]ledger.FinanceEvent, error) {
	return s.newestFirst(func(e ledger.FinanceEvent) bool { return e.AreaID == areaID }), nil
}

func (s *state) LoadByCustomer(_ context.Context, customerID ledger.CustomerID) ([]ledger.FinanceEvent, error) {
	return s.newestFirst(func(e ledger.FinanceEvent) bool {
		id, ok := e.CustomerID()
		return ok && id == customerID
	}), nil
}

// newestFirst walks the log backwards so that, after a stable sort by time,
// later insertions come first among equal timestamps.
func (s *state) newestFirst(keep func(ledger.FinanceEvent) bool) []ledger.FinanceEvent {
	result := []ledger.FinanceEvent{}
	for i := len(s.events) - 1; i >= 0; i-- {
		if keep(s.events[i]) {
			result = append(result, s.events[i])
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result
}

func (s *state) GetEvent(_ context.Context, id ledger.EventID) (*ledger.FinanceEvent, error) {
	for i := range s.events {
		if s.events[i].EventID == id {
			e := s.events[i]
			return &e, nil
		}
	}
	return nil, nil
}

// =============================================================================
// REGISTRY
// =============================================================================

func (m *Memory) SaveArea(ctx context.Context, a ledger.Area) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.SaveArea(ctx, a)
}

func (m *Memory) GetArea(ctx context.Context, id ledger.AreaID) (*ledger.Area, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.GetArea(ctx, id)
}

func (m *Memory) ListAreas(ctx context.Context) ([]ledger.Area, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.ListAreas(ctx)
}

func (m *Memory) DeleteArea(ctx context.Context, id ledger.AreaID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.DeleteArea(ctx, id)
}

func (m *Memory) SaveVillage(ctx context.Context, v ledger.Village) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.SaveVillage(ctx, v)
}

func (m *Memory) GetVillage(ctx context.Context, id ledger.VillageID) (*ledger.Village, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.GetVillage(ctx, id)
}

func (m *Memory) ListVillages(ctx context.Context, areaID ledger.AreaID) ([]ledger.Village, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.ListVillages(ctx, areaID)
}

func (m *Memory) DeleteVillage(ctx context.Context, id ledger.VillageID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.DeleteVillage(ctx, id)
}

func (m *Memory) NextSerial(ctx context.Context, id ledger.VillageID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.NextSerial(ctx, id)
}

func (m *Memory) SaveCustomer(ctx context.Context, c ledger.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.SaveCustomer(ctx, c)
}

func (m *Memory) GetCustomer(ctx context.Context, id ledger.CustomerID) (*ledger.Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.GetCustomer(ctx, id)
}

func (m *Memory) ListCustomers(ctx context.Context, areaID ledger.AreaID) ([]ledger.Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.ListCustomers(ctx, areaID)
}

func (m *Memory) DeleteCustomer(ctx context.Context, id ledger.CustomerID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.DeleteCustomer(ctx, id)
}

func (s *state) SaveArea(_ context.Context, a ledger.Area) error {
	s.areas[a.ID] = a
	return nil
}

func (s *state) GetArea(_ context.Context, id ledger.AreaID) (*ledger.Area, error) {
	a, ok := s.areas[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (s *state) ListAreas(_ context.Context) ([]ledger.Area, error) {
	result := make([]ledger.Area, 0, len(s.areas))
	for _, a := range s.areas {
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (s *state) DeleteArea(_ context.Context, id ledger.AreaID) error {
	delete(s.areas, id)
	for vid, v := range s.villages {
		if v.AreaID == id {
			delete(s.villages, vid)
		}
	}
	for cid, c := range s.customers {
		if c.AreaID == id {
			delete(s.customers, cid)
		}
	}
	kept := s.events[:0:0]
	for _, e := range s.events {
		if e.AreaID == id {
			delete(s.eventIDs, e.EventID)
			continue
		}
		kept = append(kept, e)
	}
	s.events = kept
	return nil
}

// SaveVillage never lowers an existing counter.
func (s *state) SaveVillage(_ context.Context, v ledger.Village) error {
	if old, ok := s.villages[v.ID]; ok && old.NextSerialNumber > v.NextSerialNumber {
		v.NextSerialNumber = old.NextSerialNumber
	}
	s.villages[v.ID] = v
	return nil
}

func (s *state) GetVillage(_ context.Context, id ledger.VillageID) (*ledger.Village, error) {
	v, ok := s.villages[id]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (s *state) ListVillages(_ context.Context, areaID ledger.AreaID) ([]ledger.Village, error) {
	result := []ledger.Village{}
	for _, v := range s.villages {
		if v.AreaID == areaID {
			result = append(result, v)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (s *state) DeleteVillage(_ context.Context, id ledger.VillageID) error {
	delete(s.villages, id)
	return nil
}

func (s *state) NextSerial(_ context.Context, id ledger.VillageID) (int, error) {
	v, ok := s.villages[id]
	if !ok {
		return 0, ledger.ErrVillageNotFound
	}
	serial := v.NextSerialNumber
	v.NextSerialNumber++
	s.villages[id] = v
	return serial, nil
}

func (s *state) SaveCustomer(_ context.Context, c ledger.Customer) error {
	if old, ok := s.customers[c.ID]; ok {
		c.SerialNumber = old.SerialNumber
	}
	s.customers[c.ID] = c
	return nil
}

func (s *state) GetCustomer(_ context.Context, id ledger.CustomerID) (*ledger.Customer, error) {
	c, ok := s.customers[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (s *state) ListCustomers(_ context.Context, areaID ledger.AreaID) ([]ledger.Customer, error) {
	result := []ledger.Customer{}
	for _, c := range s.customers {
		if c.AreaID == areaID {
			result = append(result, c)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].VillageID != result[j].VillageID {
			return result[i].VillageID < result[j].VillageID
		}
		return result[i].SerialNumber < result[j].SerialNumber
	})
	return result, nil
}

func (s *state) DeleteCustomer(_ context.Context, id ledger.CustomerID) error {
	delete(s.customers, id)
	return nil
}

// =============================================================================
// SETTINGS
// =============================================================================

func (m *Memory) Setting(ctx context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.Setting(ctx, key)
}

func (m *Memory) SetSetting(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.SetSetting(ctx, key, value)
}

func (s *state) Setting(_ context.Context, key string) (string, bool, error) {
	v, ok := s.settings[key]
	return v, ok, nil
}

func (s *state) SetSetting(_ context.Context, key, value string) error {
	s.settings[key] = value
	return nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
func (m *Memory) WithTx(ctx context.Context, fn func(ledger.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.st.clone()
	if err := fn(m.st); err != nil {
		m.st = snapshot
		return err
	}
	return nil
}
