/*
Package lending is the loan book's mutation API and read model.

PURPOSE:
  Service is what callers (the HTTP API, demo scenarios, a future UI) talk
  to. It owns the selected area, validates input, allocates serial numbers,
  turns requests into payloads for the ledger, and re-derives every view
  from the area's event log on read.

REQUEST FLOW (writes):
  1. Resolve the selected area (ErrNoAreaSelected if there is none)
  2. Validate input (ValidationError, nothing written on failure)
  3. Resolve references (customer, loan event, adjustment target)
  4. Append one event, or one atomic batch for onboarding backfill
  5. Log the appended events

REQUEST FLOW (reads):
  Load the area's events, then fold them with the ledger engines. Nothing
  is cached; the log is small enough to refold on every request.

SELECTED AREA:
  Persisted in the settings store. When the stored selection is missing
  or points at a deleted area, the first area (oldest) is selected and
  persisted. With no areas at all, writes fail with ErrNoAreaSelected.

FILES:
  service.go:   Service, options, selected area
  registry.go:  Areas, villages, customers
  loans.go:     Loans, payments, expenses, capital, adjustments
  validate.go:  Input validation
  views.go:     Dashboard, summaries, sections, search, village groups
  scenarios.go: Demo data loaders

SEE ALSO:
  - ledger/ledger.go: Event creation
  - api/handlers.go: HTTP surface over Service
*/
package lending

import (
	"context"
	"fmt"
	"time"

	"github.com/warp/loanbook/ledger"
	"go.uber.org/zap"
)

// =============================================================================
// SERVICE
// =============================================================================

type Service struct {
	store     ledger.TxStore
	ledger    *ledger.Ledger
	log       *zap.Logger
	formatter *ledger.Formatter
}

type Option func(*Service)

// WithLogger sets the service logger. Defaults to a no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *Service) { s.log = log }
}

// WithFormatter sets the display formatter used in log lines and by
// callers through Formatter().
func WithFormatter(f *ledger.Formatter) Option {
	return func(s *Service) { s.formatter = f }
}

// NewService wires a Service over store. led must write to the same store.
func NewService(store ledger.TxStore, led *ledger.Ledger, opts ...Option) *Service {
	s := &Service{
		store:     store,
		ledger:    led,
		log:       zap.NewNop(),
		formatter: ledger.DefaultFormatter(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the ledger clock's current time. Views and date filters use
// its location for calendar-day boundaries.
func (s *Service) Now() time.Time {
	return s.ledger.Now()
}

func (s *Service) Formatter() *ledger.Formatter {
	return s.formatter
}

// =============================================================================
// SELECTED AREA
// =============================================================================

// SelectArea makes id the current area.
func (s *Service) SelectArea(ctx context.Context, id ledger.AreaID) (ledger.Area, error) {
	area, err := s.store.GetArea(ctx, id)
	if err != nil {
		return ledger.Area{}, fmt.Errorf("load area: %w", err)
	}
	if area == nil {
		return ledger.Area{}, ledger.ErrAreaNotFound
	}
	if err := s.store.SetSetting(ctx, ledger.SettingSelectedArea, string(id)); err != nil {
		return ledger.Area{}, fmt.Errorf("save selected area: %w", err)
	}
	s.log.Info("area selected", zap.String("area_id", string(id)))
	return *area, nil
}

// SelectedArea returns the current area, falling back to the oldest area
// when the stored selection is missing or stale.
func (s *Service) SelectedArea(ctx context.Context) (ledger.Area, error) {
	id, ok, err := s.store.Setting(ctx, ledger.SettingSelectedArea)
	if err != nil {
		return ledger.Area{}, fmt.Errorf("load selected area: %w", err)
	}
	if ok && id != "" {
		area, err := s.store.GetArea(ctx, ledger.AreaID(id))
		if err != nil {
			return ledger.Area{}, fmt.Errorf("load area: %w", err)
		}
		if area != nil {
			return *area, nil
		}
	}

	areas, err := s.store.ListAreas(ctx)
	if err != nil {
		return ledger.Area{}, fmt.Errorf("list areas: %w", err)
	}
	if len(areas) == 0 {
		return ledger.Area{}, ledger.ErrNoAreaSelected
	}
	return s.SelectArea(ctx, areas[0].ID)
}

func (s *Service) currentArea(ctx context.Context) (ledger.AreaID, error) {
	area, err := s.SelectedArea(ctx)
	if err != nil {
		return "", err
	}
	return area.ID, nil
}

// =============================================================================
// APPEND HELPERS
// =============================================================================

func (s *Service) append(ctx context.Context, areaID ledger.AreaID, p ledger.Payload) (ledger.FinanceEvent, error) {
	e, err := s.ledger.Append(ctx, areaID, p)
	if err != nil {
		return ledger.FinanceEvent{}, fmt.Errorf("append %s: %w", p.EventType(), err)
	}
	s.logAppended(e)
	return e, nil
}

func (s *Service) logAppended(e ledger.FinanceEvent) {
	s.log.Info("event appended",
		zap.String("area_id", string(e.AreaID)),
		zap.String("event_type", string(e.EventType)),
		zap.String("event_id", string(e.EventID)),
	)
}
