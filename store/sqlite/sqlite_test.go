package sqlite_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/loanbook/ledger"
	"github.com/warp/loanbook/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

var base = time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

func event(id string, area ledger.AreaID, at time.Time, p ledger.Payload) ledger.FinanceEvent {
	return ledger.FinanceEvent{
		EventID:       ledger.EventID(id),
		SchemaVersion: ledger.SchemaVersion,
		AccountID:     "default",
		AreaID:        area,
		CreatedBy:     "owner",
		DeviceID:      "device-1",
		CreatedAt:     at,
		EventType:     p.EventType(),
		Payload:       p,
	}
}

func terms(customer ledger.CustomerID) ledger.LoanTerms {
	return ledger.LoanTerms{
		CustomerID:        customer,
		CustomerName:      "Ravi",
		LoanAmount:        ledger.NewMoney(10000),
		TotalPayable:      ledger.NewMoney(12000),
		TotalInstallments: 12,
	}
}

func ids(events []ledger.FinanceEvent) []ledger.EventID {
	out := make([]ledger.EventID, len(events))
	for i, e := range events {
		out[i] = e.EventID
	}
	return out
}

// =============================================================================
// EVENT STORE TESTS
// =============================================================================

func TestStore_RoundTripsEveryPayloadVariant(t *testing.T) {
	// GIVEN: One event of each type
	// WHEN: Appended and loaded back
	// THEN: Envelope and payload survive unchanged

	store := newTestStore(t)
	ctx := context.Background()

	payloads := []ledger.Payload{
		ledger.OnboardingBalance{Amount: ledger.NewMoney(5000)},
		ledger.NewLoan{LoanTerms: terms("cust-1")},
		ledger.RenewLoan{LoanTerms: terms("cust-1"), PreviousLoanEventID: "evt-1"},
		ledger.InstallmentPayment{
			CustomerID:    "cust-1",
			CustomerName:  "Ravi",
			LoanEventID:   "evt-2",
			OnlineAmount:  ledger.MustParseMoney("250.50"),
			OfflineAmount: ledger.NewMoney(250),
			TotalAmount:   ledger.MustParseMoney("500.50"),
			IsOnboarding:  true,
		},
		ledger.Expense{Amount: ledger.NewMoney(200), Description: "fuel"},
		ledger.CapitalAdded{Amount: ledger.NewMoney(1000), Description: "owner"},
		ledger.Adjustment{ReferenceEventID: "evt-4", Amount: ledger.NewMoney(-75), Reason: "typo"},
	}
	require.Len(t, payloads, len(ledger.EventTypes), "one payload per event type")

	for i, p := range payloads {
		e := event("evt-"+string(rune('0'+i)), "area-1", base.Add(time.Duration(i)*time.Minute), p)
		require.NoError(t, store.Append(ctx, e))
	}

	for i, want := range payloads {
		got, err := store.GetEvent(ctx, ledger.EventID("evt-"+string(rune('0'+i))))
		require.NoError(t, err)
		require.NotNil(t, got)

		assert.Equal(t, want.EventType(), got.EventType)
		assert.True(t, base.Add(time.Duration(i)*time.Minute).Equal(got.CreatedAt))
		assert.Equal(t, "device-1", got.DeviceID)
		assert.Equal(t, ledger.SchemaVersion, got.SchemaVersion)
		assert.Nil(t, got.SyncedAt)

		wantJSON, _ := json.Marshal(want)
		gotJSON, _ := json.Marshal(got.Payload)
		assert.JSONEq(t, string(wantJSON), string(gotJSON), "payload %s", want.EventType())
	}
}

func TestStore_LoadsTimesInConfiguredLocation(t *testing.T) {
	// GIVEN: A store configured for Asia/Kolkata
	// WHEN: An event, area and customer stamped at 16 Oct 2026 02:00 IST are loaded
	// THEN: They come back in Kolkata time and display on the same calendar day

	kolkata, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	store, err := sqlite.New(":memory:", sqlite.WithLocation(kolkata))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	ctx := context.Background()

	at := time.Date(2026, time.October, 16, 2, 0, 0, 0, kolkata)
	require.NoError(t, store.SaveArea(ctx, ledger.Area{ID: "area-1", Name: "North", CreatedAt: at.In(time.UTC)}))
	require.NoError(t, store.SaveCustomer(ctx, ledger.Customer{
		ID: "c-1", AreaID: "area-1", VillageID: "v-1", VillageName: "V", Name: "N", SerialNumber: 1, CreatedAt: at,
	}))
	require.NoError(t, store.Append(ctx, event("evt-1", "area-1", at, ledger.Expense{Amount: ledger.NewMoney(10)})))

	got, err := store.GetEvent(ctx, "evt-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, kolkata, got.CreatedAt.Location())
	assert.Equal(t, "16 Oct 2026, 2:00 AM", ledger.FormatDateTime(got.CreatedAt))

	area, err := store.GetArea(ctx, "area-1")
	require.NoError(t, err)
	require.NotNil(t, area)
	assert.Equal(t, "16 Oct 2026", ledger.FormatDate(area.CreatedAt))

	c, err := store.GetCustomer(ctx, "c-1")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, kolkata, c.CreatedAt.Location())

	require.NoError(t, store.WithTx(ctx, func(tx ledger.Store) error {
		events, err := tx.LoadByArea(ctx, "area-1")
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, "16 Oct 2026, 2:00 AM", ledger.FormatDateTime(events[0].CreatedAt))
		return nil
	}))
}

func TestStore_WithLocation_UTC(t *testing.T) {
	store, err := sqlite.New(":memory:", sqlite.WithLocation(time.UTC))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	ctx := context.Background()

	at := time.Date(2026, time.October, 16, 2, 0, 0, 0, time.FixedZone("IST", 5*3600+1800))
	require.NoError(t, store.Append(ctx, event("evt-1", "area-1", at, ledger.Expense{Amount: ledger.NewMoney(10)})))

	got, err := store.GetEvent(ctx, "evt-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, at.Equal(got.CreatedAt))
	assert.Equal(t, "15 Oct 2026, 8:30 PM", ledger.FormatDateTime(got.CreatedAt))
}

func TestStore_GetEvent_MissingReturnsNil(t *testing.T) {
	store := newTestStore(t)

	got, err := store.GetEvent(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_Append_DuplicateID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	e := event("evt-1", "area-1", base, ledger.Expense{Amount: ledger.NewMoney(10)})
	require.NoError(t, store.Append(ctx, e))

	err := store.Append(ctx, e)
	assert.ErrorIs(t, err, ledger.ErrDuplicateEvent)
}

func TestStore_LoadByArea_NewestFirst(t *testing.T) {
	// GIVEN: Events appended out of time order, two sharing a timestamp
	// WHEN: Loading the area
	// THEN: Newest first, later insertion first on ties, other areas excluded

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, event("b", "area-1", base.Add(time.Hour), ledger.Expense{Amount: ledger.NewMoney(1)})))
	require.NoError(t, store.Append(ctx, event("a", "area-1", base, ledger.Expense{Amount: ledger.NewMoney(1)})))
	require.NoError(t, store.Append(ctx, event("c", "area-1", base.Add(time.Hour), ledger.Expense{Amount: ledger.NewMoney(1)})))
	require.NoError(t, store.Append(ctx, event("x", "area-2", base.Add(2*time.Hour), ledger.Expense{Amount: ledger.NewMoney(1)})))

	events, err := store.LoadByArea(ctx, "area-1")
	require.NoError(t, err)
	assert.Equal(t, []ledger.EventID{"c", "b", "a"}, ids(events))
}

func TestStore_LoadByCustomer_AcrossAreas(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, event("loan", "area-1", base, ledger.NewLoan{LoanTerms: terms("cust-1")})))
	require.NoError(t, store.Append(ctx, event("exp", "area-1", base.Add(time.Minute), ledger.Expense{Amount: ledger.NewMoney(5)})))
	require.NoError(t, store.Append(ctx, event("pay", "area-2", base.Add(2*time.Minute), ledger.InstallmentPayment{
		CustomerID:  "cust-1",
		LoanEventID: "loan",
		TotalAmount: ledger.NewMoney(100),
	})))
	require.NoError(t, store.Append(ctx, event("other", "area-1", base.Add(3*time.Minute), ledger.NewLoan{LoanTerms: terms("cust-2")})))

	events, err := store.LoadByCustomer(ctx, "cust-1")
	require.NoError(t, err)
	assert.Equal(t, []ledger.EventID{"pay", "loan"}, ids(events))
}

func TestStore_AppendBatch_AllOrNothing(t *testing.T) {
	// GIVEN: A batch whose last event collides with an existing id
	// WHEN: Appending the batch
	// THEN: Nothing from the batch is persisted

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, event("existing", "area-1", base, ledger.Expense{Amount: ledger.NewMoney(1)})))

	batch := []ledger.FinanceEvent{
		event("loan", "area-1", base.Add(time.Second), ledger.NewLoan{LoanTerms: terms("cust-1")}),
		event("pay-1", "area-1", base.Add(2*time.Second), ledger.InstallmentPayment{CustomerID: "cust-1", LoanEventID: "loan"}),
		event("existing", "area-1", base.Add(3*time.Second), ledger.Expense{Amount: ledger.NewMoney(1)}),
	}
	err := store.AppendBatch(ctx, batch)
	assert.ErrorIs(t, err, ledger.ErrDuplicateEvent)

	events, err := store.LoadByArea(ctx, "area-1")
	require.NoError(t, err)
	assert.Equal(t, []ledger.EventID{"existing"}, ids(events))
}

// =============================================================================
// REGISTRY TESTS
// =============================================================================

func TestStore_NextSerial_Increments(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveVillage(ctx, ledger.Village{
		ID: "v-1", AreaID: "area-1", Name: "Rampur", NextSerialNumber: 1, CreatedAt: base,
	}))

	first, err := store.NextSerial(ctx, "v-1")
	require.NoError(t, err)
	second, err := store.NextSerial(ctx, "v-1")
	require.NoError(t, err)

	assert.Equal(t, 1, first)
	assert.Equal(t, 2, second)

	v, err := store.GetVillage(ctx, "v-1")
	require.NoError(t, err)
	assert.Equal(t, 3, v.NextSerialNumber)

	// Renaming keeps the counter
	require.NoError(t, store.SaveVillage(ctx, ledger.Village{
		ID: "v-1", AreaID: "area-1", Name: "Rampur East", NextSerialNumber: 1, CreatedAt: base,
	}))
	v, err = store.GetVillage(ctx, "v-1")
	require.NoError(t, err)
	assert.Equal(t, "Rampur East", v.Name)
	assert.Equal(t, 3, v.NextSerialNumber)
}

func TestStore_NextSerial_MissingVillage(t *testing.T) {
	store := newTestStore(t)

	_, err := store.NextSerial(context.Background(), "ghost")
	assert.ErrorIs(t, err, ledger.ErrVillageNotFound)
}

func TestStore_DeleteArea_Cascades(t *testing.T) {
	// GIVEN: Two areas with villages, customers and events
	// WHEN: Deleting one area
	// THEN: Everything it owns is gone, the other area is untouched

	store := newTestStore(t)
	ctx := context.Background()

	for _, area := range []ledger.AreaID{"area-1", "area-2"} {
		require.NoError(t, store.SaveArea(ctx, ledger.Area{ID: area, Name: string(area), CreatedAt: base}))
		vid := ledger.VillageID("v-" + string(area))
		require.NoError(t, store.SaveVillage(ctx, ledger.Village{ID: vid, AreaID: area, Name: "V", NextSerialNumber: 1, CreatedAt: base}))
		cid := ledger.CustomerID("c-" + string(area))
		require.NoError(t, store.SaveCustomer(ctx, ledger.Customer{
			ID: cid, AreaID: area, VillageID: vid, VillageName: "V", Name: "N", SerialNumber: 1, CreatedAt: base,
		}))
		require.NoError(t, store.Append(ctx, event("loan-"+string(area), area, base, ledger.NewLoan{LoanTerms: terms(cid)})))
	}

	require.NoError(t, store.DeleteArea(ctx, "area-1"))

	a, err := store.GetArea(ctx, "area-1")
	require.NoError(t, err)
	assert.Nil(t, a)

	villages, err := store.ListVillages(ctx, "area-1")
	require.NoError(t, err)
	assert.Empty(t, villages)

	customers, err := store.ListCustomers(ctx, "area-1")
	require.NoError(t, err)
	assert.Empty(t, customers)

	events, err := store.LoadByArea(ctx, "area-1")
	require.NoError(t, err)
	assert.Empty(t, events)

	areas, err := store.ListAreas(ctx)
	require.NoError(t, err)
	require.Len(t, areas, 1)
	assert.Equal(t, ledger.AreaID("area-2"), areas[0].ID)

	events, err = store.LoadByArea(ctx, "area-2")
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestStore_DeleteCustomer_KeepsEvents(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveCustomer(ctx, ledger.Customer{
		ID: "c-1", AreaID: "area-1", VillageID: "v-1", VillageName: "V", Name: "N", SerialNumber: 1, CreatedAt: base,
	}))
	require.NoError(t, store.Append(ctx, event("loan", "area-1", base, ledger.NewLoan{LoanTerms: terms("c-1")})))

	require.NoError(t, store.DeleteCustomer(ctx, "c-1"))

	c, err := store.GetCustomer(ctx, "c-1")
	require.NoError(t, err)
	assert.Nil(t, c)

	events, err := store.LoadByCustomer(ctx, "c-1")
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestStore_ListCustomers_OrderedByVillageAndSerial(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, c := range []ledger.Customer{
		{ID: "c-3", AreaID: "area-1", VillageID: "v-b", SerialNumber: 1, Name: "C"},
		{ID: "c-2", AreaID: "area-1", VillageID: "v-a", SerialNumber: 2, Name: "B"},
		{ID: "c-1", AreaID: "area-1", VillageID: "v-a", SerialNumber: 1, Name: "A"},
	} {
		c.CreatedAt = base
		require.NoError(t, store.SaveCustomer(ctx, c))
	}

	customers, err := store.ListCustomers(ctx, "area-1")
	require.NoError(t, err)
	require.Len(t, customers, 3)
	assert.Equal(t, ledger.CustomerID("c-1"), customers[0].ID)
	assert.Equal(t, ledger.CustomerID("c-2"), customers[1].ID)
	assert.Equal(t, ledger.CustomerID("c-3"), customers[2].ID)
}

// =============================================================================
// SETTINGS + TRANSACTION TESTS
// =============================================================================

func TestStore_Settings(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, ok, err := store.Setting(ctx, ledger.SettingSelectedArea)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.SetSetting(ctx, ledger.SettingSelectedArea, "area-1"))
	require.NoError(t, store.SetSetting(ctx, ledger.SettingSelectedArea, "area-2"))

	v, ok, err := store.Setting(ctx, ledger.SettingSelectedArea)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "area-2", v)
}

func TestStore_WithTx_RollsBackOnError(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.WithTx(ctx, func(tx ledger.Store) error {
		if err := tx.SaveArea(ctx, ledger.Area{ID: "area-1", Name: "North", CreatedAt: base}); err != nil {
			return err
		}
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)

	a, err := store.GetArea(ctx, "area-1")
	require.NoError(t, err)
	assert.Nil(t, a)
}
