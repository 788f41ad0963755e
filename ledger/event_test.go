package ledger_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/loanbook/ledger"
)

func TestFinanceEvent_JSONDispatchesOnEventType(t *testing.T) {
	// GIVEN: A payment event encoded to JSON
	// WHEN: Decoding it back
	// THEN: The payload comes back as the concrete InstallmentPayment variant

	in := ev("pay", at(15, 9), payment("a", "loan", 200, 300))
	data, err := json.Marshal(in)
	require.NoError(t, err)

	var out ledger.FinanceEvent
	require.NoError(t, json.Unmarshal(data, &out))

	p, ok := out.Payment()
	require.True(t, ok)
	assert.Equal(t, ledger.EventID("loan"), p.LoanEventID)
	assertMoney(t, 500, p.TotalAmount)
	assert.Equal(t, ledger.EventInstallmentPayment, out.EventType)
	assert.True(t, in.CreatedAt.Equal(out.CreatedAt))

	cid, ok := out.CustomerID()
	assert.True(t, ok)
	assert.Equal(t, ledger.CustomerID("a"), cid)
}

func TestFinanceEvent_UnknownTypeRejected(t *testing.T) {
	raw := `{"eventId":"x","eventType":"LOAN_FORGIVEN","payload":{}}`

	var e ledger.FinanceEvent
	err := json.Unmarshal([]byte(raw), &e)

	assert.ErrorIs(t, err, ledger.ErrUnknownEventType)
}

func TestFinanceEvent_CustomerOnlyOnLoanAndPayment(t *testing.T) {
	for _, p := range []ledger.Payload{
		ledger.OnboardingBalance{},
		ledger.Expense{},
		ledger.CapitalAdded{},
		ledger.Adjustment{},
	} {
		_, ok := ev("x", at(1, 1), p).CustomerID()
		assert.False(t, ok, string(p.EventType()))
	}
}

func TestEventType_LabelAndValidity(t *testing.T) {
	assert.Equal(t, "Renewed Loan", ledger.EventRenewLoan.Label())
	assert.Equal(t, "Opening Balance", ledger.EventOnboardingBalance.Label())
	assert.True(t, ledger.EventAdjustment.IsValid())
	assert.False(t, ledger.EventType("NOPE").IsValid())
	assert.True(t, ledger.EventNewLoan.IsLoan())
	assert.False(t, ledger.EventInstallmentPayment.IsLoan())
}

func TestPaymentModeOf(t *testing.T) {
	assert.Equal(t, ledger.PaymentCash, ledger.PaymentModeOf(ev("p", at(1, 1), payment("a", "l", 0, 100))))
	assert.Equal(t, ledger.PaymentOnline, ledger.PaymentModeOf(ev("p", at(1, 1), payment("a", "l", 100, 0))))
	assert.Equal(t, ledger.PaymentMixed, ledger.PaymentModeOf(ev("p", at(1, 1), payment("a", "l", 50, 50))))
	assert.Equal(t, ledger.PaymentCash, ledger.PaymentModeOf(ev("x", at(1, 1), ledger.Expense{})))
}

func TestValidationError_Unwraps(t *testing.T) {
	err := ledger.Invalid("loanAmount", ledger.ErrInvalidAmount)

	assert.ErrorIs(t, err, ledger.ErrInvalidAmount)
	assert.ErrorIs(t, err, ledger.ErrInvalidInput)
	assert.True(t, ledger.IsClientError(err))
	assert.False(t, ledger.IsNotFound(err))
	assert.Equal(t, "invalid loanAmount: amount must be positive", err.Error())
}
