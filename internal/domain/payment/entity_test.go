package payment

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionStatus_Transitions(t *testing.T) {
	assert.True(t, TransactionStatusPending.CanTransitionTo(TransactionStatusCompleted))
	assert.True(t, TransactionStatusPending.CanTransitionTo(TransactionStatusFailed))

	// Completed and failed are terminal.
	assert.False(t, TransactionStatusCompleted.CanTransitionTo(TransactionStatusFailed))
	assert.False(t, TransactionStatusCompleted.CanTransitionTo(TransactionStatusPending))
	assert.False(t, TransactionStatusFailed.CanTransitionTo(TransactionStatusCompleted))
}

func TestTransaction_ResolvedPurpose(t *testing.T) {
	txn := &Transaction{Purpose: PurposeServiceCharge}
	assert.Equal(t, PurposeServiceCharge, txn.ResolvedPurpose())

	txn = &Transaction{Metadata: map[string]interface{}{"purpose": "service_charge"}}
	assert.Equal(t, PurposeServiceCharge, txn.ResolvedPurpose())

	txn = &Transaction{}
	assert.Equal(t, PurposeRent, txn.ResolvedPurpose())
}

func TestTransaction_ResolvedInvoiceID_MetadataFallback(t *testing.T) {
	id := uuid.New()

	txn := &Transaction{Metadata: map[string]interface{}{"invoice_id": id.String()}}
	got, ok := txn.ResolvedInvoiceID()
	require.True(t, ok)
	assert.Equal(t, id, got)

	txn = &Transaction{Metadata: map[string]interface{}{"invoice_id": "not-a-uuid"}}
	_, ok = txn.ResolvedInvoiceID()
	assert.False(t, ok)
}

func TestStkCallback_MetadataExtraction(t *testing.T) {
	raw := `{
		"MerchantRequestID": "29115-34620561-1",
		"CheckoutRequestID": "ws_1",
		"ResultCode": 0,
		"ResultDesc": "Success",
		"CallbackMetadata": {
			"Item": [
				{"Name": "Amount", "Value": 5000},
				{"Name": "MpesaReceiptNumber", "Value": "RCT1"},
				{"Name": "PhoneNumber", "Value": 254712345678}
			]
		}
	}`

	var cb StkCallback
	require.NoError(t, json.Unmarshal([]byte(raw), &cb))

	assert.Equal(t, "RCT1", cb.ReceiptNumber())
	assert.Equal(t, "254712345678", cb.PayerPhone())

	amount, ok := cb.Amount()
	require.True(t, ok)
	assert.True(t, amount.Equal(decimal.NewFromInt(5000)))
}

func TestStkCallback_NoMetadata(t *testing.T) {
	cb := StkCallback{CheckoutRequestID: "ws_1", ResultCode: 1032, ResultDesc: "Request cancelled by user"}

	assert.Empty(t, cb.ReceiptNumber())
	assert.Empty(t, cb.PayerPhone())
	_, ok := cb.Amount()
	assert.False(t, ok)
}
