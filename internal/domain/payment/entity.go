// internal/domain/payment/entity.go
package payment

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Purpose string

const (
	PurposeRent          Purpose = "rent"
	PurposeServiceCharge Purpose = "service_charge"
)

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
)

// CanTransitionTo reports whether a status change is allowed. Completed and
// failed are terminal.
func (s TransactionStatus) CanTransitionTo(to TransactionStatus) bool {
	if s != TransactionStatusPending {
		return false
	}
	return to == TransactionStatusCompleted || to == TransactionStatusFailed
}

// Transaction is an in-flight STK push charge, created when the push is
// initiated and settled exactly once by the callback reconciler.
type Transaction struct {
	ID                     uuid.UUID         `json:"id" db:"id"`
	CheckoutRequestID      string            `json:"checkout_request_id" db:"checkout_request_id"`
	MerchantRequestID      sql.NullString    `json:"merchant_request_id,omitempty" db:"merchant_request_id"`
	Phone                  string            `json:"phone" db:"phone"`
	Amount                 decimal.Decimal   `json:"amount" db:"amount"`
	Purpose                Purpose           `json:"purpose" db:"purpose"`
	Status                 TransactionStatus `json:"status" db:"status"`
	ResultCode             sql.NullInt32     `json:"result_code,omitempty" db:"result_code"`
	ResultDesc             sql.NullString    `json:"result_desc,omitempty" db:"result_desc"`
	ReceiptNumber          sql.NullString    `json:"receipt_number,omitempty" db:"receipt_number"`
	InvoiceID              uuid.NullUUID     `json:"invoice_id,omitempty" db:"invoice_id"`
	ServiceChargeInvoiceID uuid.NullUUID     `json:"service_charge_invoice_id,omitempty" db:"service_charge_invoice_id"`

	// Metadata carries the originating invoice reference for older clients
	// that do not set the typed columns.
	Metadata map[string]interface{} `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ResolvedPurpose classifies the transaction, falling back to the purpose tag
// embedded in metadata when the typed column was never set.
func (t *Transaction) ResolvedPurpose() Purpose {
	if t.Purpose != "" {
		return t.Purpose
	}
	if raw, ok := t.Metadata["purpose"].(string); ok && Purpose(raw) == PurposeServiceCharge {
		return PurposeServiceCharge
	}
	return PurposeRent
}

// ResolvedInvoiceID returns the linked rent invoice id, consulting metadata
// when the column is null.
func (t *Transaction) ResolvedInvoiceID() (uuid.UUID, bool) {
	if t.InvoiceID.Valid {
		return t.InvoiceID.UUID, true
	}
	return metadataUUID(t.Metadata, "invoice_id")
}

// ResolvedServiceChargeInvoiceID returns the linked service charge invoice id.
func (t *Transaction) ResolvedServiceChargeInvoiceID() (uuid.UUID, bool) {
	if t.ServiceChargeInvoiceID.Valid {
		return t.ServiceChargeInvoiceID.UUID, true
	}
	return metadataUUID(t.Metadata, "service_charge_invoice_id")
}

func metadataUUID(meta map[string]interface{}, key string) (uuid.UUID, bool) {
	raw, ok := meta[key].(string)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// Payment is an immutable ledger entry for a settled rent charge. The
// (receipt_number, checkout_request_id) pair is consulted before insert to
// absorb duplicate callback deliveries.
type Payment struct {
	ID                uuid.UUID       `json:"id" db:"id"`
	Reference         string          `json:"reference" db:"reference"`
	InvoiceID         uuid.UUID       `json:"invoice_id" db:"invoice_id"`
	Phone             string          `json:"phone" db:"phone"`
	Amount            decimal.Decimal `json:"amount" db:"amount"`
	ReceiptNumber     string          `json:"receipt_number" db:"receipt_number"`
	CheckoutRequestID string          `json:"checkout_request_id" db:"checkout_request_id"`
	PaidAt            time.Time       `json:"paid_at" db:"paid_at"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
}
