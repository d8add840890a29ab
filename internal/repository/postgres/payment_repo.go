// internal/repository/postgres/payment_repository.go
package postgres

import (
	"context"
	"fmt"
	"time"

	"nyumbani-service/internal/domain/payment"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type PaymentRepository struct {
	db *pgxpool.Pool
}

func NewPaymentRepository(db *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Create inserts a ledger entry for a settled rent charge.
func (r *PaymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	query := `
		INSERT INTO payments (
			reference, invoice_id, phone, amount,
			receipt_number, checkout_request_id, paid_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`

	err := r.db.QueryRow(
		ctx, query,
		p.Reference, p.InvoiceID, p.Phone, p.Amount,
		p.ReceiptNumber, p.CheckoutRequestID, p.PaidAt,
	).Scan(&p.ID, &p.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}

	return nil
}

// Exists reports whether a payment with the same receipt number and checkout
// request id was already recorded. Consulted before insert so a redelivered
// callback never double-counts.
func (r *PaymentRepository) Exists(ctx context.Context, receiptNumber, checkoutRequestID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM payments
			WHERE receipt_number = $1 AND checkout_request_id = $2
		)
	`

	var exists bool
	if err := r.db.QueryRow(ctx, query, receiptNumber, checkoutRequestID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check payment existence: %w", err)
	}

	return exists, nil
}

// SumByLandlordBetween totals rent payments collected across a landlord's
// properties within [from, to). Used when generating a service charge invoice.
func (r *PaymentRepository) SumByLandlordBetween(ctx context.Context, landlordID uuid.UUID, from, to time.Time) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(p.amount), 0)
		FROM payments p
		JOIN invoices i ON i.id = p.invoice_id
		JOIN leases l ON l.id = i.lease_id
		JOIN properties pr ON pr.id = l.property_id
		WHERE pr.landlord_id = $1
		  AND p.paid_at >= $2 AND p.paid_at < $3
	`

	var total decimal.Decimal
	if err := r.db.QueryRow(ctx, query, landlordID, from, to).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum payments: %w", err)
	}

	return total, nil
}
