// internal/repository/postgres/service_charge_repository.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"nyumbani-service/internal/domain/invoice"
	xerrors "nyumbani-service/internal/pkg/errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type ServiceChargeInvoiceRepository struct {
	db *pgxpool.Pool
}

func NewServiceChargeInvoiceRepository(db *pgxpool.Pool) *ServiceChargeInvoiceRepository {
	return &ServiceChargeInvoiceRepository{db: db}
}

const serviceChargeColumns = `
	id, landlord_id, period_start, period_end, rent_collected, amount,
	status, paid_at, payment_method, receipt_number, payer_phone,
	created_at, updated_at
`

func scanServiceChargeInvoice(row pgx.Row) (*invoice.ServiceChargeInvoice, error) {
	var sci invoice.ServiceChargeInvoice
	err := row.Scan(
		&sci.ID, &sci.LandlordID, &sci.PeriodStart, &sci.PeriodEnd,
		&sci.RentCollected, &sci.Amount, &sci.Status, &sci.PaidAt,
		&sci.PaymentMethod, &sci.ReceiptNumber, &sci.PayerPhone,
		&sci.CreatedAt, &sci.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan service charge invoice: %w", err)
	}
	return &sci, nil
}

// Create inserts a service charge invoice for a billing period. The unique
// (landlord_id, period_start) index makes concurrent generation collapse to a
// single row.
func (r *ServiceChargeInvoiceRepository) Create(ctx context.Context, sci *invoice.ServiceChargeInvoice) error {
	query := `
		INSERT INTO service_charge_invoices (
			landlord_id, period_start, period_end, rent_collected, amount, status
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (landlord_id, period_start) DO NOTHING
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		sci.LandlordID, sci.PeriodStart, sci.PeriodEnd,
		sci.RentCollected, sci.Amount, sci.Status,
	).Scan(&sci.ID, &sci.CreatedAt, &sci.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return xerrors.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("failed to create service charge invoice: %w", err)
	}

	return nil
}

// FindByID retrieves a service charge invoice.
func (r *ServiceChargeInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*invoice.ServiceChargeInvoice, error) {
	query := `SELECT ` + serviceChargeColumns + ` FROM service_charge_invoices WHERE id = $1`
	return scanServiceChargeInvoice(r.db.QueryRow(ctx, query, id))
}

// FindByLandlordAndPeriod retrieves the invoice for a landlord's billing period.
func (r *ServiceChargeInvoiceRepository) FindByLandlordAndPeriod(ctx context.Context, landlordID uuid.UUID, periodStart time.Time) (*invoice.ServiceChargeInvoice, error) {
	query := `SELECT ` + serviceChargeColumns + ` FROM service_charge_invoices WHERE landlord_id = $1 AND period_start = $2`
	return scanServiceChargeInvoice(r.db.QueryRow(ctx, query, landlordID, periodStart))
}

// MarkPaid settles a landlord's service charge invoice.
func (r *ServiceChargeInvoiceRepository) MarkPaid(ctx context.Context, id uuid.UUID, receiptNumber, method, payerPhone string, paidAt time.Time) error {
	query := `
		UPDATE service_charge_invoices
		SET status = $1, receipt_number = $2, payment_method = $3,
		    payer_phone = NULLIF($4, ''), paid_at = $5, updated_at = $6
		WHERE id = $7
	`

	result, err := r.db.Exec(ctx, query,
		invoice.InvoiceStatusPaid, receiptNumber, method, payerPhone, paidAt, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to mark service charge invoice paid: %w", err)
	}
	if result.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}

	return nil
}

// ApplyRentCollected adds a settled rent amount to the running total and, for
// percentage plans, recomputes the charge in the same statement. The increment
// runs inside the database so concurrent rollups for one landlord cannot lose
// updates.
func (r *ServiceChargeInvoiceRepository) ApplyRentCollected(ctx context.Context, id uuid.UUID, amount decimal.Decimal, percentageRate *decimal.Decimal) error {
	query := `
		UPDATE service_charge_invoices
		SET rent_collected = rent_collected + $1,
		    amount = CASE WHEN $2::numeric IS NULL THEN amount
		                  ELSE (rent_collected + $1) * $2::numeric / 100 END,
		    updated_at = $3
		WHERE id = $4
	`

	var rate interface{}
	if percentageRate != nil {
		rate = *percentageRate
	}

	result, err := r.db.Exec(ctx, query, amount, rate, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to apply rent collected: %w", err)
	}
	if result.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}

	return nil
}
