// internal/repository/postgres/invoice_repository.go
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
)

type InvoiceRepository struct {
	db *pgxpool.Pool
}

func NewInvoiceRepository(db *pgxpool.Pool) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

// FindByID retrieves a rent invoice.
func (r *InvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*invoice.Invoice, error) {
	query := `
		SELECT id, lease_id, amount, due_date, status, paid_at,
		       payment_method, receipt_number, created_at, updated_at
		FROM invoices
		WHERE id = $1
	`

	var inv invoice.Invoice
	err := r.db.QueryRow(ctx, query, id).Scan(
		&inv.ID, &inv.LeaseID, &inv.Amount, &inv.DueDate, &inv.Status, &inv.PaidAt,
		&inv.PaymentMethod, &inv.ReceiptNumber, &inv.CreatedAt, &inv.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find invoice: %w", err)
	}

	return &inv, nil
}

// MarkPaid transitions a pending invoice to paid. The status filter makes the
// transition happen at most once; a second call affects zero rows.
func (r *InvoiceRepository) MarkPaid(ctx context.Context, id uuid.UUID, receiptNumber, method string, paidAt time.Time) error {
	query := `
		UPDATE invoices
		SET status = $1, receipt_number = $2, payment_method = $3,
		    paid_at = $4, updated_at = $5
		WHERE id = $6 AND status = $7
	`

	result, err := r.db.Exec(ctx, query,
		invoice.InvoiceStatusPaid, receiptNumber, method, paidAt, time.Now(),
		id, invoice.InvoiceStatusPending,
	)
	if err != nil {
		return fmt.Errorf("failed to mark invoice paid: %w", err)
	}
	if result.RowsAffected() == 0 {
		return xerrors.ErrDuplicateEntry
	}

	return nil
}
