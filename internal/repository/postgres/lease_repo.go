// internal/repository/postgres/lease_repository.go
package postgres

import (
	"context"
	"errors"
	"fmt"

	"nyumbani-service/internal/domain/property"
	xerrors "nyumbani-service/internal/pkg/errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type LeaseRepository struct {
	db *pgxpool.Pool
}

func NewLeaseRepository(db *pgxpool.Pool) *LeaseRepository {
	return &LeaseRepository{db: db}
}

// FindByInvoiceID resolves the lease a rent invoice bills, used to address
// the tenant on receipts.
func (r *LeaseRepository) FindByInvoiceID(ctx context.Context, invoiceID uuid.UUID) (*property.Lease, error) {
	query := `
		SELECT l.id, l.property_id, l.tenant_name, l.tenant_phone, l.monthly_rent,
		       l.start_date, l.end_date, l.created_at, l.updated_at
		FROM leases l
		JOIN invoices i ON i.lease_id = l.id
		WHERE i.id = $1
	`

	var lease property.Lease
	err := r.db.QueryRow(ctx, query, invoiceID).Scan(
		&lease.ID, &lease.PropertyID, &lease.TenantName, &lease.TenantPhone, &lease.MonthlyRent,
		&lease.StartDate, &lease.EndDate, &lease.CreatedAt, &lease.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find lease: %w", err)
	}

	return &lease, nil
}
