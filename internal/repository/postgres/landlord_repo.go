// internal/repository/postgres/landlord_repository.go
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

type LandlordRepository struct {
	db *pgxpool.Pool
}

func NewLandlordRepository(db *pgxpool.Pool) *LandlordRepository {
	return &LandlordRepository{db: db}
}

func scanLandlord(row pgx.Row) (*property.Landlord, error) {
	var l property.Landlord
	err := row.Scan(&l.ID, &l.Name, &l.Phone, &l.Email, &l.CreatedAt, &l.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan landlord: %w", err)
	}
	return &l, nil
}

// FindByID retrieves a landlord.
func (r *LandlordRepository) FindByID(ctx context.Context, id uuid.UUID) (*property.Landlord, error) {
	query := `
		SELECT id, name, phone, email, created_at, updated_at
		FROM landlords
		WHERE id = $1
	`
	return scanLandlord(r.db.QueryRow(ctx, query, id))
}

// FindByInvoiceID resolves the landlord owning the property behind a rent
// invoice's lease.
func (r *LandlordRepository) FindByInvoiceID(ctx context.Context, invoiceID uuid.UUID) (*property.Landlord, error) {
	query := `
		SELECT ld.id, ld.name, ld.phone, ld.email, ld.created_at, ld.updated_at
		FROM landlords ld
		JOIN properties pr ON pr.landlord_id = ld.id
		JOIN leases l ON l.property_id = pr.id
		JOIN invoices i ON i.lease_id = l.id
		WHERE i.id = $1
	`
	return scanLandlord(r.db.QueryRow(ctx, query, invoiceID))
}
