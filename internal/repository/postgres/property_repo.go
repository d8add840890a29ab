// internal/repository/postgres/property_repository.go
package postgres

import (
	"context"
	"fmt"

	"nyumbani-service/internal/domain/property"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PropertyRepository struct {
	db *pgxpool.Pool
}

func NewPropertyRepository(db *pgxpool.Pool) *PropertyRepository {
	return &PropertyRepository{db: db}
}

// FindByLandlordID lists a landlord's properties. Fixed-per-unit billing sums
// their unit counts.
func (r *PropertyRepository) FindByLandlordID(ctx context.Context, landlordID uuid.UUID) ([]*property.Property, error) {
	query := `
		SELECT id, landlord_id, name, location, unit_count, amenities,
		       created_at, updated_at
		FROM properties
		WHERE landlord_id = $1
		ORDER BY created_at
	`

	rows, err := r.db.Query(ctx, query, landlordID)
	if err != nil {
		return nil, fmt.Errorf("failed to list properties: %w", err)
	}
	defer rows.Close()

	var properties []*property.Property
	for rows.Next() {
		var p property.Property
		if err := rows.Scan(
			&p.ID, &p.LandlordID, &p.Name, &p.Location, &p.UnitCount, &p.Amenities,
			&p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan property: %w", err)
		}
		properties = append(properties, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read properties: %w", err)
	}

	return properties, nil
}
