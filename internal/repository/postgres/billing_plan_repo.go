// internal/repository/postgres/billing_plan_repository.go
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"nyumbani-service/internal/domain/invoice"
	xerrors "nyumbani-service/internal/pkg/errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type BillingPlanRepository struct {
	db *pgxpool.Pool
}

func NewBillingPlanRepository(db *pgxpool.Pool) *BillingPlanRepository {
	return &BillingPlanRepository{db: db}
}

// FindByLandlordID retrieves the landlord's billing plan. Read-only here;
// plan management belongs to the admin surface.
func (r *BillingPlanRepository) FindByLandlordID(ctx context.Context, landlordID uuid.UUID) (*invoice.BillingPlan, error) {
	query := `
		SELECT id, landlord_id, model, rate, rate_per_unit, tiers,
		       created_at, updated_at
		FROM billing_plans
		WHERE landlord_id = $1
	`

	var plan invoice.BillingPlan
	var tiersJSON []byte

	err := r.db.QueryRow(ctx, query, landlordID).Scan(
		&plan.ID, &plan.LandlordID, &plan.Model, &plan.Rate, &plan.RatePerUnit,
		&tiersJSON, &plan.CreatedAt, &plan.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find billing plan: %w", err)
	}

	if len(tiersJSON) > 0 {
		if err := json.Unmarshal(tiersJSON, &plan.Tiers); err != nil {
			return nil, fmt.Errorf("failed to unmarshal billing plan tiers: %w", err)
		}
	}

	return &plan, nil
}
