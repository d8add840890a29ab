// internal/service/servicecharge/generator.go
package servicecharge

import (
	"context"
	"fmt"
	"time"

	"nyumbani-service/internal/domain/invoice"
	"nyumbani-service/internal/domain/property"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RentLedger reads settled rent totals for a landlord.
type RentLedger interface {
	SumByLandlordBetween(ctx context.Context, landlordID uuid.UUID, from, to time.Time) (decimal.Decimal, error)
}

// PlanStore reads billing plans.
type PlanStore interface {
	FindByLandlordID(ctx context.Context, landlordID uuid.UUID) (*invoice.BillingPlan, error)
}

// PropertyStore lists a landlord's properties.
type PropertyStore interface {
	FindByLandlordID(ctx context.Context, landlordID uuid.UUID) ([]*property.Property, error)
}

// InvoiceStore persists generated service charge invoices.
type InvoiceStore interface {
	Create(ctx context.Context, sci *invoice.ServiceChargeInvoice) error
}

// Generator builds a landlord's service charge invoice for a billing period.
// It owns the full computation across all plan models; the callback
// reconciler only performs the inline percentage rollup.
type Generator struct {
	payments   RentLedger
	plans      PlanStore
	properties PropertyStore
	invoices   InvoiceStore
	logger     *zap.Logger
}

func NewGenerator(payments RentLedger, plans PlanStore, properties PropertyStore, invoices InvoiceStore, logger *zap.Logger) *Generator {
	return &Generator{
		payments:   payments,
		plans:      plans,
		properties: properties,
		invoices:   invoices,
		logger:     logger,
	}
}

// Generate computes and stores the service charge invoice for the landlord
// and period. The unique (landlord, period) constraint collapses concurrent
// calls to one row.
func (g *Generator) Generate(ctx context.Context, landlordID uuid.UUID, periodStart, periodEnd time.Time) (*invoice.ServiceChargeInvoice, error) {
	plan, err := g.plans.FindByLandlordID(ctx, landlordID)
	if err != nil {
		return nil, fmt.Errorf("failed to load billing plan: %w", err)
	}

	rentCollected, err := g.payments.SumByLandlordBetween(ctx, landlordID, periodStart, periodEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to sum rent collected: %w", err)
	}

	var unitCount int64
	if plan.Model == invoice.PlanModelFixedPerUnit {
		properties, err := g.properties.FindByLandlordID(ctx, landlordID)
		if err != nil {
			return nil, fmt.Errorf("failed to list properties: %w", err)
		}
		for _, p := range properties {
			unitCount += p.UnitCount
		}
	}

	sci := &invoice.ServiceChargeInvoice{
		LandlordID:    landlordID,
		PeriodStart:   periodStart,
		PeriodEnd:     periodEnd,
		RentCollected: rentCollected,
		Amount:        plan.ComputeCharge(rentCollected, unitCount),
		Status:        invoice.InvoiceStatusPending,
	}

	if err := g.invoices.Create(ctx, sci); err != nil {
		return nil, fmt.Errorf("failed to store service charge invoice: %w", err)
	}

	g.logger.Info("service charge invoice generated",
		zap.String("landlord_id", landlordID.String()),
		zap.Time("period_start", periodStart),
		zap.String("amount", sci.Amount.String()),
	)

	return sci, nil
}
