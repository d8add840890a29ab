// internal/domain/invoice/entity.go
package invoice

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type InvoiceStatus string

const (
	InvoiceStatusPending InvoiceStatus = "pending"
	InvoiceStatusPaid    InvoiceStatus = "paid"
)

// Invoice is a rent charge owed by a tenant for a lease period.
type Invoice struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	LeaseID       uuid.UUID       `json:"lease_id" db:"lease_id"`
	Amount        decimal.Decimal `json:"amount" db:"amount"`
	DueDate       time.Time       `json:"due_date" db:"due_date"`
	Status        InvoiceStatus   `json:"status" db:"status"`
	PaidAt        sql.NullTime    `json:"paid_at,omitempty" db:"paid_at"`
	PaymentMethod sql.NullString  `json:"payment_method,omitempty" db:"payment_method"`
	ReceiptNumber sql.NullString  `json:"receipt_number,omitempty" db:"receipt_number"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}

// ServiceChargeInvoice is a monthly bill owed by a landlord to the platform,
// computed from rent collected during the billing period and the landlord's
// billing plan. At most one exists per (landlord, period).
type ServiceChargeInvoice struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	LandlordID    uuid.UUID       `json:"landlord_id" db:"landlord_id"`
	PeriodStart   time.Time       `json:"period_start" db:"period_start"`
	PeriodEnd     time.Time       `json:"period_end" db:"period_end"`
	RentCollected decimal.Decimal `json:"rent_collected" db:"rent_collected"`
	Amount        decimal.Decimal `json:"amount" db:"amount"`
	Status        InvoiceStatus   `json:"status" db:"status"`
	PaidAt        sql.NullTime    `json:"paid_at,omitempty" db:"paid_at"`
	PaymentMethod sql.NullString  `json:"payment_method,omitempty" db:"payment_method"`
	ReceiptNumber sql.NullString  `json:"receipt_number,omitempty" db:"receipt_number"`
	PayerPhone    sql.NullString  `json:"payer_phone,omitempty" db:"payer_phone"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}

type PlanModel string

const (
	PlanModelPercentage   PlanModel = "percentage"
	PlanModelFixedPerUnit PlanModel = "fixed_per_unit"
	PlanModelTiered       PlanModel = "tiered"
)

// Tier is one slab of a tiered billing plan. Rate is the percentage applied
// to the slice of rent collected that falls inside the slab; UpTo is nil on
// the open-ended top slab.
type Tier struct {
	UpTo *decimal.Decimal `json:"up_to,omitempty"`
	Rate decimal.Decimal  `json:"rate"`
}

// BillingPlan describes how a landlord's service charge is computed.
// Read-only reference data for the reconciler and the invoice generator.
type BillingPlan struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	LandlordID  uuid.UUID       `json:"landlord_id" db:"landlord_id"`
	Model       PlanModel       `json:"model" db:"model"`
	Rate        decimal.Decimal `json:"rate" db:"rate"`
	RatePerUnit decimal.Decimal `json:"rate_per_unit" db:"rate_per_unit"`
	Tiers       []Tier          `json:"tiers,omitempty" db:"tiers"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

var hundred = decimal.NewFromInt(100)

// ComputeCharge returns the service charge for the given rent collected and
// unit count under this plan.
func (p *BillingPlan) ComputeCharge(rentCollected decimal.Decimal, unitCount int64) decimal.Decimal {
	switch p.Model {
	case PlanModelFixedPerUnit:
		return p.RatePerUnit.Mul(decimal.NewFromInt(unitCount))
	case PlanModelTiered:
		return p.tieredCharge(rentCollected)
	default:
		return rentCollected.Mul(p.Rate).Div(hundred)
	}
}

func (p *BillingPlan) tieredCharge(rentCollected decimal.Decimal) decimal.Decimal {
	charge := decimal.Zero
	remaining := rentCollected
	prevCap := decimal.Zero
	for _, tier := range p.Tiers {
		if remaining.LessThanOrEqual(decimal.Zero) {
			break
		}
		slab := remaining
		if tier.UpTo != nil {
			width := tier.UpTo.Sub(prevCap)
			if slab.GreaterThan(width) {
				slab = width
			}
			prevCap = *tier.UpTo
		}
		charge = charge.Add(slab.Mul(tier.Rate).Div(hundred))
		remaining = remaining.Sub(slab)
	}
	return charge
}
