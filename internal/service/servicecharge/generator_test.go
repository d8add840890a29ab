package servicecharge

import (
	"context"
	"testing"
	"time"

	"nyumbani-service/internal/domain/invoice"
	"nyumbani-service/internal/domain/property"
	xerrors "nyumbani-service/internal/pkg/errors"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRentLedger struct {
	total decimal.Decimal
}

func (f *fakeRentLedger) SumByLandlordBetween(_ context.Context, _ uuid.UUID, _, _ time.Time) (decimal.Decimal, error) {
	return f.total, nil
}

type fakePlanStore struct {
	plan *invoice.BillingPlan
}

func (f *fakePlanStore) FindByLandlordID(_ context.Context, _ uuid.UUID) (*invoice.BillingPlan, error) {
	if f.plan == nil {
		return nil, xerrors.ErrNotFound
	}
	return f.plan, nil
}

type fakePropertyStore struct {
	properties []*property.Property
}

func (f *fakePropertyStore) FindByLandlordID(_ context.Context, _ uuid.UUID) ([]*property.Property, error) {
	return f.properties, nil
}

type fakeInvoiceStore struct {
	created []*invoice.ServiceChargeInvoice
}

func (f *fakeInvoiceStore) Create(_ context.Context, sci *invoice.ServiceChargeInvoice) error {
	f.created = append(f.created, sci)
	return nil
}

var (
	periodStart = time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	periodEnd   = time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)
)

func TestGenerate_PercentagePlan(t *testing.T) {
	store := &fakeInvoiceStore{}
	g := NewGenerator(
		&fakeRentLedger{total: decimal.NewFromInt(40000)},
		&fakePlanStore{plan: &invoice.BillingPlan{Model: invoice.PlanModelPercentage, Rate: decimal.NewFromInt(5)}},
		&fakePropertyStore{},
		store,
		zap.NewNop(),
	)

	sci, err := g.Generate(context.Background(), uuid.New(), periodStart, periodEnd)
	require.NoError(t, err)

	assert.True(t, sci.RentCollected.Equal(decimal.NewFromInt(40000)))
	assert.True(t, sci.Amount.Equal(decimal.NewFromInt(2000)), "got %s", sci.Amount)
	assert.Equal(t, invoice.InvoiceStatusPending, sci.Status)
	assert.Equal(t, periodStart, sci.PeriodStart)
	assert.Equal(t, periodEnd, sci.PeriodEnd)
	assert.Len(t, store.created, 1)
}

func TestGenerate_FixedPerUnitPlanSumsPropertyUnits(t *testing.T) {
	g := NewGenerator(
		&fakeRentLedger{total: decimal.NewFromInt(40000)},
		&fakePlanStore{plan: &invoice.BillingPlan{Model: invoice.PlanModelFixedPerUnit, RatePerUnit: decimal.NewFromInt(150)}},
		&fakePropertyStore{properties: []*property.Property{
			{ID: uuid.New(), Name: "Green Court", UnitCount: 12, Amenities: pq.StringArray{"water", "parking"}},
			{ID: uuid.New(), Name: "Hill View", UnitCount: 8},
		}},
		&fakeInvoiceStore{},
		zap.NewNop(),
	)

	sci, err := g.Generate(context.Background(), uuid.New(), periodStart, periodEnd)
	require.NoError(t, err)

	assert.True(t, sci.Amount.Equal(decimal.NewFromInt(3000)), "got %s", sci.Amount)
}

func TestGenerate_NoPlan_Errors(t *testing.T) {
	g := NewGenerator(
		&fakeRentLedger{},
		&fakePlanStore{},
		&fakePropertyStore{},
		&fakeInvoiceStore{},
		zap.NewNop(),
	)

	_, err := g.Generate(context.Background(), uuid.New(), periodStart, periodEnd)
	assert.Error(t, err)
}
