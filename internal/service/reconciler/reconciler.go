// internal/service/reconciler/reconciler.go
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"nyumbani-service/internal/domain/invoice"
	"nyumbani-service/internal/domain/payment"
	"nyumbani-service/internal/domain/property"
	xerrors "nyumbani-service/internal/pkg/errors"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const paymentMethodMpesa = "mpesa"

type TransactionStore interface {
	FindByCheckoutRequestID(ctx context.Context, checkoutRequestID string) (*payment.Transaction, error)
	UpdateResult(ctx context.Context, id uuid.UUID, status payment.TransactionStatus, resultCode int, resultDesc, receiptNumber string) error
}

type InvoiceStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*invoice.Invoice, error)
	MarkPaid(ctx context.Context, id uuid.UUID, receiptNumber, method string, paidAt time.Time) error
}

type PaymentStore interface {
	Exists(ctx context.Context, receiptNumber, checkoutRequestID string) (bool, error)
	Create(ctx context.Context, p *payment.Payment) error
}

type ServiceChargeStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*invoice.ServiceChargeInvoice, error)
	FindByLandlordAndPeriod(ctx context.Context, landlordID uuid.UUID, periodStart time.Time) (*invoice.ServiceChargeInvoice, error)
	MarkPaid(ctx context.Context, id uuid.UUID, receiptNumber, method, payerPhone string, paidAt time.Time) error
	ApplyRentCollected(ctx context.Context, id uuid.UUID, amount decimal.Decimal, percentageRate *decimal.Decimal) error
}

type BillingPlanStore interface {
	FindByLandlordID(ctx context.Context, landlordID uuid.UUID) (*invoice.BillingPlan, error)
}

type LandlordDirectory interface {
	FindByID(ctx context.Context, id uuid.UUID) (*property.Landlord, error)
	FindByInvoiceID(ctx context.Context, invoiceID uuid.UUID) (*property.Landlord, error)
}

type LeaseDirectory interface {
	FindByInvoiceID(ctx context.Context, invoiceID uuid.UUID) (*property.Lease, error)
}

type SMSSender interface {
	Send(ctx context.Context, phone, message string) error
}

type InvoiceGenerator interface {
	Generate(ctx context.Context, landlordID uuid.UUID, periodStart, periodEnd time.Time) (*invoice.ServiceChargeInvoice, error)
}

// Reconciler settles gateway payment callbacks against pending transactions,
// rent invoices, the payments ledger, and landlord service charge billing.
// One invocation per callback delivery; every write after the transaction
// status update is an independent best-effort step, and nothing here ever
// surfaces an error to the gateway.
type Reconciler struct {
	transactions TransactionStore
	invoices     InvoiceStore
	payments     PaymentStore
	scInvoices   ServiceChargeStore
	plans        BillingPlanStore
	landlords    LandlordDirectory
	leases       LeaseDirectory
	sms          SMSSender
	generator    InvoiceGenerator
	logger       *zap.Logger

	now func() time.Time
}

func NewReconciler(
	transactions TransactionStore,
	invoices InvoiceStore,
	payments PaymentStore,
	scInvoices ServiceChargeStore,
	plans BillingPlanStore,
	landlords LandlordDirectory,
	leases LeaseDirectory,
	sms SMSSender,
	generator InvoiceGenerator,
	logger *zap.Logger,
) *Reconciler {
	return &Reconciler{
		transactions: transactions,
		invoices:     invoices,
		payments:     payments,
		scInvoices:   scInvoices,
		plans:        plans,
		landlords:    landlords,
		leases:       leases,
		sms:          sms,
		generator:    generator,
		logger:       logger,
		now:          time.Now,
	}
}

// Process reconciles one callback delivery. The returned error is for the
// caller's logs only; the HTTP handler acknowledges the gateway with 200
// regardless, since soliciting a retry would at best be a no-op and at worst
// risk duplicate side effects.
func (s *Reconciler) Process(ctx context.Context, cb *payment.StkCallback) error {
	txn, err := s.transactions.FindByCheckoutRequestID(ctx, cb.CheckoutRequestID)
	if errors.Is(err, xerrors.ErrNotFound) {
		s.logger.Warn("callback for unknown transaction",
			zap.String("checkout_request_id", cb.CheckoutRequestID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to locate transaction: %w", err)
	}

	status := payment.TransactionStatusCompleted
	if cb.ResultCode != 0 {
		status = payment.TransactionStatusFailed
	}

	// Completed and failed are terminal; a redelivered callback must not
	// rewrite a recorded verdict. Settlement still runs so the duplicate
	// guard can log the redelivery.
	if !txn.Status.CanTransitionTo(status) {
		s.logger.Info("transaction already in a terminal state",
			zap.String("checkout_request_id", cb.CheckoutRequestID),
			zap.String("status", string(txn.Status)),
		)
	} else if err := s.transactions.UpdateResult(ctx, txn.ID, status, cb.ResultCode, cb.ResultDesc, cb.ReceiptNumber()); err != nil {
		if errors.Is(err, xerrors.ErrDuplicateEntry) {
			s.logger.Warn("transaction settled concurrently",
				zap.String("checkout_request_id", cb.CheckoutRequestID))
		} else {
			return fmt.Errorf("failed to update transaction result: %w", err)
		}
	}

	if cb.ResultCode != 0 {
		s.logger.Info("transaction failed at gateway",
			zap.String("checkout_request_id", cb.CheckoutRequestID),
			zap.Int("result_code", cb.ResultCode),
			zap.String("result_desc", cb.ResultDesc),
		)
		return nil
	}

	if txn.ResolvedPurpose() == payment.PurposeServiceCharge {
		return s.settleServiceCharge(ctx, txn, cb)
	}
	return s.settleRent(ctx, txn, cb)
}

func (s *Reconciler) settleServiceCharge(ctx context.Context, txn *payment.Transaction, cb *payment.StkCallback) error {
	invoiceID, ok := txn.ResolvedServiceChargeInvoiceID()
	if !ok {
		s.logger.Error("service charge transaction without invoice reference",
			zap.String("checkout_request_id", txn.CheckoutRequestID))
		return nil
	}

	sci, err := s.scInvoices.FindByID(ctx, invoiceID)
	if errors.Is(err, xerrors.ErrNotFound) {
		s.logger.Error("service charge invoice not found",
			zap.String("service_charge_invoice_id", invoiceID.String()))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load service charge invoice: %w", err)
	}

	payerPhone := cb.PayerPhone()
	if payerPhone == "" {
		payerPhone = txn.Phone
	}

	if err := s.scInvoices.MarkPaid(ctx, sci.ID, cb.ReceiptNumber(), paymentMethodMpesa, payerPhone, s.now()); err != nil {
		return fmt.Errorf("failed to mark service charge invoice paid: %w", err)
	}

	// Receipt SMS is best-effort; the settlement stands either way.
	landlord, err := s.landlords.FindByID(ctx, sci.LandlordID)
	if err != nil {
		s.logger.Warn("failed to look up landlord for receipt sms",
			zap.String("landlord_id", sci.LandlordID.String()), zap.Error(err))
		return nil
	}
	msg := fmt.Sprintf("Dear %s, we have received your service charge payment of KES %s. Receipt: %s. Thank you.",
		landlord.Name, sci.Amount.StringFixed(2), cb.ReceiptNumber())
	if err := s.sms.Send(ctx, landlord.Phone, msg); err != nil {
		s.logger.Warn("failed to send service charge receipt sms",
			zap.String("phone", landlord.Phone), zap.Error(err))
	}

	return nil
}

func (s *Reconciler) settleRent(ctx context.Context, txn *payment.Transaction, cb *payment.StkCallback) error {
	invoiceID, ok := txn.ResolvedInvoiceID()
	if !ok {
		s.logger.Error("rent transaction without invoice reference",
			zap.String("checkout_request_id", txn.CheckoutRequestID))
		return nil
	}

	inv, err := s.invoices.FindByID(ctx, invoiceID)
	if errors.Is(err, xerrors.ErrNotFound) {
		s.logger.Error("rent invoice not found", zap.String("invoice_id", invoiceID.String()))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load invoice: %w", err)
	}

	receipt := cb.ReceiptNumber()

	// Duplicate-delivery guard: the gateway redelivers on anything but 200,
	// so the same (receipt, checkout request id) pair can arrive again.
	exists, err := s.payments.Exists(ctx, receipt, txn.CheckoutRequestID)
	if err != nil {
		return fmt.Errorf("failed to check for existing payment: %w", err)
	}
	if exists {
		s.logger.Info("duplicate callback delivery, payment already recorded",
			zap.String("receipt_number", receipt),
			zap.String("checkout_request_id", txn.CheckoutRequestID),
		)
		return nil
	}

	amount, ok := cb.Amount()
	if !ok {
		amount = txn.Amount
	}
	payerPhone := cb.PayerPhone()
	if payerPhone == "" {
		payerPhone = txn.Phone
	}

	p := &payment.Payment{
		Reference:         ulid.Make().String(),
		InvoiceID:         inv.ID,
		Phone:             payerPhone,
		Amount:            amount,
		ReceiptNumber:     receipt,
		CheckoutRequestID: txn.CheckoutRequestID,
		PaidAt:            s.now(),
	}
	if err := s.payments.Create(ctx, p); err != nil {
		return fmt.Errorf("failed to record payment: %w", err)
	}

	if err := s.invoices.MarkPaid(ctx, inv.ID, receipt, paymentMethodMpesa, p.PaidAt); err != nil {
		if errors.Is(err, xerrors.ErrDuplicateEntry) {
			s.logger.Warn("invoice already marked paid", zap.String("invoice_id", inv.ID.String()))
		} else {
			return fmt.Errorf("failed to mark invoice paid: %w", err)
		}
	}

	// Everything past this point is best-effort: the rent settlement stands
	// even if billing rollup or the receipt SMS fails.
	if err := s.rollupServiceCharge(ctx, inv, amount); err != nil {
		s.logger.Error("service charge rollup failed",
			zap.String("invoice_id", inv.ID.String()), zap.Error(err))
	}

	msg := fmt.Sprintf("Payment of KES %s received for your rent invoice. Receipt: %s. Thank you.",
		amount.StringFixed(2), receipt)
	if lease, err := s.leases.FindByInvoiceID(ctx, inv.ID); err == nil {
		msg = fmt.Sprintf("Dear %s, we have received your rent payment of KES %s. Receipt: %s. Thank you.",
			lease.TenantName, amount.StringFixed(2), receipt)
	} else {
		s.logger.Warn("failed to resolve lease for receipt sms",
			zap.String("invoice_id", inv.ID.String()), zap.Error(err))
	}
	if err := s.sms.Send(ctx, payerPhone, msg); err != nil {
		s.logger.Warn("failed to send rent receipt sms",
			zap.String("phone", payerPhone), zap.Error(err))
	}

	return nil
}

// rollupServiceCharge folds a settled rent payment into the landlord's
// service charge invoice for the current billing period, creating the invoice
// through the generator when none exists yet. The increment is a single
// atomic statement, so concurrent callbacks for one landlord cannot lose
// updates.
func (s *Reconciler) rollupServiceCharge(ctx context.Context, inv *invoice.Invoice, amount decimal.Decimal) error {
	landlord, err := s.landlords.FindByInvoiceID(ctx, inv.ID)
	if err != nil {
		return fmt.Errorf("failed to resolve landlord: %w", err)
	}

	periodStart, periodEnd := billingPeriod(s.now())

	sci, err := s.scInvoices.FindByLandlordAndPeriod(ctx, landlord.ID, periodStart)
	if errors.Is(err, xerrors.ErrNotFound) {
		if _, err := s.generator.Generate(ctx, landlord.ID, periodStart, periodEnd); err != nil {
			return fmt.Errorf("failed to generate service charge invoice: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load service charge invoice: %w", err)
	}

	plan, err := s.plans.FindByLandlordID(ctx, landlord.ID)
	if err != nil {
		return fmt.Errorf("failed to load billing plan: %w", err)
	}

	// Only the percentage model is recomputed inline; other models keep
	// their amount and get recomputed when the generator next runs for the
	// period.
	var rate *decimal.Decimal
	if plan.Model == invoice.PlanModelPercentage {
		rate = &plan.Rate
	}

	if err := s.scInvoices.ApplyRentCollected(ctx, sci.ID, amount, rate); err != nil {
		return fmt.Errorf("failed to apply rent to service charge invoice: %w", err)
	}

	return nil
}

// billingPeriod returns the calendar-month bounds containing t.
func billingPeriod(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 1, 0)
}
