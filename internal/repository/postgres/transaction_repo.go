// internal/repository/postgres/transaction_repository.go
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"nyumbani-service/internal/domain/payment"
	xerrors "nyumbani-service/internal/pkg/errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type MpesaTransactionRepository struct {
	db *pgxpool.Pool
}

func NewMpesaTransactionRepository(db *pgxpool.Pool) *MpesaTransactionRepository {
	return &MpesaTransactionRepository{db: db}
}

// Create persists a pending transaction created at STK push initiation.
func (r *MpesaTransactionRepository) Create(ctx context.Context, txn *payment.Transaction) error {
	query := `
		INSERT INTO mpesa_transactions (
			checkout_request_id, merchant_request_id, phone, amount,
			purpose, status, invoice_id, service_charge_invoice_id, metadata
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`

	var metadataJSON []byte
	var err error
	if txn.Metadata != nil {
		metadataJSON, err = json.Marshal(txn.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
	}

	err = r.db.QueryRow(
		ctx, query,
		txn.CheckoutRequestID, txn.MerchantRequestID, txn.Phone, txn.Amount,
		txn.Purpose, txn.Status, txn.InvoiceID, txn.ServiceChargeInvoiceID, metadataJSON,
	).Scan(&txn.ID, &txn.CreatedAt, &txn.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create mpesa transaction: %w", err)
	}

	return nil
}

// FindByCheckoutRequestID locates the transaction the gateway callback refers to.
func (r *MpesaTransactionRepository) FindByCheckoutRequestID(ctx context.Context, checkoutRequestID string) (*payment.Transaction, error) {
	query := `
		SELECT id, checkout_request_id, merchant_request_id, phone, amount,
		       purpose, status, result_code, result_desc, receipt_number,
		       invoice_id, service_charge_invoice_id, metadata,
		       created_at, updated_at
		FROM mpesa_transactions
		WHERE checkout_request_id = $1
	`

	var txn payment.Transaction
	var metadataJSON []byte

	err := r.db.QueryRow(ctx, query, checkoutRequestID).Scan(
		&txn.ID, &txn.CheckoutRequestID, &txn.MerchantRequestID, &txn.Phone, &txn.Amount,
		&txn.Purpose, &txn.Status, &txn.ResultCode, &txn.ResultDesc, &txn.ReceiptNumber,
		&txn.InvoiceID, &txn.ServiceChargeInvoiceID, &metadataJSON,
		&txn.CreatedAt, &txn.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find mpesa transaction: %w", err)
	}

	txn.Metadata, err = decodeMetadata(metadataJSON)
	if err != nil {
		return nil, err
	}

	return &txn, nil
}

// decodeMetadata parses the jsonb metadata column. A corrupt value is
// surfaced rather than dropped, since purpose classification falls back to it.
func decodeMetadata(raw []byte) (map[string]interface{}, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var metadata map[string]interface{}
	if err := json.Unmarshal(raw, &metadata); err != nil {
		return nil, fmt.Errorf("failed to decode transaction metadata: %w", err)
	}

	return metadata, nil
}

// UpdateResult records the gateway verdict on a pending transaction.
// Completed and failed are terminal, so a row that already carries a verdict
// is never rewritten; the caller gets ErrDuplicateEntry instead.
func (r *MpesaTransactionRepository) UpdateResult(ctx context.Context, id uuid.UUID, status payment.TransactionStatus, resultCode int, resultDesc, receiptNumber string) error {
	query := `
		UPDATE mpesa_transactions
		SET status = $1, result_code = $2, result_desc = $3,
		    receipt_number = NULLIF($4, ''), updated_at = $5
		WHERE id = $6 AND status = 'pending'
	`

	result, err := r.db.Exec(ctx, query, status, resultCode, resultDesc, receiptNumber, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update transaction result: %w", err)
	}
	if result.RowsAffected() == 0 {
		return xerrors.ErrDuplicateEntry
	}

	return nil
}
