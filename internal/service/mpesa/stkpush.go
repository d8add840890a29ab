// internal/service/mpesa/stkpush.go
package mpesa

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"nyumbani-service/internal/config"
	"nyumbani-service/internal/domain/payment"

	"go.uber.org/zap"
)

// Gateway tokens live for an hour; the cache TTL stays short of that so a
// stale token is never served.
const tokenCacheTTL = 50 * time.Minute

// TransactionStore persists pending transactions created at push time.
type TransactionStore interface {
	Create(ctx context.Context, txn *payment.Transaction) error
}

// StkService initiates Daraja STK push charges and records the pending
// transaction the callback reconciler later settles.
type StkService struct {
	cfg    config.DarajaConfig
	txns   TransactionStore
	cache  TokenCache
	client *http.Client
	logger *zap.Logger
}

func NewStkService(cfg config.DarajaConfig, txns TransactionStore, cache TokenCache, logger *zap.Logger) *StkService {
	return &StkService{
		cfg:    cfg,
		txns:   txns,
		cache:  cache,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

// accessToken returns a cached OAuth token, fetching a fresh one from the
// gateway when the cache misses.
func (s *StkService) accessToken(ctx context.Context) (string, error) {
	token, err := s.cache.Get(ctx)
	if err != nil {
		s.logger.Warn("token cache read failed", zap.Error(err))
	}
	if token != "" {
		return token, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		s.cfg.BaseURL+"/oauth/v1/generate?grant_type=client_credentials", nil)
	if err != nil {
		return "", fmt.Errorf("failed to build token request: %w", err)
	}
	req.SetBasicAuth(s.cfg.ConsumerKey, s.cfg.ConsumerSecret)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("token request returned status %d: %s", resp.StatusCode, raw)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("gateway returned empty access token")
	}

	if err := s.cache.Set(ctx, tr.AccessToken, tokenCacheTTL); err != nil {
		s.logger.Warn("failed to cache access token", zap.Error(err))
	}

	return tr.AccessToken, nil
}

type stkPushRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            string `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

type stkPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

// InitiateStkPush sends the charge request to the gateway and persists the
// resulting pending transaction.
func (s *StkService) InitiateStkPush(ctx context.Context, input *payment.StkPushInput) (*payment.Transaction, error) {
	token, err := s.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	timestamp := time.Now().Format("20060102150405")
	password := base64.StdEncoding.EncodeToString(
		[]byte(s.cfg.Shortcode + s.cfg.Passkey + timestamp),
	)

	reference := input.AccountReference
	if reference == "" {
		reference = "NYUMBANI"
	}

	body, err := json.Marshal(stkPushRequest{
		BusinessShortCode: s.cfg.Shortcode,
		Password:          password,
		Timestamp:         timestamp,
		TransactionType:   "CustomerPayBillOnline",
		Amount:            input.Amount.StringFixed(0),
		PartyA:            input.Phone,
		PartyB:            s.cfg.Shortcode,
		PhoneNumber:       input.Phone,
		CallBackURL:       s.cfg.CallbackURL,
		AccountReference:  reference,
		TransactionDesc:   "Nyumbani payment",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal stk push request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.cfg.BaseURL+"/mpesa/stkpush/v1/processrequest", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build stk push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("stk push request failed: %w", err)
	}
	defer resp.Body.Close()

	var pr stkPushResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return nil, fmt.Errorf("failed to decode stk push response: %w", err)
	}
	if pr.ResponseCode != "0" {
		return nil, fmt.Errorf("gateway rejected stk push: %s", pr.ResponseDescription)
	}

	purpose := input.Purpose
	if purpose == "" {
		purpose = payment.PurposeRent
	}

	txn := &payment.Transaction{
		CheckoutRequestID: pr.CheckoutRequestID,
		Phone:             input.Phone,
		Amount:            input.Amount,
		Purpose:           purpose,
		Status:            payment.TransactionStatusPending,
	}
	txn.MerchantRequestID.String = pr.MerchantRequestID
	txn.MerchantRequestID.Valid = pr.MerchantRequestID != ""
	if input.InvoiceID != nil {
		txn.InvoiceID.UUID = *input.InvoiceID
		txn.InvoiceID.Valid = true
	}
	if input.ServiceChargeInvoiceID != nil {
		txn.ServiceChargeInvoiceID.UUID = *input.ServiceChargeInvoiceID
		txn.ServiceChargeInvoiceID.Valid = true
	}

	if err := s.txns.Create(ctx, txn); err != nil {
		return nil, fmt.Errorf("failed to record pending transaction: %w", err)
	}

	s.logger.Info("stk push initiated",
		zap.String("checkout_request_id", txn.CheckoutRequestID),
		zap.String("purpose", string(txn.Purpose)),
	)

	return txn, nil
}
