// internal/service/sms/service.go
package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Sender dispatches SMS through an HTTP gateway. Credentials come from
// configuration at construction; call sites never see them.
type Sender struct {
	baseURL   string
	apiKey    string
	partnerID string
	shortcode string
	client    *http.Client
	logger    *zap.Logger
}

func NewSender(baseURL, apiKey, partnerID, shortcode string, timeout time.Duration, logger *zap.Logger) *Sender {
	return &Sender{
		baseURL:   baseURL,
		apiKey:    apiKey,
		partnerID: partnerID,
		shortcode: shortcode,
		client:    &http.Client{Timeout: timeout},
		logger:    logger,
	}
}

type sendRequest struct {
	APIKey    string `json:"apikey"`
	PartnerID string `json:"partnerID"`
	Shortcode string `json:"shortcode"`
	Mobile    string `json:"mobile"`
	Message   string `json:"message"`
}

// Send delivers one message. Callers on the reconciliation path treat errors
// as best-effort and only log them.
func (s *Sender) Send(ctx context.Context, phone, message string) error {
	if s.baseURL == "" {
		return fmt.Errorf("sms gateway not configured")
	}

	body, err := json.Marshal(sendRequest{
		APIKey:    s.apiKey,
		PartnerID: s.partnerID,
		Shortcode: s.shortcode,
		Mobile:    phone,
		Message:   message,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal sms request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/services/sendsms", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("sms gateway unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("sms gateway returned status %d: %s", resp.StatusCode, raw)
	}

	s.logger.Info("sms dispatched", zap.String("phone", phone))
	return nil
}
