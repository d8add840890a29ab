// internal/domain/payment/dto.go
package payment

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CallbackEnvelope mirrors the Daraja STK push result body:
// {"Body":{"stkCallback":{...}}}.
type CallbackEnvelope struct {
	Body CallbackBody `json:"Body"`
}

type CallbackBody struct {
	StkCallback StkCallback `json:"stkCallback"`
}

type StkCallback struct {
	MerchantRequestID string            `json:"MerchantRequestID"`
	CheckoutRequestID string            `json:"CheckoutRequestID"`
	ResultCode        int               `json:"ResultCode"`
	ResultDesc        string            `json:"ResultDesc"`
	CallbackMetadata  *CallbackMetadata `json:"CallbackMetadata,omitempty"`
}

type CallbackMetadata struct {
	Item []CallbackItem `json:"Item"`
}

type CallbackItem struct {
	Name  string      `json:"Name"`
	Value interface{} `json:"Value,omitempty"`
}

// ReceiptNumber extracts MpesaReceiptNumber from the metadata items, empty
// when absent (failed callbacks carry no metadata).
func (c *StkCallback) ReceiptNumber() string {
	return c.metadataString("MpesaReceiptNumber")
}

// PayerPhone extracts the payer MSISDN from the metadata items.
func (c *StkCallback) PayerPhone() string {
	return c.metadataString("PhoneNumber")
}

// Amount extracts the charged amount from the metadata items. The gateway
// sends it as a JSON number.
func (c *StkCallback) Amount() (decimal.Decimal, bool) {
	if c.CallbackMetadata == nil {
		return decimal.Zero, false
	}
	for _, item := range c.CallbackMetadata.Item {
		if item.Name != "Amount" || item.Value == nil {
			continue
		}
		switch v := item.Value.(type) {
		case float64:
			return decimal.NewFromFloat(v), true
		case json.Number:
			if d, err := decimal.NewFromString(v.String()); err == nil {
				return d, true
			}
		case string:
			if d, err := decimal.NewFromString(v); err == nil {
				return d, true
			}
		}
	}
	return decimal.Zero, false
}

func (c *StkCallback) metadataString(name string) string {
	if c.CallbackMetadata == nil {
		return ""
	}
	for _, item := range c.CallbackMetadata.Item {
		if item.Name != name {
			continue
		}
		switch v := item.Value.(type) {
		case string:
			return v
		case float64:
			return decimal.NewFromFloat(v).String()
		case json.Number:
			return v.String()
		}
	}
	return ""
}

// StkPushInput is the request body for initiating an STK push charge.
type StkPushInput struct {
	Phone                  string          `json:"phone" binding:"required"`
	Amount                 decimal.Decimal `json:"amount" binding:"required"`
	Purpose                Purpose         `json:"purpose"`
	InvoiceID              *uuid.UUID      `json:"invoice_id,omitempty"`
	ServiceChargeInvoiceID *uuid.UUID      `json:"service_charge_invoice_id,omitempty"`
	AccountReference       string          `json:"account_reference,omitempty"`
}
