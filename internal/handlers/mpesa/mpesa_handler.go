// internal/handlers/mpesa/mpesa_handler.go
package mpesa

import (
	"context"
	"net/http"

	"nyumbani-service/internal/domain/payment"
	"nyumbani-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CallbackProcessor reconciles one gateway callback delivery.
type CallbackProcessor interface {
	Process(ctx context.Context, cb *payment.StkCallback) error
}

// StkPusher initiates STK push charges.
type StkPusher interface {
	InitiateStkPush(ctx context.Context, input *payment.StkPushInput) (*payment.Transaction, error)
}

type MpesaHandler struct {
	reconciler     CallbackProcessor
	stk            StkPusher
	callbackSecret string
	logger         *zap.Logger
}

func NewMpesaHandler(reconciler CallbackProcessor, stk StkPusher, callbackSecret string, logger *zap.Logger) *MpesaHandler {
	return &MpesaHandler{
		reconciler:     reconciler,
		stk:            stk,
		callbackSecret: callbackSecret,
		logger:         logger,
	}
}

// HandleCallback receives the gateway's STK push result. The delivery
// contract treats any non-200 as "retry", so this endpoint acknowledges with
// 200 "OK" no matter what happened inside; failures go to the logs only.
func (h *MpesaHandler) HandleCallback(c *gin.Context) {
	if h.callbackSecret != "" && c.Param("secret") != h.callbackSecret {
		h.logger.Warn("callback with bad shared secret", zap.String("client_ip", c.ClientIP()))
		c.String(http.StatusOK, "OK")
		return
	}

	var env payment.CallbackEnvelope
	if err := c.ShouldBindJSON(&env); err != nil {
		// Retrying cannot fix a malformed body, so acknowledge and drop.
		h.logger.Warn("malformed callback body", zap.Error(err))
		c.String(http.StatusOK, "OK")
		return
	}

	cb := env.Body.StkCallback
	if cb.CheckoutRequestID == "" {
		h.logger.Warn("callback missing checkout request id")
		c.String(http.StatusOK, "OK")
		return
	}

	if err := h.reconciler.Process(c.Request.Context(), &cb); err != nil {
		h.logger.Error("callback reconciliation failed",
			zap.String("checkout_request_id", cb.CheckoutRequestID),
			zap.Error(err),
		)
	}

	c.String(http.StatusOK, "OK")
}

// InitiateStkPush starts a charge against a tenant or landlord phone.
func (h *MpesaHandler) InitiateStkPush(c *gin.Context) {
	var input payment.StkPushInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	txn, err := h.stk.InitiateStkPush(c.Request.Context(), &input)
	if err != nil {
		response.Error(c, http.StatusBadGateway, "failed to initiate stk push", err)
		return
	}

	response.Success(c, http.StatusCreated, "stk push initiated", gin.H{
		"checkout_request_id": txn.CheckoutRequestID,
		"status":              txn.Status,
	})
}
