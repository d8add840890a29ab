// internal/app/router.go
package app

import (
	mpesaHandler "nyumbani-service/internal/handlers/mpesa"

	"github.com/gin-gonic/gin"
)

type Handlers struct {
	MpesaHandler *mpesaHandler.MpesaHandler
}

func SetupRouter(r *gin.Engine, h *Handlers) {
	api := r.Group("/api/v1")

	// ==================== Health Check ====================
	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "version": "1.0.0"})
	})

	// ==================== Payments ====================
	payments := api.Group("/payments/mpesa")
	{
		// Webhook from the gateway; the :secret segment is the registered
		// shared secret, not a credential minted per request.
		payments.POST("/callback/:secret", h.MpesaHandler.HandleCallback)
		payments.POST("/callback", h.MpesaHandler.HandleCallback)

		payments.POST("/stkpush", h.MpesaHandler.InitiateStkPush)
	}
}
