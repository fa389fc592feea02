package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	paymentControllers "github.com/nexcart/storefront-api/controllers/payment"
	"github.com/nexcart/storefront-api/middleware"
)

func SetupPaymentRoutes(r *gin.Engine, db *gorm.DB) {
	payment := r.Group("/payment")
	{
		// Gateway order creation for a pending online order
		payment.POST("/initiate", middleware.ValidateToken, paymentControllers.InitiatePaymentHandler(db))

		// Webhook endpoint: handler verifies the signature before touching
		// any state
		payment.POST("/webhook", paymentControllers.WebhookHandler(db))
	}
}
