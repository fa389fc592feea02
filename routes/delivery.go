package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	deliveryControllers "github.com/nexcart/storefront-api/controllers/delivery"
	"github.com/nexcart/storefront-api/middleware"
	"github.com/nexcart/storefront-api/models"
)

// SetupDeliveryRoutes registers all "/delivery/*" endpoints. Requires the
// delivery role.
func SetupDeliveryRoutes(r *gin.Engine, db *gorm.DB) {
	deliveryGroup := r.Group("/delivery")
	deliveryGroup.Use(middleware.ValidateToken, middleware.RequireRole(models.RoleDelivery))
	{
		deliveryGroup.GET("/orders", deliveryControllers.GetAssignedOrdersHandler(db))
		deliveryGroup.PUT("/orders/:orderID/status", deliveryControllers.UpdateDeliveryStatusHandler(db))
	}
}
