package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	orderControllers "github.com/nexcart/storefront-api/controllers/order"
	"github.com/nexcart/storefront-api/middleware"
	"github.com/nexcart/storefront-api/models"
)

func SetupOrderRoutes(r *gin.Engine, db *gorm.DB) {
	orders := r.Group("/orders")
	orders.Use(middleware.ValidateToken)
	{
		// Create a new order from the caller's cart
		orders.POST("/place", orderControllers.PlaceOrderHandler(db))

		// Caller's own orders
		orders.GET("/mine", orderControllers.GetMyOrdersHandler(db))

		// Single order by id or order_ref (owner or admin)
		orders.GET("/detail/:orderID", orderControllers.GetOrderByIDHandler(db))
	}

	// websocket endpoint for real-time order updates (admin dashboards)
	r.GET("/ws/orders",
		middleware.ValidateToken,
		middleware.RequireRole(models.RoleAdmin),
		orderControllers.OrderWebSocketHandler)
}
