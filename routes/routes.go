package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/nexcart/storefront-api/cache"
	productControllers "github.com/nexcart/storefront-api/controllers/product"
	"github.com/nexcart/storefront-api/metrics"
)

// SetupRoutes is the single entry-point that wires up all route groups.
func SetupRoutes(r *gin.Engine, db *gorm.DB, store cache.Cache) {
	// Public auth routes (no middleware)
	SetupAuthRoutes(r, db)

	// Public catalog browsing
	r.GET("/products", productControllers.GetProducts(db, store))
	r.GET("/products/:id", productControllers.GetProductByID(db))
	r.GET("/categories", productControllers.GetAllCategoriesWithProducts(db))

	// User routes (JWT-protected)
	SetupUserRoutes(r, db)

	// Order routes
	SetupOrderRoutes(r, db)

	// Payment routes (gateway + webhook)
	SetupPaymentRoutes(r, db)

	// Delivery-person routes
	SetupDeliveryRoutes(r, db)

	// Admin routes
	SetupAdminRoutes(r, db, store)

	r.GET("/metrics", metrics.Handler())
}
