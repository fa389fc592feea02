package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/nexcart/storefront-api/cache"
	adminController "github.com/nexcart/storefront-api/controllers/admin"
	cartControllers "github.com/nexcart/storefront-api/controllers/cart"
	orderControllers "github.com/nexcart/storefront-api/controllers/order"
	productcontroller "github.com/nexcart/storefront-api/controllers/product"
	userControllers "github.com/nexcart/storefront-api/controllers/user"
	"github.com/nexcart/storefront-api/middleware"
	"github.com/nexcart/storefront-api/models"
)

// SetupAdminRoutes registers all "/admin/*" endpoints. Requires the admin role.
func SetupAdminRoutes(r *gin.Engine, db *gorm.DB, store cache.Cache) {
	adminGroup := r.Group("/admin")
	adminGroup.Use(middleware.ValidateToken, middleware.RequireRole(models.RoleAdmin))
	{
		// ─────────── User & Courier Management ───────────
		adminGroup.GET("/users", userControllers.GetAllUsers(db))
		adminGroup.POST("/couriers", adminController.CreateCourier(db))
		adminGroup.GET("/couriers", adminController.ListCouriers(db))

		// ─────────── Order Management ───────────
		orderAdmin := adminGroup.Group("/orders")
		{
			orderAdmin.GET("", orderControllers.GetAllOrdersHandler(db))
			orderAdmin.PUT("/:orderID/status", orderControllers.UpdateOrderStatusHandler(db))
			orderAdmin.PUT("/:orderID/assign", orderControllers.AssignCourierHandler(db))
		}

		// ─────────── Product Management ───────────
		productAdmin := adminGroup.Group("/products")
		{
			productAdmin.POST("", productcontroller.CreateProduct(db, store))
			productAdmin.PUT("/:id", productcontroller.UpdateProduct(db, store))
			productAdmin.GET("", productcontroller.GetProducts(db, store))
			productAdmin.DELETE("/:id", productcontroller.DeleteProduct(db, store))
			productAdmin.POST("/import-excel", productcontroller.ImportProductsFromExcel(db, store))
			productAdmin.GET("/export-excel", productcontroller.ExportProductsToExcel(db))
		}

		// ─────────── Category Management ───────────
		categoryAdmin := adminGroup.Group("/categories")
		{
			categoryAdmin.POST("", productcontroller.CreateCategory(db, store))
			categoryAdmin.PUT("/:id", productcontroller.UpdateCategory(db, store))
			categoryAdmin.GET("", productcontroller.GetAllCategories(db))
			categoryAdmin.DELETE("/:id", productcontroller.DeleteCategory(db, store))
		}

		// ─────────── Banner Management ───────────
		bannerMgmt := adminGroup.Group("/banner")
		{
			bannerMgmt.POST("/upload", adminController.UploadBanner(db))
			bannerMgmt.GET("/", adminController.GetBanners(db))
			bannerMgmt.DELETE("/:id", adminController.DeleteBanner(db))
		}

		// ─────────── Customer Cart Inspection ───────────
		cartMgmt := adminGroup.Group("/user-cart")
		{
			cartMgmt.GET("/:user_id", cartControllers.GetAdminUserCart(db))
		}
	}
}
