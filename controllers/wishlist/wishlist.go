package wishlistControllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/nexcart/storefront-api/models"
)

type WishlistItemInput struct {
	ProductID uint `json:"product_id" binding:"required"`
}

// POST /user/wishlist
func AddWishlistItem(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userIDVal, _ := c.Get("user_id")
		userID := userIDVal.(string)

		var input WishlistItemInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}

		var product models.Product
		if err := db.First(&product, "id = ?", input.ProductID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Product does not exist"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to validate product"})
			return
		}

		var wishlist models.Wishlist
		if err := db.Where("user_id = ?", userID).First(&wishlist).Error; err != nil {
			if err != gorm.ErrRecordNotFound {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch wishlist"})
				return
			}
			wishlist = models.Wishlist{UserID: userID}
			if err := db.Create(&wishlist).Error; err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create wishlist"})
				return
			}
		}

		// Adding the same product twice is a conflict, not a quantity bump.
		var existing models.WishlistItem
		err := db.Where("wishlist_id = ? AND product_id = ?", wishlist.WishlistID, input.ProductID).
			First(&existing).Error
		if err == nil {
			c.JSON(http.StatusConflict, gin.H{"error": "Product already in wishlist"})
			return
		}
		if err != gorm.ErrRecordNotFound {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch wishlist item"})
			return
		}

		item := models.WishlistItem{
			WishlistID:   wishlist.WishlistID,
			ProductID:    product.ID,
			ProductName:  product.Name,
			ProductImage: product.Image,
			Price:        product.Price,
			AddedAt:      time.Now(),
		}
		if err := db.Create(&item).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add item to wishlist"})
			return
		}

		c.JSON(http.StatusCreated, item)
	}
}

// DELETE /user/wishlist/:product_id
func DeleteWishlistItem(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userIDVal, _ := c.Get("user_id")
		userID := userIDVal.(string)
		productID := c.Param("product_id")

		var wishlist models.Wishlist
		if err := db.Where("user_id = ?", userID).First(&wishlist).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Wishlist not found"})
			return
		}

		result := db.Where("wishlist_id = ? AND product_id = ?", wishlist.WishlistID, productID).
			Delete(&models.WishlistItem{})
		if result.Error != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete item"})
			return
		}
		if result.RowsAffected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "Wishlist item not found"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Wishlist item deleted"})
	}
}

// GET /user/wishlist
func GetUserWishlist(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userIDVal, _ := c.Get("user_id")
		userID := userIDVal.(string)

		var wishlist models.Wishlist
		if err := db.Preload("Items").Where("user_id = ?", userID).First(&wishlist).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				c.JSON(http.StatusOK, []models.WishlistItem{})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch wishlist"})
			return
		}

		c.JSON(http.StatusOK, wishlist.Items)
	}
}
