package adminController

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nexcart/storefront-api/auth"
	"github.com/nexcart/storefront-api/models"
)

type CreateCourierRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name" binding:"required"`
	Phone    string `json:"phone"`
}

// POST /admin/couriers — provision a delivery-person account.
func CreateCourier(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateCourierRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}

		hashed, err := auth.HashPassword(req.Password)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create courier"})
			return
		}

		courier := models.User{
			ID:           "usr_" + uuid.NewString(),
			Email:        req.Email,
			PasswordHash: hashed,
			Name:         req.Name,
			Phone:        req.Phone,
			Role:         models.RoleDelivery,
		}

		if err := db.Create(&courier).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create courier"})
			return
		}

		c.JSON(http.StatusCreated, courier)
	}
}

// GET /admin/couriers
func ListCouriers(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var couriers []models.User
		if err := db.Where("role = ?", models.RoleDelivery).
			Order("created_at desc").
			Find(&couriers).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch couriers"})
			return
		}
		c.JSON(http.StatusOK, couriers)
	}
}
