package deliveryControllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/nexcart/storefront-api/logger"
	"github.com/nexcart/storefront-api/metrics"
	"github.com/nexcart/storefront-api/models"
)

type UpdateDeliveryStatusRequest struct {
	Status           string `json:"status" binding:"required"`
	DeliveryProofURL string `json:"delivery_proof_url"`
}

// GET /delivery/orders — orders assigned to the acting courier.
func GetAssignedOrdersHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		courierID, _ := c.Get("user_id")

		var orders []models.Order
		if err := db.
			Where("assigned_to_id = ?", courierID).
			Preload("Items").
			Preload("User").
			Order("created_at DESC").
			Find(&orders).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch assigned orders"})
			return
		}
		c.JSON(http.StatusOK, orders)
	}
}

// PUT /delivery/orders/:orderID/status
//
// Only the assigned courier may advance the order, and only along the
// courier subset of the lifecycle graph. Delivering a COD order closes
// the payment loop by marking it paid in the same update.
func UpdateDeliveryStatusHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		courierIDVal, _ := c.Get("user_id")
		courierID := courierIDVal.(string)

		orderID := c.Param("orderID")
		if orderID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "orderID is required"})
			return
		}

		var req UpdateDeliveryStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		newStatus, err := models.ParseOrderStatus(req.Status)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		var order models.Order
		if err := db.First(&order, "id = ?", orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch order"})
			return
		}

		if order.AssignedToID == nil || *order.AssignedToID != courierID {
			c.JSON(http.StatusForbidden, gin.H{"error": "order is not assigned to you"})
			return
		}

		if err := models.ValidateCourierTransition(order.Status, newStatus); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		updates := map[string]interface{}{"status": newStatus}
		if newStatus == models.OrderStatusDelivered {
			if req.DeliveryProofURL != "" {
				updates["delivery_proof_url"] = req.DeliveryProofURL
			}
			// Cash collected on delivery closes the payment loop.
			if order.PaymentMethod == models.PaymentMethodCOD {
				updates["payment_status"] = models.PaymentStatusPaid
			}
		}

		if err := db.Model(&order).Updates(updates).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update delivery status"})
			return
		}

		logger.L().Info("delivery status updated",
			zap.Uint("order_id", order.ID),
			zap.String("courier_id", courierID),
			zap.String("status", string(newStatus)))
		metrics.DeliveryTransitions.WithLabelValues(string(newStatus)).Inc()

		if err := db.Preload("Items").First(&order, order.ID).Error; err == nil {
			c.JSON(http.StatusOK, order)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Delivery status updated successfully"})
	}
}
