package orderControllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/nexcart/storefront-api/logger"
	"github.com/nexcart/storefront-api/metrics"
	"github.com/nexcart/storefront-api/models"
)

// -------- Request Structs --------

type PlaceOrderRequest struct {
	PaymentMethod string `json:"payment_method" binding:"required"` // "cod" or "razorpay"
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type AssignCourierRequest struct {
	CourierID string `json:"courier_id" binding:"required"`
}

// -------- Errors --------

var ErrEmptyCart = errors.New("cart is empty")

// InsufficientStockError names the offending product so the 400 message
// tells the shopper exactly which line failed.
type InsufficientStockError struct {
	Product string
}

func (e *InsufficientStockError) Error() string {
	return "insufficient stock for product: " + e.Product
}

// DecrementStock performs the atomic floor-checked decrement that is the
// single stock commit point. The WHERE clause re-verifies stock inside
// the transaction, so a pre-transaction read is never trusted and two
// concurrent orders cannot both pass the floor of zero.
func DecrementStock(tx *gorm.DB, productID uint, productName string, quantity int) error {
	res := tx.Model(&models.Product{}).
		Where("id = ? AND stock >= ?", productID, quantity).
		Update("stock", gorm.Expr("stock - ?", quantity))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return &InsufficientStockError{Product: productName}
	}
	return nil
}

// RestoreStock puts reserved units back, used when a stock-committed
// order is cancelled.
func RestoreStock(tx *gorm.DB, items []models.OrderItem) error {
	for _, item := range items {
		if err := tx.Model(&models.Product{}).
			Where("id = ?", item.ProductID).
			Update("stock", gorm.Expr("stock + ?", item.Quantity)).Error; err != nil {
			return err
		}
	}
	return nil
}

// Generate unique order reference
func generateOrderRef() string {
	return time.Now().Format("20060102150405") + "-" + uuid.NewString()
}

// -------- Core Logic --------

// PlaceOrder converts the user's cart into an order. The whole operation
// is one transaction: order + item snapshots, the COD stock commit, and
// cart clearing either all persist or none do. Online (razorpay) orders
// only validate stock here; their commit point is the payment.captured
// webhook.
func PlaceOrder(db *gorm.DB, userID, paymentMethod string) (*models.Order, error) {
	if paymentMethod != models.PaymentMethodCOD && paymentMethod != models.PaymentMethodRazorpay {
		return nil, fmt.Errorf("invalid payment method %q", paymentMethod)
	}

	var cart models.Cart
	if err := db.Preload("Items").Where("user_id = ?", userID).First(&cart).Error; err != nil {
		return nil, err
	}
	if len(cart.Items) == 0 {
		return nil, ErrEmptyCart
	}

	var order models.Order
	err := db.Transaction(func(tx *gorm.DB) error {
		var total float64
		var orderItems []models.OrderItem

		for _, item := range cart.Items {
			var product models.Product
			if err := tx.First(&product, "id = ?", item.ProductID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return &InsufficientStockError{Product: item.ProductName}
				}
				return err
			}

			if product.Stock < item.Quantity {
				return &InsufficientStockError{Product: product.Name}
			}

			// Snapshot current price; later price edits must not touch
			// this order.
			total += product.Price * float64(item.Quantity)
			orderItems = append(orderItems, models.OrderItem{
				ProductID:    product.ID,
				ProductName:  product.Name,
				ProductImage: product.Image,
				Price:        product.Price,
				Quantity:     item.Quantity,
			})
		}

		order = models.Order{
			OrderRef:      generateOrderRef(),
			UserID:        userID,
			Items:         orderItems,
			TotalAmount:   total,
			Status:        models.OrderStatusPending,
			PaymentStatus: models.PaymentStatusPending,
			PaymentMethod: paymentMethod,
			CreatedAt:     time.Now(),
		}
		if err := tx.Create(&order).Error; err != nil {
			return err
		}

		// COD commits stock immediately; there is no later confirmation
		// step to commit it at.
		if paymentMethod == models.PaymentMethodCOD {
			for _, item := range orderItems {
				if err := DecrementStock(tx, item.ProductID, item.ProductName, item.Quantity); err != nil {
					return err
				}
			}
		}

		if err := tx.Where("cart_id = ?", cart.CartID).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}

		return nil
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// -------- Handlers --------

// Place order (user)
func PlaceOrderHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userIDVal, exists := c.Get("user_id")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		userID := userIDVal.(string)

		var req PlaceOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		order, err := PlaceOrder(db, userID, req.PaymentMethod)
		if err != nil {
			var stockErr *InsufficientStockError
			switch {
			case errors.As(err, &stockErr), errors.Is(err, ErrEmptyCart):
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			case errors.Is(err, gorm.ErrRecordNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": "cart not found"})
			default:
				logger.L().Error("order placement failed",
					zap.String("user_id", userID), zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to place order"})
			}
			return
		}

		logger.L().Info("order placed",
			zap.Uint("order_id", order.ID),
			zap.String("order_ref", order.OrderRef),
			zap.String("payment_method", order.PaymentMethod),
			zap.Float64("total", order.TotalAmount))
		metrics.OrdersPlaced.WithLabelValues(order.PaymentMethod).Inc()
		BroadcastNewOrder(*order)

		c.JSON(http.StatusCreated, order)
	}
}

func GetAllOrdersHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var orders []models.Order
		if err := db.
			Preload("User").
			Preload("Items").
			Order("created_at DESC").
			Find(&orders).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch orders"})
			return
		}
		c.JSON(http.StatusOK, orders)
	}
}

func GetMyOrdersHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := c.Get("user_id")
		var orders []models.Order
		if err := db.
			Where("user_id = ?", userID).
			Preload("Items").
			Order("created_at DESC").
			Find(&orders).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch orders"})
			return
		}
		c.JSON(http.StatusOK, orders)
	}
}

// Get single order by ID or order_ref. Non-admin callers only see their
// own orders; anything else is a 404, not a 403, so order ids don't leak.
func GetOrderByIDHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("orderID")
		if id == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "orderID is required"})
			return
		}

		// Order refs are never purely numeric (timestamp-uuid), so the
		// param type picks the column; comparing a ref against the
		// integer id column would not survive postgres.
		query := db.Preload("Items")
		if n, convErr := strconv.ParseUint(id, 10, 64); convErr == nil {
			query = query.Where("id = ?", n)
		} else {
			query = query.Where("order_ref = ?", id)
		}

		var order models.Order
		if err := query.First(&order).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch order"})
			return
		}

		role, _ := c.Get("role")
		userID, _ := c.Get("user_id")
		if role != string(models.RoleAdmin) && order.UserID != userID {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}

		c.JSON(http.StatusOK, order)
	}
}

// Update order status (admin). Transitions are validated against the
// lifecycle graph; terminal states reject everything.
func UpdateOrderStatusHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID := c.Param("orderID")
		if orderID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "orderID is required"})
			return
		}
		var req UpdateOrderStatusRequest
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

		if err := models.ValidateTransition(order.Status, newStatus); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		err = db.Transaction(func(tx *gorm.DB) error {
			// Cancelling a COD order releases the stock committed at
			// placement.
			if newStatus == models.OrderStatusCancelled && order.PaymentMethod == models.PaymentMethodCOD {
				var items []models.OrderItem
				if err := tx.Where("order_id = ?", order.ID).Find(&items).Error; err != nil {
					return err
				}
				if err := RestoreStock(tx, items); err != nil {
					return err
				}
			}
			return tx.Model(&order).Update("status", newStatus).Error
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update order status"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Order status updated successfully"})
	}
}

// Assign a courier to an order (admin). The target must hold the
// delivery role; a PROCESSING order moves to SHIPPED on assignment.
func AssignCourierHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID := c.Param("orderID")
		var req AssignCourierRequest
		if err := c.ShouldBindJSON(&req); err != nil {
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

		if order.Status != models.OrderStatusProcessing && order.Status != models.OrderStatusShipped {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": fmt.Sprintf("cannot assign courier while order is %q", order.Status),
			})
			return
		}

		var courier models.User
		if err := db.First(&courier, "id = ?", req.CourierID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "courier not found"})
			return
		}
		if courier.Role != models.RoleDelivery {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user is not a delivery person"})
			return
		}

		updates := map[string]interface{}{"assigned_to_id": courier.ID}
		if order.Status == models.OrderStatusProcessing {
			updates["status"] = models.OrderStatusShipped
		}
		if err := db.Model(&order).Updates(updates).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to assign courier"})
			return
		}

		logger.L().Info("courier assigned",
			zap.Uint("order_id", order.ID), zap.String("courier_id", courier.ID))
		c.JSON(http.StatusOK, gin.H{"message": "Courier assigned successfully"})
	}
}
