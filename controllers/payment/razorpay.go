package paymentControllers

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	orderControllers "github.com/nexcart/storefront-api/controllers/order"
	"github.com/nexcart/storefront-api/logger"
	"github.com/nexcart/storefront-api/metrics"
	"github.com/nexcart/storefront-api/models"
)

const defaultGatewayURL = "https://api.razorpay.com/v1/orders"

// gatewayOrderResponse represents the Razorpay order-create response.
type gatewayOrderResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
	Error    *struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error,omitempty"`
}

// getGatewayConfig reads the gateway credentials from the environment.
func getGatewayConfig() (keyID, keySecret, apiURL string, err error) {
	keyID = os.Getenv("RAZORPAY_KEY_ID")
	keySecret = os.Getenv("RAZORPAY_KEY_SECRET")
	apiURL = os.Getenv("RAZORPAY_API_URL")
	if apiURL == "" {
		apiURL = defaultGatewayURL
	}
	if keyID == "" || keySecret == "" {
		return "", "", "", fmt.Errorf("razorpay configuration missing")
	}
	return keyID, keySecret, apiURL, nil
}

// CreateGatewayOrder registers the order with Razorpay and returns the
// gateway order id the webhook later correlates on.
func CreateGatewayOrder(amount float64, currency, receipt string) (string, error) {
	keyID, keySecret, apiURL, err := getGatewayConfig()
	if err != nil {
		return "", err
	}

	payload := map[string]interface{}{
		"amount":   int64(math.Round(amount * 100)), // smallest currency unit
		"currency": currency,
		"receipt":  receipt,
	}
	jsonData, _ := json.Marshal(payload)

	req, err := http.NewRequest(http.MethodPost, apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(keyID, keySecret)

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to reach payment gateway: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gateway API error (%d): %s", resp.StatusCode, string(body))
	}

	var gwResp gatewayOrderResponse
	if err := json.Unmarshal(body, &gwResp); err != nil {
		return "", fmt.Errorf("failed to parse gateway response: %v", err)
	}
	if gwResp.Error != nil {
		return "", fmt.Errorf("gateway error: %s", gwResp.Error.Description)
	}
	if gwResp.ID == "" {
		return "", fmt.Errorf("gateway returned empty order id")
	}

	return gwResp.ID, nil
}

type InitiatePaymentRequest struct {
	OrderID uint `json:"order_id" binding:"required"`
}

// InitiatePaymentHandler creates the gateway order for a pending online
// order and stores its id for webhook correlation.
func InitiatePaymentHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := c.Get("user_id")

		var req InitiatePaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		var order models.Order
		if err := db.First(&order, "id = ? AND user_id = ?", req.OrderID, userID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}

		if order.PaymentMethod != models.PaymentMethodRazorpay {
			c.JSON(http.StatusBadRequest, gin.H{"error": "order is not an online payment order"})
			return
		}
		if order.PaymentStatus != models.PaymentStatusPending || order.Status != models.OrderStatusPending {
			c.JSON(http.StatusBadRequest, gin.H{"error": "order is not awaiting payment"})
			return
		}

		currency := os.Getenv("RAZORPAY_CURRENCY")
		if currency == "" {
			currency = "INR"
		}

		// A repeat initiate returns the gateway order already in flight
		// rather than orphaning it with a fresh one.
		if order.PaymentID != "" {
			c.JSON(http.StatusOK, gin.H{
				"gateway_order_id": order.PaymentID,
				"amount":           order.TotalAmount,
				"currency":         currency,
				"key_id":           os.Getenv("RAZORPAY_KEY_ID"),
			})
			return
		}

		gatewayOrderID, err := CreateGatewayOrder(order.TotalAmount, currency, order.OrderRef)
		if err != nil {
			logger.L().Error("gateway order creation failed",
				zap.Uint("order_id", order.ID), zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}

		if err := db.Model(&order).Update("payment_id", gatewayOrderID).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save gateway order id"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"gateway_order_id": gatewayOrderID,
			"amount":           order.TotalAmount,
			"currency":         currency,
			"key_id":           os.Getenv("RAZORPAY_KEY_ID"),
		})
	}
}

// -------- Webhook --------

// webhookEvent mirrors the gateway's event envelope.
type webhookEvent struct {
	Event   string `json:"event"` // "payment.captured" | "payment.failed"
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string `json:"id"`       // gateway payment id
				OrderID string `json:"order_id"` // gateway order id
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// VerifyWebhookSignature checks the HMAC-SHA256 of the raw body against
// the signature header using a constant-time compare. A missing secret
// fails closed: an empty-keyed HMAC is forgeable by anyone.
func VerifyWebhookSignature(body []byte, signature, secret string) bool {
	if signature == "" || secret == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

var errOrderNotFound = errors.New("order not found for gateway order id")

// ApplyPaymentCaptured is the authoritative stock commit point for
// online orders. It is idempotent: a duplicate delivery of the same
// capture event finds the order already PAID and does nothing. The
// status flip, paymentId update, stock decrement, and cart clearing
// commit together or not at all.
func ApplyPaymentCaptured(db *gorm.DB, gatewayOrderID, paymentID string) error {
	// COD orders carry an empty payment_id; an empty gateway id must
	// never correlate to one of them.
	if gatewayOrderID == "" || paymentID == "" {
		return errOrderNotFound
	}
	return db.Transaction(func(tx *gorm.DB) error {
		// After a capture payment_id holds the payment id, so a duplicate
		// delivery must match on either id to reach the idempotency check.
		var order models.Order
		if err := tx.Preload("Items").
			Where("payment_id = ? OR payment_id = ?", gatewayOrderID, paymentID).
			First(&order).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errOrderNotFound
			}
			return err
		}

		if order.PaymentStatus == models.PaymentStatusPaid {
			// Duplicate webhook delivery.
			return nil
		}

		for _, item := range order.Items {
			if err := orderControllers.DecrementStock(tx, item.ProductID, item.ProductName, item.Quantity); err != nil {
				return err
			}
		}

		if err := tx.Model(&order).Updates(map[string]interface{}{
			"payment_status": models.PaymentStatusPaid,
			"status":         models.OrderStatusProcessing,
			"payment_id":     paymentID,
		}).Error; err != nil {
			return err
		}

		// The cart may already be empty; clearing is best-effort within
		// the same transaction.
		var cart models.Cart
		if err := tx.Where("user_id = ?", order.UserID).First(&cart).Error; err == nil {
			if err := tx.Where("cart_id = ?", cart.CartID).Delete(&models.CartItem{}).Error; err != nil {
				return err
			}
		}

		return nil
	})
}

// ApplyPaymentFailed cancels a still-pending order. Stock was never
// committed for an unpaid online order, so no restore is needed. A
// failure notice for an order already processed is ignored.
func ApplyPaymentFailed(db *gorm.DB, gatewayOrderID string) error {
	if gatewayOrderID == "" {
		return errOrderNotFound
	}
	return db.Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.Where("payment_id = ?", gatewayOrderID).First(&order).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errOrderNotFound
			}
			return err
		}

		if order.Status != models.OrderStatusPending {
			return nil
		}

		return tx.Model(&order).Updates(map[string]interface{}{
			"payment_status": models.PaymentStatusFailed,
			"status":         models.OrderStatusCancelled,
		}).Error
	})
}

// WebhookHandler receives gateway events. Signature verification runs
// before any parsing or lookup; a failed check mutates nothing.
func WebhookHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
			return
		}

		signature := c.GetHeader("x-razorpay-signature")
		secret := os.Getenv("RAZORPAY_WEBHOOK_SECRET")
		if !VerifyWebhookSignature(body, signature, secret) {
			metrics.WebhookEvents.WithLabelValues("unknown", "bad_signature").Inc()
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook signature"})
			return
		}

		var event webhookEvent
		if err := json.Unmarshal(body, &event); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed webhook payload"})
			return
		}

		entity := event.Payload.Payment.Entity
		switch event.Event {
		case "payment.captured":
			if entity.OrderID == "" || entity.ID == "" {
				metrics.WebhookEvents.WithLabelValues(event.Event, "invalid").Inc()
				c.JSON(http.StatusBadRequest, gin.H{"error": "missing payment entity ids"})
				return
			}
			err = ApplyPaymentCaptured(db, entity.OrderID, entity.ID)
		case "payment.failed":
			if entity.OrderID == "" {
				metrics.WebhookEvents.WithLabelValues(event.Event, "invalid").Inc()
				c.JSON(http.StatusBadRequest, gin.H{"error": "missing payment entity ids"})
				return
			}
			err = ApplyPaymentFailed(db, entity.OrderID)
		default:
			// Unknown events are acknowledged so the gateway stops
			// retrying them.
			metrics.WebhookEvents.WithLabelValues(event.Event, "ignored").Inc()
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
			return
		}

		if err != nil {
			if errors.Is(err, errOrderNotFound) {
				metrics.WebhookEvents.WithLabelValues(event.Event, "not_found").Inc()
				c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
				return
			}
			// Includes capture-time stock shortage: a 500 makes the
			// gateway retry while the order stays pending.
			logger.L().Error("webhook processing failed",
				zap.String("event", event.Event),
				zap.String("gateway_order_id", entity.OrderID),
				zap.Error(err))
			metrics.WebhookEvents.WithLabelValues(event.Event, "error").Inc()
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process webhook"})
			return
		}

		logger.L().Info("webhook processed",
			zap.String("event", event.Event),
			zap.String("gateway_order_id", entity.OrderID))
		metrics.WebhookEvents.WithLabelValues(event.Event, "ok").Inc()
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
