package models

import (
	"fmt"
	"strings"
	"time"
)

type OrderStatus string
type PaymentStatus string

const (
	OrderStatusPending        OrderStatus = "pending"          // Order placed, awaiting payment/confirmation
	OrderStatusProcessing     OrderStatus = "processing"       // Payment confirmed (or COD accepted), being prepared
	OrderStatusShipped        OrderStatus = "shipped"          // Handed to a courier
	OrderStatusOutForDelivery OrderStatus = "out_for_delivery" // Courier is on the way
	OrderStatusDelivered      OrderStatus = "delivered"        // Customer received the item
	OrderStatusDeliveryFailed OrderStatus = "delivery_failed"  // Courier could not deliver
	OrderStatusCancelled      OrderStatus = "cancelled"        // Payment failed before processing

	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"

	PaymentMethodCOD      = "cod"
	PaymentMethodRazorpay = "razorpay"
)

// orderTransitions is the full lifecycle graph. Transitions never skip
// backward and terminal states have no outgoing edges.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:        {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing:     {OrderStatusShipped, OrderStatusOutForDelivery},
	OrderStatusShipped:        {OrderStatusOutForDelivery},
	OrderStatusOutForDelivery: {OrderStatusDelivered, OrderStatusDeliveryFailed},
}

// courierTransitions is the subset a delivery person may request.
var courierTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusProcessing:     {OrderStatusOutForDelivery},
	OrderStatusShipped:        {OrderStatusOutForDelivery},
	OrderStatusOutForDelivery: {OrderStatusDelivered, OrderStatusDeliveryFailed},
}

// IsTerminal reports whether no further status change is allowed.
func (s OrderStatus) IsTerminal() bool {
	return len(orderTransitions[s]) == 0
}

func contains(list []OrderStatus, s OrderStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// ValidateTransition returns an error naming the current and requested
// status when the lifecycle graph forbids the change.
func ValidateTransition(from, to OrderStatus) error {
	if contains(orderTransitions[from], to) {
		return nil
	}
	return fmt.Errorf("invalid status transition from %q to %q", from, to)
}

// ValidateCourierTransition is ValidateTransition restricted to the
// transitions a courier may drive.
func ValidateCourierTransition(from, to OrderStatus) error {
	if contains(courierTransitions[from], to) {
		return nil
	}
	return fmt.Errorf("invalid delivery status transition from %q to %q", from, to)
}

// ParseOrderStatus maps a request string to an OrderStatus.
func ParseOrderStatus(status string) (OrderStatus, error) {
	switch OrderStatus(strings.ToLower(status)) {
	case OrderStatusPending:
		return OrderStatusPending, nil
	case OrderStatusProcessing:
		return OrderStatusProcessing, nil
	case OrderStatusShipped:
		return OrderStatusShipped, nil
	case OrderStatusOutForDelivery:
		return OrderStatusOutForDelivery, nil
	case OrderStatusDelivered:
		return OrderStatusDelivered, nil
	case OrderStatusDeliveryFailed:
		return OrderStatusDeliveryFailed, nil
	case OrderStatusCancelled:
		return OrderStatusCancelled, nil
	default:
		return "", fmt.Errorf("invalid order status %q", status)
	}
}

// ParsePaymentStatus maps a request string to a PaymentStatus.
func ParsePaymentStatus(status string) (PaymentStatus, error) {
	switch PaymentStatus(strings.ToLower(status)) {
	case PaymentStatusPending:
		return PaymentStatusPending, nil
	case PaymentStatusPaid:
		return PaymentStatusPaid, nil
	case PaymentStatusFailed:
		return PaymentStatusFailed, nil
	default:
		return "", fmt.Errorf("invalid payment status %q", status)
	}
}

type Order struct {
	ID               uint          `gorm:"primaryKey" json:"id"`
	OrderRef         string        `gorm:"uniqueIndex" json:"order_ref"`
	UserID           string        `gorm:"not null" json:"user_id"`
	User             User          `gorm:"foreignKey:UserID" json:"user"`
	Items            []OrderItem   `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	TotalAmount      float64       `json:"total_amount"` // captured at creation, never recomputed
	Status           OrderStatus   `gorm:"type:VARCHAR(20);default:'pending'" json:"status"`
	PaymentStatus    PaymentStatus `gorm:"type:VARCHAR(20);default:'pending'" json:"payment_status"`
	PaymentMethod    string        `json:"payment_method"` // "cod" or "razorpay"
	PaymentID        string        `gorm:"index" json:"payment_id"` // gateway order id until capture, then payment id
	AssignedToID     *string       `json:"assigned_to_id"`
	AssignedTo       *User         `gorm:"foreignKey:AssignedToID" json:"assigned_to,omitempty"`
	DeliveryProofURL string        `json:"delivery_proof_url"`
	CreatedAt        time.Time     `json:"created_at"`
}

// OrderItem is an immutable snapshot taken at order-creation time so
// later price changes never touch historical orders.
type OrderItem struct {
	ID           uint    `gorm:"primaryKey" json:"id"`
	OrderID      uint    `gorm:"index" json:"order_id"`
	ProductID    uint    `json:"product_id"`
	ProductName  string  `json:"product_name"`
	ProductImage string  `json:"product_image"`
	Price        float64 `json:"price"`
	Quantity     int     `json:"quantity"`
}
