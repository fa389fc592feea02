package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	OrdersPlaced = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_orders_placed_total",
		Help: "Orders successfully created, by payment method.",
	}, []string{"payment_method"})

	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_payment_webhook_events_total",
		Help: "Payment gateway webhook deliveries, by event and outcome.",
	}, []string{"event", "result"})

	DeliveryTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_delivery_transitions_total",
		Help: "Courier-driven order status transitions, by target status.",
	}, []string{"status"})
)

// Handler exposes the default prometheus registry.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
