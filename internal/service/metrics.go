package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cartItemsAdded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rxstore_cart_items_added_total",
		Help: "Units added to shopper carts.",
	})

	couponAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rxstore_coupon_attempts_total",
		Help: "Coupon applications, by outcome (applied or the rejection code).",
	}, []string{"result"})

	checkoutRedirects = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rxstore_checkout_redirects_total",
		Help: "Checkout step requests sent back to an earlier step, by target.",
	}, []string{"to"})

	ordersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rxstore_orders_created_total",
		Help: "Orders confirmed at checkout.",
	})

	orderRevenue = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rxstore_order_revenue_cents_total",
		Help: "Sum of confirmed order totals, in cents.",
	})

	orderStatusChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rxstore_order_status_changes_total",
		Help: "Back-office order status transitions, by new status.",
	}, []string{"status"})
)
