package domain

import (
	"fmt"
	"time"
)

// Order status constants.
const (
	OrderStatusPendingPayment = "pending_payment"
	OrderStatusProcessing     = "processing"
	OrderStatusShipped        = "shipped"
	OrderStatusDelivered      = "delivered"
	OrderStatusCancelled      = "cancelled"
)

// Order is the record created when a checkout is confirmed. Everything but
// Status is a snapshot and never changes afterwards.
type Order struct {
	ID          string          `json:"id"`
	OrderNumber string          `json:"order_number"`
	UserID      string          `json:"user_id"`
	UserEmail   string          `json:"user_email"`
	Status      string          `json:"status"`
	Personal    PersonalData    `json:"personal"`
	Address     AddressData     `json:"address"`
	Payment     PaymentData     `json:"payment"`
	Items       []OrderItem     `json:"items"`
	Coupon      *AppliedCoupon  `json:"coupon,omitempty"`
	Shipping    *ShippingOption `json:"shipping,omitempty"`
	Newsletter  bool            `json:"newsletter"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// OrderItem is a line of an order.
type OrderItem struct {
	ID        string `json:"id,omitempty"`
	OrderID   string `json:"order_id,omitempty"`
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	ImageURL  string `json:"image_url,omitempty"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
	Total     int64  `json:"total"`
}

// NewOrderItem copies a cart line into an order line.
func NewOrderItem(it CartItem) OrderItem {
	return OrderItem{
		ProductID: it.ProductID,
		Name:      it.Name,
		ImageURL:  it.ImageURL,
		Quantity:  it.Quantity,
		UnitPrice: it.Price,
		Total:     it.LineTotal(),
	}
}

// NewOrderNumber derives a human-facing order number from the clock.
func NewOrderNumber(now time.Time) string {
	return fmt.Sprintf("RX%d", now.UnixMilli())
}

// ValidStatuses returns all valid order statuses.
func ValidStatuses() []string {
	return []string{
		OrderStatusPendingPayment,
		OrderStatusProcessing,
		OrderStatusShipped,
		OrderStatusDelivered,
		OrderStatusCancelled,
	}
}

// IsValidStatus checks if a status string is valid.
func IsValidStatus(status string) bool {
	for _, s := range ValidStatuses() {
		if s == status {
			return true
		}
	}
	return false
}

// AllowedTransitions defines which status transitions are valid.
func AllowedTransitions() map[string][]string {
	return map[string][]string{
		OrderStatusPendingPayment: {OrderStatusProcessing, OrderStatusCancelled},
		OrderStatusProcessing:     {OrderStatusShipped, OrderStatusCancelled},
		OrderStatusShipped:        {OrderStatusDelivered},
		OrderStatusDelivered:      {},
		OrderStatusCancelled:      {},
	}
}

// CanTransitionTo checks if the order can transition to the target status.
func (o *Order) CanTransitionTo(target string) bool {
	for _, s := range AllowedTransitions()[o.Status] {
		if s == target {
			return true
		}
	}
	return false
}

// OrderFilter narrows the back-office and shopper order listings.
type OrderFilter struct {
	UserID string
	Status string
	Offset int
	Limit  int
}

// DashboardStats summarises the store for the back-office landing page.
type DashboardStats struct {
	Products     int   `json:"products"`
	Categories   int   `json:"categories"`
	Orders       int   `json:"orders"`
	OrdersToday  int   `json:"orders_today"`
	RevenueToday int64 `json:"revenue_today"`
}
