package models

import "time"

type OrderStatus string
type PaymentStatus string

const (
	// Fulfillment statuses (kitchen -> doorstep flow)
	OrderStatusPlaced         OrderStatus = "placed"           // Order received, not started yet
	OrderStatusPreparing      OrderStatus = "preparing"        // Kitchen is working on it
	OrderStatusOutForDelivery OrderStatus = "out_for_delivery" // Handed to the rider
	OrderStatusDelivered      OrderStatus = "delivered"        // Customer received the order
	OrderStatusCancelled      OrderStatus = "cancelled"        // Cancelled before delivery

	// Payment statuses
	PaymentStatusCreated PaymentStatus = "created" // Order persisted, payment not completed yet
	PaymentStatusPaid    PaymentStatus = "paid"    // Gateway callback verified successfully
	PaymentStatusFailed  PaymentStatus = "failed"  // Verification failed or payment declined
)

type Order struct {
	ID                string        `gorm:"primaryKey" json:"id"`
	UserID            string        `gorm:"not null;index" json:"user_id"`
	UserAddress       string        `json:"user_address"`
	PhoneNumber       string        `json:"phone_number"`
	Email             string        `json:"email"`
	Items             []OrderItem   `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"ordered_items"`
	Amount            float64       `json:"amount"` // rupees, server-computed at creation, never recomputed
	PaymentStatus     PaymentStatus `gorm:"type:VARCHAR(20);default:'created'" json:"payment_status"`
	OrderStatus       OrderStatus   `gorm:"type:VARCHAR(20);default:'placed'" json:"order_status"`
	RazorpayOrderID   string        `gorm:"uniqueIndex:idx_orders_rzp,where:razorpay_order_id <> ''" json:"razorpay_order_id"`
	RazorpayPaymentID string        `json:"razorpay_payment_id"`
	RazorpaySignature string        `json:"-"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"-"`
}

// OrderItem snapshots the food at order time so history survives catalog edits.
type OrderItem struct {
	ID          uint    `gorm:"primaryKey" json:"-"`
	OrderID     string  `gorm:"index" json:"-"`
	FoodID      uint    `json:"food_id"`
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	ImageURL    string  `json:"image_url"`
	Description string  `json:"description"`
	Price       float64 `json:"price"` // line total as submitted (unit price x quantity)
	Quantity    int     `json:"quantity"`
}

// ValidOrderStatus reports whether s is one of the fulfillment statuses.
func ValidOrderStatus(s OrderStatus) bool {
	switch s {
	case OrderStatusPlaced, OrderStatusPreparing, OrderStatusOutForDelivery,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}
