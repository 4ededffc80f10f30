package orderControllers

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	cartControllers "github.com/crownnishant/foodies-api/controllers/cart"
	paymentControllers "github.com/crownnishant/foodies-api/controllers/payment"
	"github.com/crownnishant/foodies-api/models"
)

var (
	ErrAmountNotPositive = errors.New("order amount must be > 0")
	ErrOrderNotFound     = errors.New("order not found")
	ErrInvalidSignature  = errors.New("invalid payment signature")
	ErrAlreadyPaid       = errors.New("order already paid")
	ErrInvalidStatus     = errors.New("invalid order status")
	ErrGateway           = errors.New("payment gateway failure")
)

const currencyINR = "INR"

// withRowLock adds FOR UPDATE on dialects that support it. sqlite (used in
// tests) is single-writer and rejects the clause.
func withRowLock(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// -------- Request/Response Structs --------

type OrderItemInput struct {
	FoodID      uint    `json:"food_id"`
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	ImageURL    string  `json:"image_url"`
	Description string  `json:"description"`
	Price       float64 `json:"price"` // line total (unit price x quantity), as shown in the UI
	Quantity    int     `json:"quantity"`
}

type PlaceOrderRequest struct {
	UserAddress string           `json:"user_address" binding:"required"`
	PhoneNumber string           `json:"phone_number" binding:"required"`
	Email       string           `json:"email" binding:"required,email"`
	OrderItems  []OrderItemInput `json:"order_items"`
	OrderStatus string           `json:"order_status"`
	// Any client-sent amount is ignored; the total is recomputed server-side.
}

type PaymentCallback struct {
	RazorpayOrderID   string `json:"razorpay_order_id" form:"razorpay_order_id" binding:"required"`
	RazorpayPaymentID string `json:"razorpay_payment_id" form:"razorpay_payment_id" binding:"required"`
	RazorpaySignature string `json:"razorpay_signature" form:"razorpay_signature" binding:"required"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type OrderResponse struct {
	ID                string             `json:"id"`
	UserID            string             `json:"user_id"`
	UserAddress       string             `json:"user_address"`
	PhoneNumber       string             `json:"phone_number"`
	Email             string             `json:"email"`
	Amount            float64            `json:"amount"` // rupees for display
	AmountInPaise     int64              `json:"amount_in_paise,omitempty"`
	Currency          string             `json:"currency,omitempty"`
	PaymentStatus     string             `json:"payment_status"`
	RazorpayOrderID   string             `json:"razorpay_order_id"`
	RazorpayPaymentID string             `json:"razorpay_payment_id"`
	OrderStatus       string             `json:"order_status"`
	OrderedItems      []models.OrderItem `json:"ordered_items"`
	CreatedAt         time.Time          `json:"created_at"`
}

func toResponse(order *models.Order, amountInPaise int64, currency string) OrderResponse {
	return OrderResponse{
		ID:                order.ID,
		UserID:            order.UserID,
		UserAddress:       order.UserAddress,
		PhoneNumber:       order.PhoneNumber,
		Email:             order.Email,
		Amount:            order.Amount,
		AmountInPaise:     amountInPaise, // zero for history endpoints
		Currency:          currency,
		PaymentStatus:     string(order.PaymentStatus),
		RazorpayOrderID:   order.RazorpayOrderID,
		RazorpayPaymentID: order.RazorpayPaymentID,
		OrderStatus:       string(order.OrderStatus),
		OrderedItems:      order.Items,
		CreatedAt:         order.CreatedAt,
	}
}

// -------- Core Logic --------

// CreateOrderWithPayment recomputes the total, persists the order in status
// "created", then asks the gateway for a payment intent and stores its
// reference id. If the gateway call fails the order row stays "created" with
// no reference; retrying creates a fresh order.
func CreateOrderWithPayment(db *gorm.DB, gw paymentControllers.Gateway, userID string, req PlaceOrderRequest) (*OrderResponse, error) {
	items := make([]models.OrderItem, 0, len(req.OrderItems))
	for _, in := range req.OrderItems {
		items = append(items, models.OrderItem{
			FoodID:      in.FoodID,
			Name:        in.Name,
			Category:    in.Category,
			ImageURL:    in.ImageURL,
			Description: in.Description,
			Price:       in.Price,
			Quantity:    in.Quantity,
		})
	}

	total := ComputeTotal(items)
	if !total.IsPositive() {
		return nil, ErrAmountNotPositive
	}
	amountInPaise := ToPaise(total)

	status := models.OrderStatusPlaced
	if req.OrderStatus != "" {
		status = models.OrderStatus(req.OrderStatus)
		if !models.ValidOrderStatus(status) {
			return nil, ErrInvalidStatus
		}
	}

	order := models.Order{
		ID:            uuid.NewString(),
		UserID:        userID,
		UserAddress:   req.UserAddress,
		PhoneNumber:   req.PhoneNumber,
		Email:         req.Email,
		Items:         items,
		Amount:        total.InexactFloat64(), // rupees for display
		PaymentStatus: models.PaymentStatusCreated,
		OrderStatus:   status,
		CreatedAt:     time.Now(),
	}
	if err := db.Create(&order).Error; err != nil {
		return nil, err
	}

	razorpayOrderID, err := gw.CreateOrder(amountInPaise, currencyINR, BuildReceipt(order.ID), map[string]string{
		"db_order_id": order.ID,
		"user_id":     userID,
	})
	if err != nil {
		// Order stays "created" with no gateway reference; reachable and
		// non-corrupting, the caller may retry with a new order.
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}

	if err := db.Model(&order).Update("razorpay_order_id", razorpayOrderID).Error; err != nil {
		return nil, err
	}
	order.RazorpayOrderID = razorpayOrderID

	broadcastOrderEvent("order_created", &order)

	resp := toResponse(&order, amountInPaise, currencyINR)
	return &resp, nil
}

// VerifyPayment checks the gateway callback signature against the stored
// order. A mismatch records "failed" before the error is returned. A match
// transitions created/failed -> paid and clears the owning user's cart in the
// same transaction. An order that is already paid is never reprocessed.
func VerifyPayment(db *gorm.DB, secret string, cb PaymentCallback) error {
	var order models.Order
	err := db.Where("razorpay_order_id = ?", cb.RazorpayOrderID).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: razorpay order %s", ErrOrderNotFound, cb.RazorpayOrderID)
	}
	if err != nil {
		return err
	}
	if order.PaymentStatus == models.PaymentStatusPaid {
		return ErrAlreadyPaid
	}

	expected := paymentControllers.SignPayload(cb.RazorpayOrderID, cb.RazorpayPaymentID, secret)
	if expected != cb.RazorpaySignature {
		// The failure must be recorded even though the call errors, so this
		// write commits on its own, outside any rolled-back transaction.
		if err := db.Model(&order).Update("payment_status", models.PaymentStatusFailed).Error; err != nil {
			return err
		}
		order.PaymentStatus = models.PaymentStatusFailed
		broadcastOrderEvent("payment_failed", &order)
		return ErrInvalidSignature
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		var locked models.Order
		if err := withRowLock(tx).
			Where("id = ?", order.ID).
			First(&locked).Error; err != nil {
			return err
		}
		// Compare-and-set: only the first verification may perform the paid
		// transition and its cart-clearing side effect.
		if locked.PaymentStatus == models.PaymentStatusPaid {
			return ErrAlreadyPaid
		}
		updates := map[string]interface{}{
			"payment_status":      models.PaymentStatusPaid,
			"razorpay_payment_id": cb.RazorpayPaymentID,
			"razorpay_signature":  cb.RazorpaySignature,
		}
		if err := tx.Model(&locked).Updates(updates).Error; err != nil {
			return err
		}
		// Cart clearing keys off the order's owner, not the caller: gateway
		// callbacks carry no session.
		return cartControllers.ClearCartTx(tx, locked.UserID)
	})
	if err != nil {
		return err
	}

	order.PaymentStatus = models.PaymentStatusPaid
	order.RazorpayPaymentID = cb.RazorpayPaymentID
	broadcastOrderEvent("payment_verified", &order)
	return nil
}

// GetUserOrders lists one user's orders, newest first.
func GetUserOrders(db *gorm.DB, userID string) ([]OrderResponse, error) {
	var orders []models.Order
	if err := db.
		Where("user_id = ?", userID).
		Preload("Items").
		Order("created_at DESC").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	out := make([]OrderResponse, 0, len(orders))
	for i := range orders {
		out = append(out, toResponse(&orders[i], 0, ""))
	}
	return out, nil
}

// GetAllOrders lists every order for the admin panel, newest first.
func GetAllOrders(db *gorm.DB) ([]OrderResponse, error) {
	var orders []models.Order
	if err := db.
		Preload("Items").
		Order("created_at DESC").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	out := make([]OrderResponse, 0, len(orders))
	for i := range orders {
		out = append(out, toResponse(&orders[i], 0, ""))
	}
	return out, nil
}

// UpdateOrderStatus overwrites the fulfillment status. Payment status is a
// separate axis and is never touched here.
func UpdateOrderStatus(db *gorm.DB, orderID, status string) error {
	newStatus := models.OrderStatus(status)
	if !models.ValidOrderStatus(newStatus) {
		return ErrInvalidStatus
	}

	var order models.Order
	err := db.Where("id = ?", orderID).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	if err != nil {
		return err
	}

	if err := db.Model(&order).Update("order_status", newStatus).Error; err != nil {
		return err
	}
	order.OrderStatus = newStatus
	broadcastOrderEvent("status_updated", &order)
	return nil
}

// DeleteOrder removes an order and its items. Orders referenced by a
// successful payment cannot be deleted.
func DeleteOrder(db *gorm.DB, orderID string) error {
	var order models.Order
	err := db.Where("id = ?", orderID).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	if err != nil {
		return err
	}
	if order.PaymentStatus == models.PaymentStatusPaid {
		return ErrAlreadyPaid
	}

	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", orderID).Delete(&models.OrderItem{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", orderID).Delete(&models.Order{}).Error
	})
}

// -------- Handlers --------

func currentUserID(c *gin.Context) (string, bool) {
	userIDVal, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return "", false
	}
	userID, ok := userIDVal.(string)
	if !ok || userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return "", false
	}
	return userID, true
}

// POST /orders
func PlaceOrderHandler(db *gorm.DB, gw paymentControllers.Gateway) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		var req PlaceOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		resp, err := CreateOrderWithPayment(db, gw, userID, req)
		if err != nil {
			switch {
			case errors.Is(err, ErrAmountNotPositive), errors.Is(err, ErrInvalidStatus):
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			case errors.Is(err, ErrGateway):
				c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create order"})
			}
			return
		}
		c.JSON(http.StatusCreated, resp)
	}
}

// POST /payment/verify
func VerifyPaymentHandler(db *gorm.DB) gin.HandlerFunc {
	secret := os.Getenv("RAZORPAY_KEY_SECRET")
	return func(c *gin.Context) {
		var cb PaymentCallback
		if err := c.ShouldBind(&cb); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := VerifyPayment(db, secret, cb); err != nil {
			switch {
			case errors.Is(err, ErrOrderNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			case errors.Is(err, ErrInvalidSignature):
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			case errors.Is(err, ErrAlreadyPaid):
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify payment"})
			}
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Payment verified"})
	}
}

// GET /orders
func GetUserOrdersHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		orders, err := GetUserOrders(db, userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, orders)
	}
}

// GET /admin/orders
func GetAllOrdersHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		orders, err := GetAllOrders(db)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, orders)
	}
}

// PATCH /admin/orders/:orderID/status
func UpdateOrderStatusHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID := c.Param("orderID")
		var req UpdateOrderStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			// Admin panel sends the status as a query param on PATCH.
			req.Status = c.Query("status")
		}
		if req.Status == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "status is required"})
			return
		}
		if err := UpdateOrderStatus(db, orderID, req.Status); err != nil {
			switch {
			case errors.Is(err, ErrInvalidStatus):
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			case errors.Is(err, ErrOrderNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update order status"})
			}
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Order status updated"})
	}
}

// DELETE /orders/:orderID
func DeleteOrderHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID := c.Param("orderID")
		if err := DeleteOrder(db, orderID); err != nil {
			switch {
			case errors.Is(err, ErrOrderNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			case errors.Is(err, ErrAlreadyPaid):
				c.JSON(http.StatusConflict, gin.H{"error": "paid orders cannot be deleted"})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete order"})
			}
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Order deleted"})
	}
}
