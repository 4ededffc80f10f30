package orderControllers

import (
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	cartControllers "github.com/crownnishant/foodies-api/controllers/cart"
	paymentControllers "github.com/crownnishant/foodies-api/controllers/payment"
	"github.com/crownnishant/foodies-api/models"
)

const testSecret = "s3cret"

var testDBSeq atomic.Int64

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:order_test_%d?mode=memory&cache=shared", testDBSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.Cart{}, &models.CartItem{},
		&models.Order{}, &models.OrderItem{},
	))
	return db
}

// fakeGateway counts calls and can be told to fail.
type fakeGateway struct {
	calls    int
	lastCall struct {
		amountPaise int64
		currency    string
		receipt     string
		notes       map[string]string
	}
	fail bool
}

func (f *fakeGateway) CreateOrder(amountPaise int64, currency, receipt string, notes map[string]string) (string, error) {
	f.calls++
	f.lastCall.amountPaise = amountPaise
	f.lastCall.currency = currency
	f.lastCall.receipt = receipt
	f.lastCall.notes = notes
	if f.fail {
		return "", errors.New("gateway unavailable")
	}
	return fmt.Sprintf("order_rzp_%d", f.calls), nil
}

func placeOrder(t *testing.T, db *gorm.DB, gw paymentControllers.Gateway, userID string) *OrderResponse {
	t.Helper()
	resp, err := CreateOrderWithPayment(db, gw, userID, PlaceOrderRequest{
		UserAddress: "221B Baker Street",
		PhoneNumber: "9999999999",
		Email:       "user@example.com",
		OrderItems: []OrderItemInput{
			{FoodID: 1, Name: "Paneer Tikka", Category: "Starters", Price: 250.00, Quantity: 1},
			{FoodID: 2, Name: "Biryani", Category: "Mains", Price: 400.00, Quantity: 2},
		},
	})
	require.NoError(t, err)
	return resp
}

func TestCreateOrderWithPayment(t *testing.T) {
	db := newTestDB(t)
	gw := &fakeGateway{}

	resp := placeOrder(t, db, gw, "u1")

	// subtotal 650 + shipping 10 + tax 65 = 725
	assert.Equal(t, 725.00, resp.Amount)
	assert.Equal(t, int64(72500), resp.AmountInPaise)
	assert.Equal(t, "INR", resp.Currency)
	assert.Equal(t, string(models.PaymentStatusCreated), resp.PaymentStatus)
	assert.Equal(t, "order_rzp_1", resp.RazorpayOrderID)

	assert.Equal(t, int64(72500), gw.lastCall.amountPaise, "gateway gets integer paise")
	assert.Equal(t, "ord_", gw.lastCall.receipt[:4])
	assert.LessOrEqual(t, len(gw.lastCall.receipt), 40)
	assert.Equal(t, resp.ID, gw.lastCall.notes["db_order_id"])
}

func TestCreateOrderWithPayment_RejectsEmptyOrder(t *testing.T) {
	db := newTestDB(t)
	gw := &fakeGateway{}

	_, err := CreateOrderWithPayment(db, gw, "u1", PlaceOrderRequest{
		UserAddress: "a", PhoneNumber: "p", Email: "e@example.com",
	})
	assert.ErrorIs(t, err, ErrAmountNotPositive)
	assert.Zero(t, gw.calls, "no payment intent for a zero total")

	var count int64
	require.NoError(t, db.Model(&models.Order{}).Count(&count).Error)
	assert.Zero(t, count, "no order row either")
}

func TestCreateOrderWithPayment_GatewayFailureLeavesCreatedOrder(t *testing.T) {
	db := newTestDB(t)
	gw := &fakeGateway{fail: true}

	_, err := CreateOrderWithPayment(db, gw, "u1", PlaceOrderRequest{
		UserAddress: "a", PhoneNumber: "p", Email: "e@example.com",
		OrderItems: []OrderItemInput{{FoodID: 1, Name: "x", Price: 100.00, Quantity: 1}},
	})
	assert.ErrorIs(t, err, ErrGateway)

	var order models.Order
	require.NoError(t, db.First(&order).Error)
	assert.Equal(t, models.PaymentStatusCreated, order.PaymentStatus)
	assert.Empty(t, order.RazorpayOrderID, "no gateway reference was assigned")
}

func TestOrderRoundTrip_AmountAndItemsStable(t *testing.T) {
	db := newTestDB(t)
	resp := placeOrder(t, db, &fakeGateway{}, "u1")

	orders, err := GetUserOrders(db, "u1")
	require.NoError(t, err)
	require.Len(t, orders, 1)

	got := orders[0]
	assert.Equal(t, resp.Amount, got.Amount, "amount is never recomputed on fetch")
	require.Len(t, got.OrderedItems, 2)
	assert.Equal(t, "Paneer Tikka", got.OrderedItems[0].Name)
	assert.Equal(t, 250.00, got.OrderedItems[0].Price)
	assert.Equal(t, "Biryani", got.OrderedItems[1].Name)
	assert.Equal(t, 2, got.OrderedItems[1].Quantity)
}

func TestVerifyPayment_ValidSignature(t *testing.T) {
	db := newTestDB(t)
	resp := placeOrder(t, db, &fakeGateway{}, "u1")

	_, err := cartControllers.AddToCart(db, "u1", map[string]int{"1": 1, "2": 2})
	require.NoError(t, err)

	sig := paymentControllers.SignPayload(resp.RazorpayOrderID, "pay_1", testSecret)
	err = VerifyPayment(db, testSecret, PaymentCallback{
		RazorpayOrderID:   resp.RazorpayOrderID,
		RazorpayPaymentID: "pay_1",
		RazorpaySignature: sig,
	})
	require.NoError(t, err)

	var order models.Order
	require.NoError(t, db.First(&order, "id = ?", resp.ID).Error)
	assert.Equal(t, models.PaymentStatusPaid, order.PaymentStatus)
	assert.Equal(t, "pay_1", order.RazorpayPaymentID)
	assert.Equal(t, sig, order.RazorpaySignature)

	cart, err := cartControllers.GetCart(db, "u1")
	require.NoError(t, err)
	assert.Empty(t, cart.Items, "owning user's cart is cleared on successful payment")
}

func TestVerifyPayment_InvalidSignatureRecordsFailed(t *testing.T) {
	db := newTestDB(t)
	resp := placeOrder(t, db, &fakeGateway{}, "u1")

	_, err := cartControllers.AddToCart(db, "u1", map[string]int{"1": 1})
	require.NoError(t, err)

	sig := paymentControllers.SignPayload(resp.RazorpayOrderID, "pay_1", testSecret)
	tampered := sig[:len(sig)-1]
	if sig[len(sig)-1] == '0' {
		tampered += "1"
	} else {
		tampered += "0"
	}

	err = VerifyPayment(db, testSecret, PaymentCallback{
		RazorpayOrderID:   resp.RazorpayOrderID,
		RazorpayPaymentID: "pay_1",
		RazorpaySignature: tampered,
	})
	assert.ErrorIs(t, err, ErrInvalidSignature)

	// The failure is recorded, not silently dropped.
	var order models.Order
	require.NoError(t, db.First(&order, "id = ?", resp.ID).Error)
	assert.Equal(t, models.PaymentStatusFailed, order.PaymentStatus)

	cart, err := cartControllers.GetCart(db, "u1")
	require.NoError(t, err)
	assert.Len(t, cart.Items, 1, "cart untouched on failed verification")
}

func TestVerifyPayment_FailedOrderCanStillBePaid(t *testing.T) {
	db := newTestDB(t)
	resp := placeOrder(t, db, &fakeGateway{}, "u1")

	err := VerifyPayment(db, testSecret, PaymentCallback{
		RazorpayOrderID:   resp.RazorpayOrderID,
		RazorpayPaymentID: "pay_1",
		RazorpaySignature: "bogus",
	})
	assert.ErrorIs(t, err, ErrInvalidSignature)

	sig := paymentControllers.SignPayload(resp.RazorpayOrderID, "pay_2", testSecret)
	err = VerifyPayment(db, testSecret, PaymentCallback{
		RazorpayOrderID:   resp.RazorpayOrderID,
		RazorpayPaymentID: "pay_2",
		RazorpaySignature: sig,
	})
	require.NoError(t, err, "failed -> paid is an allowed transition")
}

func TestVerifyPayment_UnknownReference(t *testing.T) {
	db := newTestDB(t)

	err := VerifyPayment(db, testSecret, PaymentCallback{
		RazorpayOrderID:   "order_missing",
		RazorpayPaymentID: "pay_1",
		RazorpaySignature: "sig",
	})
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestVerifyPayment_ReplayIsConflictWithoutSideEffects(t *testing.T) {
	db := newTestDB(t)
	resp := placeOrder(t, db, &fakeGateway{}, "u1")

	sig := paymentControllers.SignPayload(resp.RazorpayOrderID, "pay_1", testSecret)
	cb := PaymentCallback{
		RazorpayOrderID:   resp.RazorpayOrderID,
		RazorpayPaymentID: "pay_1",
		RazorpaySignature: sig,
	}
	require.NoError(t, VerifyPayment(db, testSecret, cb))

	// Cart filled again after payment; a replayed callback must not wipe it.
	_, err := cartControllers.AddToCart(db, "u1", map[string]int{"3": 1})
	require.NoError(t, err)

	err = VerifyPayment(db, testSecret, cb)
	assert.ErrorIs(t, err, ErrAlreadyPaid)

	cart, err := cartControllers.GetCart(db, "u1")
	require.NoError(t, err)
	assert.Len(t, cart.Items, 1, "replay performed no side effects")
}

func TestUpdateOrderStatus(t *testing.T) {
	db := newTestDB(t)
	resp := placeOrder(t, db, &fakeGateway{}, "u1")

	require.NoError(t, UpdateOrderStatus(db, resp.ID, "preparing"))

	var order models.Order
	require.NoError(t, db.First(&order, "id = ?", resp.ID).Error)
	assert.Equal(t, models.OrderStatusPreparing, order.OrderStatus)
	assert.Equal(t, models.PaymentStatusCreated, order.PaymentStatus, "payment axis untouched")

	assert.ErrorIs(t, UpdateOrderStatus(db, resp.ID, "teleported"), ErrInvalidStatus)
	assert.ErrorIs(t, UpdateOrderStatus(db, "nope", "preparing"), ErrOrderNotFound)
}

func TestDeleteOrder(t *testing.T) {
	db := newTestDB(t)
	resp := placeOrder(t, db, &fakeGateway{}, "u1")

	require.NoError(t, DeleteOrder(db, resp.ID))

	userOrders, err := GetUserOrders(db, "u1")
	require.NoError(t, err)
	assert.Empty(t, userOrders)

	allOrders, err := GetAllOrders(db)
	require.NoError(t, err)
	assert.Empty(t, allOrders, "gone from the admin list too")

	var items int64
	require.NoError(t, db.Model(&models.OrderItem{}).Count(&items).Error)
	assert.Zero(t, items)
}

func TestDeleteOrder_RefusesPaidOrders(t *testing.T) {
	db := newTestDB(t)
	resp := placeOrder(t, db, &fakeGateway{}, "u1")

	sig := paymentControllers.SignPayload(resp.RazorpayOrderID, "pay_1", testSecret)
	require.NoError(t, VerifyPayment(db, testSecret, PaymentCallback{
		RazorpayOrderID:   resp.RazorpayOrderID,
		RazorpayPaymentID: "pay_1",
		RazorpaySignature: sig,
	}))

	assert.ErrorIs(t, DeleteOrder(db, resp.ID), ErrAlreadyPaid)

	orders, err := GetUserOrders(db, "u1")
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

func TestGetUserOrders_ScopedToUser(t *testing.T) {
	db := newTestDB(t)
	gw := &fakeGateway{}
	placeOrder(t, db, gw, "u1")
	placeOrder(t, db, gw, "u2")

	orders, err := GetUserOrders(db, "u1")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "u1", orders[0].UserID)

	all, err := GetAllOrders(db)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
