package orderControllers

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/crownnishant/foodies-api/models"
)

// Match the UI calculation: shipping ₹10 flat (if subtotal > 0), tax = 10% of subtotal.
var (
	shippingFlat = decimal.NewFromFloat(10.00)
	taxRate      = decimal.NewFromFloat(0.10)
)

// ComputeTotal recomputes the grand total from the submitted line items. Each
// item's Price is already quantity-expanded (unit price x quantity), so the
// subtotal is a plain sum. Client-sent totals are never trusted.
func ComputeTotal(items []models.OrderItem) decimal.Decimal {
	if len(items) == 0 {
		return decimal.Zero.Round(2)
	}

	subtotal := decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(decimal.NewFromFloat(it.Price))
	}
	subtotal = subtotal.Round(2)

	shipping := decimal.Zero
	if subtotal.IsPositive() {
		shipping = shippingFlat
	}

	tax := subtotal.Mul(taxRate).Round(2)

	return subtotal.Add(shipping).Add(tax).Round(2)
}

// ToPaise converts a rupee amount to integer paise for the gateway.
func ToPaise(rupees decimal.Decimal) int64 {
	return rupees.Shift(2).Round(0).IntPart()
}

// BuildReceipt derives a Razorpay receipt id from the order id: alphanumerics
// only, "ord_" prefix, at most 40 characters total.
func BuildReceipt(orderID string) string {
	const prefix = "ord_"
	var b strings.Builder
	for _, r := range orderID {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	clean := b.String()
	if max := 40 - len(prefix); len(clean) > max {
		clean = clean[:max]
	}
	return prefix + clean
}
