package models

import (
	"strconv"
	"time"
)

type Cart struct {
	CartID    uint       `gorm:"primaryKey" json:"cart_id"`
	UserID    string     `gorm:"uniqueIndex" json:"user_id"`                                 // Enforces ONE cart per user
	Items     []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE" json:"items"` // Cascade delete items if cart is deleted
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// CartItem holds one food id with its quantity. Quantity is always > 0;
// a decrement that reaches zero deletes the row instead of storing it.
type CartItem struct {
	ID       uint      `gorm:"primaryKey" json:"-"`
	CartID   uint      `gorm:"index:idx_cart_food,unique" json:"-"`
	FoodID   uint      `gorm:"index:idx_cart_food,unique" json:"food_id"`
	Quantity int       `json:"quantity"`
	AddedAt  time.Time `json:"added_at"`
}

// ItemMap flattens the cart rows into the food-id -> quantity view the
// frontend keeps in its store context.
func (c *Cart) ItemMap() map[string]int {
	out := make(map[string]int, len(c.Items))
	for _, it := range c.Items {
		out[strconv.FormatUint(uint64(it.FoodID), 10)] = it.Quantity
	}
	return out
}
