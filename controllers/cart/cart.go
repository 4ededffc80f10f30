package cartControllers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/crownnishant/foodies-api/models"
)

var (
	ErrCartNotFound = errors.New("cart not found")
	ErrInvalidItems = errors.New("invalid cart items")
)

// CartRequest mirrors the frontend store context: food-id (stringified) -> quantity.
type CartRequest struct {
	Items map[string]int `json:"items"`
}

// parseItems validates the whole request up front so a bad entry rejects the
// call before anything is written (no partial merges).
func parseItems(items map[string]int, dropNonPositive bool) (map[uint]int, error) {
	parsed := make(map[uint]int, len(items))
	for key, qty := range items {
		foodID, err := strconv.ParseUint(key, 10, 64)
		if err != nil {
			return nil, ErrInvalidItems
		}
		if qty <= 0 {
			if dropNonPositive {
				continue
			}
			return nil, ErrInvalidItems
		}
		parsed[uint(foodID)] = qty
	}
	return parsed, nil
}

// withRowLock adds FOR UPDATE on dialects that support it. sqlite (used in
// tests) is single-writer and rejects the clause.
func withRowLock(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// loadCartLocked fetches the user's cart row with a row lock, creating it when
// createMissing is set. Must run inside a transaction.
func loadCartLocked(tx *gorm.DB, userID string, createMissing bool) (*models.Cart, error) {
	var cart models.Cart
	err := withRowLock(tx).
		Where("user_id = ?", userID).
		First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if !createMissing {
			return nil, ErrCartNotFound
		}
		cart = models.Cart{UserID: userID}
		if err := tx.Create(&cart).Error; err != nil {
			return nil, err
		}
		return &cart, nil
	}
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// GetCart returns the user's cart contents. A missing cart reads as empty and
// is not persisted.
func GetCart(db *gorm.DB, userID string) (*models.Cart, error) {
	var cart models.Cart
	err := db.Preload("Items").Where("user_id = ?", userID).First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.Cart{UserID: userID, Items: []models.CartItem{}}, nil
	}
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// AddToCart merges the given quantities into the stored cart: each entry
// increments the stored quantity, creating rows as needed. The whole batch is
// validated first and applied in one locked transaction, so concurrent adds
// cannot lose updates and a bad entry rejects the entire call.
func AddToCart(db *gorm.DB, userID string, items map[string]int) (*models.Cart, error) {
	parsed, err := parseItems(items, false)
	if err != nil {
		return nil, err
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		cart, err := loadCartLocked(tx, userID, true)
		if err != nil {
			return err
		}
		for foodID, qty := range parsed {
			var item models.CartItem
			err := tx.Where("cart_id = ? AND food_id = ?", cart.CartID, foodID).First(&item).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				item = models.CartItem{
					CartID:   cart.CartID,
					FoodID:   foodID,
					Quantity: qty,
					AddedAt:  time.Now(),
				}
				if err := tx.Create(&item).Error; err != nil {
					return err
				}
			case err != nil:
				return err
			default:
				item.Quantity += qty
				item.AddedAt = time.Now()
				if err := tx.Save(&item).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return GetCart(db, userID)
}

// ReplaceCart overwrites the stored cart with exactly the given set. Entries
// with quantity <= 0 are dropped rather than stored; this is a full overwrite,
// not a merge.
func ReplaceCart(db *gorm.DB, userID string, items map[string]int) (*models.Cart, error) {
	parsed, err := parseItems(items, true)
	if err != nil {
		return nil, err
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		cart, err := loadCartLocked(tx, userID, true)
		if err != nil {
			return err
		}
		if err := tx.Where("cart_id = ?", cart.CartID).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		for foodID, qty := range parsed {
			item := models.CartItem{
				CartID:   cart.CartID,
				FoodID:   foodID,
				Quantity: qty,
				AddedAt:  time.Now(),
			}
			if err := tx.Create(&item).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return GetCart(db, userID)
}

// DecrementOne reduces the quantity for foodID by exactly 1, removing the row
// when it reaches zero. A missing item is a no-op; a missing cart is an error.
func DecrementOne(db *gorm.DB, userID string, foodID uint) (*models.Cart, error) {
	err := db.Transaction(func(tx *gorm.DB) error {
		cart, err := loadCartLocked(tx, userID, false)
		if err != nil {
			return err
		}
		var item models.CartItem
		err = tx.Where("cart_id = ? AND food_id = ?", cart.CartID, foodID).First(&item).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil // item not in cart, current state is the answer
		}
		if err != nil {
			return err
		}
		if item.Quantity > 1 {
			item.Quantity--
			return tx.Save(&item).Error
		}
		return tx.Delete(&item).Error
	})
	if err != nil {
		return nil, err
	}
	return GetCart(db, userID)
}

// RemoveItem deletes the entry for foodID entirely regardless of quantity.
func RemoveItem(db *gorm.DB, userID string, foodID uint) (*models.Cart, error) {
	err := db.Transaction(func(tx *gorm.DB) error {
		cart, err := loadCartLocked(tx, userID, false)
		if err != nil {
			return err
		}
		return tx.Where("cart_id = ? AND food_id = ?", cart.CartID, foodID).
			Delete(&models.CartItem{}).Error
	})
	if err != nil {
		return nil, err
	}
	return GetCart(db, userID)
}

// ClearCart deletes the user's cart row and all its items. Clearing a cart
// that does not exist succeeds silently.
func ClearCart(db *gorm.DB, userID string) error {
	return ClearCartTx(db, userID)
}

// ClearCartTx is the transaction-friendly form used by payment verification so
// the cart wipe commits or rolls back together with the order update.
func ClearCartTx(tx *gorm.DB, userID string) error {
	var cart models.Cart
	err := tx.Where("user_id = ?", userID).First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := tx.Where("cart_id = ?", cart.CartID).Delete(&models.CartItem{}).Error; err != nil {
		return err
	}
	return tx.Delete(&cart).Error
}

// MergeCarts folds the guest cart into the signed-in user's cart (quantities
// add up) and deletes the guest cart. Used once at login.
func MergeCarts(db *gorm.DB, guestID, userID string) error {
	guestCart, err := GetCart(db, guestID)
	if err != nil {
		return err
	}
	if len(guestCart.Items) == 0 {
		return nil
	}
	items := make(map[string]int, len(guestCart.Items))
	for _, it := range guestCart.Items {
		items[strconv.FormatUint(uint64(it.FoodID), 10)] = it.Quantity
	}
	if _, err := AddToCart(db, userID, items); err != nil {
		return err
	}
	return ClearCart(db, guestID)
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

func respondCart(c *gin.Context, cart *models.Cart) {
	c.JSON(http.StatusOK, gin.H{
		"id":      cart.CartID,
		"user_id": cart.UserID,
		"items":   cart.ItemMap(),
	})
}

// GET /cart
func GetCartHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		cart, err := GetCart(db, userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch cart"})
			return
		}
		respondCart(c, cart)
	}
}

// POST /cart  (merge/increment only the provided entries)
func AddToCartHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		var req CartRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}
		cart, err := AddToCart(db, userID, req.Items)
		if err != nil {
			if errors.Is(err, ErrInvalidItems) {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update cart"})
			return
		}
		respondCart(c, cart)
	}
}

// PUT /cart  (replace stored cart with exactly what the client sends)
func ReplaceCartHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		var req CartRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}
		cart, err := ReplaceCart(db, userID, req.Items)
		if err != nil {
			if errors.Is(err, ErrInvalidItems) {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save cart"})
			return
		}
		respondCart(c, cart)
	}
}

func parseFoodIDParam(c *gin.Context) (uint, bool) {
	foodID, err := strconv.ParseUint(c.Param("food_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "food_id must be numeric"})
		return 0, false
	}
	return uint(foodID), true
}

// POST /cart/decrement/:food_id
func DecrementOneHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		foodID, ok := parseFoodIDParam(c)
		if !ok {
			return
		}
		cart, err := DecrementOne(db, userID, foodID)
		if err != nil {
			if errors.Is(err, ErrCartNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update cart"})
			return
		}
		respondCart(c, cart)
	}
}

// DELETE /cart/items/:food_id
func RemoveItemHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		foodID, ok := parseFoodIDParam(c)
		if !ok {
			return
		}
		cart, err := RemoveItem(db, userID, foodID)
		if err != nil {
			if errors.Is(err, ErrCartNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update cart"})
			return
		}
		respondCart(c, cart)
	}
}

// DELETE /cart
func ClearCartHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		if err := ClearCart(db, userID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear cart"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Cart cleared"})
	}
}
