package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	paymentControllers "github.com/crownnishant/foodies-api/controllers/payment"
)

// SetupRoutes is the single entry-point that wires up Auth, Cart, Order, and
// Admin route groups.
func SetupRoutes(r *gin.Engine, db *gorm.DB, gw paymentControllers.Gateway) {
	// Public auth routes (no middleware)
	SetupAuthRoutes(r, db)

	// Cart + profile routes (JWT-protected)
	SetupUserRoutes(r, db)

	// Order + payment callback routes
	SetupOrderRoutes(r, db, gw)

	// Admin routes (API-key-protected)
	SetupAdminRoutes(r, db)
}
