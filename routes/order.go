package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	orderControllers "github.com/crownnishant/foodies-api/controllers/order"
	paymentControllers "github.com/crownnishant/foodies-api/controllers/payment"
	"github.com/crownnishant/foodies-api/middleware"
)

func SetupOrderRoutes(r *gin.Engine, db *gorm.DB, gw paymentControllers.Gateway) {
	orders := r.Group("/orders", middleware.ValidateToken)
	{
		// Create a new order and its payment intent
		orders.POST("", orderControllers.PlaceOrderHandler(db, gw))

		// Fetch the signed-in user's orders
		orders.GET("", orderControllers.GetUserOrdersHandler(db))

		// Cancel an unpaid order
		orders.DELETE("/:orderID", orderControllers.DeleteOrderHandler(db))
	}

	// Gateway callback carries no session, so it sits outside the JWT group.
	payment := r.Group("/payment")
	{
		payment.POST("/verify", orderControllers.VerifyPaymentHandler(db))
	}
}
