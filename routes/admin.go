package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	adminControllers "github.com/crownnishant/foodies-api/controllers/admin"
	orderControllers "github.com/crownnishant/foodies-api/controllers/order"
	userControllers "github.com/crownnishant/foodies-api/controllers/user"
	"github.com/crownnishant/foodies-api/middleware"
)

func SetupAdminRoutes(r *gin.Engine, db *gorm.DB) {
	admin := r.Group("/admin", middleware.ValidateAPIKey)
	{
		admin.GET("/orders", orderControllers.GetAllOrdersHandler(db))
		admin.GET("/orders/export", adminControllers.ExportOrdersToExcel(db))
		admin.PATCH("/orders/:orderID/status", orderControllers.UpdateOrderStatusHandler(db))
		admin.DELETE("/orders/:orderID", orderControllers.DeleteOrderHandler(db))
		admin.GET("/users", userControllers.GetAllUsers(db))

		// websocket endpoint for real-time order updates
		admin.GET("/orders/ws", orderControllers.OrderWebSocketHandler)
	}
}
