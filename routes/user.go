package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	cartControllers "github.com/crownnishant/foodies-api/controllers/cart"
	userControllers "github.com/crownnishant/foodies-api/controllers/user"
	"github.com/crownnishant/foodies-api/middleware"
)

func SetupUserRoutes(r *gin.Engine, db *gorm.DB) {
	user := r.Group("/", middleware.ValidateToken)
	{
		user.GET("/user", userControllers.GetUser(db))
		user.PUT("/user", userControllers.UpdateUser(db))

		cart := user.Group("/cart")
		{
			cart.GET("", cartControllers.GetCartHandler(db))
			cart.POST("", cartControllers.AddToCartHandler(db))
			cart.PUT("", cartControllers.ReplaceCartHandler(db))
			cart.POST("/decrement/:food_id", cartControllers.DecrementOneHandler(db))
			cart.DELETE("/items/:food_id", cartControllers.RemoveItemHandler(db))
			cart.DELETE("", cartControllers.ClearCartHandler(db))
		}
	}
}
