package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/crownnishant/foodies-api/auth"
)

func SetupAuthRoutes(r *gin.Engine, db *gorm.DB) {
	a := r.Group("/auth")
	{
		a.POST("/register", auth.RegisterHandler(db))
		a.POST("/login", auth.LoginHandler(db))
		a.POST("/guest", auth.CreateGuestUser(db))
	}
}
