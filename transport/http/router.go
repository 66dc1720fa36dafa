package http

import (
	"github.com/gin-gonic/gin"

	"github.com/layer-3/salvo/ports"
	"github.com/layer-3/salvo/service"
)

// SetupRouter sets up the Gin router.
func SetupRouter(auth *service.AuthService, withdrawals *service.WithdrawalService, sessions *service.SessionStore, provider ports.WalletProvider) *gin.Engine {
	router := gin.Default()

	handlers := NewHandlers(auth, withdrawals, provider)

	authGroup := router.Group("/auth")
	{
		authGroup.POST("/connect", handlers.Connect)
		authGroup.POST("/disconnect", handlers.Disconnect)
	}

	api := router.Group("/api")
	api.Use(SessionMiddleware(sessions))
	{
		api.POST("/withdraw", handlers.Withdraw)
	}

	return router
}
