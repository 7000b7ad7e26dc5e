package rest

import (
	"github.com/gin-gonic/gin"

	"github.com/Sogo28/chaincode-blockchain/internal/api/middleware"
)

// SetupRoutes configures all REST API routes
func SetupRoutes(router *gin.Engine, handler Handler, authCfg middleware.AuthConfig) {
	// Health check endpoint (no auth, no version prefix)
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Read endpoints (public)
		v1.GET("/titles", handler.ListTitles)
		v1.GET("/titles/:id", handler.GetTitle)
		v1.GET("/titles/:id/verify", handler.VerifyTitle)
		v1.GET("/titles/:id/history", handler.GetTitleHistory)

		// Mutating endpoints (require authentication)
		v1.POST("/titles", middleware.Auth(authCfg), handler.CreateTitle)
		v1.PATCH("/titles/:id", middleware.Auth(authCfg), handler.UpdateTitle)
		v1.POST("/titles/:id/transfer", middleware.Auth(authCfg), handler.TransferTitle)
		v1.DELETE("/titles/:id", middleware.Auth(authCfg), handler.DeleteTitle)
	}
}
