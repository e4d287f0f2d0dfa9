package router

import (
	"github.com/gin-gonic/gin"

	"regwatch.co/sentinel/internal/http/handler"
	"regwatch.co/sentinel/internal/http/middleware"
)

type RouterConfig struct {
	AdminAPIKey string
}

func SetupRoutes(router *gin.Engine, alertHandler *handler.AlertHandler, runHandler *handler.RunHandler, cfg RouterConfig) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	{
		AlertRouter(v1.Group("/alerts"), alertHandler)

		admin := v1.Group("/runs")
		admin.Use(middleware.RequireAPIKey(cfg.AdminAPIKey))
		RunRouter(admin, runHandler)
	}
}
