package router

import (
	"github.com/gin-gonic/gin"

	"regwatch.co/sentinel/internal/http/handler"
)

func RunRouter(rg *gin.RouterGroup, h *handler.RunHandler) {
	rg.POST("", h.Trigger)
	rg.GET("/status", h.Status)
}
