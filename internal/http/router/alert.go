package router

import (
	"github.com/gin-gonic/gin"

	"regwatch.co/sentinel/internal/http/handler"
)

// AlertRouter sets up alert routes
// - GET / is the dashboard read path (filter by jurisdiction/notified)
// - POST /:id/notified is the notification dispatcher's write path
func AlertRouter(rg *gin.RouterGroup, h *handler.AlertHandler) {
	rg.GET("", h.List)
	rg.POST("/:id/notified", h.MarkNotified)
}
