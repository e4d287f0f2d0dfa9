package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"regwatch.co/sentinel/internal/model"
)

// RunTrigger fires a monitoring run unless one is already in flight.
// Satisfied by the scheduler.
type RunTrigger interface {
	TryRunNow(ctx context.Context) *model.RunSummary
	Running() bool
}

type RunHandler struct {
	trigger RunTrigger
}

func NewRunHandler(trigger RunTrigger) *RunHandler {
	return &RunHandler{trigger: trigger}
}

// Trigger is the external scheduler's entry point. The run executes
// synchronously and the full summary is returned; a concurrent run in
// progress yields 409 so the caller can back off and retry later.
func (h *RunHandler) Trigger(c *gin.Context) {
	ctx := c.Request.Context()

	summary := h.trigger.TryRunNow(ctx)
	if summary == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "a run is already in progress"})
		return
	}

	c.JSON(http.StatusOK, summary)
}

// Status reports whether a run is in flight, so external schedulers can
// poll before triggering.
func (h *RunHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"running": h.trigger.Running()})
}
