package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"regwatch.co/sentinel/internal/http/dto"
	"regwatch.co/sentinel/internal/registry"
	"regwatch.co/sentinel/internal/store"
)

type AlertHandler struct {
	alerts   store.AlertStore
	registry *registry.Registry
}

func NewAlertHandler(alerts store.AlertStore, reg *registry.Registry) *AlertHandler {
	return &AlertHandler{alerts: alerts, registry: reg}
}

// List serves the dashboard read path. Query parameters:
//   - jurisdiction: case-insensitive match on the jurisdiction label
//   - notified: "true" or "false"
//   - limit: page size, capped server-side
func (h *AlertHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	filter := store.AlertFilter{}

	if jurisdiction := c.Query("jurisdiction"); jurisdiction != "" {
		sourceIDs := h.sourcesForJurisdiction(jurisdiction)
		if len(sourceIDs) == 0 {
			c.JSON(http.StatusOK, dto.ListAlertsResponse{Alerts: []dto.AlertResponse{}})
			return
		}
		filter.SourceIDs = sourceIDs
	}

	if notified := c.Query("notified"); notified != "" {
		v, err := strconv.ParseBool(notified)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "notified must be true or false"})
			return
		}
		filter.Notified = &v
	}

	if limit := c.Query("limit"); limit != "" {
		v, err := strconv.ParseInt(limit, 10, 32)
		if err != nil || v < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		filter.Limit = int32(v)
	}

	alerts, err := h.alerts.List(ctx, filter)
	if err != nil {
		slog.ErrorContext(ctx, "listing alerts failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list alerts"})
		return
	}

	resp := dto.ListAlertsResponse{Alerts: make([]dto.AlertResponse, 0, len(alerts))}
	for i := range alerts {
		resp.Alerts = append(resp.Alerts, *dto.ToAlertResponse(&alerts[i], h.jurisdictionFor(alerts[i].SourceID)))
	}
	c.JSON(http.StatusOK, resp)
}

// MarkNotified is the notification dispatcher's write path: the single
// permitted mutation of an alert.
func (h *AlertHandler) MarkNotified(c *gin.Context) {
	ctx := c.Request.Context()

	alertID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid alert id"})
		return
	}

	if err := h.alerts.MarkNotified(ctx, alertID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "alert not found"})
			return
		}
		slog.ErrorContext(ctx, "marking alert notified failed", "error", err, "alert_id", alertID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update alert"})
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *AlertHandler) sourcesForJurisdiction(jurisdiction string) []string {
	var ids []string
	for _, src := range h.registry.Sources() {
		if strings.EqualFold(src.Jurisdiction, jurisdiction) {
			ids = append(ids, src.ID)
		}
	}
	return ids
}

func (h *AlertHandler) jurisdictionFor(sourceID string) string {
	if src, ok := h.registry.Get(sourceID); ok {
		return src.Jurisdiction
	}
	return ""
}
