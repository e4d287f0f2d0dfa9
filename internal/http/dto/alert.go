package dto

import (
	"time"

	"regwatch.co/sentinel/internal/model"
)

type AlertResponse struct {
	ID             int64     `json:"id,string"`
	SourceID       string    `json:"source_id"`
	Jurisdiction   string    `json:"jurisdiction,omitempty"`
	UpdateType     string    `json:"update_type"`
	Severity       string    `json:"severity"`
	Summary        string    `json:"summary"`
	ImpactAnalysis string    `json:"impact_analysis,omitempty"`
	DetectedAt     time.Time `json:"detected_at"`
	Notified       bool      `json:"notified"`
}

func ToAlertResponse(a *model.Alert, jurisdiction string) *AlertResponse {
	return &AlertResponse{
		ID:             a.ID,
		SourceID:       a.SourceID,
		Jurisdiction:   jurisdiction,
		UpdateType:     a.UpdateType,
		Severity:       string(a.Severity),
		Summary:        a.Summary,
		ImpactAnalysis: a.ImpactAnalysis,
		DetectedAt:     a.DetectedAt,
		Notified:       a.Notified,
	}
}

type ListAlertsResponse struct {
	Alerts []AlertResponse `json:"alerts"`
}
