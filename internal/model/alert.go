package model

import "time"

type Severity string

const (
	SeverityCritical  Severity = "critical"
	SeverityImportant Severity = "important"
	SeverityInfo      Severity = "info"
)

// Valid reports whether s is one of the known severity levels.
func (s Severity) Valid() bool {
	switch s {
	case SeverityCritical, SeverityImportant, SeverityInfo:
		return true
	}
	return false
}

// Alert is an append-only record of one classifier-confirmed material
// change. Notified is the only mutable field and transitions false → true
// exactly once, driven by the external notification dispatcher.
type Alert struct {
	ID             int64     `json:"id,string"`
	SourceID       string    `json:"source_id"`
	UpdateType     string    `json:"update_type"`
	Severity       Severity  `json:"severity"`
	Summary        string    `json:"summary"`
	ImpactAnalysis string    `json:"impact_analysis,omitempty"`
	DetectedAt     time.Time `json:"detected_at"`
	Notified       bool      `json:"notified"`
}
