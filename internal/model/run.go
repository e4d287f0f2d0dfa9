package model

import (
	"encoding/json"
	"time"
)

// Outcome is the machine-readable result of one source's pipeline pass.
type Outcome string

const (
	// OutcomeInitial is the first successful observation of a source.
	OutcomeInitial Outcome = "initial"
	// OutcomeUnchanged means the fingerprint matched the stored snapshot;
	// the classifier was not consulted.
	OutcomeUnchanged Outcome = "unchanged"
	// OutcomeNoMaterialChange means the content changed but the classifier
	// judged the change immaterial.
	OutcomeNoMaterialChange Outcome = "no_material_change"
	// OutcomeMaterialChange means an alert was emitted.
	OutcomeMaterialChange Outcome = "material_change"
	// OutcomeFetchError means the fetch failed; the snapshot is untouched.
	OutcomeFetchError Outcome = "fetch_error"
	// OutcomeClassifyError means classification failed; the snapshot keeps
	// its prior baseline so the same diff is retried next run.
	OutcomeClassifyError Outcome = "classify_error"
	// OutcomeSnapshotError means the snapshot write failed after an
	// otherwise successful pass.
	OutcomeSnapshotError Outcome = "snapshot_error"
	// OutcomeAlertError means a confirmed material change could not be
	// recorded. Loss of an audit record outranks every other failure here.
	OutcomeAlertError Outcome = "alert_error"
)

// IsError reports whether the outcome represents a failed pass.
func (o Outcome) IsError() bool {
	switch o {
	case OutcomeFetchError, OutcomeClassifyError, OutcomeSnapshotError, OutcomeAlertError:
		return true
	}
	return false
}

// RunResult is the per-source outcome of one run. Ephemeral: it lives in
// the RunSummary and in logs, never in the database.
type RunResult struct {
	SourceID     string        `json:"source_id"`
	Jurisdiction string        `json:"jurisdiction"`
	Outcome      Outcome       `json:"outcome"`
	Severity     *Severity     `json:"severity,omitempty"`
	AlertID      *int64        `json:"alert_id,string,omitempty"`
	Error        *string       `json:"error,omitempty"`
	Duration     time.Duration `json:"-"`
}

// MarshalJSON reports the duration as integer milliseconds; a raw
// time.Duration would serialize as nanoseconds under the _ms name.
func (r RunResult) MarshalJSON() ([]byte, error) {
	type alias RunResult
	return json.Marshal(struct {
		alias
		DurationMS int64 `json:"duration_ms"`
	}{alias(r), r.Duration.Milliseconds()})
}

// RunSummary aggregates one full pass over the registry.
type RunSummary struct {
	RunID     int64       `json:"run_id,string"`
	Timestamp time.Time   `json:"timestamp"`
	Results   []RunResult `json:"results"`
}

// Errors returns the results that represent failed sources.
func (s RunSummary) Errors() []RunResult {
	var out []RunResult
	for _, r := range s.Results {
		if r.Outcome.IsError() {
			out = append(out, r)
		}
	}
	return out
}

// AlertCount returns the number of alerts emitted during the run.
func (s RunSummary) AlertCount() int {
	n := 0
	for _, r := range s.Results {
		if r.Outcome == OutcomeMaterialChange {
			n++
		}
	}
	return n
}
