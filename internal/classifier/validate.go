package classifier

import (
	"strconv"

	"regwatch.co/sentinel/internal/model"
)

// RawResult is the classifier model's wire payload, before validation.
// The response schema forces every field to be present; validation
// decides whether the combination is coherent.
type RawResult struct {
	HasMaterialChange bool   `json:"has_material_change" jsonschema_description:"Whether the change is substantively meaningful for regulated parties, not formatting or noise"`
	UpdateType        string `json:"update_type" jsonschema_description:"Short category of the change, e.g. form_update, rule_change, fee_change, deadline_change, guidance_update"`
	Summary           string `json:"summary" jsonschema_description:"One or two sentences describing what changed"`
	ImpactAnalysis    string `json:"impact_analysis" jsonschema_description:"Who is affected and what they need to do"`
	Severity          string `json:"severity" jsonschema:"enum=critical,enum=important,enum=info,enum=" jsonschema_description:"Severity of the change; empty when there is no material change"`
}

// Normalize validates a raw payload into a Classification. A material
// change must carry a non-empty update type, summary and a valid
// severity; anything else is a classification error, not a "no change".
func Normalize(raw RawResult) (model.Classification, error) {
	if !raw.HasMaterialChange {
		return model.Classification{MaterialChange: false}, nil
	}

	if raw.UpdateType == "" {
		return model.Classification{}, &Error{Reason: "material change missing update_type"}
	}
	if raw.Summary == "" {
		return model.Classification{}, &Error{Reason: "material change missing summary"}
	}
	severity := model.Severity(raw.Severity)
	if !severity.Valid() {
		return model.Classification{}, &Error{Reason: "invalid severity " + strconv.Quote(raw.Severity)}
	}

	return model.Classification{
		MaterialChange: true,
		UpdateType:     raw.UpdateType,
		Summary:        raw.Summary,
		ImpactAnalysis: raw.ImpactAnalysis,
		Severity:       severity,
	}, nil
}
