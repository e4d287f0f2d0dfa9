package model

// Classification is the validated output of one classifier call for a
// changed source. When MaterialChange is true, UpdateType, Summary and
// Severity are guaranteed non-empty/valid by the classifier package;
// a payload that fails that guarantee never reaches the pipeline.
type Classification struct {
	MaterialChange bool     `json:"has_material_change"`
	UpdateType     string   `json:"update_type,omitempty"`
	Summary        string   `json:"summary,omitempty"`
	ImpactAnalysis string   `json:"impact_analysis,omitempty"`
	Severity       Severity `json:"severity,omitempty"`
}
