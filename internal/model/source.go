package model

// Source is one monitored regulatory endpoint. The registry owns these;
// they are immutable for the lifetime of the process.
type Source struct {
	ID           string `json:"id" yaml:"id"`
	Jurisdiction string `json:"jurisdiction" yaml:"jurisdiction"`
	Endpoint     string `json:"endpoint" yaml:"endpoint"`
}
