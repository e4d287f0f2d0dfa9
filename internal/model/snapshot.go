package model

import "time"

// Snapshot is the last successfully observed content for a source.
// ContentFingerprint always equals the fingerprint of RawContent;
// LastChangedAt moves only when the fingerprint does.
type Snapshot struct {
	SourceID           string    `json:"source_id"`
	ContentFingerprint string    `json:"content_fingerprint"`
	RawContent         string    `json:"raw_content"`
	LastScrapedAt      time.Time `json:"last_scraped_at"`
	LastChangedAt      time.Time `json:"last_changed_at"`
}
