package detector

import (
	"crypto/sha256"
	"encoding/hex"

	"regwatch.co/sentinel/internal/model"
)

// Status is the detector's verdict for one freshly fetched content blob.
type Status string

const (
	// StatusInitial means the source has never been observed.
	StatusInitial Status = "initial"
	// StatusUnchanged means the fingerprint matches the stored snapshot.
	// The classifier must not run; this is the cost/idempotency gate.
	StatusUnchanged Status = "unchanged"
	// StatusChanged means the content differs from the snapshot.
	StatusChanged Status = "changed"
)

type Detection struct {
	Status      Status
	Fingerprint string
}

// Fingerprint computes a deterministic digest of content. Same bytes
// always produce the same digest, across runs and process restarts.
func Fingerprint(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// Detect compares fetched content against the prior snapshot, if any.
func Detect(content string, prior *model.Snapshot) Detection {
	fp := Fingerprint(content)
	switch {
	case prior == nil:
		return Detection{Status: StatusInitial, Fingerprint: fp}
	case prior.ContentFingerprint == fp:
		return Detection{Status: StatusUnchanged, Fingerprint: fp}
	default:
		return Detection{Status: StatusChanged, Fingerprint: fp}
	}
}
