package classifier

import (
	"context"
	"fmt"

	"regwatch.co/sentinel/internal/model"
)

// Classifier judges whether a detected content change is material and,
// if so, what kind. It is only consulted for sources the detector
// reported as changed, at most once per source per run.
type Classifier interface {
	Classify(ctx context.Context, oldContent, newContent, jurisdiction string) (model.Classification, error)
}

// Error wraps any classification failure: transport errors, timeouts,
// and payloads that do not conform to the expected shape. A failed
// classification is never folded into "no material change"; that would
// silently drop a real change event.
type Error struct {
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("classify: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("classify: %s", e.Reason)
}

func (e *Error) Unwrap() error {
	return e.Err
}
