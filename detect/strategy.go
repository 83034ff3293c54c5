// Package detect implements the ordered fallback chain that turns
// silence-bounded segments into song detections.
package detect

import (
	"context"

	"setfinder/models"
)

// Strategy is the single contract every detection method implements:
// attempt a segment, return candidate detections (possibly none).
// Returning an error means the strategy could not run; the pipeline
// logs it and falls through to the next strategy, never aborting the
// segment. Adding or removing strategies must not require touching the
// orchestration loop.
type Strategy interface {
	Name() string
	Attempt(ctx context.Context, seg models.Segment) ([]models.Detection, error)
}
