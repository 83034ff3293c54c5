package detect

import (
	"context"
	"fmt"
	"math"
	"strings"

	"setfinder/dsp"
	"setfinder/models"
)

// Plausible musical tempo range for the heuristic; estimates outside
// it are treated as noise and produce no candidate.
const (
	heuristicMinBPM = 60.0
	heuristicMaxBPM = 180.0

	heuristicMaxConfidence = 0.7
)

// TempoHeuristic is the last-resort strategy: it needs no reference
// material and no network, only the segment's own tempo and dominant
// pitch classes. It is a weak signal, so its confidence is capped well
// below the other strategies.
type TempoHeuristic struct {
	Cfg dsp.AnalysisConfig
}

func (t *TempoHeuristic) Name() string { return models.MethodSignature }

func (t *TempoHeuristic) Attempt(_ context.Context, seg models.Segment) ([]models.Detection, error) {
	sig, err := dsp.ExtractSignature(seg.Audio, t.Cfg)
	if err != nil {
		return nil, err
	}
	return t.fromSignature(sig), nil
}

// fromSignature applies the plausibility gate and builds the candidate.
func (t *TempoHeuristic) fromSignature(sig *models.Signature) []models.Detection {
	if sig.Tempo < heuristicMinBPM || sig.Tempo > heuristicMaxBPM {
		return nil
	}

	key := dsp.DominantKey(sig.Chroma)
	top := dsp.TopNotes(sig.Chroma, 3)
	notes := make([]string, len(top))
	for i, n := range top {
		notes[i] = fmt.Sprint(n)
	}

	confidence := math.Min(heuristicMaxConfidence, sig.Tempo/120)

	return []models.Detection{{
		Title:      fmt.Sprintf("Song_%s_%d_%s", key, int(sig.Tempo), strings.Join(notes, "-")),
		Artist:     fmt.Sprintf("Key_%s", key),
		Confidence: confidence,
		Method:     models.MethodSignature,
	}}
}
