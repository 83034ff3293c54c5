package detect

import (
	"context"
	"math"

	"setfinder/dsp"
	"setfinder/models"
	"setfinder/refdb"
)

// Similarity weights: chroma carries the harmonic content and is the
// most song-distinctive feature, so it dominates the combined score.
const (
	tempoWeight  = 0.3
	chromaWeight = 0.5
	timbreWeight = 0.2

	// MatchFloor is the minimum combined score a reference candidate
	// needs before it is reported at all.
	MatchFloor = 0.6
)

// Score combines tempo, chroma, and timbre similarity of two
// signatures into [0, 1]. Each sub-score is clamped at 0, and NaN
// correlations from constant vectors collapse to 0 inside Pearson, so
// the combined score is always a usable number.
func Score(q, r models.Signature) float64 {
	tempoScore := 0.0
	if maxTempo := math.Max(q.Tempo, r.Tempo); maxTempo > 0 {
		tempoScore = math.Max(0, 1-math.Abs(q.Tempo-r.Tempo)/maxTempo)
	}
	chromaScore := math.Max(0, dsp.Pearson(q.Chroma, r.Chroma))
	timbreScore := math.Max(0, dsp.Pearson(q.Timbre, r.Timbre))

	return tempoWeight*tempoScore + chromaWeight*chromaScore + timbreWeight*timbreScore
}

// BestMatch scores a query signature against every reference entry and
// returns the best candidate above MatchFloor. Ties go to the first
// entry in the database's sorted iteration order.
func BestMatch(q models.Signature, db *refdb.Database) (name string, score float64, ok bool) {
	for _, entry := range db.Entries() {
		s := Score(q, entry.Signature)
		if s > score && s > MatchFloor {
			name = entry.Name
			score = s
			ok = true
		}
	}
	return name, score, ok
}

// ReferenceMatcher identifies segments by feature correlation against
// the in-memory reference database. With an empty database it yields
// no candidates and costs nothing.
type ReferenceMatcher struct {
	DB  *refdb.Database
	Cfg dsp.AnalysisConfig
}

func (m *ReferenceMatcher) Name() string { return models.MethodReference }

func (m *ReferenceMatcher) Attempt(_ context.Context, seg models.Segment) ([]models.Detection, error) {
	if m.DB.Len() == 0 {
		return nil, nil
	}

	sig, err := dsp.ExtractSignature(seg.Audio, m.Cfg)
	if err != nil {
		return nil, err
	}

	name, score, ok := BestMatch(*sig, m.DB)
	if !ok {
		return nil, nil
	}

	return []models.Detection{{
		Title:      name,
		Artist:     "cover",
		Confidence: score,
		Method:     models.MethodReference,
	}}, nil
}
