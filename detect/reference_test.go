package detect

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"setfinder/dsp"
	"setfinder/models"
	"setfinder/refdb"
)

func sig(tempo float64, chroma, timbre []float64) models.Signature {
	return models.Signature{Tempo: tempo, Chroma: chroma, Timbre: timbre}
}

// chromaB/timbreB are exact reversals/negations of chromaA/timbreA,
// so their Pearson correlations are exactly -1.
var (
	chromaA = []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
	chromaB = []float64{12, 11, 10, 9, 8, 7, 6, 5, 4, 3, 2, 1}
	timbreA = []float64{1, -2, 3, -4, 5, -6, 7, -8, 9, -10, 11, -12}
	timbreB = []float64{-1, 2, -3, 4, -5, 6, -7, 8, -9, 10, -11, 12}
)

func TestScoreIdenticalSignatures(t *testing.T) {
	s := sig(120, chromaA, timbreA)
	assert.InDelta(t, 1.0, Score(s, s), 1e-9)
}

func TestScoreClampsNegativeCorrelation(t *testing.T) {
	q := sig(120, chromaA, timbreA)
	r := sig(120, chromaB, timbreB)

	// chroma and timbre are perfectly anti-correlated: both sub-scores
	// clamp to 0, leaving only the tempo component
	assert.InDelta(t, 0.3, Score(q, r), 1e-9)
}

func TestScoreConstantChromaTreatedAsZero(t *testing.T) {
	q := sig(120, []float64{2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2}, timbreA)
	r := sig(120, chromaA, timbreA)

	// NaN correlation from the constant vector collapses to 0
	assert.InDelta(t, 0.3+0.2, Score(q, r), 1e-9)
}

func TestScoreTempoDistance(t *testing.T) {
	q := sig(100, chromaA, timbreA)
	r := sig(150, chromaA, timbreA)

	// tempo_score = 1 - 50/150
	expected := 0.3*(1-50.0/150.0) + 0.5 + 0.2
	assert.InDelta(t, expected, Score(q, r), 1e-9)
}

func TestBestMatchSelectsIdenticalReference(t *testing.T) {
	target := sig(120, chromaA, timbreA)
	db := refdb.NewFromEntries(map[string]models.Signature{
		"anthem":  sig(95, chromaB, timbreB),
		"ballad":  target,
		"shuffle": sig(170, chromaB, timbreA),
	})

	name, score, ok := BestMatch(target, db)
	require.True(t, ok)
	assert.Equal(t, "ballad", name)
	assert.InDelta(t, 1.0, score, 1e-9)
}

func TestBestMatchEmptyDatabase(t *testing.T) {
	db := refdb.NewFromEntries(nil)
	_, _, ok := BestMatch(sig(120, chromaA, timbreA), db)
	assert.False(t, ok)
}

func TestBestMatchRespectsFloor(t *testing.T) {
	// anti-correlated features leave only the 0.3 tempo component,
	// well under the acceptance floor
	db := refdb.NewFromEntries(map[string]models.Signature{
		"other": sig(120, chromaB, timbreB),
	})
	_, _, ok := BestMatch(sig(120, chromaA, timbreA), db)
	assert.False(t, ok)
}

func TestReferenceMatcherEmptyDatabaseNoCandidates(t *testing.T) {
	m := &ReferenceMatcher{DB: refdb.NewFromEntries(nil), Cfg: dsp.DefaultAnalysisConfig()}

	seg := models.Segment{Index: 1, StartMs: 0, EndMs: 20000}
	candidates, err := m.Attempt(context.Background(), seg)
	assert.NoError(t, err)
	assert.Empty(t, candidates)
}
