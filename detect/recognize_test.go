package detect

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"setfinder/dsp"
	"setfinder/models"
	"setfinder/refdb"
)

func toneSegment(index, startMs, durationMs, sampleRate int) models.Segment {
	frames := durationMs * sampleRate / 1000
	samples := make([]float64, frames)
	for i := range samples {
		samples[i] = 0.5 * math.Sin(2*math.Pi*440*float64(i)/float64(sampleRate))
	}
	return models.Segment{
		Index:   index,
		StartMs: startMs,
		EndMs:   startMs + durationMs,
		Audio:   &models.AudioBuffer{Samples: samples, SampleRate: sampleRate, Channels: 1},
	}
}

func TestRecognizerParsesMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(32<<20))
		assert.Equal(t, "token-123", r.FormValue("api_token"))
		_, _, err := r.FormFile("file")
		require.NoError(t, err)

		w.Write([]byte(`{"status":"success","result":{"title":"Wish You Were Here","artist":"Pink Floyd"}}`))
	}))
	defer srv.Close()

	rec := NewRecognizer(srv.URL, "token-123", 5*time.Second)
	candidates, err := rec.Attempt(context.Background(), toneSegment(1, 0, 11000, 8000))
	require.NoError(t, err)
	require.Len(t, candidates, 1)

	assert.Equal(t, "Wish You Were Here", candidates[0].Title)
	assert.Equal(t, "Pink Floyd", candidates[0].Artist)
	assert.Equal(t, 0.9, candidates[0].Confidence)
	assert.Equal(t, models.MethodRecognition, candidates[0].Method)
}

func TestRecognizerNoMatchIsEmptyNotError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"status":"success","result":null}`))
	}))
	defer srv.Close()

	rec := NewRecognizer(srv.URL, "", 5*time.Second)
	candidates, err := rec.Attempt(context.Background(), toneSegment(1, 0, 11000, 8000))
	assert.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestRecognizerServiceErrorFallsThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	rec := NewRecognizer(srv.URL, "", 5*time.Second)
	candidates, err := rec.Attempt(context.Background(), toneSegment(1, 0, 11000, 8000))
	assert.Error(t, err)
	assert.Empty(t, candidates)
}

func TestRecognizerUnconfiguredIsNoop(t *testing.T) {
	rec := NewRecognizer("", "", time.Second)
	candidates, err := rec.Attempt(context.Background(), models.Segment{})
	assert.NoError(t, err)
	assert.Empty(t, candidates)
}

// Full chain with every strategy coming up empty: recognition service
// that never matches, empty reference database, and a heuristic whose
// tempo gate rejected (represented by an empty stub; the gate itself
// is covered in tempo_test.go). Every segment must resolve to the
// undetected sentinel.
func TestPipelineAllStrategiesExhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"status":"success","result":null}`))
	}))
	defer srv.Close()

	cfg := dsp.DefaultAnalysisConfig()
	p := NewPipeline(
		NewRecognizer(srv.URL, "", 5*time.Second),
		&ReferenceMatcher{DB: refdb.NewFromEntries(nil), Cfg: cfg},
		&stubStrategy{name: "tempo-rejected"},
	)
	p.Workers = 1

	segments := []models.Segment{
		toneSegment(1, 0, 15000, 8000),
		toneSegment(2, 17000, 15000, 8000),
	}
	results := p.Analyze(context.Background(), segments)
	require.Len(t, results, 2)

	for i, r := range results {
		assert.Equal(t, i+1, r.Segment)
		assert.Equal(t, models.UndetectedTitle, r.Title)
		assert.Equal(t, 0.0, r.Confidence)
		assert.Equal(t, models.MethodNone, r.Method)
	}
}
