package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"setfinder/models"
)

func testClient(t *testing.T) *Client {
	t.Helper()
	client, err := NewClient(filepath.Join(t.TempDir(), "results.db"))
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestSaveAndListResults(t *testing.T) {
	client := testClient(t)

	results := []models.DetectionResult{
		{File: "tape1.wav", Segment: 1, StartMs: 0, DurationSec: 20.4, Title: "Thunder Road", Artist: "Cover Band", Confidence: 0.9, Method: models.MethodRecognition},
		{File: "tape1.wav", Segment: 2, StartMs: 22000, DurationSec: 18.0, Title: models.UndetectedTitle, Confidence: 0, Method: models.MethodNone},
	}
	require.NoError(t, client.SaveResults(results))

	stored, err := client.ListResults("", 0)
	require.NoError(t, err)
	require.Len(t, stored, 2)

	// newest first
	assert.Equal(t, 2, stored[0].Segment)
	assert.Equal(t, models.UndetectedTitle, stored[0].Title)
	assert.Equal(t, "Thunder Road", stored[1].Title)
}

func TestListResultsFilterByFile(t *testing.T) {
	client := testClient(t)

	require.NoError(t, client.SaveResults([]models.DetectionResult{
		{File: "a.wav", Segment: 1, Title: "x", Method: models.MethodReference},
		{File: "b.wav", Segment: 1, Title: "y", Method: models.MethodReference},
	}))

	stored, err := client.ListResults("a.wav", 10)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "x", stored[0].Title)
}

func TestSaveResultsEmptyIsNoop(t *testing.T) {
	client := testClient(t)
	assert.NoError(t, client.SaveResults(nil))
}
