package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"setfinder/models"
)

func TestMsToTimestamp(t *testing.T) {
	assert.Equal(t, "00:00", msToTimestamp(0))
	assert.Equal(t, "00:59", msToTimestamp(59999))
	assert.Equal(t, "02:05", msToTimestamp(125000))
	assert.Equal(t, "61:40", msToTimestamp(3700000))
}

func TestFixedWindowSegments(t *testing.T) {
	buf := &models.AudioBuffer{
		Samples:    make([]float64, 8000*75), // 75 seconds
		SampleRate: 8000,
		Channels:   1,
	}

	segments := fixedWindowSegments(buf, 30)
	require.Len(t, segments, 3)

	assert.Equal(t, 0, segments[0].StartMs)
	assert.Equal(t, 30000, segments[0].EndMs)
	assert.Equal(t, 30000, segments[1].StartMs)
	assert.Equal(t, 60000, segments[1].EndMs)

	// trailing remainder keeps its true length
	assert.Equal(t, 60000, segments[2].StartMs)
	assert.Equal(t, 75000, segments[2].EndMs)
	assert.Equal(t, 15000, segments[2].Audio.DurationMs())
}
