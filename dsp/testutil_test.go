package dsp

import (
	"math"

	"setfinder/models"
)

// buffer builders for synthetic test audio

func toneBuffer(freqHz float64, durationMs, sampleRate int, amplitude float64) *models.AudioBuffer {
	frames := durationMs * sampleRate / 1000
	samples := make([]float64, frames)
	for i := range samples {
		samples[i] = amplitude * math.Sin(2*math.Pi*freqHz*float64(i)/float64(sampleRate))
	}
	return &models.AudioBuffer{Samples: samples, SampleRate: sampleRate, Channels: 1}
}

func silenceBuffer(durationMs, sampleRate int) *models.AudioBuffer {
	frames := durationMs * sampleRate / 1000
	return &models.AudioBuffer{
		Samples:    make([]float64, frames),
		SampleRate: sampleRate,
		Channels:   1,
	}
}

func stereoBuffer(frames, sampleRate int, left, right float64) *models.AudioBuffer {
	samples := make([]float64, frames*2)
	for i := 0; i < frames; i++ {
		samples[2*i] = left
		samples[2*i+1] = right
	}
	return &models.AudioBuffer{Samples: samples, SampleRate: sampleRate, Channels: 2}
}

func concatBuffers(bufs ...*models.AudioBuffer) *models.AudioBuffer {
	var samples []float64
	for _, b := range bufs {
		samples = append(samples, b.Samples...)
	}
	return &models.AudioBuffer{
		Samples:    samples,
		SampleRate: bufs[0].SampleRate,
		Channels:   bufs[0].Channels,
	}
}
