package models

// AudioBuffer holds decoded PCM audio as interleaved float64 samples
// normalized to [-1, 1]. Buffers are never mutated after creation;
// Slice returns an independent copy, not a view.
type AudioBuffer struct {
	Samples    []float64
	SampleRate int
	Channels   int
}

// NumFrames returns the number of sample frames (one sample per channel).
func (b *AudioBuffer) NumFrames() int {
	if b.Channels == 0 {
		return 0
	}
	return len(b.Samples) / b.Channels
}

// DurationMs returns the buffer duration in milliseconds.
func (b *AudioBuffer) DurationMs() int {
	if b.SampleRate == 0 {
		return 0
	}
	return b.NumFrames() * 1000 / b.SampleRate
}

// Mono collapses the buffer to a single channel by averaging.
func (b *AudioBuffer) Mono() []float64 {
	if b.Channels <= 1 {
		out := make([]float64, len(b.Samples))
		copy(out, b.Samples)
		return out
	}
	frames := b.NumFrames()
	out := make([]float64, frames)
	for i := 0; i < frames; i++ {
		sum := 0.0
		for c := 0; c < b.Channels; c++ {
			sum += b.Samples[i*b.Channels+c]
		}
		out[i] = sum / float64(b.Channels)
	}
	return out
}

// Slice returns an owned copy of the [startMs, endMs) range,
// clamped to the buffer bounds.
func (b *AudioBuffer) Slice(startMs, endMs int) *AudioBuffer {
	if startMs < 0 {
		startMs = 0
	}
	if endMs > b.DurationMs() {
		endMs = b.DurationMs()
	}
	startFrame := startMs * b.SampleRate / 1000
	endFrame := endMs * b.SampleRate / 1000
	if endFrame > b.NumFrames() {
		endFrame = b.NumFrames()
	}
	if startFrame > endFrame {
		startFrame = endFrame
	}
	samples := make([]float64, (endFrame-startFrame)*b.Channels)
	copy(samples, b.Samples[startFrame*b.Channels:endFrame*b.Channels])
	return &AudioBuffer{Samples: samples, SampleRate: b.SampleRate, Channels: b.Channels}
}

// Range is a half-open [StartMs, EndMs) time range into a parent buffer.
type Range struct {
	StartMs int
	EndMs   int
}

// Segment is a silence-bounded piece of a recording together with its
// extracted audio. Segments from one split are time-ordered; padded
// neighbors may overlap by up to twice the keep-silence padding.
type Segment struct {
	Index   int
	StartMs int
	EndMs   int
	Audio   *AudioBuffer
}

// Signature is the compact numeric fingerprint used for
// correlation-based matching. Never mutated after extraction.
type Signature struct {
	Tempo  float64   // beats per minute
	Chroma []float64 // 12 pitch-class energies, C through B
	Timbre []float64 // cepstral coefficient means
}

// Detection method tags.
const (
	MethodRecognition = "recognition"
	MethodReference   = "reference_match"
	MethodSignature   = "audio_signature"
	MethodNone        = "none"
)

// Detection is a single candidate produced by one detection strategy.
type Detection struct {
	Title      string
	Artist     string
	Confidence float64
	Method     string
}

// UndetectedTitle is the sentinel title recorded when no strategy
// produced a candidate for a segment.
const UndetectedTitle = "undetected"

// DetectionResult is the per-segment outcome reported to the result
// sink. Exactly one is emitted per analyzed segment.
type DetectionResult struct {
	File        string  `json:"file"`
	Segment     int     `json:"segment"`
	StartMs     int     `json:"startMs"`
	DurationSec float64 `json:"durationSec"`
	Title       string  `json:"title"`
	Artist      string  `json:"artist"`
	Confidence  float64 `json:"confidence"`
	Method      string  `json:"method"`
}

// Undetected returns the sentinel result for a segment no strategy matched.
func Undetected(seg Segment) DetectionResult {
	return DetectionResult{
		Segment:     seg.Index,
		StartMs:     seg.StartMs,
		DurationSec: float64(seg.EndMs-seg.StartMs) / 1000,
		Title:       UndetectedTitle,
		Confidence:  0,
		Method:      MethodNone,
	}
}
