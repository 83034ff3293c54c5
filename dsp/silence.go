package dsp

import (
	"setfinder/models"
)

// DetectNonsilent scans a buffer's windowed loudness and returns the
// time-ordered, non-overlapping ranges that are not bounded silence.
// A window is silent when its dBFS is at or below thresholdDB; a silent
// run only counts as a boundary when it lasts at least minSilenceLenMs,
// so short quiet dips inside a phrase stay attached to the surrounding
// sound. An all-silent buffer yields zero ranges; a buffer with no
// qualifying silence yields a single range spanning the whole buffer.
func DetectNonsilent(buf *models.AudioBuffer, thresholdDB float64, minSilenceLenMs, windowMs int) []models.Range {
	profile := Profile(buf, windowMs)
	durationMs := buf.DurationMs()
	if len(profile.Values) == 0 {
		return nil
	}

	// collect qualifying silence runs in window units
	type run struct{ start, end int }
	var silences []run
	runStart := -1
	minWindows := minSilenceLenMs / windowMs
	if minWindows < 1 {
		minWindows = 1
	}

	flush := func(start, end int) {
		if end-start >= minWindows {
			silences = append(silences, run{start, end})
		}
	}

	for i, v := range profile.Values {
		if v <= thresholdDB {
			if runStart < 0 {
				runStart = i
			}
		} else if runStart >= 0 {
			flush(runStart, i)
			runStart = -1
		}
	}
	if runStart >= 0 {
		// a trailing silent run extends through any dropped partial window
		flush(runStart, len(profile.Values))
	}

	toMs := func(window int) int {
		ms := window * windowMs
		if ms > durationMs {
			ms = durationMs
		}
		return ms
	}

	// non-silent ranges are the complement of the qualifying silences
	var ranges []models.Range
	cursor := 0
	for _, s := range silences {
		if s.start > cursor {
			ranges = append(ranges, models.Range{StartMs: toMs(cursor), EndMs: toMs(s.start)})
		}
		cursor = s.end
	}
	if cursor < len(profile.Values) {
		ranges = append(ranges, models.Range{StartMs: toMs(cursor), EndMs: durationMs})
	}

	return ranges
}

// Split extracts each non-silent range as an independent segment,
// extending both boundaries outward by keepSilenceMs (clamped to the
// buffer) so soft attacks and decays are not clipped. Adjacent padded
// segments may overlap; they are exported independently, never merged.
func Split(buf *models.AudioBuffer, thresholdDB float64, minSilenceLenMs, keepSilenceMs, windowMs int) []models.Segment {
	ranges := DetectNonsilent(buf, thresholdDB, minSilenceLenMs, windowMs)
	duration := buf.DurationMs()

	segments := make([]models.Segment, 0, len(ranges))
	for i, r := range ranges {
		start := r.StartMs - keepSilenceMs
		if start < 0 {
			start = 0
		}
		end := r.EndMs + keepSilenceMs
		if end > duration {
			end = duration
		}
		segments = append(segments, models.Segment{
			Index:   i + 1,
			StartMs: start,
			EndMs:   end,
			Audio:   buf.Slice(start, end),
		})
	}
	return segments
}

// Trim concatenates all non-silent ranges into one continuous buffer.
// The second return is false when the buffer contains no non-silent
// content at all.
func Trim(buf *models.AudioBuffer, thresholdDB float64, minSilenceLenMs, windowMs int) (*models.AudioBuffer, bool) {
	ranges := DetectNonsilent(buf, thresholdDB, minSilenceLenMs, windowMs)
	if len(ranges) == 0 {
		return nil, false
	}

	var samples []float64
	for _, r := range ranges {
		piece := buf.Slice(r.StartMs, r.EndMs)
		samples = append(samples, piece.Samples...)
	}
	return &models.AudioBuffer{
		Samples:    samples,
		SampleRate: buf.SampleRate,
		Channels:   buf.Channels,
	}, true
}
