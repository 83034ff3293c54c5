package detect

import (
	"context"
	"runtime"
	"sync"

	"setfinder/models"
	"setfinder/utils"
)

// Pipeline runs the ordered strategy chain over segments. Strategies
// are tried in priority order per segment and the chain short-circuits
// on the first strategy that yields any candidate; later strategies
// are never consulted for that segment. Segments are analyzed in
// parallel across a bounded worker pool and results are reassembled in
// original segment order.
type Pipeline struct {
	Strategies []Strategy

	// MinSegmentSec filters out segments too short to analyze; they
	// produce no result row at all.
	MinSegmentSec float64

	// Workers bounds the pool; 0 means half the CPUs.
	Workers int
}

// NewPipeline builds a pipeline with the given strategy order.
func NewPipeline(strategies ...Strategy) *Pipeline {
	return &Pipeline{Strategies: strategies, MinSegmentSec: 10}
}

// Analyze processes every usable segment and returns exactly one
// result per analyzed segment, in segment order. A segment no strategy
// matched is recorded with the undetected sentinel, never omitted.
// Context cancellation stops dispatching new segments; in-flight
// analyses finish and their results are kept.
func (p *Pipeline) Analyze(ctx context.Context, segments []models.Segment) []models.DetectionResult {
	log := utils.Logger()

	var usable []models.Segment
	for _, seg := range segments {
		durationSec := float64(seg.EndMs-seg.StartMs) / 1000
		if durationSec < p.MinSegmentSec {
			log.WithField("segment", seg.Index).Debugf("skipping short segment (%.1fs)", durationSec)
			continue
		}
		usable = append(usable, seg)
	}
	if len(usable) == 0 {
		return nil
	}

	workers := p.Workers
	if workers <= 0 {
		workers = runtime.NumCPU() / 2
	}
	if workers > len(usable) {
		workers = len(usable)
	}
	if workers < 1 {
		workers = 1
	}

	// each worker writes only its own indices, so no mutex is needed
	results := make([]models.DetectionResult, len(usable))
	filled := make([]bool, len(usable))
	jobs := make(chan int, len(usable))
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = p.analyzeSegment(ctx, usable[i])
				filled[i] = true
			}
		}()
	}

dispatch:
	for i := range usable {
		select {
		case <-ctx.Done():
			break dispatch
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	ordered := make([]models.DetectionResult, 0, len(usable))
	for i, ok := range filled {
		if ok {
			ordered = append(ordered, results[i])
		}
	}
	return ordered
}

func (p *Pipeline) analyzeSegment(ctx context.Context, seg models.Segment) models.DetectionResult {
	log := utils.Logger()

	for _, strategy := range p.Strategies {
		candidates, err := strategy.Attempt(ctx, seg)
		if err != nil {
			log.WithField("segment", seg.Index).
				WithField("strategy", strategy.Name()).
				WithError(err).Debug("strategy failed, falling through")
			continue
		}
		if len(candidates) == 0 {
			continue
		}

		best := candidates[0]
		log.WithField("segment", seg.Index).
			WithField("strategy", strategy.Name()).
			Infof("detected %q by %q (%.2f)", best.Title, best.Artist, best.Confidence)

		return models.DetectionResult{
			Segment:     seg.Index,
			StartMs:     seg.StartMs,
			DurationSec: float64(seg.EndMs-seg.StartMs) / 1000,
			Title:       best.Title,
			Artist:      best.Artist,
			Confidence:  best.Confidence,
			Method:      best.Method,
		}
	}

	return models.Undetected(seg)
}
