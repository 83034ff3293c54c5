package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"time"

	"github.com/fatih/color"

	"setfinder/db"
	"setfinder/detect"
	"setfinder/dsp"
	"setfinder/models"
	"setfinder/refdb"
	"setfinder/utils"
	"setfinder/wav"
)

// scanOptions carries the per-run tuning flags shared by scan and process.
type scanOptions struct {
	refsDir      string
	outDir       string
	minSilenceMs int
	keepMs       int
	threshDB     float64
	threshSet    bool
	windowSec    int
}

func buildPipeline(refs *refdb.Database, cfg dsp.AnalysisConfig, appCfg utils.Config) *detect.Pipeline {
	var strategies []detect.Strategy

	if appCfg.RecognizeURL != "" {
		strategies = append(strategies, detect.NewRecognizer(
			appCfg.RecognizeURL,
			appCfg.RecognizeToken,
			time.Duration(appCfg.RecognizeTimeout)*time.Second,
		))
	} else {
		utils.Logger().Debug("no recognition service configured, skipping strategy")
	}

	strategies = append(strategies,
		&detect.ReferenceMatcher{DB: refs, Cfg: cfg},
		&detect.TempoHeuristic{Cfg: cfg},
	)

	pipeline := detect.NewPipeline(strategies...)
	pipeline.MinSegmentSec = cfg.MinSegmentSec
	pipeline.Workers = appCfg.Workers
	return pipeline
}

// scan batch-processes every audio file in a folder: segment, identify,
// export a combined CSV, and persist results. Per-file failures are
// counted and reported but never abort the rest of the batch.
func scan(folder string, opts scanOptions) {
	log := utils.Logger()

	files, err := utils.FindAudioFiles(folder)
	if err != nil {
		log.WithError(err).Error("couldn't list input folder")
		return
	}
	if len(files) == 0 {
		log.WithField("folder", folder).Error("no audio files found")
		return
	}
	log.Infof("found %d audio files", len(files))

	appCfg, err := utils.LoadConfig()
	if err != nil {
		log.WithError(err).Error("configuration error")
		return
	}

	cfg := dsp.DefaultAnalysisConfig()
	refs := refdb.Build(opts.refsDir, cfg)
	pipeline := buildPipeline(refs, cfg, appCfg)

	if err := utils.CreateFolder(opts.outDir); err != nil {
		log.WithError(err).Error("couldn't create output folder")
		return
	}

	// a user interrupt stops dispatching new segment work; completed
	// analyses are kept and reported
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var allResults []models.DetectionResult
	failures := 0

	for _, file := range files {
		if ctx.Err() != nil {
			log.Warn("interrupted, reporting partial results")
			break
		}

		results, err := processRecording(ctx, file, pipeline, cfg, opts)
		if err != nil {
			log.WithField("file", filepath.Base(file)).WithError(err).Error("failed to process file")
			failures++
			continue
		}
		allResults = append(allResults, results...)
	}

	if len(allResults) == 0 {
		log.Warn("no segments detected in any files")
		return
	}

	csvPath := filepath.Join(opts.outDir, "rehearsal_analysis.csv")
	if err := saveCSV(allResults, csvPath); err != nil {
		log.WithError(err).Error("couldn't write CSV report")
	} else {
		log.Infof("results saved to %s", csvPath)
	}

	if client, err := db.NewClient(appCfg.ResultsDB); err != nil {
		log.WithError(err).Warn("couldn't open results database")
	} else {
		if err := client.SaveResults(allResults); err != nil {
			log.WithError(err).Warn("couldn't persist results")
		}
		client.Close()
	}

	detected := 0
	for _, r := range allResults {
		if r.Title != models.UndetectedTitle {
			detected++
		}
	}

	color.Green("analysis complete: %d/%d segments detected", detected, len(allResults))
	if failures > 0 {
		color.Yellow("%d file(s) failed", failures)
	}
}

// processRecording runs the full per-file pipeline: decode, threshold,
// segment, identify.
func processRecording(ctx context.Context, path string, pipeline *detect.Pipeline, cfg dsp.AnalysisConfig, opts scanOptions) ([]models.DetectionResult, error) {
	log := utils.Logger().WithField("file", filepath.Base(path))
	log.Info("processing")

	if meta, err := wav.GetMetadata(path); err == nil {
		if title := meta.Tags["title"]; title != "" {
			log.Infof("tagged title: %q (%.0fs)", title, meta.DurationSec)
		}
	}

	wavPath, cleanup, err := wav.EnsureWAV(path)
	if err != nil {
		return nil, err
	}
	if cleanup {
		defer os.Remove(wavPath)
	}

	buf, err := wav.ReadWAV(wavPath)
	if err != nil {
		return nil, err
	}

	var segments []models.Segment
	if opts.windowSec > 0 {
		segments = fixedWindowSegments(buf, opts.windowSec)
		log.Infof("analyzing %d fixed %ds windows", len(segments), opts.windowSec)
	} else {
		threshold := resolveThreshold(buf, cfg, opts)
		log.Infof("using silence threshold: %.0f dBFS", threshold)

		segments = dsp.Split(buf, threshold, opts.minSilenceMs, opts.keepMs, cfg.SeekWindowMs)
		log.Infof("found %d song segments", len(segments))
	}

	results := pipeline.Analyze(ctx, segments)
	for i := range results {
		results[i].File = filepath.Base(path)
	}
	return results, nil
}

func resolveThreshold(buf *models.AudioBuffer, cfg dsp.AnalysisConfig, opts scanOptions) float64 {
	if opts.threshSet {
		return opts.threshDB
	}
	profile := dsp.Profile(buf, cfg.LoudnessWindowMs)
	return dsp.RecommendThreshold(profile, cfg)
}

// fixedWindowSegments slices a buffer into consecutive windows of
// windowSec seconds, for recordings where silence splitting is not
// wanted. The trailing remainder is kept with its true length; the
// pipeline drops it if it is too short to analyze.
func fixedWindowSegments(buf *models.AudioBuffer, windowSec int) []models.Segment {
	durationMs := buf.DurationMs()
	windowMs := windowSec * 1000

	var segments []models.Segment
	for start := 0; start < durationMs; start += windowMs {
		end := start + windowMs
		if end > durationMs {
			end = durationMs
		}
		segments = append(segments, models.Segment{
			Index:   len(segments) + 1,
			StartMs: start,
			EndMs:   end,
			Audio:   buf.Slice(start, end),
		})
	}
	return segments
}

// processFile handles the process subcommand: split a single file into
// per-segment WAVs, or trim its silence into one continuous WAV.
func processFile(path, mode string, opts scanOptions) {
	log := utils.Logger().WithField("file", filepath.Base(path))
	cfg := dsp.DefaultAnalysisConfig()

	wavPath, cleanup, err := wav.EnsureWAV(path)
	if err != nil {
		log.WithError(err).Error("couldn't prepare input")
		return
	}
	if cleanup {
		defer os.Remove(wavPath)
	}

	buf, err := wav.ReadWAV(wavPath)
	if err != nil {
		log.WithError(err).Error("couldn't decode input")
		return
	}

	threshold := resolveThreshold(buf, cfg, opts)
	log.Infof("using silence threshold: %.0f dBFS", threshold)

	if err := utils.CreateFolder(opts.outDir); err != nil {
		log.WithError(err).Error("couldn't create output folder")
		return
	}

	base := filepath.Base(path)
	name := base[:len(base)-len(filepath.Ext(base))]

	switch mode {
	case "split":
		segments := dsp.Split(buf, threshold, opts.minSilenceMs, opts.keepMs, cfg.SeekWindowMs)
		log.Infof("detected %d segments", len(segments))
		for _, seg := range segments {
			outPath := filepath.Join(opts.outDir, fmt.Sprintf("%s_segment_%d.wav", name, seg.Index))
			if err := wav.WriteWAV(outPath, seg.Audio); err != nil {
				log.WithError(err).Errorf("couldn't export segment %d", seg.Index)
				continue
			}
			log.Infof("exported %s (%.2fs)", outPath, float64(seg.EndMs-seg.StartMs)/1000)
		}

	case "trim":
		trimmed, ok := dsp.Trim(buf, threshold, opts.minSilenceMs, cfg.SeekWindowMs)
		if !ok {
			log.Warn("no non-silent content found, skipping output")
			return
		}
		outPath := filepath.Join(opts.outDir, name+"_trimmed.wav")
		if err := wav.WriteWAV(outPath, trimmed); err != nil {
			log.WithError(err).Error("couldn't export trimmed file")
			return
		}
		log.Infof("exported trimmed file: %s", outPath)

	default:
		fmt.Println("unknown mode:", mode)
	}
}

// thresholdCmd prints the recommended silence threshold for a file.
func thresholdCmd(path string) {
	log := utils.Logger()
	cfg := dsp.DefaultAnalysisConfig()

	wavPath, cleanup, err := wav.EnsureWAV(path)
	if err != nil {
		log.WithError(err).Error("couldn't prepare input")
		return
	}
	if cleanup {
		defer os.Remove(wavPath)
	}

	buf, err := wav.ReadWAV(wavPath)
	if err != nil {
		log.WithError(err).Error("couldn't decode input")
		return
	}

	profile := dsp.Profile(buf, cfg.LoudnessWindowMs)
	threshold := dsp.RecommendThreshold(profile, cfg)
	fmt.Printf("recommended silence threshold: %.0f dBFS\n", threshold)
}

// refsCmd builds the reference database and lists its entries.
func refsCmd(folder string) {
	cfg := dsp.DefaultAnalysisConfig()
	refs := refdb.Build(folder, cfg)

	if refs.Len() == 0 {
		fmt.Println("no reference signatures built")
		return
	}

	fmt.Printf("%d reference signatures:\n", refs.Len())
	for _, entry := range refs.Entries() {
		fmt.Printf("\t- %s (%.0f BPM, key %s)\n",
			entry.Name, entry.Signature.Tempo, dsp.DominantKey(entry.Signature.Chroma))
	}
}

func saveCSV(results []models.DetectionResult, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"file", "segment", "start_time", "duration_s", "song", "artist", "confidence", "method"}); err != nil {
		return err
	}

	for _, r := range results {
		record := []string{
			r.File,
			strconv.Itoa(r.Segment),
			msToTimestamp(r.StartMs),
			strconv.Itoa(int(r.DurationSec)),
			r.Title,
			r.Artist,
			strconv.FormatFloat(r.Confidence, 'f', 2, 64),
			r.Method,
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	return nil
}

// msToTimestamp formats milliseconds as MM:SS.
func msToTimestamp(ms int) string {
	seconds := ms / 1000
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
