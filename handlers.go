package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"setfinder/db"
	"setfinder/detect"
	"setfinder/dsp"
	"setfinder/models"
	"setfinder/refdb"
	"setfinder/utils"
)

const maxUploadSize = 5000 << 20 // 5 GB

type analyzeResponse struct {
	File     string                   `json:"file"`
	Segments int                      `json:"segments"`
	Detected int                      `json:"detected"`
	Results  []models.DetectionResult `json:"results"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	log.Printf("[error] %d: %s", status, msg)
	writeJSON(w, status, map[string]string{"error": msg})
}

func formatBytes(b int64) string {
	switch {
	case b >= 1<<30:
		return fmt.Sprintf("%.1f GB", float64(b)/float64(1<<30))
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/float64(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

// server bundles the long-lived state serve mode needs: the reference
// database built once at startup and shared read-only by all requests.
type server struct {
	refs     *refdb.Database
	pipeline *detect.Pipeline
	cfg      dsp.AnalysisConfig
	appCfg   utils.Config
	opts     scanOptions
}

func serve(port string, opts scanOptions) {
	appCfg, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}

	cfg := dsp.DefaultAnalysisConfig()
	refs := refdb.Build(opts.refsDir, cfg)

	s := &server{
		refs:     refs,
		pipeline: buildPipeline(refs, cfg, appCfg),
		cfg:      cfg,
		appCfg:   appCfg,
		opts:     opts,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/analyze", s.handleAnalyze)
	mux.HandleFunc("/api/results", s.handleResults)
	mux.HandleFunc("/api/references", s.handleReferences)

	handler := requestLogger(corsMiddleware(mux))

	log.Printf("starting server on port %s", port)
	if err := http.ListenAndServe(":"+port, handler); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: 200}
		next.ServeHTTP(rec, r)

		if strings.HasPrefix(r.URL.Path, "/api/") {
			log.Printf("[http] %s %s -> %d (%s)", r.Method, r.URL.Path, rec.status, time.Since(start))
		}
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func saveUploadedFile(r *http.Request) (string, string, int64, error) {
	file, header, err := r.FormFile("file")
	if err != nil {
		return "", "", 0, fmt.Errorf("no file provided: %v", err)
	}
	defer file.Close()

	if err := utils.CreateFolder("tmp"); err != nil {
		return "", "", 0, fmt.Errorf("failed to create tmp dir: %v", err)
	}

	tmpPath := filepath.Join("tmp", header.Filename)
	dst, err := os.Create(tmpPath)
	if err != nil {
		return "", "", 0, fmt.Errorf("failed to create temp file: %v", err)
	}
	defer dst.Close()

	written, err := io.Copy(dst, file)
	if err != nil {
		return "", "", 0, fmt.Errorf("failed to write file: %v", err)
	}

	return tmpPath, header.Filename, written, nil
}

// handleAnalyze accepts an uploaded recording, runs the full
// segmentation-and-identification pipeline, persists the results, and
// returns them in segment order.
func (s *server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "file too large or invalid form")
		return
	}

	tmpPath, filename, fileSize, err := saveUploadedFile(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer os.Remove(tmpPath)

	log.Printf("[analyze] file saved: %s (%s)", filename, formatBytes(fileSize))

	opts := s.opts
	if v := r.FormValue("min_silence"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			opts.minSilenceMs = ms
		}
	}

	results, err := processRecording(r.Context(), tmpPath, s.pipeline, s.cfg, opts)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	for i := range results {
		results[i].File = filename
	}

	if client, err := db.NewClient(s.appCfg.ResultsDB); err == nil {
		if err := client.SaveResults(results); err != nil {
			log.Printf("[analyze] warning: couldn't persist results: %v", err)
		}
		client.Close()
	}

	detected := 0
	for _, res := range results {
		if res.Title != models.UndetectedTitle {
			detected++
		}
	}

	writeJSON(w, http.StatusOK, analyzeResponse{
		File:     filename,
		Segments: len(results),
		Detected: detected,
		Results:  results,
	})
}

// handleResults lists stored detection results, optionally filtered by file.
func (s *server) handleResults(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}

	client, err := db.NewClient(s.appCfg.ResultsDB)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "results database unavailable")
		return
	}
	defer client.Close()

	results, err := client.ListResults(r.URL.Query().Get("file"), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, results)
}

type referenceEntry struct {
	Name  string `json:"name"`
	Tempo int    `json:"tempo"`
	Key   string `json:"key"`
}

// handleReferences lists the reference database entries.
func (s *server) handleReferences(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	entries := make([]referenceEntry, 0, s.refs.Len())
	for _, e := range s.refs.Entries() {
		entries = append(entries, referenceEntry{
			Name:  e.Name,
			Tempo: int(e.Signature.Tempo),
			Key:   dsp.DominantKey(e.Signature.Chroma),
		})
	}
	writeJSON(w, http.StatusOK, entries)
}
