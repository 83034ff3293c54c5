package detect

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"time"

	"github.com/tidwall/gjson"

	"setfinder/models"
	"setfinder/wav"
)

const recognitionConfidence = 0.9

// Recognizer submits segment audio to an external recognition service
// and parses its JSON response. Every failure mode — network error,
// service error, explicit no-match — yields an empty candidate list so
// the pipeline falls through to the next strategy.
type Recognizer struct {
	URL    string
	Token  string
	client *http.Client
}

// NewRecognizer builds a client for the recognition service. The
// timeout bounds the whole request; the service call is the only slow,
// externally fallible operation in the pipeline.
func NewRecognizer(url, token string, timeout time.Duration) *Recognizer {
	return &Recognizer{
		URL:    url,
		Token:  token,
		client: &http.Client{Timeout: timeout},
	}
}

func (r *Recognizer) Name() string { return models.MethodRecognition }

// Attempt uploads the segment as a WAV file and extracts title/artist
// from the response. A successful identification is reported with a
// fixed high confidence; the service does not expose a usable score.
func (r *Recognizer) Attempt(ctx context.Context, seg models.Segment) ([]models.Detection, error) {
	if r.URL == "" {
		return nil, nil
	}

	tmp, err := os.CreateTemp("", "segment_*.wav")
	if err != nil {
		return nil, fmt.Errorf("creating segment temp file: %v", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if err := wav.WriteWAV(tmpPath, seg.Audio); err != nil {
		return nil, fmt.Errorf("encoding segment: %v", err)
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if r.Token != "" {
		_ = writer.WriteField("api_token", r.Token)
	}
	part, err := writer.CreateFormFile("file", "segment.wav")
	if err != nil {
		return nil, fmt.Errorf("building upload: %v", err)
	}
	f, err := os.Open(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("reopening segment: %v", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		f.Close()
		return nil, fmt.Errorf("copying segment into upload: %v", err)
	}
	f.Close()
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.URL, body)
	if err != nil {
		return nil, fmt.Errorf("building recognition request: %v", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("recognition request failed: %v", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading recognition response: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("recognition service returned %d", resp.StatusCode)
	}

	parsed := gjson.ParseBytes(payload)
	if parsed.Get("status").String() != "success" {
		return nil, fmt.Errorf("recognition service error: %s", parsed.Get("error.error_message").String())
	}

	result := parsed.Get("result")
	if !result.Exists() || result.Type == gjson.Null {
		// explicit no-match
		return nil, nil
	}

	title := result.Get("title").String()
	artist := result.Get("artist").String()
	if title == "" {
		return nil, nil
	}

	return []models.Detection{{
		Title:      title,
		Artist:     artist,
		Confidence: recognitionConfidence,
		Method:     models.MethodRecognition,
	}}, nil
}
