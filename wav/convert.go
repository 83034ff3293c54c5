package wav

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/buger/jsonparser"

	"setfinder/utils"
)

// ConvertToWAV transcodes an input audio file to 16-bit PCM mono WAV
// at 44.1 kHz and returns the path of the converted file. The source
// file is left in place.
func ConvertToWAV(inputFilePath string) (wavFilePath string, err error) {
	if _, err = os.Stat(inputFilePath); err != nil {
		return "", fmt.Errorf("input file does not exist: %v", err)
	}

	fileExt := filepath.Ext(inputFilePath)
	outputFile := strings.TrimSuffix(inputFilePath, fileExt) + "_pcm.wav"

	// Output file may already exist. If it does FFmpeg will fail as
	// it cannot edit existing files in-place. Use a temporary file.
	tmpFile := filepath.Join(filepath.Dir(outputFile), "tmp_"+filepath.Base(outputFile))
	defer os.Remove(tmpFile)

	cmd := exec.Command(
		"ffmpeg",
		"-y",
		"-i", inputFilePath,
		"-vn",
		"-c", "pcm_s16le",
		"-ar", "44100",
		"-ac", "1",
		tmpFile,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("failed to convert to WAV: %v, output %v", err, string(output))
	}

	if err := utils.MoveFile(tmpFile, outputFile); err != nil {
		return "", fmt.Errorf("failed to rename temporary file to output file: %v", err)
	}

	return outputFile, nil
}

// EnsureWAV returns the input path if it already is a WAV file,
// otherwise converts it. The second return reports whether a converted
// file was created and should be cleaned up by the caller.
func EnsureWAV(inputFilePath string) (string, bool, error) {
	if strings.EqualFold(filepath.Ext(inputFilePath), ".wav") {
		return inputFilePath, false, nil
	}
	converted, err := ConvertToWAV(inputFilePath)
	if err != nil {
		return "", false, err
	}
	return converted, true, nil
}

// ExtractChunkAsWAV uses ffmpeg to extract a time window from any
// audio file and write it as 16-bit PCM mono WAV. The result is a
// small temporary file bounded by durationSec regardless of original
// file size.
func ExtractChunkAsWAV(inputPath string, startSec, durationSec float64) (string, error) {
	if err := utils.CreateFolder("tmp"); err != nil {
		return "", err
	}

	outputFile := filepath.Join("tmp", fmt.Sprintf("chunk_%d_%.0f.wav", time.Now().UnixNano(), startSec))

	cmd := exec.Command(
		"ffmpeg", "-y",
		"-ss", fmt.Sprintf("%.3f", startSec),
		"-t", fmt.Sprintf("%.3f", durationSec),
		"-i", inputPath,
		"-c", "pcm_s16le",
		"-ar", "44100",
		"-ac", "1",
		outputFile,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("ffmpeg chunk extraction failed: %v, output: %s", err, output)
	}

	return outputFile, nil
}

// GetAudioDuration returns the duration in seconds of any audio file
// by calling ffprobe.
func GetAudioDuration(inputPath string) (float64, error) {
	cmd := exec.Command(
		"ffprobe",
		"-v", "quiet",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		inputPath,
	)

	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration query failed: %v", err)
	}

	return strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
}

// Metadata holds the container-level information ffprobe reports.
type Metadata struct {
	DurationSec float64
	Tags        map[string]string
}

// GetMetadata reads format duration and tags (title, artist, ...)
// from any audio file via ffprobe's JSON output.
func GetMetadata(inputPath string) (*Metadata, error) {
	cmd := exec.Command(
		"ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		inputPath,
	)

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe metadata query failed: %v", err)
	}

	meta := &Metadata{Tags: map[string]string{}}

	if durStr, err := jsonparser.GetString(out, "format", "duration"); err == nil {
		if dur, err := strconv.ParseFloat(durStr, 64); err == nil {
			meta.DurationSec = dur
		}
	}

	_ = jsonparser.ObjectEach(out, func(key, value []byte, _ jsonparser.ValueType, _ int) error {
		meta.Tags[strings.ToLower(string(key))] = string(value)
		return nil
	}, "format", "tags")

	return meta, nil
}
