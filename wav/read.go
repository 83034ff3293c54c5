package wav

import (
	"math"
	"os"

	"github.com/go-audio/audio"
	gowav "github.com/go-audio/wav"
	"github.com/mdobak/go-xerrors"

	"setfinder/models"
)

// ReadWAV decodes a PCM WAV file into an AudioBuffer with samples
// normalized to [-1, 1].
func ReadWAV(path string) (*models.AudioBuffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, xerrors.New("opening wav file", err)
	}
	defer f.Close()

	decoder := gowav.NewDecoder(f)
	if !decoder.IsValidFile() {
		return nil, xerrors.New("not a valid wav file: " + path)
	}

	intBuf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, xerrors.New("decoding wav data", err)
	}

	bitDepth := int(decoder.BitDepth)
	if bitDepth == 0 {
		bitDepth = 16
	}
	scale := float64(int64(1) << (bitDepth - 1))

	samples := make([]float64, len(intBuf.Data))
	for i, s := range intBuf.Data {
		samples[i] = float64(s) / scale
	}

	return &models.AudioBuffer{
		Samples:    samples,
		SampleRate: intBuf.Format.SampleRate,
		Channels:   intBuf.Format.NumChannels,
	}, nil
}

// WriteWAV encodes a buffer as 16-bit PCM WAV.
func WriteWAV(path string, buf *models.AudioBuffer) error {
	f, err := os.Create(path)
	if err != nil {
		return xerrors.New("creating wav file", err)
	}
	defer f.Close()

	encoder := gowav.NewEncoder(f, buf.SampleRate, 16, buf.Channels, 1)

	data := make([]int, len(buf.Samples))
	for i, s := range buf.Samples {
		v := math.Round(s * 32767)
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		data[i] = int(v)
	}

	intBuf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: buf.Channels, SampleRate: buf.SampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}

	if err := encoder.Write(intBuf); err != nil {
		return xerrors.New("writing wav data", err)
	}
	return encoder.Close()
}
