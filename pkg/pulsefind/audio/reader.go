package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/go-audio/wav"

	"github.com/marvisomokaro4-boop/pulsefind/pkg/models"
)

// ErrNoAudio is returned when a scan request carries no audio bytes.
var ErrNoAudio = errors.New("no audio provided")

// ErrUnreadableAudio is returned when the payload is not decodable WAV.
var ErrUnreadableAudio = errors.New("unreadable audio format")

// DecodeWAV decodes a WAV payload into a mono float64 sample in [-1, 1].
// Multi-channel input is averaged down to one channel.
func DecodeWAV(data []byte) (*models.AudioSample, error) {
	if len(data) == 0 {
		return nil, ErrNoAudio
	}

	decoder := wav.NewDecoder(bytes.NewReader(data))
	if !decoder.IsValidFile() {
		return nil, ErrUnreadableAudio
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableAudio, err)
	}
	if buf == nil || len(buf.Data) == 0 {
		return nil, ErrUnreadableAudio
	}

	channels := buf.Format.NumChannels
	if channels < 1 {
		channels = 1
	}

	scale := 1.0
	if decoder.BitDepth > 0 {
		scale = math.Pow(2, float64(decoder.BitDepth)-1)
	}

	frames := len(buf.Data) / channels
	samples := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for ch := 0; ch < channels; ch++ {
			sum += float64(buf.Data[i*channels+ch])
		}
		samples[i] = sum / float64(channels) / scale
	}

	return &models.AudioSample{
		Samples:    samples,
		SampleRate: buf.Format.SampleRate,
		ByteLen:    len(data),
	}, nil
}

// ReadWAVFile decodes a WAV file from disk.
func ReadWAVFile(path string) (*models.AudioSample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	return DecodeWAV(data)
}
