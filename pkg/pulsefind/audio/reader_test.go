package audio

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// encodeWAV writes a 16-bit PCM WAV file and returns its bytes.
func encodeWAV(t *testing.T, samples []int, sampleRate, channels int) []byte {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating wav file: %v", err)
	}

	enc := wav.NewEncoder(f, sampleRate, 16, channels, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           samples,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encoding wav: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("closing encoder: %v", err)
	}
	f.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading wav back: %v", err)
	}
	return data
}

func sineSamples(n int, freq float64, sampleRate int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = int(0.5 * 32767 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate)))
	}
	return out
}

func TestDecodeWAVMono(t *testing.T) {
	const rate = 11025
	data := encodeWAV(t, sineSamples(rate, 440, rate), rate, 1)

	sample, err := DecodeWAV(data)
	if err != nil {
		t.Fatalf("DecodeWAV failed: %v", err)
	}

	if sample.SampleRate != rate {
		t.Errorf("sample rate = %d, want %d", sample.SampleRate, rate)
	}
	if len(sample.Samples) != rate {
		t.Errorf("got %d samples, want %d", len(sample.Samples), rate)
	}
	if sample.ByteLen != len(data) {
		t.Errorf("ByteLen = %d, want %d", sample.ByteLen, len(data))
	}

	var peak float64
	for _, v := range sample.Samples {
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}
	if peak > 1.0 || peak < 0.4 {
		t.Errorf("peak amplitude = %f, want roughly 0.5 in [-1,1]", peak)
	}

	ms := sample.DurationMs()
	if ms < 990 || ms > 1010 {
		t.Errorf("duration = %dms, want ~1000ms", ms)
	}
}

func TestDecodeWAVStereoAveraged(t *testing.T) {
	const rate = 8000
	// Interleaved L/R where the channels cancel: mono mix should be ~0.
	frames := 1000
	samples := make([]int, frames*2)
	for i := 0; i < frames; i++ {
		samples[i*2] = 10000
		samples[i*2+1] = -10000
	}
	data := encodeWAV(t, samples, rate, 2)

	sample, err := DecodeWAV(data)
	if err != nil {
		t.Fatalf("DecodeWAV failed: %v", err)
	}

	if len(sample.Samples) != frames {
		t.Fatalf("got %d frames, want %d", len(sample.Samples), frames)
	}
	for i, v := range sample.Samples {
		if math.Abs(v) > 1e-9 {
			t.Fatalf("frame %d = %f, want 0 after channel averaging", i, v)
		}
	}
}

func TestDecodeWAVEmpty(t *testing.T) {
	if _, err := DecodeWAV(nil); !errors.Is(err, ErrNoAudio) {
		t.Errorf("expected ErrNoAudio, got %v", err)
	}
}

func TestDecodeWAVGarbage(t *testing.T) {
	if _, err := DecodeWAV([]byte("definitely not a wav file")); !errors.Is(err, ErrUnreadableAudio) {
		t.Errorf("expected ErrUnreadableAudio, got %v", err)
	}
}

func TestReadWAVFile(t *testing.T) {
	const rate = 11025
	data := encodeWAV(t, sineSamples(rate/2, 220, rate), rate, 1)

	path := filepath.Join(t.TempDir(), "read.wav")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("writing wav: %v", err)
	}

	sample, err := ReadWAVFile(path)
	if err != nil {
		t.Fatalf("ReadWAVFile failed: %v", err)
	}
	if len(sample.Samples) != rate/2 {
		t.Errorf("got %d samples, want %d", len(sample.Samples), rate/2)
	}
}

func TestReadWAVFileMissing(t *testing.T) {
	if _, err := ReadWAVFile("/nonexistent/missing.wav"); err == nil {
		t.Error("expected error for missing file")
	}
}
