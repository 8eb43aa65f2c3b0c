// Package audio converts between floating-point sample buffers and the
// 16-bit little-endian PCM encoding carried on the wire. All functions are
// pure; the package holds no state and performs no I/O.
package audio

import (
	"encoding/base64"
	"fmt"
	"math"
	"time"
)

const (
	// CaptureSampleRate is the microphone capture rate in Hz.
	CaptureSampleRate = 16000
	// PlaybackSampleRate is the assistant audio output rate in Hz.
	PlaybackSampleRate = 24000
	// BytesPerSample is the width of one 16-bit PCM sample.
	BytesPerSample = 2

	// CaptureMIMEType identifies outbound microphone chunks.
	CaptureMIMEType = "audio/pcm;rate=16000"
)

// Chunk is an encoded PCM block ready for transmission.
type Chunk struct {
	Data     string `json:"data"`
	MIMEType string `json:"mimeType"`
}

// Encode converts float samples in [-1, 1] to base64-wrapped 16-bit
// little-endian PCM. Samples are scaled by 32768 and truncated; no
// dithering. An empty input encodes to an empty chunk.
func Encode(samples []float32) Chunk {
	buf := make([]byte, len(samples)*BytesPerSample)
	for i, sample := range samples {
		v := float64(sample) * 32768.0
		if v > 32767 {
			v = 32767
		}
		if v < -32768 {
			v = -32768
		}
		s := int16(v)
		buf[i*2] = byte(s)
		buf[i*2+1] = byte(s >> 8)
	}
	return Chunk{
		Data:     base64.StdEncoding.EncodeToString(buf),
		MIMEType: CaptureMIMEType,
	}
}

// Decode converts 16-bit little-endian PCM bytes back to float samples.
// A zero-length input is a real runtime condition (the service can send an
// empty chunk) and yields an empty, non-nil slice. A trailing odd byte is
// ignored.
func Decode(pcm []byte) []float32 {
	samples := make([]float32, 0, len(pcm)/BytesPerSample)
	for i := 0; i+1 < len(pcm); i += 2 {
		s := int16(pcm[i]) | int16(pcm[i+1])<<8
		samples = append(samples, float32(s)/32768.0)
	}
	return samples
}

// DecodeBase64 decodes a base64-wrapped PCM chunk. Malformed base64 is a
// decode failure, signaled distinctly from a valid-but-empty payload.
func DecodeBase64(data string) ([]float32, error) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("decode pcm chunk: %w", err)
	}
	return Decode(raw), nil
}

// Duration returns the playback duration of n samples at the given rate.
func Duration(n, sampleRate int) time.Duration {
	if sampleRate <= 0 || n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second / time.Duration(sampleRate)
}

// BytesForDuration returns the PCM byte count covering d at the given rate.
func BytesForDuration(d time.Duration, sampleRate int) int {
	if sampleRate <= 0 || d <= 0 {
		return 0
	}
	return int(int64(sampleRate)*int64(d)/int64(time.Second)) * BytesPerSample
}

// RMSEnergy computes the root-mean-square energy of float samples.
// Returns a value between 0.0 and 1.0.
func RMSEnergy(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// PeakAmplitude returns the maximum absolute amplitude in the samples.
func PeakAmplitude(samples []float32) float64 {
	var peak float64
	for _, s := range samples {
		abs := math.Abs(float64(s))
		if abs > peak {
			peak = abs
		}
	}
	return peak
}
