package audioengine

import (
	"errors"
	"fmt"
	"io"
)

var (
	// ErrFileTooShort is returned when a source cannot fill the minimum number
	// of blocks the measurement needs.
	ErrFileTooShort = errors.New("file too short")

	// ErrInvalidConfiguration marks a contract violation such as a
	// non-positive sample rate or an unusable analyzer Config.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// Source is one decoded audio stream. It is owned by a single analysis and
// must be closed by whoever opened it.
type Source interface {
	// SampleRate in Hz.
	SampleRate() int
	// Channels count (1=mono, 2=stereo, ...).
	Channels() int
	// Frames per channel. Compressed formats may only know an estimate;
	// 0 means unknown.
	Frames() int
	// Read fills dst[c][:n] for every channel c with samples in [-1, 1] and
	// returns n. Once the stream is exhausted it returns 0, io.EOF.
	Read(dst [][]float64) (int, error)
	// Close releases the decoder.
	Close() error
}

// MemorySource serves channel-major samples that are already in memory.
type MemorySource struct {
	rate int
	data [][]float64
	pos  int
}

// NewMemorySource wraps data (one slice per channel, all the same length).
func NewMemorySource(sampleRate int, data [][]float64) (*MemorySource, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate %d", ErrInvalidConfiguration, sampleRate)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: no channels", ErrInvalidConfiguration)
	}
	frames := len(data[0])
	for c, ch := range data {
		if len(ch) != frames {
			return nil, fmt.Errorf("%w: channel %d has %d frames, want %d", ErrInvalidConfiguration, c, len(ch), frames)
		}
	}
	return &MemorySource{rate: sampleRate, data: data}, nil
}

// NewInterleavedSource splits interleaved samples into a MemorySource.
// A trailing partial frame is dropped.
func NewInterleavedSource(sampleRate, channels int, samples []float64) (*MemorySource, error) {
	if channels <= 0 {
		return nil, fmt.Errorf("%w: channel count %d", ErrInvalidConfiguration, channels)
	}
	frames := len(samples) / channels
	data := make([][]float64, channels)
	for c := range data {
		data[c] = make([]float64, frames)
	}
	for i := 0; i < frames; i++ {
		for c := 0; c < channels; c++ {
			data[c][i] = samples[i*channels+c]
		}
	}
	return NewMemorySource(sampleRate, data)
}

func (m *MemorySource) SampleRate() int { return m.rate }
func (m *MemorySource) Channels() int   { return len(m.data) }
func (m *MemorySource) Frames() int     { return len(m.data[0]) }

func (m *MemorySource) Read(dst [][]float64) (int, error) {
	if m.pos >= m.Frames() {
		return 0, io.EOF
	}
	n := 0
	for c, ch := range m.data {
		n = copy(dst[c], ch[m.pos:])
	}
	m.pos += n
	return n, nil
}

func (m *MemorySource) Close() error { return nil }
