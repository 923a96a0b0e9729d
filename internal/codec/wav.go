package codec

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	dspwav "github.com/mjibson/go-dsp/wav"

	"drmeter/pkg/audioengine"
)

const (
	wavFormatIEEEFloat = 3

	// frames decoded per PCMBuffer call
	wavChunkFrames = 48000
)

// openWAV dispatches integer PCM to go-audio and IEEE float to go-dsp.
func openWAV(f *os.File) (audioengine.Source, error) {
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, errors.New("not a RIFF/WAVE file")
	}
	if dec.WavAudioFormat == wavFormatIEEEFloat {
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
		return openFloatWAV(f)
	}

	if err := dec.FwdToPCM(); err != nil {
		return nil, err
	}
	channels, rate, depth := int(dec.NumChans), int(dec.SampleRate), int(dec.BitDepth)
	if channels <= 0 || rate <= 0 {
		return nil, fmt.Errorf("bad header: %d channels at %d Hz", channels, rate)
	}
	switch depth {
	case 8, 16, 24, 32:
	default:
		return nil, fmt.Errorf("unsupported bit depth %d", depth)
	}

	frameBytes := channels * depth / 8
	s := &wavSource{
		file:     f,
		dec:      dec,
		rate:     rate,
		channels: channels,
		frames:   int(dec.PCMSize) / frameBytes,
		buf: &audio.IntBuffer{
			Data:   make([]int, wavChunkFrames*channels),
			Format: &audio.Format{NumChannels: channels, SampleRate: rate},
		},
	}
	if depth == 8 {
		// 8-bit WAV is unsigned
		s.offset, s.scale = 128, 128
	} else {
		s.scale = float64(int64(1) << (depth - 1))
	}
	return s, nil
}

// wavSource streams integer PCM through go-audio's IntBuffer.
type wavSource struct {
	file     *os.File
	dec      *wav.Decoder
	rate     int
	channels int
	frames   int
	buf      *audio.IntBuffer
	pending  []int
	work     []int
	offset   int
	scale    float64
	eof      bool
}

func (s *wavSource) SampleRate() int { return s.rate }
func (s *wavSource) Channels() int   { return s.channels }
func (s *wavSource) Frames() int     { return s.frames }

func (s *wavSource) Read(dst [][]float64) (int, error) {
	if len(s.pending) < s.channels {
		if err := s.refill(); err != nil {
			return 0, err
		}
	}

	n := min(len(dst[0]), len(s.pending)/s.channels)
	for i := 0; i < n; i++ {
		for c := 0; c < s.channels; c++ {
			dst[c][i] = float64(s.pending[i*s.channels+c]-s.offset) / s.scale
		}
	}
	s.pending = s.pending[n*s.channels:]
	return n, nil
}

// refill decodes the next chunk. PCMBuffer may stop mid-frame, so leftover
// samples of a partial frame are carried into the next chunk.
func (s *wavSource) refill() error {
	for len(s.pending) < s.channels {
		if s.eof {
			return io.EOF
		}
		n, err := s.dec.PCMBuffer(s.buf)
		if err != nil {
			return err
		}
		if n == 0 {
			s.eof = true
			continue
		}
		s.work = append(append(s.work[:0], s.pending...), s.buf.Data[:n]...)
		s.pending = s.work
	}
	return nil
}

func (s *wavSource) Close() error { return s.file.Close() }

// floatWAVSource streams IEEE float samples through go-dsp.
type floatWAVSource struct {
	file     *os.File
	dec      *dspwav.Wav
	channels int
	left     int
}

func openFloatWAV(f *os.File) (audioengine.Source, error) {
	dec, err := dspwav.New(f)
	if err != nil {
		return nil, err
	}
	channels := int(dec.NumChannels)
	if channels <= 0 || dec.SampleRate <= 0 {
		return nil, fmt.Errorf("bad header: %d channels at %d Hz", channels, dec.SampleRate)
	}
	if dec.BitsPerSample != 32 {
		return nil, fmt.Errorf("unsupported float width %d", dec.BitsPerSample)
	}
	return &floatWAVSource{file: f, dec: dec, channels: channels, left: dec.Samples}, nil
}

func (s *floatWAVSource) SampleRate() int { return int(s.dec.SampleRate) }
func (s *floatWAVSource) Channels() int   { return s.channels }
func (s *floatWAVSource) Frames() int     { return s.dec.Samples / s.channels }

func (s *floatWAVSource) Read(dst [][]float64) (int, error) {
	want := min(len(dst[0])*s.channels, s.left-s.left%s.channels)
	if want <= 0 {
		return 0, io.EOF
	}
	samples, err := s.dec.ReadFloats(want)
	if err != nil && err != io.EOF {
		return 0, err
	}
	n := len(samples) / s.channels
	if n == 0 {
		return 0, io.EOF
	}
	for i := 0; i < n; i++ {
		for c := 0; c < s.channels; c++ {
			v := float64(samples[i*s.channels+c])
			if math.IsNaN(v) || math.IsInf(v, 0) {
				frame := (s.dec.Samples-s.left)/s.channels + i
				return 0, fmt.Errorf("%w: non-finite sample at frame %d", ErrDecodeFailure, frame)
			}
			dst[c][i] = v
		}
	}
	s.left -= n * s.channels
	return n, nil
}

func (s *floatWAVSource) Close() error { return s.file.Close() }
