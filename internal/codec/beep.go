package codec

import (
	"errors"
	"io"
	"os"

	"github.com/faiface/beep"
	"github.com/faiface/beep/flac"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/vorbis"

	"drmeter/pkg/audioengine"
)

// beepChunkFrames bounds one Stream call.
const beepChunkFrames = 8192

func openMP3(f *os.File) (audioengine.Source, error) {
	s, format, err := mp3.Decode(f)
	if err != nil {
		return nil, err
	}
	return newBeepSource(f, s, format), nil
}

func openFLAC(f *os.File) (audioengine.Source, error) {
	s, format, err := flac.Decode(f)
	if err != nil {
		return nil, err
	}
	return newBeepSource(f, s, format), nil
}

func openVorbis(f *os.File) (audioengine.Source, error) {
	s, format, err := vorbis.Decode(f)
	if err != nil {
		return nil, err
	}
	return newBeepSource(f, s, format), nil
}

// beepSource adapts a beep streamer. beep always yields stereo pairs and
// duplicates mono into both, so only the first Format.NumChannels columns
// are exposed.
type beepSource struct {
	file     *os.File
	stream   beep.StreamSeekCloser
	rate     int
	channels int
	buf      [][2]float64
}

func newBeepSource(f *os.File, s beep.StreamSeekCloser, format beep.Format) *beepSource {
	channels := min(max(format.NumChannels, 1), 2)
	return &beepSource{
		file:     f,
		stream:   s,
		rate:     int(format.SampleRate),
		channels: channels,
		buf:      make([][2]float64, beepChunkFrames),
	}
}

func (s *beepSource) SampleRate() int { return s.rate }
func (s *beepSource) Channels() int   { return s.channels }

// Frames is 0 when the container does not record a length, as FLAC
// STREAMINFO may not.
func (s *beepSource) Frames() int { return s.stream.Len() }

func (s *beepSource) Read(dst [][]float64) (int, error) {
	want := min(len(dst[0]), len(s.buf))
	if want == 0 {
		return 0, nil
	}
	n, ok := s.stream.Stream(s.buf[:want])
	if !ok && n == 0 {
		if err := s.stream.Err(); err != nil {
			return 0, err
		}
		return 0, io.EOF
	}
	for i := 0; i < n; i++ {
		for c := 0; c < s.channels; c++ {
			dst[c][i] = s.buf[i][c]
		}
	}
	return n, nil
}

// Close closes the decoder, which for most formats also closes the file.
func (s *beepSource) Close() error {
	err := s.stream.Close()
	if ferr := s.file.Close(); ferr != nil && !errors.Is(ferr, os.ErrClosed) && err == nil {
		err = ferr
	}
	return err
}
