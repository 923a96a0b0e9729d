package codec

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/hraban/opus"

	"drmeter/pkg/audioengine"
	"drmeter/pkg/spec"
)

// opusChunkFrames is one ReadFloat32 buffer per channel: 120 ms at 48 kHz,
// the largest Opus packet duration.
const opusChunkFrames = 5760

// openOpus decodes a whole Ogg Opus file to memory. libopusfile always
// delivers 48 kHz, interleaved in the stream's own channel count, which is
// taken from the OpusHead packet. The stream length is unknown until the
// end, hence no lazy source here.
func openOpus(f *os.File) (audioengine.Source, error) {
	defer f.Close()

	channels, err := opusChannels(f)
	if err != nil {
		return nil, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	stream, err := opus.NewStream(f)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	var samples []float64
	pcm := make([]float32, opusChunkFrames*channels)
	for {
		n, err := stream.ReadFloat32(pcm)
		if err == io.EOF || (err == nil && n == 0) {
			break
		}
		if err != nil {
			return nil, err
		}
		for _, v := range pcm[:n*channels] {
			samples = append(samples, float64(v))
		}
	}
	return audioengine.NewInterleavedSource(spec.OpusSampleRate, channels, samples)
}

// opusChannels reads the channel count from the OpusHead packet, which
// RFC 7845 places alone on the first Ogg page.
func opusChannels(r io.Reader) (int, error) {
	var hdr [27]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return 0, fmt.Errorf("ogg page header: %w", err)
	}
	if !bytes.Equal(hdr[:4], []byte("OggS")) {
		return 0, errors.New("not an Ogg stream")
	}

	segments := make([]byte, hdr[26])
	if _, err := io.ReadFull(r, segments); err != nil {
		return 0, fmt.Errorf("ogg segment table: %w", err)
	}
	size := 0
	for _, s := range segments {
		size += int(s)
	}
	if size < 19 {
		return 0, errors.New("first Ogg page holds no OpusHead")
	}

	head := make([]byte, 19)
	if _, err := io.ReadFull(r, head); err != nil {
		return 0, fmt.Errorf("OpusHead: %w", err)
	}
	if !bytes.Equal(head[:8], []byte("OpusHead")) {
		return 0, errors.New("first Ogg page holds no OpusHead")
	}
	channels := int(head[9])
	if channels == 0 {
		return 0, errors.New("OpusHead announces 0 channels")
	}
	return channels, nil
}
