// Package codec opens audio files as audioengine sources.
package codec

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"drmeter/pkg/audioengine"
)

var (
	// ErrDecodeFailure is returned when a decoder rejects a file.
	ErrDecodeFailure = errors.New("cannot decode")

	// ErrUnsupportedFormat is returned for extensions no decoder handles. It
	// wraps ErrDecodeFailure.
	ErrUnsupportedFormat = fmt.Errorf("%w: unsupported format", ErrDecodeFailure)
)

// Opener opens one file as a Source. The batch coordinator takes one so
// tests can substitute synthetic sources.
type Opener func(path string) (audioengine.Source, error)

type format struct {
	name string
	open func(f *os.File) (audioengine.Source, error)
}

var formats = map[string]format{
	".wav":  {"WAV (PCM 8/16/24/32-bit, IEEE float)", openWAV},
	".wave": {"WAV (PCM 8/16/24/32-bit, IEEE float)", openWAV},
	".mp3":  {"MPEG-1/2 Layer III", openMP3},
	".flac": {"FLAC", openFLAC},
	".ogg":  {"Ogg Vorbis", openVorbis},
	".oga":  {"Ogg Vorbis", openVorbis},
	".opus": {"Ogg Opus (48 kHz)", openOpus},
}

// Open decodes path with the decoder registered for its extension. The
// returned source owns the file and closes it on Close.
func Open(path string) (audioengine.Source, error) {
	ext := strings.ToLower(filepath.Ext(path))
	fmtEntry, ok := formats[ext]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnsupportedFormat, ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecodeFailure, err)
	}
	src, err := fmtEntry.open(f)
	if err != nil {
		f.Close()
		if errors.Is(err, ErrDecodeFailure) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrDecodeFailure, fmtEntry.name, err)
	}
	return src, nil
}

// Supported reports whether path has a decodable extension.
func Supported(path string) bool {
	_, ok := formats[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Format describes one registered extension.
type Format struct {
	Extension string
	Name      string
}

// Formats lists the registered extensions in sorted order.
func Formats() []Format {
	out := make([]Format, 0, len(formats))
	for ext, f := range formats {
		out = append(out, Format{Extension: ext, Name: f.name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Extension < out[j].Extension })
	return out
}

// Extensions lists the registered extensions in sorted order.
func Extensions() []string {
	out := make([]string, 0, len(formats))
	for _, f := range Formats() {
		out = append(out, f.Extension)
	}
	return out
}
