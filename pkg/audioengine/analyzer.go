package audioengine

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sort"

	"drmeter/pkg/spec"
)

// Config holds the parameters of the DR measurement.
type Config struct {
	// BlockSeconds is the duration of one analysis block.
	BlockSeconds float64
	// UpmostRatio is the share of loudest blocks used for the pseudo-RMS.
	UpmostRatio float64
	// NthHighestPeak selects which distinct block peak is compared against
	// the pseudo-RMS (2 = second highest).
	NthHighestPeak int
}

// DefaultConfig returns the standard 3 s / 20% / second-peak measurement.
func DefaultConfig() Config {
	return Config{
		BlockSeconds:   spec.BlockSeconds,
		UpmostRatio:    spec.UpmostBlocksRatio,
		NthHighestPeak: spec.NthHighestPeak,
	}
}

// Validate reports whether the config can drive an analysis.
func (c Config) Validate() error {
	if !(c.BlockSeconds > 0) || math.IsInf(c.BlockSeconds, 0) {
		return fmt.Errorf("%w: block seconds %v", ErrInvalidConfiguration, c.BlockSeconds)
	}
	if !(c.UpmostRatio > 0 && c.UpmostRatio <= 1) {
		return fmt.Errorf("%w: upmost ratio %v not in (0, 1]", ErrInvalidConfiguration, c.UpmostRatio)
	}
	if c.NthHighestPeak < 1 {
		return fmt.Errorf("%w: nth highest peak %d", ErrInvalidConfiguration, c.NthHighestPeak)
	}
	return nil
}

// MinBlocks is the smallest block count for which the upmost selection holds
// at least one block.
func (c Config) MinBlocks() int {
	return int(math.Ceil(1/c.UpmostRatio - 1e-9))
}

// MinSeconds is the shortest analyzable duration.
func (c Config) MinSeconds() float64 {
	return float64(c.MinBlocks()) * c.BlockSeconds
}

// BlockFrames is the block length in frames at the given sample rate.
func (c Config) BlockFrames(sampleRate int) int {
	return int(math.Round(c.BlockSeconds * float64(sampleRate)))
}

// Analyzer computes DR results. It holds no per-file state and is safe for
// concurrent use.
type Analyzer struct {
	cfg Config
}

// NewAnalyzer validates cfg and returns an analyzer for it.
func NewAnalyzer(cfg Config) (*Analyzer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Analyzer{cfg: cfg}, nil
}

// Config returns the analyzer parameters.
func (a *Analyzer) Config() Config { return a.cfg }

// Analyze reads src to the end and returns its per-channel result. Sources
// too short for the measurement are rejected from their metadata before any
// sample is read, and again if fewer frames than announced were decoded. A
// source announcing zero frames is read and judged by what it delivers.
func (a *Analyzer) Analyze(src Source) (Result, error) {
	rate, channels, frames := src.SampleRate(), src.Channels(), src.Frames()
	if rate <= 0 || channels <= 0 || frames < 0 {
		return Result{}, fmt.Errorf("%w: %d Hz, %d channels, %d frames", ErrInvalidConfiguration, rate, channels, frames)
	}

	blockFrames := a.cfg.BlockFrames(rate)
	if blockFrames <= 0 {
		return Result{}, fmt.Errorf("%w: block of %v s at %d Hz", ErrInvalidConfiguration, a.cfg.BlockSeconds, rate)
	}
	// Zero means the decoder does not know its length up front.
	if frames > 0 {
		if err := a.checkLength(frames, blockFrames); err != nil {
			return Result{}, err
		}
	}
	totalBlocks := (frames + blockFrames - 1) / blockFrames

	sampler, err := NewBlockSampler(src, blockFrames)
	if err != nil {
		return Result{}, err
	}

	blockRMS := make([][]float64, channels)
	blockPeak := make([][]float64, channels)
	for c := range blockRMS {
		blockRMS[c] = make([]float64, 0, totalBlocks)
		blockPeak[c] = make([]float64, 0, totalBlocks)
	}

	read := 0
	for {
		block, err := sampler.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Result{}, fmt.Errorf("read block %d: %w", len(blockRMS[0]), err)
		}
		read += block.Frames()
		for c, samples := range block {
			rms, peak := blockLevels(samples)
			if math.IsNaN(rms) || math.IsInf(rms, 0) || math.IsNaN(peak) || math.IsInf(peak, 0) {
				return Result{}, fmt.Errorf("%w: non-finite sample in block %d, channel %d", ErrInvalidConfiguration, len(blockRMS[c]), c)
			}
			blockRMS[c] = append(blockRMS[c], rms)
			blockPeak[c] = append(blockPeak[c], peak)
		}
	}

	// Frame counts of compressed formats are estimates; trust what was read.
	if err := a.checkLength(read, blockFrames); err != nil {
		return Result{}, err
	}

	dr := make([]float64, channels)
	peak := make([]float64, channels)
	rms := make([]float64, channels)
	for c := 0; c < channels; c++ {
		dr[c], peak[c], rms[c] = a.channelScore(blockRMS[c], blockPeak[c])
	}
	return newResult(dr, peak, rms), nil
}

// checkLength requires MinBlocks full blocks worth of frames, i.e. at least
// MinSeconds of audio.
func (a *Analyzer) checkLength(frames, blockFrames int) error {
	if need := a.cfg.MinBlocks() * blockFrames; frames < need {
		return fmt.Errorf("%w: %d frames, need %d (at least %.0f seconds)", ErrFileTooShort, frames, need, a.cfg.MinSeconds())
	}
	return nil
}

// channelScore reduces one channel's block levels to DR score, true peak and
// overall RMS. It sorts its arguments in place.
func (a *Analyzer) channelScore(blockRMS, blockPeak []float64) (dr, peak, rms float64) {
	n := len(blockRMS)
	rms = powerMean(blockRMS)

	sort.Float64s(blockRMS)
	sort.Float64s(blockPeak)

	upmost := int(math.Round(float64(n) * a.cfg.UpmostRatio))
	upmost = max(1, min(upmost, n))
	pseudoRMS := powerMean(blockRMS[n-upmost:])

	peak = blockPeak[n-1]
	secondPeak := nthHighestDistinct(blockPeak, a.cfg.NthHighestPeak)

	return drScore(secondPeak, pseudoRMS), peak, rms
}
