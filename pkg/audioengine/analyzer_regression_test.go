package audioengine

import (
	"io"
	"math"
	"testing"
)

// blockShape describes one channel of a synthetic programme: a sine whose
// amplitude changes per block, with optional single-sample spikes.
type blockShape struct {
	amplitude func(block int) float64
	spikes    map[int]float64
}

// generatorSource synthesizes samples on the fly so long programmes stay cheap.
type generatorSource struct {
	rate        int
	blockFrames int
	frames      int
	period      int
	shapes      []blockShape
	pos         int
}

func (g *generatorSource) SampleRate() int { return g.rate }
func (g *generatorSource) Channels() int   { return len(g.shapes) }
func (g *generatorSource) Frames() int     { return g.frames }
func (g *generatorSource) Close() error    { return nil }

func (g *generatorSource) sample(c, i int) float64 {
	block, offset := i/g.blockFrames, i%g.blockFrames
	shape := g.shapes[c]
	if offset == 0 {
		if v, ok := shape.spikes[block]; ok {
			return v
		}
	}
	return shape.amplitude(block) * math.Sin(2*math.Pi*float64(i%g.period)/float64(g.period))
}

func (g *generatorSource) Read(dst [][]float64) (int, error) {
	if g.pos >= g.frames {
		return 0, io.EOF
	}
	n := min(len(dst[0]), g.frames-g.pos)
	for c := range dst {
		for i := 0; i < n; i++ {
			dst[c][i] = g.sample(c, g.pos+i)
		}
	}
	g.pos += n
	return n, nil
}

func stepAmplitude(base, loud float64, from, to int) func(int) float64 {
	return func(block int) float64 {
		if block >= from && block < to {
			return loud
		}
		return base
	}
}

// TestAnalyze_SyntheticProgramme runs three minutes of 44.1 kHz stereo with
// known block levels. A sine period of 100 samples divides the 132300-frame
// block, so each block's mean square is exactly amplitude^2/2 before spikes.
func TestAnalyze_SyntheticProgramme(t *testing.T) {
	const (
		rate        = 44100
		blockFrames = 132300
		blocks      = 60
		period      = 100
	)
	src := &generatorSource{
		rate:        rate,
		blockFrames: blockFrames,
		frames:      blocks * blockFrames,
		period:      period,
		shapes: []blockShape{
			{amplitude: stepAmplitude(0.25, 0.5, 20, 32), spikes: map[int]float64{5: 1.0, 40: 0.89125}},
			{amplitude: stepAmplitude(0.1, 0.2, 0, 12), spikes: map[int]float64{50: 0.6, 51: 0.4}},
		},
	}

	res, err := mustAnalyzer(t).Analyze(src)
	if err != nil {
		t.Fatal(err)
	}

	// The spikes replace a sin(0) = 0 sample, so they add spike^2 to one block.
	// Twelve loud blocks are the upmost 20%; their rms is the loud amplitude.
	spikeTerm := func(spikes ...float64) float64 {
		sum := 0.0
		for _, s := range spikes {
			sum += 2 * s * s / blockFrames
		}
		return sum
	}
	wantRMSL := math.Sqrt((48*0.0625 + 12*0.25 + spikeTerm(1.0, 0.89125)) / blocks)
	wantRMSR := math.Sqrt((48*0.01 + 12*0.04 + spikeTerm(0.6, 0.4)) / blocks)

	// The spiked blocks themselves are louder than their siblings but remain
	// below the upmost boundary, so pseudo-RMS stays the loud amplitude.
	wantDR := []float64{20 * math.Log10(0.89125/0.5), 20 * math.Log10(0.4/0.2)}
	wantPeak := []float64{1.0, 0.6}
	wantRMS := []float64{wantRMSL, wantRMSR}

	const tol = 1e-6
	dr, peak, rms := res.DRScore(), res.PeakPressure(), res.RMSPressure()
	for c := 0; c < 2; c++ {
		if math.Abs(dr[c]-wantDR[c]) > tol {
			t.Errorf("channel %d DR: got %v, want %v", c, dr[c], wantDR[c])
		}
		if math.Abs(peak[c]-wantPeak[c]) > tol {
			t.Errorf("channel %d peak: got %v, want %v", c, peak[c], wantPeak[c])
		}
		if math.Abs(rms[c]-wantRMS[c]) > tol {
			t.Errorf("channel %d rms: got %v, want %v", c, rms[c], wantRMS[c])
		}
	}

	wantOverallDR := (wantDR[0] + wantDR[1]) / 2
	if got := res.OverallDRScore(); math.Abs(got-wantOverallDR) > tol {
		t.Errorf("overall DR: got %v, want %v", got, wantOverallDR)
	}
	if got := res.OverallPeakDB(); math.Abs(got-0) > tol {
		t.Errorf("overall peak dB: got %v, want 0", got)
	}
}
