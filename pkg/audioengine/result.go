package audioengine

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Result is the DR measurement of one file, or of several files folded by
// Combine. Only pressures and scores are stored; every dB value is derived.
type Result struct {
	drScore      []float64
	peakPressure []float64
	rmsPressure  []float64
}

// NewResult builds a result from per-channel values. The slices are copied
// and must have equal length.
func NewResult(drScore, peakPressure, rmsPressure []float64) Result {
	if len(drScore) != len(peakPressure) || len(drScore) != len(rmsPressure) {
		panic(fmt.Sprintf("audioengine: channel count mismatch (%d, %d, %d)", len(drScore), len(peakPressure), len(rmsPressure)))
	}
	return newResult(clone(drScore), clone(peakPressure), clone(rmsPressure))
}

func newResult(drScore, peakPressure, rmsPressure []float64) Result {
	return Result{drScore: drScore, peakPressure: peakPressure, rmsPressure: rmsPressure}
}

func clone(v []float64) []float64 {
	return append([]float64(nil), v...)
}

// Channels is the number of channels the result describes.
func (r Result) Channels() int { return len(r.drScore) }

func (r Result) DRScore() []float64      { return clone(r.drScore) }
func (r Result) PeakPressure() []float64 { return clone(r.peakPressure) }
func (r Result) RMSPressure() []float64  { return clone(r.rmsPressure) }

// PeakDB is the per-channel true peak in dBFS.
func (r Result) PeakDB() []float64 { return toDecibels(r.peakPressure) }

// RMSDB is the per-channel RMS in dBFS.
func (r Result) RMSDB() []float64 { return toDecibels(r.rmsPressure) }

func toDecibels(pressures []float64) []float64 {
	out := make([]float64, len(pressures))
	for i, p := range pressures {
		out[i] = ToDecibels(p)
	}
	return out
}

// OverallDRScore is the mean DR score across channels.
func (r Result) OverallDRScore() float64 {
	if len(r.drScore) == 0 {
		return 0
	}
	return stat.Mean(r.drScore, nil)
}

// OverallPeakPressure is the highest channel peak.
func (r Result) OverallPeakPressure() float64 {
	if len(r.peakPressure) == 0 {
		return 0
	}
	return floats.Max(r.peakPressure)
}

// OverallRMSPressure is the mean channel RMS.
func (r Result) OverallRMSPressure() float64 {
	if len(r.rmsPressure) == 0 {
		return 0
	}
	return stat.Mean(r.rmsPressure, nil)
}

func (r Result) OverallPeakDB() float64 { return ToDecibels(r.OverallPeakPressure()) }
func (r Result) OverallRMSDB() float64  { return ToDecibels(r.OverallRMSPressure()) }

// Combine folds per-file results into one: mean DR, max peak and mean RMS of
// the inputs' overall values. The combined result has a single channel. With
// no usable input ok is false; "no data yet" is not a zero score.
func Combine(results []Result) (combined Result, ok bool) {
	var dr, peak, rms []float64
	for _, r := range results {
		if r.Channels() == 0 {
			continue
		}
		dr = append(dr, r.OverallDRScore())
		peak = append(peak, r.OverallPeakPressure())
		rms = append(rms, r.OverallRMSPressure())
	}
	if len(dr) == 0 {
		return Result{}, false
	}
	return newResult(
		[]float64{stat.Mean(dr, nil)},
		[]float64{floats.Max(peak)},
		[]float64{stat.Mean(rms, nil)},
	), true
}
