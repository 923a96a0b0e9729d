package audioengine

import (
	"math"
	"testing"

	"drmeter/internal/testutil"
)

func TestResult_DerivedDecibels(t *testing.T) {
	r := NewResult([]float64{8, 10}, []float64{1, 0.5}, []float64{0.1, 0})

	testutil.RequireSliceNearlyEqual(t, r.PeakDB(), []float64{0, 20 * math.Log10(0.5)}, 1e-12)
	testutil.RequireSliceNearlyEqual(t, r.RMSDB(), []float64{-20, math.Inf(-1)}, 1e-12)

	testutil.RequireNearlyEqual(t, "overall dr", r.OverallDRScore(), 9, 1e-12)
	testutil.RequireNearlyEqual(t, "overall peak", r.OverallPeakPressure(), 1, 1e-12)
	testutil.RequireNearlyEqual(t, "overall rms", r.OverallRMSPressure(), 0.05, 1e-12)
	testutil.RequireNearlyEqual(t, "overall rms dB", r.OverallRMSDB(), 20*math.Log10(0.05), 1e-12)
}

func TestResult_ZeroValue(t *testing.T) {
	var r Result
	if r.Channels() != 0 {
		t.Fatalf("Channels: got %d, want 0", r.Channels())
	}
	if r.OverallDRScore() != 0 || r.OverallPeakPressure() != 0 || r.OverallRMSPressure() != 0 {
		t.Fatalf("zero result has non-zero overall values")
	}
	if !math.IsInf(r.OverallPeakDB(), -1) {
		t.Fatalf("OverallPeakDB: got %v, want -Inf", r.OverallPeakDB())
	}
}

func TestResult_AccessorsDoNotAlias(t *testing.T) {
	dr := []float64{7}
	r := NewResult(dr, []float64{0.9}, []float64{0.3})

	dr[0] = 99
	got := r.DRScore()
	if got[0] != 7 {
		t.Fatalf("NewResult kept caller slice: DR %v", got[0])
	}
	got[0] = 42
	if r.DRScore()[0] != 7 {
		t.Fatalf("DRScore returned internal slice")
	}
	r.PeakPressure()[0] = 0
	if r.OverallPeakPressure() != 0.9 {
		t.Fatalf("PeakPressure returned internal slice")
	}
}

func TestNewResult_MismatchPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on channel count mismatch")
		}
	}()
	NewResult([]float64{1, 2}, []float64{1}, []float64{1, 2})
}

func TestCombine(t *testing.T) {
	loud := NewResult([]float64{-3.0103}, []float64{0.5}, []float64{math.Sqrt(0.5)})
	silent := NewResult([]float64{0, 0}, []float64{0, 0}, []float64{0, 0})

	combined, ok := Combine([]Result{loud, silent})
	if !ok {
		t.Fatal("Combine reported no data")
	}
	if combined.Channels() != 1 {
		t.Fatalf("Channels: got %d, want 1", combined.Channels())
	}
	testutil.RequireNearlyEqual(t, "dr", combined.OverallDRScore(), -1.50515, 1e-9)
	testutil.RequireNearlyEqual(t, "peak", combined.OverallPeakPressure(), 0.5, 1e-12)
	testutil.RequireNearlyEqual(t, "rms", combined.OverallRMSPressure(), math.Sqrt(0.5)/2, 1e-12)

	reversed, _ := Combine([]Result{silent, loud})
	if reversed.OverallDRScore() != combined.OverallDRScore() ||
		reversed.OverallPeakPressure() != combined.OverallPeakPressure() ||
		reversed.OverallRMSPressure() != combined.OverallRMSPressure() {
		t.Fatal("Combine depends on input order")
	}
}

func TestCombine_Single(t *testing.T) {
	r := NewResult([]float64{10, 12}, []float64{0.8, 0.9}, []float64{0.2, 0.4})
	combined, ok := Combine([]Result{r})
	if !ok {
		t.Fatal("Combine reported no data")
	}
	testutil.RequireNearlyEqual(t, "dr", combined.OverallDRScore(), r.OverallDRScore(), 1e-12)
	testutil.RequireNearlyEqual(t, "peak", combined.OverallPeakPressure(), r.OverallPeakPressure(), 1e-12)
	testutil.RequireNearlyEqual(t, "rms", combined.OverallRMSPressure(), r.OverallRMSPressure(), 1e-12)
}

func TestCombine_Empty(t *testing.T) {
	if _, ok := Combine(nil); ok {
		t.Fatal("Combine(nil) reported data")
	}
	if _, ok := Combine([]Result{{}, {}}); ok {
		t.Fatal("Combine of empty results reported data")
	}
}
