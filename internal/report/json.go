package report

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"drmeter/internal/batch"
	"drmeter/pkg/audioengine"
	"drmeter/pkg/spec"
)

// level is a measurement rounded for output; non-finite values encode as null.
type level float64

func (l level) MarshalJSON() ([]byte, error) {
	v := float64(l)
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return []byte("null"), nil
	}
	scale := math.Pow(10, spec.OutputRoundingDecimals)
	return json.Marshal(math.Round(v*scale) / scale)
}

func levels(v []float64) []level {
	out := make([]level, len(v))
	for i, x := range v {
		out[i] = level(x)
	}
	return out
}

type jsonResult struct {
	DRScore      []level `json:"dr_score"`
	PeakPressure []level `json:"peak_pressure"`
	RMSPressure  []level `json:"rms_pressure"`
	PeakDB       []level `json:"peak_db"`
	RMSDB        []level `json:"rms_db"`

	TotalDRScore      level `json:"total_dr_score"`
	TotalPeakPressure level `json:"total_peak_pressure"`
	TotalRMSPressure  level `json:"total_rms_pressure"`
	TotalPeakDB       level `json:"total_peak_db"`
	TotalRMSDB        level `json:"total_rms_db"`
}

type jsonFile struct {
	Path   string      `json:"path"`
	Status string      `json:"status"`
	Digest string      `json:"digest,omitempty"`
	Error  string      `json:"error,omitempty"`
	Result *jsonResult `json:"result,omitempty"`
}

type jsonOverall struct {
	Total     int `json:"files_total"`
	Completed int `json:"files_completed"`
	Failed    int `json:"files_failed"`
	Skipped   int `json:"files_skipped"`

	DRScore      *level `json:"dr_score"`
	PeakPressure *level `json:"peak_pressure"`
	RMSPressure  *level `json:"rms_pressure"`
	PeakDB       *level `json:"peak_db"`
	RMSDB        *level `json:"rms_db"`
}

type jsonReport struct {
	Tool        string      `json:"tool"`
	GeneratedAt time.Time   `json:"generated_at"`
	Files       []jsonFile  `json:"files"`
	Overall     jsonOverall `json:"overall"`
}

func newJSONResult(r audioengine.Result) *jsonResult {
	return &jsonResult{
		DRScore:           levels(r.DRScore()),
		PeakPressure:      levels(r.PeakPressure()),
		RMSPressure:       levels(r.RMSPressure()),
		PeakDB:            levels(r.PeakDB()),
		RMSDB:             levels(r.RMSDB()),
		TotalDRScore:      level(r.OverallDRScore()),
		TotalPeakPressure: level(r.OverallPeakPressure()),
		TotalRMSPressure:  level(r.OverallRMSPressure()),
		TotalPeakDB:       level(r.OverallPeakDB()),
		TotalRMSDB:        level(r.OverallRMSDB()),
	}
}

func ptr(v float64) *level {
	l := level(v)
	return &l
}

// buildJSON converts st into the document written by WriteJSON.
func buildJSON(st batch.State, now time.Time) jsonReport {
	doc := jsonReport{
		Tool:        spec.AppName + " " + spec.Version(),
		GeneratedAt: now.UTC(),
		Files:       make([]jsonFile, 0, len(st.Items)),
		Overall: jsonOverall{
			Total:     st.Total,
			Completed: st.Completed,
			Failed:    st.Failed,
			Skipped:   st.Skipped,
		},
	}
	for _, it := range sortedItems(st.Items) {
		f := jsonFile{Path: absPath(it.Path), Status: it.Status.String(), Digest: it.Digest}
		switch it.Status {
		case batch.StatusCompleted:
			f.Result = newJSONResult(it.Result)
		case batch.StatusFailed:
			f.Error = it.Err.Error()
		}
		doc.Files = append(doc.Files, f)
	}
	if st.HasOverall {
		doc.Overall.DRScore = ptr(st.Overall.OverallDRScore())
		doc.Overall.PeakPressure = ptr(st.Overall.OverallPeakPressure())
		doc.Overall.RMSPressure = ptr(st.Overall.OverallRMSPressure())
		doc.Overall.PeakDB = ptr(st.Overall.OverallPeakDB())
		doc.Overall.RMSDB = ptr(st.Overall.OverallRMSDB())
	}
	return doc
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// WriteJSON writes the measurements of st to path, replacing it atomically.
func WriteJSON(path string, st batch.State) error {
	return writeAtomic(path, func(f *os.File) error {
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		return enc.Encode(buildJSON(st, time.Now()))
	})
}

// writeAtomic fills a temp file next to path and renames it into place.
func writeAtomic(path string, fill func(*os.File) error) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", filepath.Base(path), err)
	}
	tmpName := tmp.Name()
	if err := fill(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", filepath.Base(path), err)
	}
	return nil
}
