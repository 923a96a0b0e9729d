package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"

	"drmeter/internal/batch"
	"drmeter/internal/codec"
	"drmeter/pkg/audioengine"
)

var (
	constResult  = audioengine.NewResult([]float64{20 * math.Log10(0.5/math.Sqrt(0.5))}, []float64{0.5}, []float64{math.Sqrt(0.5)})
	silentResult = audioengine.NewResult([]float64{0, 0}, []float64{0, 0}, []float64{0, 0})
)

func plainOptions() Options {
	return Options{Renderer: lipgloss.NewRenderer(&bytes.Buffer{})}
}

func completed(path string, r audioengine.Result) batch.Item {
	return batch.Item{Path: path, Status: batch.StatusCompleted, Result: r}
}

func stateOf(items ...batch.Item) batch.State {
	st := batch.State{Items: items, Total: len(items)}
	var results []audioengine.Result
	for _, it := range items {
		switch it.Status {
		case batch.StatusCompleted:
			st.Completed++
			results = append(results, it.Result)
		case batch.StatusFailed:
			st.Failed++
		case batch.StatusSkipped:
			st.Skipped++
		}
	}
	st.Overall, st.HasOverall = audioengine.Combine(results)
	return st
}

func TestTable_Rows(t *testing.T) {
	st := stateOf(
		completed("/music/b.wav", constResult),
		batch.Item{Path: "/music/a.wav", Status: batch.StatusRunning},
		batch.Item{Path: "/music/c.wav", Status: batch.StatusFailed, Err: fmt.Errorf("c.wav: %w", audioengine.ErrFileTooShort)},
	)
	out := Table(st, plainOptions())

	for _, want := range []string{"DR", "Peak", "RMS", "Filename", "DR-3", "-6.02 dB", "-3.01 dB", "b.wav", "...", "c.wav (file too short)", "Overall (1 file)"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "a.wav") > strings.Index(out, "b.wav") {
		t.Errorf("rows not sorted by path:\n%s", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Errorf("ANSI codes with an ascii renderer:\n%s", out)
	}
}

func TestTable_SingleFileHasNoOverall(t *testing.T) {
	out := Table(stateOf(completed("x.flac", silentResult)), plainOptions())
	if strings.Contains(out, "Overall") {
		t.Errorf("overall row for a single file:\n%s", out)
	}
	if !strings.Contains(out, "DR0") || !strings.Contains(out, "-Inf dB") {
		t.Errorf("silent row not rendered as DR0 / -Inf:\n%s", out)
	}
}

func TestTable_OverallPendingAndDigest(t *testing.T) {
	st := stateOf(
		batch.Item{Path: "a.wav", Status: batch.StatusPending},
		batch.Item{Path: "b.wav", Status: batch.StatusSkipped, Digest: "0123456789abcdef0123"},
	)
	opts := plainOptions()
	opts.Digest = true
	out := Table(st, opts)

	if !strings.Contains(out, "Overall (0 files)") {
		t.Errorf("missing pending overall row:\n%s", out)
	}
	if !strings.Contains(out, "0123456789ab") || strings.Contains(out, "0123456789abc") {
		t.Errorf("digest not truncated to 12 chars:\n%s", out)
	}
	if !strings.Contains(out, "b.wav (skipped)") {
		t.Errorf("skipped row missing:\n%s", out)
	}
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{audioengine.ErrFileTooShort, "file too short"},
		{fmt.Errorf("x: %w", codec.ErrUnsupportedFormat), "unsupported format"},
		{fmt.Errorf("x: %w", codec.ErrDecodeFailure), "cannot decode"},
		{errors.New("disk on fire"), "error"},
	}
	for _, tt := range tests {
		if got := ErrorKind(tt.err); got != tt.want {
			t.Errorf("ErrorKind(%v): got %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestWriteJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dr.json")
	st := stateOf(
		completed("silent.wav", silentResult),
		completed("dc.wav", constResult),
		batch.Item{Path: "bad.mp3", Status: batch.StatusFailed, Err: codec.ErrDecodeFailure},
	)
	if err := WriteJSON(path, st); err != nil {
		t.Fatal(err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var doc struct {
		Files []struct {
			Path   string
			Status string
			Error  string
			Result *struct {
				TotalDRScore float64   `json:"total_dr_score"`
				TotalPeakDB  *float64  `json:"total_peak_db"`
				RMSDB        []*float64 `json:"rms_db"`
			}
		}
		Overall struct {
			Total     int      `json:"files_total"`
			Completed int      `json:"files_completed"`
			Failed    int      `json:"files_failed"`
			DRScore   *float64 `json:"dr_score"`
			PeakDB    *float64 `json:"peak_db"`
		}
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, raw)
	}

	if len(doc.Files) != 3 {
		t.Fatalf("files: got %d, want 3", len(doc.Files))
	}
	for _, f := range doc.Files {
		if !filepath.IsAbs(f.Path) {
			t.Errorf("path %q not absolute", f.Path)
		}
	}
	// sorted: bad.mp3, dc.wav, silent.wav
	if doc.Files[0].Status != "failed" || doc.Files[0].Error == "" || doc.Files[0].Result != nil {
		t.Errorf("failed entry: %+v", doc.Files[0])
	}
	if got := doc.Files[1].Result.TotalDRScore; got != -3.01 {
		t.Errorf("dc DR: got %v, want -3.01", got)
	}
	silent := doc.Files[2].Result
	if silent.TotalPeakDB != nil || len(silent.RMSDB) != 2 || silent.RMSDB[0] != nil {
		t.Errorf("-Inf not encoded as null: %+v", silent)
	}

	if doc.Overall.Total != 3 || doc.Overall.Completed != 2 || doc.Overall.Failed != 1 {
		t.Errorf("overall counts: %+v", doc.Overall)
	}
	// mean of 0 and -3.0103, rounded to two decimals
	if doc.Overall.DRScore == nil || math.Abs(*doc.Overall.DRScore+1.505) > 0.0051 {
		t.Errorf("overall DR: %v", doc.Overall.DRScore)
	}
	if doc.Overall.PeakDB == nil || *doc.Overall.PeakDB != -6.02 {
		t.Errorf("overall peak: %v", doc.Overall.PeakDB)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %v", entries)
	}
}

func TestWriteJSON_NoOverall(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dr.json")
	st := stateOf(batch.Item{Path: "bad.mp3", Status: batch.StatusFailed, Err: codec.ErrDecodeFailure})
	if err := WriteJSON(path, st); err != nil {
		t.Fatal(err)
	}
	raw, _ := os.ReadFile(path)
	if !strings.Contains(string(raw), `"dr_score": null`) {
		t.Errorf("absent aggregate not null:\n%s", raw)
	}
}

func TestWriteJSON_BadDirectory(t *testing.T) {
	err := WriteJSON(filepath.Join(t.TempDir(), "missing", "dr.json"), stateOf())
	if err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestWriteLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dr.txt")
	st := stateOf(completed("a.wav", constResult), completed("b.wav", silentResult))
	if err := WriteLog(path, st, Options{}); err != nil {
		t.Fatal(err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	out := string(raw)
	if !strings.HasPrefix(out, "drmeter ") || !strings.Contains(out, "Overall (2 files)") {
		t.Errorf("log content:\n%s", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Errorf("log contains ANSI codes:\n%s", out)
	}
}

func TestLive_NonTerminal(t *testing.T) {
	var buf bytes.Buffer
	live := NewLive(&buf, Options{})

	pending := stateOf(batch.Item{Path: "a.wav"}, batch.Item{Path: "b.wav"})
	running := stateOf(batch.Item{Path: "a.wav", Status: batch.StatusRunning}, batch.Item{Path: "b.wav"})
	half := stateOf(completed("a.wav", constResult), batch.Item{Path: "b.wav", Status: batch.StatusRunning})
	done := stateOf(completed("a.wav", constResult), completed("b.wav", silentResult))

	for _, st := range []batch.State{pending, running, half, done} {
		live.Observe(st)
	}
	live.Finish(done)

	out := buf.String()
	if got := strings.Count(out, "[ANALYZING]"); got != 3 {
		t.Errorf("progress lines: got %d, want 3\n%s", got, out)
	}
	for _, want := range []string{"(0/2 files)", "50% (1/2 files)", "100% (2/2 files)", "Overall (2 files)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\033[") {
		t.Errorf("cursor control written to a non-terminal:\n%s", out)
	}
}

func TestFormat(t *testing.T) {
	if got := FormatDR(11.6); got != "DR12" {
		t.Errorf("FormatDR: %q", got)
	}
	if got := FormatLevel(-13.694); got != "-13.69 dB" {
		t.Errorf("FormatLevel: %q", got)
	}
	if got := FormatLevel(0.01); got != " +0.01 dB" {
		t.Errorf("FormatLevel: %q", got)
	}
}
