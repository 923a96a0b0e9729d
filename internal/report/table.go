// Package report renders batch states as terminal tables, log files and JSON.
package report

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"drmeter/internal/batch"
	"drmeter/internal/codec"
	"drmeter/pkg/audioengine"
)

// placeholder fills the numeric cells of files still being analyzed.
const placeholder = "..."

// digestChars is how much of a digest the table shows.
const digestChars = 12

// Options controls table rendering.
type Options struct {
	// Renderer decides the color profile. nil uses lipgloss' default renderer.
	Renderer *lipgloss.Renderer
	// Digest adds a fingerprint column.
	Digest bool
}

func (o Options) renderer() *lipgloss.Renderer {
	if o.Renderer != nil {
		return o.Renderer
	}
	return lipgloss.DefaultRenderer()
}

// Table renders st as a DR / Peak / RMS / Filename table sorted by path. An
// Overall row is appended when at least two files were submitted.
func Table(st batch.State, opts Options) string {
	r := opts.renderer()
	header := r.NewStyle().Bold(true).Foreground(lipgloss.Color("5")).Padding(0, 1)
	cell := r.NewStyle().Padding(0, 1)
	right := cell.Align(lipgloss.Right)
	failed := cell.Foreground(lipgloss.Color("1"))
	overall := header

	items := sortedItems(st.Items)
	hasOverall := st.Total >= 2

	headers := []string{"DR", "Peak", "RMS", "Filename"}
	if opts.Digest {
		headers = append(headers, "Digest")
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(r.NewStyle().Foreground(lipgloss.Color("8"))).
		Headers(headers...)

	for _, it := range items {
		t.Row(itemRow(it, opts.Digest)...)
	}
	if hasOverall {
		t.Row(overallRow(st, opts.Digest)...)
	}

	t.StyleFunc(func(row, col int) lipgloss.Style {
		switch {
		case row == table.HeaderRow:
			return header
		case hasOverall && row == len(items):
			if col == 1 || col == 2 {
				return overall.Align(lipgloss.Right)
			}
			return overall
		case items[row].Status == batch.StatusFailed && col == 3:
			return failed
		case col == 1 || col == 2:
			return right
		default:
			return cell
		}
	})
	return t.String()
}

func sortedItems(items []batch.Item) []batch.Item {
	out := append([]batch.Item(nil), items...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

func itemRow(it batch.Item, digest bool) []string {
	name := filepath.Base(it.Path)
	var row []string
	switch it.Status {
	case batch.StatusCompleted:
		row = resultCells(it.Result)
		row = append(row, name)
	case batch.StatusFailed:
		row = []string{"ERR", "", "", fmt.Sprintf("%s (%s)", name, ErrorKind(it.Err))}
	case batch.StatusSkipped:
		row = []string{"--", "", "", name + " (skipped)"}
	default:
		row = []string{placeholder, placeholder, placeholder, name}
	}
	if digest {
		d := it.Digest
		if len(d) > digestChars {
			d = d[:digestChars]
		}
		row = append(row, d)
	}
	return row
}

func overallRow(st batch.State, digest bool) []string {
	label := fmt.Sprintf("Overall (%d file%s)", st.Completed, plural(st.Completed))
	var row []string
	if st.HasOverall {
		row = append(resultCells(st.Overall), label)
	} else {
		row = []string{placeholder, placeholder, placeholder, label}
	}
	if digest {
		row = append(row, "")
	}
	return row
}

func resultCells(r audioengine.Result) []string {
	return []string{
		FormatDR(r.OverallDRScore()),
		FormatLevel(r.OverallPeakDB()),
		FormatLevel(r.OverallRMSDB()),
	}
}

// FormatDR prints a score the way DR meters label it, e.g. DR12.
func FormatDR(score float64) string {
	return fmt.Sprintf("DR%.0f", score)
}

// FormatLevel prints a dBFS level with sign, e.g. "-13.69 dB".
func FormatLevel(db float64) string {
	return fmt.Sprintf("%+6.2f dB", db)
}

// ErrorKind names the failure class of a per-file error.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, audioengine.ErrFileTooShort):
		return "file too short"
	case errors.Is(err, codec.ErrUnsupportedFormat):
		return "unsupported format"
	case errors.Is(err, codec.ErrDecodeFailure):
		return "cannot decode"
	case errors.Is(err, audioengine.ErrInvalidConfiguration):
		return "invalid configuration"
	default:
		return "error"
	}
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
