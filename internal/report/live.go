package report

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"drmeter/internal/batch"
)

const progressWidth = 30

// Live follows a running batch. On a terminal it redraws the table in place;
// otherwise it prints a progress line whenever another file finishes and the
// table once at the end.
type Live struct {
	mu       sync.Mutex
	w        io.Writer
	tty      bool
	opts     Options
	lines    int
	terminal int
}

// NewLive renders to w. opts.Renderer defaults to one bound to w.
func NewLive(w io.Writer, opts Options) *Live {
	if opts.Renderer == nil {
		opts.Renderer = lipgloss.NewRenderer(w)
	}
	return &Live{w: w, tty: IsTerminal(w), opts: opts, terminal: -1}
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Observe is a batch.Observer.
func (l *Live) Observe(st batch.State) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.tty {
		l.redraw(st)
		return
	}
	if n := st.Terminal(); n != l.terminal && st.Total > 0 {
		l.terminal = n
		fmt.Fprintln(l.w, progressLine(n, st.Total))
	}
}

// Finish prints the final table. On a terminal it replaces the live one.
func (l *Live) Finish(st batch.State) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.tty {
		l.redraw(st)
		return
	}
	fmt.Fprintln(l.w, Table(st, l.opts))
}

func (l *Live) redraw(st batch.State) {
	if l.lines > 0 {
		// cursor up, clear to end of screen
		fmt.Fprintf(l.w, "\033[%dA\033[J", l.lines)
	}
	out := Table(st, l.opts)
	fmt.Fprintln(l.w, out)
	l.lines = strings.Count(out, "\n") + 1
}

func progressLine(done, total int) string {
	percent := float64(done) / float64(total)
	filled := int(float64(progressWidth) * percent)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", progressWidth-filled)
	return fmt.Sprintf(" [ANALYZING] [%s] %d%% (%d/%d files)", bar, int(percent*100), done, total)
}
