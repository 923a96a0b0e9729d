package report

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"

	"drmeter/internal/batch"
	"drmeter/pkg/spec"
)

// WriteLog writes a colorless copy of the table to path.
func WriteLog(path string, st batch.State, opts Options) error {
	return writeAtomic(path, func(f *os.File) error {
		opts.Renderer = lipgloss.NewRenderer(f)
		_, err := fmt.Fprintf(f, "%s %s, %s\n\n%s\n",
			spec.AppName, spec.Version(), time.Now().Format(time.RFC1123), Table(st, opts))
		return err
	})
}
