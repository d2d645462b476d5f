package ui

import (
	"fmt"
	"io"

	"github.com/edulab/reporover/internal/repoops"
)

// ProgressPrinter returns a ProgressFunc that writes one line per event:
// styled counters on a TTY, plain text otherwise so logs stay greppable.
func ProgressPrinter(w io.Writer, color bool) repoops.ProgressFunc {
	return func(e repoops.Event) {
		switch e.Kind {
		case repoops.EventStarted:
			fmt.Fprintf(w, "%s: %d repos\n", e.Message, e.Total)
		case repoops.EventProgress:
			counter := fmt.Sprintf("[%d/%d]", e.Current, e.Total)
			if color {
				counter = TableHintStyle.Render(counter)
			}
			fmt.Fprintf(w, "%s %s\n", counter, e.Message)
		case repoops.EventCompleted:
			line := fmt.Sprintf("done: %d succeeded, %d failed, %d skipped",
				e.Result.Succeeded, e.Result.Failed, len(e.Result.Skipped))
			if color {
				if e.Result.AllOK() {
					line = TableSuccessStyle.Render(line)
				} else {
					line = TableWarningStyle.Render(line)
				}
			}
			fmt.Fprintln(w, line)
		}
	}
}
