package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"stockpile/internal/textutil"
	"stockpile/internal/work"
)

// progressUI renders the coordinator's event stream. On a terminal it
// drives a single bar across the whole run; otherwise it prints one line
// per state change so logs stay readable when piped.
type progressUI struct {
	out io.Writer
	bar *progressbar.ProgressBar
}

func newProgressUI(out io.Writer, total int) *progressUI {
	ui := &progressUI{out: out}
	if file, ok := out.(*os.File); ok && isatty.IsTerminal(file.Fd()) {
		ui.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(out),
			progressbar.OptionSetDescription("retrieving"),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}
	return ui
}

// Observe is the pool.Observer hook. Called from a single goroutine.
func (ui *progressUI) Observe(evt work.Event) {
	if ui.bar != nil {
		switch evt.Kind {
		case work.EventSucceeded, work.EventFailed:
			_ = ui.bar.Add(1)
		case work.EventAttempting:
			ui.bar.Describe(fmt.Sprintf("retrieving %s", evt.Label))
		}
		return
	}

	switch evt.Kind {
	case work.EventQueued:
		fmt.Fprintf(ui.out, "queued   %s (%s)\n", evt.Label, textutil.DisplayTitle(evt.Category))
	case work.EventAttempting:
		fmt.Fprintf(ui.out, "fetching %s: %s\n", evt.Label, evt.Status)
	case work.EventAttemptFailed, work.EventMethodFailed:
		fmt.Fprintf(ui.out, "retrying %s: %s\n", evt.Label, evt.Status)
	case work.EventSucceeded:
		fmt.Fprintf(ui.out, "done     %s: %s\n", evt.Label, evt.Status)
	case work.EventFailed:
		fmt.Fprintf(ui.out, "failed   %s: %s\n", evt.Label, evt.Status)
	}
}

// Finish completes the bar so the final tables start on a clean line.
func (ui *progressUI) Finish() {
	if ui.bar != nil {
		_ = ui.bar.Finish()
	}
}
