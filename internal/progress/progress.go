// Package progress renders terminal progress for job watching and artifact
// downloads.
package progress

import (
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
)

// WatchBar renders the poll-driven job progress bar on stderr. Stdout stays
// clean for the results summary.
type WatchBar struct {
	bar *progressbar.ProgressBar
}

// NewWatchBar creates an unstarted watch bar.
func NewWatchBar() *WatchBar {
	return &WatchBar{}
}

// Start initializes the bar with the row total and a description. Calling
// Start on a started bar is a no-op; use SetTotal to adjust the total.
func (p *WatchBar) Start(total int64, description string) {
	if p.bar != nil {
		return
	}
	p.bar = progressbar.NewOptions64(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetWidth(50),
		progressbar.OptionThrottle(100),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(os.Stderr, "\n")
		}),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetRenderBlankState(true),
	)
}

// Update moves the bar to the current processed count. The server can
// re-sequence counts across restarts; the bar only ever moves forward.
func (p *WatchBar) Update(current int64) {
	if p.bar == nil {
		return
	}
	if current < p.bar.State().CurrentNum {
		return
	}
	_ = p.bar.Set64(current)
}

// SetTotal adjusts the row total once the server reports it.
func (p *WatchBar) SetTotal(total int64) {
	if p.bar != nil {
		p.bar.ChangeMax64(total)
	}
}

// Finish completes the bar.
func (p *WatchBar) Finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}

// Clear erases the bar, for when the job ends without reaching the total.
func (p *WatchBar) Clear() {
	if p.bar != nil {
		_ = p.bar.Clear()
	}
}

// SetDescription updates the bar description.
func (p *WatchBar) SetDescription(desc string) {
	if p.bar != nil {
		p.bar.Describe(desc)
	}
}
