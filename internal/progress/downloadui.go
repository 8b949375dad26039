package progress

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"golang.org/x/term"
)

// DownloadUI renders artifact download progress bars using mpb. On a
// non-terminal stderr the bars are disabled and plain lines are printed
// instead.
type DownloadUI struct {
	progress   *mpb.Progress
	isTerminal bool
}

// ArtifactBar tracks one downloading artifact.
type ArtifactBar struct {
	bar       *mpb.Bar
	ui        *DownloadUI
	name      string
	startTime time.Time
	lastBytes int64
	lastTime  time.Time
}

// NewDownloadUI creates the download progress container.
func NewDownloadUI() *DownloadUI {
	isTerminal := term.IsTerminal(int(os.Stderr.Fd()))

	var p *mpb.Progress
	if isTerminal {
		p = mpb.New(
			mpb.WithOutput(os.Stderr),
			mpb.WithRefreshRate(300*time.Millisecond),
			mpb.WithWidth(80),
		)
	} else {
		p = mpb.New(mpb.WithOutput(io.Discard))
	}

	return &DownloadUI{
		progress:   p,
		isTerminal: isTerminal,
	}
}

// AddArtifact creates a bar for one artifact. size may be -1 when the
// server sends no Content-Length; the bar then renders counters only.
func (u *DownloadUI) AddArtifact(name string, size int64) *ArtifactBar {
	ab := &ArtifactBar{
		ui:        u,
		name:      name,
		startTime: time.Now(),
		lastTime:  time.Now(),
	}

	if !u.isTerminal {
		fmt.Printf("Downloading %s...\n", name)
		return ab
	}

	total := size
	if total < 0 {
		total = 0
	}

	ab.bar = u.progress.New(total,
		mpb.BarStyle().Lbound("[").Filler("█").Tip("█").Padding("░").Rbound("]"),
		mpb.PrependDecorators(
			decor.Name(name, decor.WCSyncSpaceR),
		),
		mpb.AppendDecorators(
			decor.CountersKibiByte("% .1f / % .1f", decor.WCSyncSpace),
			decor.Name("  "),
			decor.EwmaSpeed(decor.SizeB1024(0), "% .1f", 60, decor.WCSyncSpace),
		),
		mpb.BarRemoveOnComplete(),
	)
	return ab
}

// Update advances the bar to the written byte count.
func (b *ArtifactBar) Update(written, total int64) {
	if b.bar == nil {
		return
	}
	now := time.Now()
	if total > 0 {
		b.bar.SetTotal(total, false)
	}
	b.bar.EwmaIncrBy(int(written-b.lastBytes), now.Sub(b.lastTime))
	b.lastBytes = written
	b.lastTime = now
}

// Complete finishes the bar and prints the outcome line above the bars.
func (b *ArtifactBar) Complete(destPath string, size int64, err error) {
	elapsed := time.Since(b.startTime).Round(time.Second)

	if err == nil {
		if b.bar != nil {
			b.bar.SetTotal(b.lastBytes, true)
		}
		msg := fmt.Sprintf("✓ %s (%.1f MiB, %s)\n", destPath, float64(size)/(1024*1024), elapsed)
		b.write(msg)
		return
	}

	if b.bar != nil {
		b.bar.Abort(false)
	}
	b.write(fmt.Sprintf("✗ %s: %v\n", b.name, err))
}

func (b *ArtifactBar) write(msg string) {
	if b.ui.isTerminal && b.ui.progress != nil {
		b.ui.progress.Write([]byte(msg))
		return
	}
	fmt.Print(msg)
}

// Wait blocks until all bars are done rendering.
func (u *DownloadUI) Wait() {
	if u.progress != nil {
		u.progress.Wait()
	}
}

// LogWriter returns a writer that prints safely above the bars.
func (u *DownloadUI) LogWriter() io.Writer {
	if u.progress != nil && u.isTerminal {
		return u.progress
	}
	return os.Stderr
}
