// Package notify provides cross-platform desktop notifications.
// It uses github.com/gen2brain/beeep for cross-platform notification support.
package notify

import (
	"fmt"
	"sync"

	"github.com/gen2brain/beeep"

	"github.com/faceaudit/faceaudit/internal/logging"
)

const appTitle = "Face Audit"

// Notifier handles desktop notifications for job outcomes.
type Notifier struct {
	logger  *logging.Logger
	enabled bool
	mu      sync.RWMutex
}

// NewNotifier creates a notifier. Disabled notifiers silently drop every
// call.
func NewNotifier(enabled bool, logger *logging.Logger) *Notifier {
	return &Notifier{
		logger:  logger,
		enabled: enabled,
	}
}

// SetEnabled enables or disables notifications.
func (n *Notifier) SetEnabled(enabled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled = enabled
}

// IsEnabled returns whether notifications are enabled.
func (n *Notifier) IsEnabled() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.enabled
}

// JobCompleted announces a finished audit with its results summary.
func (n *Notifier) JobCompleted(displayName, summary string) {
	n.send(fmt.Sprintf("%s — completed", truncate(displayName, 40)), summary)
}

// JobFailed announces a failed audit.
func (n *Notifier) JobFailed(displayName, message string) {
	n.send(fmt.Sprintf("%s — failed", truncate(displayName, 40)), message)
}

// SessionExpired announces that the server lost the tracked job.
func (n *Notifier) SessionExpired(displayName string) {
	n.send("Session expired",
		fmt.Sprintf("The server no longer has the job for %s. Submit the file again.", truncate(displayName, 40)))
}

func (n *Notifier) send(title, message string) {
	if !n.IsEnabled() {
		return
	}

	if err := beeep.Notify(fmt.Sprintf("%s: %s", appTitle, title), message, ""); err != nil {
		// Notification failures are cosmetic; log and move on.
		n.logger.Debug().Err(err).Msg("Desktop notification failed")
	}
}

// truncate shortens s to at most max characters. It counts runes, not
// bytes, so multi-byte filenames never get cut mid-character.
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}
