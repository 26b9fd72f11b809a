// Package notify delivers submission notifications to the console and the
// event bus.
package notify

import (
	"sync"

	"github.com/altuslabsxyz/stakekit/internal/application/ports"
	"github.com/altuslabsxyz/stakekit/internal/events"
	"github.com/altuslabsxyz/stakekit/internal/output"
	"github.com/altuslabsxyz/stakekit/internal/submit"
)

// DefaultLevels colors the submission notifications.
var DefaultLevels = map[string]output.NoticeLevel{
	submit.NotifyWalletNotFound.Title: output.NoticeError,
	submit.NotifyPending.Title:        output.NoticeInfo,
	submit.NotifyInBlock.Title:        output.NoticeInfo,
	submit.NotifyFinalized.Title:      output.NoticeSuccess,
	submit.NotifyFailed.Title:         output.NoticeError,
	submit.NotifyCancelled.Title:      output.NoticeWarn,
}

// Console prints notifications through the CLI logger.
type Console struct {
	logger *output.Logger
	levels map[string]output.NoticeLevel
}

// NewConsole creates a console notifier. levels maps titles to colors;
// unknown titles print as info.
func NewConsole(logger *output.Logger, levels map[string]output.NoticeLevel) *Console {
	return &Console{logger: logger, levels: levels}
}

// Notify implements ports.Notifier.
func (c *Console) Notify(n ports.Notification) {
	c.logger.Notice(n.Title, n.Subtitle, c.levels[n.Title])
}

// Feed republishes notifications on the event bus.
type Feed struct {
	bus *events.Bus
}

// NewFeed creates a bus notifier.
func NewFeed(bus *events.Bus) *Feed {
	return &Feed{bus: bus}
}

// Notify implements ports.Notifier.
func (f *Feed) Notify(n ports.Notification) {
	f.bus.PublishNotification(events.Notification{Title: n.Title, Subtitle: n.Subtitle})
}

// Multi fans a notification out to every notifier in order.
type Multi []ports.Notifier

// Notify implements ports.Notifier.
func (m Multi) Notify(n ports.Notification) {
	for _, notifier := range m {
		if notifier != nil {
			notifier.Notify(n)
		}
	}
}

// Recorder keeps every notification it receives.
type Recorder struct {
	mu   sync.Mutex
	seen []ports.Notification
}

// Notify implements ports.Notifier.
func (r *Recorder) Notify(n ports.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, n)
}

// All returns the notifications received so far.
func (r *Recorder) All() []ports.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ports.Notification(nil), r.seen...)
}

var (
	_ ports.Notifier = (*Console)(nil)
	_ ports.Notifier = (*Feed)(nil)
	_ ports.Notifier = Multi(nil)
	_ ports.Notifier = (*Recorder)(nil)
)
