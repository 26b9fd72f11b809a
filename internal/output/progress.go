package output

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"golang.org/x/term"
)

var progressFrames = []rune("⠋⠙⠹⠸⠼⠴⠦⠧⠇⠏")

// Progress reports the status of a tracked transaction. On a terminal it
// redraws one line with a frame and the elapsed time; elsewhere it prints a
// line per status change.
type Progress struct {
	out      io.Writer
	live     bool
	interval time.Duration

	mu      sync.Mutex
	status  string
	started time.Time
	drawn   int
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewProgress creates a Progress writing to out.
func NewProgress(out io.Writer) *Progress {
	live := false
	if f, ok := out.(*os.File); ok {
		live = term.IsTerminal(int(f.Fd()))
	}
	return &Progress{out: out, live: live, interval: 120 * time.Millisecond}
}

// Start shows status. It is a no-op while already started.
func (p *Progress) Start(status string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.started = time.Now()
	p.setLocked(status)

	if !p.live {
		return
	}
	p.wg.Add(1)
	go p.animate(ctx)
}

// Update replaces the status.
func (p *Progress) Update(status string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.setLocked(status)
}

// Stop ends the progress line.
func (p *Progress) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	p.cancel = nil
	p.mu.Unlock()
	if cancel == nil {
		return
	}

	cancel()
	p.wg.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.drawn > 0 {
		fmt.Fprintf(p.out, "\r%s\r", strings.Repeat(" ", p.drawn))
		p.drawn = 0
	}
}

func (p *Progress) setLocked(status string) {
	if status == p.status {
		return
	}
	p.status = status
	if !p.live && p.cancel != nil {
		fmt.Fprintf(p.out, "%s %s\n", color.New(color.FgCyan).Sprint("…"), status)
	}
}

func (p *Progress) animate(ctx context.Context) {
	defer p.wg.Done()
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for frame := 0; ; frame++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		p.mu.Lock()
		elapsed := time.Since(p.started).Truncate(time.Second)
		line := fmt.Sprintf("%c %s (%s)", progressFrames[frame%len(progressFrames)], p.status, elapsed)
		width := len([]rune(line))
		pad := ""
		if p.drawn > width {
			pad = strings.Repeat(" ", p.drawn-width)
		}
		fmt.Fprintf(p.out, "\r%s%s", line, pad)
		p.drawn = width
		p.mu.Unlock()
	}
}
