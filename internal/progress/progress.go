// Package progress renders throttled, in-place status lines for transfers
// and archive extraction.
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/term"

	"dwcli/pkg/utils"
)

// DefaultInterval is the render cadence regardless of how often Update is called.
const DefaultInterval = 500 * time.Millisecond

const (
	cursorUp  = "\x1b[%dA"
	clearLine = "\r\x1b[2K"
)

// Reporter owns one status region on the terminal. Acquire it with Begin and
// always release it with End.
type Reporter struct {
	mu       sync.Mutex
	w        io.Writer
	interval time.Duration
	inPlace  bool
	now      func() time.Time

	latest   string
	start    time.Time
	ticker   *time.Ticker
	done     chan struct{}
	wg       sync.WaitGroup
	stopped  bool
	rendered int
}

type Option func(*Reporter)

func WithInterval(d time.Duration) Option {
	return func(r *Reporter) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithInPlace forces or disables overwriting the previous render.
func WithInPlace(inPlace bool) Option {
	return func(r *Reporter) {
		r.inPlace = inPlace
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Reporter) {
		r.now = now
	}
}

// Begin starts a reporter writing to w. Overwriting in place is enabled when w
// is a terminal; otherwise only the final render is written.
func Begin(w io.Writer, opts ...Option) *Reporter {
	r := &Reporter{
		w:        w,
		interval: DefaultInterval,
		inPlace:  isTerminal(w),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.start = r.now()
	return r
}

// Update stores msg as the latest status. An empty msg ends the reporter.
func (r *Reporter) Update(msg string) {
	if msg == "" {
		r.End()
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return
	}
	r.latest = msg
	if r.ticker == nil {
		r.ticker = time.NewTicker(r.interval)
		r.done = make(chan struct{})
		r.wg.Add(1)
		go r.loop(r.ticker, r.done)
	}
}

// End stops the ticker, renders once more and leaves the cursor below the
// region. Calling End more than once is a no-op.
func (r *Reporter) End() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	if r.ticker != nil {
		r.ticker.Stop()
		close(r.done)
	}
	r.mu.Unlock()

	r.wg.Wait()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.render(true)
	r.rendered = 0
}

// Elapsed reports the time since Begin.
func (r *Reporter) Elapsed() time.Duration {
	return r.now().Sub(r.start)
}

func (r *Reporter) loop(ticker *time.Ticker, done <-chan struct{}) {
	defer r.wg.Done()
	for {
		select {
		case <-ticker.C:
			r.mu.Lock()
			if !r.stopped {
				r.render(false)
			}
			r.mu.Unlock()
		case <-done:
			return
		}
	}
}

// render must be called with mu held.
func (r *Reporter) render(final bool) {
	if !r.inPlace && !final {
		return
	}

	lines := make([]string, 0, 2)
	if r.latest != "" {
		lines = append(lines, r.latest)
	}
	lines = append(lines, "Elapsed: "+utils.FormatElapsed(r.Elapsed()))

	if r.inPlace && r.rendered > 0 {
		fmt.Fprintf(r.w, cursorUp, r.rendered)
	}
	for _, line := range lines {
		if r.inPlace {
			fmt.Fprint(r.w, clearLine)
		}
		fmt.Fprintln(r.w, line)
	}
	r.rendered = len(lines)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
