// Package notifier coalesces error messages from concurrent failing calls into
// one toast per distinct message per window.
package notifier

import (
	"context"
	"sync"
	"time"

	"github.com/samvad-hq/callgate/internal/domain"
)

const (
	// DefaultWindow is how long the collector waits after the first message of
	// a burst before showing everything queued.
	DefaultWindow = time.Second

	defaultFlushTimeout = 10 * time.Second
)

// Sink displays a toast to the user.
type Sink interface {
	Toast(ctx context.Context, t domain.Toast) error
}

// History records displayed messages and reports how often each was shown.
type History interface {
	RecordToast(message string, at time.Time) (int, error)
}

// Recorder observes flush activity.
type Recorder interface {
	ObserveFlush(shown, failed int)
}

// Timer is the handle returned by a Scheduler.
type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d.
type Scheduler func(d time.Duration, f func()) Timer

func afterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// Collector owns the pending error set and its coalescing window. Messages
// present in the set have not been shown yet; showing removes them.
type Collector struct {
	mu      sync.Mutex
	pending map[string]struct{}
	order   []string
	timer   Timer
	gen     uint64
	closed  bool
	// inflight counts window flushes delivering outside the lock.
	inflight sync.WaitGroup

	window       time.Duration
	flushTimeout time.Duration
	schedule     Scheduler
	now          func() time.Time

	sink    Sink
	history History
	rec     Recorder
	log     Logger
}

// Option configures a Collector.
type Option func(*Collector)

// WithWindow overrides DefaultWindow.
func WithWindow(d time.Duration) Option {
	return func(c *Collector) {
		if d > 0 {
			c.window = d
		}
	}
}

// WithScheduler replaces time.AfterFunc.
func WithScheduler(s Scheduler) Option {
	return func(c *Collector) {
		if s != nil {
			c.schedule = s
		}
	}
}

// WithHistory attaches a display history.
func WithHistory(h History) Option {
	return func(c *Collector) { c.history = h }
}

// WithRecorder attaches a flush recorder.
func WithRecorder(r Recorder) Option {
	return func(c *Collector) { c.rec = r }
}

// WithLogger attaches a logger.
func WithLogger(l Logger) Option {
	return func(c *Collector) { c.log = ensureLogger(l) }
}

// WithFlushTimeout bounds flushes triggered by the window timer.
func WithFlushTimeout(d time.Duration) Option {
	return func(c *Collector) {
		if d > 0 {
			c.flushTimeout = d
		}
	}
}

// New builds a Collector that shows toasts through sink.
func New(sink Sink, opts ...Option) *Collector {
	c := &Collector{
		pending:      make(map[string]struct{}),
		window:       DefaultWindow,
		flushTimeout: defaultFlushTimeout,
		schedule:     afterFunc,
		now:          time.Now,
		sink:         sink,
		log:          noopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Window returns the coalescing window length.
func (c *Collector) Window() time.Duration { return c.window }

// Enqueue adds message to the pending set unless it is already queued.
// It reports whether the message was added.
func (c *Collector) Enqueue(message string) bool {
	if message == "" {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enqueueLocked(message)
}

func (c *Collector) enqueueLocked(message string) bool {
	if _, ok := c.pending[message]; ok {
		return false
	}
	c.pending[message] = struct{}{}
	c.order = append(c.order, message)
	return true
}

// Notify queues message and arms the window if it is not running. Triggers
// arriving while the window is armed collapse into the same flush.
func (c *Collector) Notify(message string) {
	if message == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.enqueueLocked(message)
	if c.timer != nil || c.closed {
		return
	}
	c.gen++
	gen := c.gen
	c.timer = c.schedule(c.window, func() { c.windowElapsed(gen) })
}

func (c *Collector) windowElapsed(gen uint64) {
	c.mu.Lock()
	if gen != c.gen || c.timer == nil {
		c.mu.Unlock()
		return
	}
	msgs := c.drainLocked()
	c.inflight.Add(1)
	c.mu.Unlock()
	defer c.inflight.Done()

	ctx, cancel := context.WithTimeout(context.Background(), c.flushTimeout)
	defer cancel()
	c.show(ctx, msgs)
}

// Pending returns the queued messages in arrival order.
func (c *Collector) Pending() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.order...)
}

// Drain removes and returns every queued message and disarms the window, so
// the next Notify starts a fresh one.
func (c *Collector) Drain() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.drainLocked()
}

func (c *Collector) drainLocked() []string {
	out := c.order
	c.order = nil
	c.pending = make(map[string]struct{})
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	return out
}

// Flush shows every queued message once and returns how many reached the sink.
func (c *Collector) Flush(ctx context.Context) int {
	return c.show(ctx, c.Drain())
}

// Close stops the window timer, flushes what is still queued and waits for
// window flushes already delivering, bounded by ctx. Messages queued after
// Close are kept but no longer scheduled.
func (c *Collector) Close(ctx context.Context) int {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	shown := c.Flush(ctx)

	done := make(chan struct{})
	go func() {
		c.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		c.log.WarnObj("close gave up waiting for in-flight toasts", "toast_close", ctx.Err())
	}
	return shown
}

func (c *Collector) show(ctx context.Context, msgs []string) int {
	if len(msgs) == 0 {
		return 0
	}

	shown, failed := 0, 0
	for _, msg := range msgs {
		t := domain.Toast{
			Message:     msg,
			Occurrences: 1,
			RaisedAt:    c.now().UTC(),
		}
		if c.history != nil {
			n, err := c.history.RecordToast(msg, t.RaisedAt)
			if err != nil {
				c.log.WarnObj("toast history update failed", "toast_history_error", map[string]any{
					"message": msg,
					"error":   err.Error(),
				})
			} else if n > 0 {
				t.Occurrences = n
			}
		}

		if c.sink == nil {
			failed++
			continue
		}
		if err := c.sink.Toast(ctx, t); err != nil {
			failed++
			c.log.ErrorObj("toast delivery failed", "toast_error", map[string]any{
				"message": msg,
				"error":   err.Error(),
			})
			continue
		}
		shown++
	}

	if c.rec != nil {
		c.rec.ObserveFlush(shown, failed)
	}
	c.log.DebugObj("toasts flushed", "toast_flush", map[string]any{
		"shown":  shown,
		"failed": failed,
	})
	return shown
}
