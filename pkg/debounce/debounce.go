// Package debounce delays a callback until its input has been quiet for a
// fixed interval. Each Debouncer holds at most one pending invocation: a new
// Schedule call cancels the previous one and restarts the delay. Independent
// input streams need independent Debouncers.
package debounce

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Option configures a Debouncer.
type Option func(*Debouncer)

// WithClock injects the time source.
func WithClock(clock Clock) Option {
	return func(d *Debouncer) {
		if clock != nil {
			d.clock = clock
		}
	}
}

// WithLogger attaches a logger for lifecycle diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(d *Debouncer) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithName labels log entries.
func WithName(name string) Option {
	return func(d *Debouncer) {
		d.name = name
	}
}

// Debouncer is a cancellable single-slot timer. The callback runs on the
// clock's goroutine; it never runs after Cancel, Stop or a superseding
// Schedule, even when the underlying timer already fired.
type Debouncer struct {
	mu      sync.Mutex
	clock   Clock
	delay   time.Duration
	timer   Timer
	pending func()
	due     time.Time
	gen     uint64
	stopped bool
	done    chan struct{}

	name   string
	logger *zap.Logger
}

// New constructs a Debouncer with the given quiet interval.
func New(delay time.Duration, options ...Option) *Debouncer {
	if delay < 0 {
		delay = 0
	}
	d := &Debouncer{
		clock:  SystemClock(),
		delay:  delay,
		done:   make(chan struct{}),
		logger: zap.NewNop(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(d)
	}
	return d
}

// Delay returns the configured quiet interval.
func (d *Debouncer) Delay() time.Duration {
	return d.delay
}

// Schedule replaces any pending invocation with fn, due one delay from now.
// It returns false when the debouncer was stopped or fn is nil.
func (d *Debouncer) Schedule(fn func()) bool {
	if fn == nil {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return false
	}
	d.cancelLocked()
	d.gen++
	gen := d.gen
	d.pending = fn
	d.due = d.clock.Now().Add(d.delay)
	d.timer = d.clock.AfterFunc(d.delay, func() {
		d.fire(gen)
	})
	return true
}

// Cancel drops the pending invocation and reports whether there was one.
func (d *Debouncer) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	had := d.pending != nil
	d.cancelLocked()
	return had
}

// Stop tears the debouncer down: the pending invocation is dropped and later
// Schedule calls are refused. Stop is idempotent.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	had := d.pending != nil
	d.cancelLocked()
	d.stopped = true
	close(d.done)
	d.logger.Debug("debouncer stopped",
		zap.String("name", d.name),
		zap.Bool("dropped_pending", had),
	)
}

// Bind stops the debouncer when ctx is done. The watcher goroutine exits on
// either ctx cancellation or Stop.
func (d *Debouncer) Bind(ctx context.Context) {
	if ctx == nil || ctx.Done() == nil {
		return
	}
	go func() {
		select {
		case <-ctx.Done():
			d.Stop()
		case <-d.done:
		}
	}()
}

// Done is closed once the debouncer is stopped.
func (d *Debouncer) Done() <-chan struct{} {
	return d.done
}

// Stopped reports whether Stop has been called.
func (d *Debouncer) Stopped() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stopped
}

// Pending reports whether an invocation is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil
}

// Due returns when the pending invocation fires.
func (d *Debouncer) Due() (time.Time, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.due, d.pending != nil
}

// Flush runs the pending invocation immediately on the calling goroutine and
// reports whether there was one.
func (d *Debouncer) Flush() bool {
	d.mu.Lock()
	fn := d.pending
	d.cancelLocked()
	d.mu.Unlock()

	if fn == nil {
		return false
	}
	fn()
	return true
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if d.stopped || gen != d.gen || d.pending == nil {
		d.mu.Unlock()
		return
	}
	fn := d.pending
	d.pending = nil
	d.timer = nil
	d.due = time.Time{}
	d.mu.Unlock()

	fn()
}

func (d *Debouncer) cancelLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.pending = nil
	d.due = time.Time{}
	d.gen++
}
