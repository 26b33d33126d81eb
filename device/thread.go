package device

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ardnew/softportal/pkg"
)

// Clock supplies the current time to a [TransferThread].
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }

// ManualClock is a clock that only moves when told to. Replays and tests
// use it to step through completion delays without sleeping.
type ManualClock struct {
	mutex sync.Mutex
	now   time.Time
}

// NewManualClock creates a manual clock reading start.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

// Now returns the current manual time.
func (c *ManualClock) Now() time.Time {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.now
}

// Set moves the clock to t. The clock never moves backwards.
func (c *ManualClock) Set(t time.Time) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if t.After(c.now) {
		c.now = t
	}
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if d > 0 {
		c.now = c.now.Add(d)
	}
}

// Scheduler accepts transfers whose response bytes are known and completes
// them once their completion delay has elapsed.
type Scheduler interface {
	// Schedule copies up to count bytes of data into t, records
	// ExpectedCount and ExpectedTime = now + delay, and queues t for
	// completion.
	Schedule(t *Transfer, data []byte, count int, delay time.Duration)

	// Pending returns the number of transfers not yet completed.
	Pending() int

	// Clear drops every pending transfer, completing each as cancelled.
	Clear()
}

// ThreadOption configures a [TransferThread].
type ThreadOption func(*TransferThread)

// WithClock sets the clock used to stamp and release transfers.
func WithClock(c Clock) ThreadOption {
	return func(t *TransferThread) { t.clock = c }
}

// WithCompletion sets a callback invoked for every completed transfer
// before the transfer's own callback.
func WithCompletion(cb TransferCallback) ThreadOption {
	return func(t *TransferThread) { t.onComplete = cb }
}

// TransferThread is the in-process [Scheduler]. Transfers are kept ordered
// by ExpectedTime (ties in submission order) and are never completed before
// that time.
type TransferThread struct {
	clock      Clock
	onComplete TransferCallback

	mutex   sync.Mutex
	pending []*Transfer
	wake    chan struct{}

	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewTransferThread creates a transfer thread. The default clock is
// [SystemClock].
func NewTransferThread(opts ...ThreadOption) *TransferThread {
	t := &TransferThread{
		clock: SystemClock{},
		wake:  make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Clock returns the thread's clock.
func (t *TransferThread) Clock() Clock {
	return t.clock
}

// Schedule implements [Scheduler].
func (t *TransferThread) Schedule(tr *Transfer, data []byte, count int, delay time.Duration) {
	n := tr.FillBuffer(data, count)
	tr.ExpectedCount = count
	tr.ExpectedTime = t.clock.Now().Add(delay)

	t.mutex.Lock()
	idx := sort.Search(len(t.pending), func(i int) bool {
		return t.pending[i].ExpectedTime.After(tr.ExpectedTime)
	})
	t.pending = append(t.pending, nil)
	copy(t.pending[idx+1:], t.pending[idx:])
	t.pending[idx] = tr
	t.mutex.Unlock()

	pkg.LogDebug(pkg.ComponentTransfer, "transfer scheduled",
		"kind", tr.Kind.String(),
		"endpoint", tr.Endpoint,
		"count", count,
		"copied", n,
		"delay", delay)

	select {
	case t.wake <- struct{}{}:
	default:
	}
}

// Pending implements [Scheduler].
func (t *TransferThread) Pending() int {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return len(t.pending)
}

// Clear implements [Scheduler].
func (t *TransferThread) Clear() {
	t.mutex.Lock()
	dropped := t.pending
	t.pending = nil
	t.mutex.Unlock()

	for _, tr := range dropped {
		tr.Complete(pkg.TransferStatusCancelled)
	}
	if len(dropped) > 0 {
		pkg.LogDebug(pkg.ComponentTransfer, "pending transfers cleared", "count", len(dropped))
	}
}

// Next returns the earliest ExpectedTime among pending transfers.
// Returns false if nothing is pending.
func (t *TransferThread) Next() (time.Time, bool) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if len(t.pending) == 0 {
		return time.Time{}, false
	}
	return t.pending[0].ExpectedTime, true
}

// Poll completes every pending transfer whose ExpectedTime is not after
// now, in expected-time order, and returns how many were completed.
func (t *TransferThread) Poll(now time.Time) int {
	t.mutex.Lock()
	n := 0
	for n < len(t.pending) && !t.pending[n].ExpectedTime.After(now) {
		n++
	}
	due := make([]*Transfer, n)
	copy(due, t.pending[:n])
	t.pending = t.pending[n:]
	if len(t.pending) == 0 {
		t.pending = nil
	}
	t.mutex.Unlock()

	for _, tr := range due {
		if t.onComplete != nil {
			t.onComplete(tr)
		}
		tr.Complete(pkg.TransferStatusSuccess)
	}
	return n
}

// Drain completes pending transfers until none remain, including any that
// completion callbacks schedule. A [ManualClock] is stepped to each
// transfer's ExpectedTime; any other clock is waited on. Returns the number
// of transfers completed.
func (t *TransferThread) Drain(ctx context.Context) (int, error) {
	total := 0
	for {
		next, ok := t.Next()
		if !ok {
			return total, nil
		}
		if mc, ok := t.clock.(*ManualClock); ok {
			mc.Set(next)
		} else if wait := next.Sub(t.clock.Now()); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return total, ctx.Err()
			case <-timer.C:
			}
		}
		total += t.Poll(t.clock.Now())
	}
}

// Start runs the completion loop in a background goroutine until ctx is
// cancelled or Stop is called.
func (t *TransferThread) Start(ctx context.Context) error {
	t.mutex.Lock()
	if t.running {
		t.mutex.Unlock()
		return pkg.ErrAlreadyRunning
	}
	ctx, t.cancel = context.WithCancel(ctx)
	t.done = make(chan struct{})
	t.running = true
	t.mutex.Unlock()

	pkg.LogDebug(pkg.ComponentTransfer, "transfer thread started")

	go t.loop(ctx)
	return nil
}

// Stop stops the completion loop and waits for it to exit.
func (t *TransferThread) Stop() {
	t.mutex.Lock()
	if !t.running {
		t.mutex.Unlock()
		return
	}
	t.running = false
	cancel, done := t.cancel, t.done
	t.mutex.Unlock()

	cancel()
	<-done
	pkg.LogDebug(pkg.ComponentTransfer, "transfer thread stopped")
}

// IsRunning returns true if the completion loop is running.
func (t *TransferThread) IsRunning() bool {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.running
}

func (t *TransferThread) loop(ctx context.Context) {
	defer close(t.done)
	for {
		var timeout <-chan time.Time
		var timer *time.Timer
		if next, ok := t.Next(); ok {
			wait := next.Sub(t.clock.Now())
			if wait <= 0 {
				t.Poll(t.clock.Now())
				continue
			}
			timer = time.NewTimer(wait)
			timeout = timer.C
		}

		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case <-t.wake:
			if timer != nil {
				timer.Stop()
			}
		case <-timeout:
			t.Poll(t.clock.Now())
		}
	}
}
