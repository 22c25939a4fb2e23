package debounce_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/goliatone/go-formstate/pkg/debounce"
	"github.com/goliatone/go-formstate/pkg/testsupport"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestSchedule_CollapsesBursts(t *testing.T) {
	clock := testsupport.NewManualClock(epoch)
	d := debounce.New(500*time.Millisecond, debounce.WithClock(clock))

	var fired []time.Duration
	record := func() {
		fired = append(fired, clock.Now().Sub(epoch))
	}

	d.Schedule(record)
	clock.Advance(100 * time.Millisecond)
	d.Schedule(record)
	clock.Advance(100 * time.Millisecond)
	d.Schedule(record)

	clock.Advance(300 * time.Millisecond) // t=500
	if len(fired) != 0 {
		t.Fatalf("fired at %v, before quiescence", fired)
	}
	clock.Advance(199 * time.Millisecond) // t=699
	if len(fired) != 0 {
		t.Fatalf("fired early at %v", fired)
	}
	clock.Advance(time.Millisecond) // t=700
	if len(fired) != 1 || fired[0] != 700*time.Millisecond {
		t.Fatalf("expected one invocation at 700ms, got %v", fired)
	}

	clock.Advance(5 * time.Second)
	if len(fired) != 1 {
		t.Fatalf("extra invocations: %v", fired)
	}
	if d.Pending() {
		t.Fatalf("nothing should be pending after firing")
	}
}

func TestSchedule_RunsLatestCallback(t *testing.T) {
	clock := testsupport.NewManualClock(epoch)
	d := debounce.New(time.Second, debounce.WithClock(clock))

	var got string
	d.Schedule(func() { got = "first" })
	d.Schedule(func() { got = "second" })
	clock.Advance(time.Second)

	if got != "second" {
		t.Fatalf("got %q", got)
	}
}

func TestStop_DropsPendingInvocation(t *testing.T) {
	clock := testsupport.NewManualClock(epoch)
	d := debounce.New(500*time.Millisecond, debounce.WithClock(clock))

	calls := 0
	d.Schedule(func() { calls++ })
	clock.Advance(200 * time.Millisecond)
	d.Stop()
	clock.Advance(time.Second)

	if calls != 0 {
		t.Fatalf("invoked %d times after teardown", calls)
	}
	if d.Schedule(func() { calls++ }) {
		t.Fatalf("schedule accepted after stop")
	}
	clock.Advance(time.Second)
	if calls != 0 {
		t.Fatalf("invoked after stop")
	}
	d.Stop()
	select {
	case <-d.Done():
	default:
		t.Fatalf("done channel not closed")
	}
}

func TestCancel_ReportsPending(t *testing.T) {
	clock := testsupport.NewManualClock(epoch)
	d := debounce.New(time.Second, debounce.WithClock(clock))

	if d.Cancel() {
		t.Fatalf("nothing to cancel yet")
	}
	calls := 0
	d.Schedule(func() { calls++ })
	due, ok := d.Due()
	if !ok || !due.Equal(epoch.Add(time.Second)) {
		t.Fatalf("due = %v, %v", due, ok)
	}
	if !d.Cancel() {
		t.Fatalf("expected a pending invocation")
	}
	clock.Advance(2 * time.Second)
	if calls != 0 {
		t.Fatalf("cancelled invocation ran")
	}
	if clock.Pending() != 0 {
		t.Fatalf("timer not stopped on cancel")
	}

	if !d.Schedule(func() { calls++ }) {
		t.Fatalf("schedule refused after cancel")
	}
	clock.Advance(time.Second)
	if calls != 1 {
		t.Fatalf("calls = %d", calls)
	}
}

func TestFlush_RunsPendingNow(t *testing.T) {
	clock := testsupport.NewManualClock(epoch)
	d := debounce.New(2*time.Second, debounce.WithClock(clock))

	calls := 0
	if d.Flush() {
		t.Fatalf("flush without pending work")
	}
	d.Schedule(func() { calls++ })
	if !d.Flush() {
		t.Fatalf("expected flush to run pending work")
	}
	clock.Advance(3 * time.Second)
	if calls != 1 {
		t.Fatalf("calls = %d", calls)
	}
}

func TestIndependentInstances(t *testing.T) {
	clock := testsupport.NewManualClock(epoch)
	validate := debounce.New(500*time.Millisecond, debounce.WithClock(clock))
	autosave := debounce.New(2*time.Second, debounce.WithClock(clock))

	var order []string
	validate.Schedule(func() { order = append(order, "validate") })
	autosave.Schedule(func() { order = append(order, "autosave") })

	clock.Advance(500 * time.Millisecond)
	if len(order) != 1 || order[0] != "validate" {
		t.Fatalf("order = %v", order)
	}
	if !autosave.Pending() {
		t.Fatalf("autosave should still be pending")
	}
	clock.Advance(1500 * time.Millisecond)
	if len(order) != 2 || order[1] != "autosave" {
		t.Fatalf("order = %v", order)
	}
}

func TestBind_StopsOnContextCancel(t *testing.T) {
	d := debounce.New(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	d.Bind(ctx)

	var calls atomic.Int32
	d.Schedule(func() { calls.Add(1) })
	cancel()

	select {
	case <-d.Done():
	case <-time.After(time.Second):
		t.Fatalf("debouncer not stopped after context cancellation")
	}
	if d.Pending() {
		t.Fatalf("pending invocation survived teardown")
	}
	if calls.Load() != 0 {
		t.Fatalf("callback ran")
	}
}

func TestBind_WatcherExitsOnStop(t *testing.T) {
	d := debounce.New(time.Hour)
	d.Bind(context.Background()) // no Done channel, nothing to watch

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Bind(ctx)
	d.Stop()
}

func TestSystemClock_FiresAfterQuiescence(t *testing.T) {
	d := debounce.New(20 * time.Millisecond)
	defer d.Stop()

	done := make(chan time.Time, 1)
	start := time.Now()
	d.Schedule(func() { done <- time.Now() })

	select {
	case at := <-done:
		if at.Sub(start) < 20*time.Millisecond {
			t.Fatalf("fired after %v", at.Sub(start))
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("callback never fired")
	}
}

func TestSystemClock_StopBeforeDelay(t *testing.T) {
	d := debounce.New(30 * time.Millisecond)

	var calls atomic.Int32
	d.Schedule(func() { calls.Add(1) })
	d.Stop()

	time.Sleep(90 * time.Millisecond)
	if calls.Load() != 0 {
		t.Fatalf("callback ran after stop")
	}
}
