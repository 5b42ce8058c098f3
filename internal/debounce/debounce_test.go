package debounce

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestOnlyLastTriggerFires(t *testing.T) {
	clock := NewManualClock(time.Unix(0, 0))
	d := New(300*time.Millisecond, WithClock(clock))

	var fired []string
	for _, q := range []string{"p", "ph", "pho", "phon", "phone"} {
		q := q
		d.Trigger(func() { fired = append(fired, q) })
		clock.Advance(100 * time.Millisecond)
	}
	assert.Empty(t, fired)
	assert.True(t, d.Pending())
	assert.Equal(t, 1, clock.Pending())

	clock.Advance(199 * time.Millisecond)
	assert.Empty(t, fired)

	clock.Advance(time.Millisecond)
	assert.Equal(t, []string{"phone"}, fired)
	assert.False(t, d.Pending())
}

func TestCancelKeepsDebouncerUsable(t *testing.T) {
	clock := NewManualClock(time.Unix(0, 0))
	d := New(time.Second, WithClock(clock))

	var n int
	d.Trigger(func() { n++ })
	d.Cancel()
	clock.Advance(2 * time.Second)
	assert.Equal(t, 0, n)

	d.Trigger(func() { n++ })
	clock.Advance(time.Second)
	assert.Equal(t, 1, n)
}

func TestStopIgnoresLaterTriggers(t *testing.T) {
	clock := NewManualClock(time.Unix(0, 0))
	d := New(time.Second, WithClock(clock))

	var n int
	d.Trigger(func() { n++ })
	d.Stop()
	d.Trigger(func() { n++ })
	clock.Advance(5 * time.Second)
	assert.Equal(t, 0, n)
	assert.Equal(t, 0, clock.Pending())
}

func TestStaleTimerThatAlreadyStartedIsDiscarded(t *testing.T) {
	// A Clock whose Stop never succeeds simulates a timer that fired concurrently.
	clock := NewManualClock(time.Unix(0, 0))
	d := New(time.Second, WithClock(unstoppable{clock}))

	var got []int
	d.Trigger(func() { got = append(got, 1) })
	clock.Advance(500 * time.Millisecond)
	d.Trigger(func() { got = append(got, 2) })
	clock.Advance(2 * time.Second)

	assert.Equal(t, []int{2}, got)
}

type unstoppable struct{ *ManualClock }

func (u unstoppable) AfterFunc(d time.Duration, f func()) Timer {
	u.ManualClock.AfterFunc(d, f)
	return noStop{}
}

type noStop struct{}

func (noStop) Stop() bool { return false }

func TestRealClockCoalesces(t *testing.T) {
	d := New(20 * time.Millisecond)
	defer d.Stop()

	var calls, last int32
	for i := int32(1); i <= 5; i++ {
		i := i
		d.Trigger(func() {
			atomic.AddInt32(&calls, 1)
			atomic.StoreInt32(&last, i)
		})
		time.Sleep(2 * time.Millisecond)
	}

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, int32(5), atomic.LoadInt32(&last))
}
