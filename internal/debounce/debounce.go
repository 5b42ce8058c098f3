// Package debounce 提供可取消的防抖定时器：每次触发都会取消尚未执行的定时器并重新调度，
// 只有最后一次未被取消的触发才会执行。
package debounce

import (
	"sync"
	"time"
)

// Timer 是已调度回调的句柄
type Timer interface {
	Stop() bool
}

// Clock 抽象了定时器的来源，便于测试时注入手动时钟
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// RealClock returns a Clock backed by time.AfterFunc.
func RealClock() Clock {
	return realClock{}
}

// Debouncer delays execution of the most recent trigger until delay has passed
// without another trigger.
type Debouncer struct {
	mu      sync.Mutex
	delay   time.Duration
	clock   Clock
	timer   Timer
	gen     uint64
	stopped bool
}

// Option configures a Debouncer.
type Option func(*Debouncer)

// WithClock 设置定时器来源
func WithClock(c Clock) Option {
	return func(d *Debouncer) {
		d.clock = c
	}
}

// New creates a Debouncer with the given quiet period.
func New(delay time.Duration, opts ...Option) *Debouncer {
	d := &Debouncer{
		delay: delay,
		clock: RealClock(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Delay returns the quiet period.
func (d *Debouncer) Delay() time.Duration {
	return d.delay
}

// Trigger cancels any pending call and schedules fn after the quiet period.
// A stopped Debouncer ignores triggers.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}

	d.gen++
	gen := d.gen
	d.timer = d.clock.AfterFunc(d.delay, func() {
		// 已被取代的定时器即使已经开始执行也直接丢弃
		d.mu.Lock()
		if d.stopped || gen != d.gen {
			d.mu.Unlock()
			return
		}
		d.timer = nil
		d.mu.Unlock()

		fn()
	})
}

// Pending reports whether a trigger is waiting to fire.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

// Cancel discards the pending trigger, if any. The Debouncer stays usable.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Stop cancels the pending trigger and disables the Debouncer permanently.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
