package procly

import (
	"sync/atomic"
	"time"
)

// clock abstracts monotonic time and sleeping so the wait policy can run
// under a deterministic clock in tests.
type clock interface {
	now() time.Time
	sleep(d time.Duration)
}

type monotonicClock struct{}

func (monotonicClock) now() time.Time {
	return time.Now()
}

func (monotonicClock) sleep(d time.Duration) {
	time.Sleep(d)
}

type clockHolder struct {
	c clock
}

var clockOverride atomic.Pointer[clockHolder]

func currentClock() clock {
	if h := clockOverride.Load(); h != nil {
		return h.c
	}
	return monotonicClock{}
}

// swapClock installs c as the process-wide clock and returns a restore
// function that reinstates the previous one. The override is visible to all
// goroutines while active.
func swapClock(c clock) (restore func()) {
	prev := clockOverride.Swap(&clockHolder{c: c})
	return func() {
		clockOverride.Store(prev)
	}
}
