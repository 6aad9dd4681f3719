package procly

import (
	"sync/atomic"
	"syscall"
	"time"
)

// spawned is the live record of a launched child: its pid, the process group
// it was placed in (0 when unknown), and the parent-side ends of any piped
// stdio (-1 when absent). The parent ends are moved out into pipe objects
// when a handle is built around the record.
type spawned struct {
	pid             int
	pgid            int
	newProcessGroup bool
	stdinFD         int
	stdoutFD        int
	stderrFD        int
}

// backend realizes spawn specifications into live children and owns every
// operation on them afterwards. A single indirection exists so tests can
// install a double via swapBackend.
type backend interface {
	spawn(spec *spawnSpec) (spawned, error)
	wait(sp *spawned, timeout *time.Duration, killGrace time.Duration) (ExitStatus, error)
	tryWait(sp *spawned) (ExitStatus, bool, error)
	terminate(sp *spawned) error
	kill(sp *spawned) error
	signalProc(sp *spawned, sig syscall.Signal) error
}

type backendHolder struct {
	b backend
}

var backendOverride atomic.Pointer[backendHolder]

func currentBackend() backend {
	if h := backendOverride.Load(); h != nil {
		return h.b
	}
	return osBackend
}

// swapBackend installs b as the process-wide backend and returns a restore
// function that reinstates the previous one. The override is visible to all
// goroutines while active.
func swapBackend(b backend) (restore func()) {
	prev := backendOverride.Swap(&backendHolder{b: b})
	return func() {
		backendOverride.Store(prev)
	}
}
