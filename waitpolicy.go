package procly

import "time"

// DefaultKillGrace is the time a child is given to exit after the soft
// termination signal before it is killed.
const DefaultKillGrace = 200 * time.Millisecond

// waitPollStep is the sleep between non-blocking reap attempts while a
// deadline is pending.
const waitPollStep = time.Millisecond

// WaitOptions bounds a wait. A nil Timeout waits indefinitely. A zero
// KillGrace selects DefaultKillGrace.
type WaitOptions struct {
	// Timeout is the total time the child has to finish.
	Timeout *time.Duration
	// KillGrace is the window between terminate and kill once the timeout
	// has elapsed.
	KillGrace time.Duration
}

// waitOps are the primitives the wait policy escalates through. They are
// funcs rather than an interface so a backend can bind them to a specific
// child record.
type waitOps struct {
	tryWait      func() (ExitStatus, bool, error)
	waitBlocking func() (ExitStatus, error)
	terminate    func() error
	kill         func() error
}

// waitWithTimeout turns a blocking wait into a bounded one. Without a
// timeout it blocks. With one it polls until the deadline, then terminates,
// polls through the grace window, and finally kills and reaps. Once the
// deadline has passed the result is always a timeout error: a child that
// exits during the grace window did not meet the caller's deadline.
func waitWithTimeout(ops waitOps, clk clock, timeout *time.Duration, killGrace time.Duration) (ExitStatus, error) {
	if timeout == nil {
		return ops.waitBlocking()
	}

	deadline := clk.now().Add(*timeout)
	for {
		status, done, err := ops.tryWait()
		if err != nil {
			return ExitStatus{}, err
		}
		if done {
			return status, nil
		}
		if !clk.now().Before(deadline) {
			break
		}
		clk.sleep(waitPollStep)
	}

	if err := ops.terminate(); err != nil {
		return ExitStatus{}, err
	}

	graceDeadline := clk.now().Add(killGrace)
	for clk.now().Before(graceDeadline) {
		_, done, err := ops.tryWait()
		if err != nil {
			return ExitStatus{}, err
		}
		if done {
			return ExitStatus{}, newError(CodeTimeout, "timeout")
		}
		clk.sleep(waitPollStep)
	}

	if err := ops.kill(); err != nil {
		return ExitStatus{}, err
	}
	_, _ = ops.waitBlocking()
	return ExitStatus{}, newError(CodeTimeout, "timeout")
}
