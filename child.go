package procly

import "syscall"

// Child is the handle to a spawned process. It owns the parent ends of any
// piped stdio until the caller takes them; dropping the handle via Close
// releases whatever remains. Waits, signals and pipe taking are safe before
// or after the child has exited; signalling a reaped child reports the
// kernel's no-such-process errno as CodeKillFailed.
type Child struct {
	sp spawned

	stdin  *PipeWriter
	stdout *PipeReader
	stderr *PipeReader
}

func newChild(sp spawned) *Child {
	c := &Child{sp: sp}
	if sp.stdinFD >= 0 {
		c.stdin = newPipeWriter(sp.stdinFD)
	}
	if sp.stdoutFD >= 0 {
		c.stdout = newPipeReader(sp.stdoutFD)
	}
	if sp.stderrFD >= 0 {
		c.stderr = newPipeReader(sp.stderrFD)
	}
	return c
}

// ID returns the operating-system process id.
func (c *Child) ID() int {
	return c.sp.pid
}

// TakeStdin moves the child's stdin writer out of the handle. The second
// and later calls return nil.
func (c *Child) TakeStdin() *PipeWriter {
	w := c.stdin
	c.stdin = nil
	return w
}

// TakeStdout moves the child's stdout reader out of the handle. The second
// and later calls return nil.
func (c *Child) TakeStdout() *PipeReader {
	r := c.stdout
	c.stdout = nil
	return r
}

// TakeStderr moves the child's stderr reader out of the handle. The second
// and later calls return nil.
func (c *Child) TakeStderr() *PipeReader {
	r := c.stderr
	c.stderr = nil
	return r
}

// Wait blocks until the child exits and returns its status.
func (c *Child) Wait() (ExitStatus, error) {
	return currentBackend().wait(&c.sp, nil, 0)
}

// WaitWith waits under the given timeout policy. Once the timeout elapses
// the child is terminated, then killed after the grace window, and the
// result is a CodeTimeout error even if the child exits during the grace
// window.
func (c *Child) WaitWith(opts WaitOptions) (ExitStatus, error) {
	killGrace := opts.KillGrace
	if killGrace == 0 {
		killGrace = DefaultKillGrace
	}
	return currentBackend().wait(&c.sp, opts.Timeout, killGrace)
}

// TryWait reaps the child without blocking. The second return value is
// false while the child is still running.
func (c *Child) TryWait() (ExitStatus, bool, error) {
	return currentBackend().tryWait(&c.sp)
}

// Terminate sends the soft termination signal.
func (c *Child) Terminate() error {
	return currentBackend().terminate(&c.sp)
}

// Kill sends the hard termination signal.
func (c *Child) Kill() error {
	return currentBackend().kill(&c.sp)
}

// Signal delivers an arbitrary signal, targeting the process group when the
// child leads one.
func (c *Child) Signal(sig syscall.Signal) error {
	return currentBackend().signalProc(&c.sp, sig)
}

// Close releases any pipe ends still owned by the handle.
func (c *Child) Close() error {
	var first error
	if c.stdin != nil {
		if err := c.stdin.Close(); err != nil && first == nil {
			first = err
		}
		c.stdin = nil
	}
	for _, r := range []**PipeReader{&c.stdout, &c.stderr} {
		if *r != nil {
			if err := (*r).Close(); err != nil && first == nil {
				first = err
			}
			*r = nil
		}
	}
	return first
}
