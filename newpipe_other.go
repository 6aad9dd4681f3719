//go:build !windows && !linux

package procly

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// newPipe allocates a close-on-exec pipe pair. Without pipe2 the descriptors
// are created and flagged under the fork lock so a concurrent spawn cannot
// inherit them in the window before FD_CLOEXEC is applied.
func newPipe() (readFD, writeFD int, err error) {
	syscall.ForkLock.RLock()
	defer syscall.ForkLock.RUnlock()

	var fds [2]int
	if err := unix.Pipe(fds[:]); err != nil {
		return -1, -1, errnoError(CodePipeFailed, errnoOf(err), "pipe")
	}
	unix.CloseOnExec(fds[0])
	unix.CloseOnExec(fds[1])
	return fds[0], fds[1], nil
}
