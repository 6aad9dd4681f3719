package procly

import "golang.org/x/sys/unix"

// newPipe allocates a close-on-exec pipe pair so descriptors never leak into
// children spawned concurrently by other goroutines.
func newPipe() (readFD, writeFD int, err error) {
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_CLOEXEC); err != nil {
		return -1, -1, errnoError(CodePipeFailed, errnoOf(err), "pipe")
	}
	return fds[0], fds[1], nil
}
