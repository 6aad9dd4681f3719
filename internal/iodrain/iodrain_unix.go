//go:build !windows

// Package iodrain consumes the parent ends of a child's stdout and stderr
// pipes without deadlocking on pipe-buffer back-pressure. Both descriptors
// are switched to non-blocking mode and a single poll loop services
// whichever has data, so a blocked stream can never starve the other.
package iodrain

import (
	"fmt"

	"golang.org/x/sys/unix"
)

const bufferSize = 8192

// Result holds the bytes collected from each stream.
type Result struct {
	Stdout []byte
	Stderr []byte
}

// Drain reads both descriptors to end of stream and returns everything the
// child wrote. Either descriptor may be -1 to drain a single stream. The
// descriptors are left open; callers retain ownership.
func Drain(stdoutFD, stderrFD int) (Result, error) {
	var result Result

	type target struct {
		fd   int
		out  *[]byte
		done bool
	}
	targets := [2]target{
		{fd: stdoutFD, out: &result.Stdout},
		{fd: stderrFD, out: &result.Stderr},
	}

	active := 0
	for i := range targets {
		t := &targets[i]
		if t.fd < 0 {
			t.done = true
			continue
		}
		if err := unix.SetNonblock(t.fd, true); err != nil {
			return result, fmt.Errorf("set nonblocking: %w", err)
		}
		active++
	}

	var pollfds [2]unix.PollFd
	buf := make([]byte, bufferSize)

	for active > 0 {
		count := 0
		for i := range targets {
			if targets[i].done {
				continue
			}
			pollfds[count] = unix.PollFd{Fd: int32(targets[i].fd), Events: unix.POLLIN}
			count++
		}

		if _, err := unix.Poll(pollfds[:count], -1); err != nil {
			if err == unix.EINTR {
				continue
			}
			return result, fmt.Errorf("poll: %w", err)
		}

		index := 0
		for i := range targets {
			t := &targets[i]
			if t.done {
				continue
			}
			pfd := pollfds[index]
			index++
			if pfd.Revents&(unix.POLLIN|unix.POLLHUP) == 0 {
				continue
			}
			for {
				n, err := unix.Read(t.fd, buf)
				if n > 0 {
					*t.out = append(*t.out, buf[:n]...)
					continue
				}
				if n == 0 && err == nil {
					t.done = true
					active--
					break
				}
				if err == unix.EINTR {
					continue
				}
				if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
					break
				}
				return result, fmt.Errorf("read: %w", err)
			}
		}
	}

	return result, nil
}
