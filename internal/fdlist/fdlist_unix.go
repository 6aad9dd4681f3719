//go:build !windows

// Package fdlist enumerates the open file descriptors of the calling
// process. It reads /proc/self/fd where available and falls back to probing
// descriptors with fcntl up to the soft rlimit, capped at 4096.
package fdlist

import (
	"os"
	"sort"
	"strconv"

	"golang.org/x/sys/unix"
)

const probeLimit = 4096

// Open returns the sorted set of currently open descriptors. The set may
// include a transient descriptor used for the enumeration itself, so
// callers comparing snapshots should compare counts or tolerate one
// short-lived entry.
func Open() ([]int, error) {
	if fds, err := fromProc(); err == nil {
		return fds, nil
	}
	return fromProbe()
}

func fromProc() ([]int, error) {
	entries, err := os.ReadDir("/proc/self/fd")
	if err != nil {
		return nil, err
	}
	fds := make([]int, 0, len(entries))
	for _, entry := range entries {
		fd, err := strconv.Atoi(entry.Name())
		if err != nil {
			continue
		}
		fds = append(fds, fd)
	}
	sort.Ints(fds)
	return fds, nil
}

func fromProbe() ([]int, error) {
	limit := probeLimit
	var rl unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &rl); err == nil {
		if cur := int(rl.Cur); cur > 0 && cur < limit {
			limit = cur
		}
	}
	var fds []int
	for fd := 0; fd < limit; fd++ {
		if _, err := unix.FcntlInt(uintptr(fd), unix.F_GETFD, 0); err == nil {
			fds = append(fds, fd)
		}
	}
	return fds, nil
}
