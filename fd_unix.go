//go:build !windows

package procly

import "golang.org/x/sys/unix"

const defaultFilePerms = 0o666

// fdGuard owns descriptors opened while preparing a spawn. Failure paths
// close everything; success keeps only the parent pipe ends.
type fdGuard struct {
	fds []int
}

func (g *fdGuard) add(fd int) {
	g.fds = append(g.fds, fd)
}

func (g *fdGuard) closeAll() {
	for _, fd := range g.fds {
		_ = unix.Close(fd)
	}
	g.fds = nil
}

func (g *fdGuard) closeExcept(keep ...int) {
	for _, fd := range g.fds {
		kept := false
		for _, k := range keep {
			if fd == k {
				kept = true
				break
			}
		}
		if !kept {
			_ = unix.Close(fd)
		}
	}
	g.fds = nil
}

func openFlags(mode OpenMode) int {
	switch mode {
	case OpenRead:
		return unix.O_RDONLY
	case OpenWriteTruncate:
		return unix.O_WRONLY | unix.O_CREAT | unix.O_TRUNC
	case OpenWriteAppend:
		return unix.O_WRONLY | unix.O_CREAT | unix.O_APPEND
	case OpenReadWrite:
		return unix.O_RDWR | unix.O_CREAT
	}
	return unix.O_RDONLY
}

func openNull(readOnly bool) (int, error) {
	flags := unix.O_WRONLY
	if readOnly {
		flags = unix.O_RDONLY
	}
	fd, err := unix.Open("/dev/null", flags|unix.O_CLOEXEC, 0)
	if err != nil {
		return -1, errnoError(CodeOpenFailed, errnoOf(err), "open /dev/null")
	}
	return fd, nil
}

func openStdioFile(spec stdioSpec) (int, error) {
	perms := uint32(defaultFilePerms)
	if spec.permsSet {
		perms = uint32(spec.perms.Perm())
	}
	fd, err := unix.Open(spec.path, openFlags(spec.mode)|unix.O_CLOEXEC, perms)
	if err != nil {
		return -1, errnoError(CodeOpenFailed, errnoOf(err), "open "+spec.path)
	}
	return fd, nil
}

func unixClose(fd int) error {
	return unix.Close(fd)
}
