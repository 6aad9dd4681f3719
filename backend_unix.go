//go:build !windows

package procly

import (
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/unterumarmung/procly/internal/pathsearch"
)

// posixBackend realizes spawn specifications through fork/exec. All
// preparation happens in the parent: files and pipes are opened close-on-exec
// and argv[0] is resolved against PATH before the fork, so the child side is
// limited to the async-signal-safe work the runtime performs (dup2 of the fd
// table, chdir, setpgid, exec). Exec failures travel back over the runtime's
// close-on-exec error pipe and surface as CodeSpawnFailed with the child
// errno; the failed child is reaped before spawn returns.
type posixBackend struct{}

var osBackend backend = posixBackend{}

func (posixBackend) spawn(spec *spawnSpec) (spawned, error) {
	if len(spec.argv) == 0 {
		return spawned{}, newError(CodeEmptyArgv, "argv")
	}

	var guard fdGuard
	fail := func(err error) (spawned, error) {
		guard.closeAll()
		return spawned{}, err
	}

	parentStdin, parentStdout, parentStderr := -1, -1, -1

	childFor := func(s stdioSpec, target stdioTarget, parentFD *int) (int, error) {
		switch s.kind {
		case specInherit:
			return int(target), nil
		case specNull:
			fd, err := openNull(target == targetStdin)
			if err != nil {
				return -1, err
			}
			guard.add(fd)
			return fd, nil
		case specFile:
			fd, err := openStdioFile(s)
			if err != nil {
				return -1, err
			}
			guard.add(fd)
			return fd, nil
		case specFD:
			return s.fd, nil
		case specPiped:
			readFD, writeFD, err := newPipe()
			if err != nil {
				return -1, err
			}
			guard.add(readFD)
			guard.add(writeFD)
			if target == targetStdin {
				*parentFD = writeFD
				return readFD, nil
			}
			*parentFD = readFD
			return writeFD, nil
		}
		return -1, newError(CodeInvalidStdio, "stdio")
	}

	childStdin, err := childFor(spec.stdin, targetStdin, &parentStdin)
	if err != nil {
		return fail(err)
	}
	childStdout, err := childFor(spec.stdout, targetStdout, &parentStdout)
	if err != nil {
		return fail(err)
	}
	var childStderr int
	if spec.stderr.kind == specDupStdout {
		childStderr = childStdout
	} else {
		childStderr, err = childFor(spec.stderr, targetStderr, &parentStderr)
		if err != nil {
			return fail(err)
		}
	}

	var sys *syscall.SysProcAttr
	switch {
	case spec.opts.NewProcessGroup:
		sys = &syscall.SysProcAttr{Setpgid: true}
	case spec.processGroup != 0:
		sys = &syscall.SysProcAttr{Setpgid: true, Pgid: spec.processGroup}
	}

	execPath := pathsearch.Resolve(spec.argv[0], spec.envp, spec.cwd)

	pid, err := syscall.ForkExec(execPath, spec.argv, &syscall.ProcAttr{
		Dir:   spec.cwd,
		Env:   spec.envp,
		Files: []uintptr{uintptr(childStdin), uintptr(childStdout), uintptr(childStderr)},
		Sys:   sys,
	})
	if err != nil {
		return fail(errnoError(CodeSpawnFailed, errnoOf(err), "spawn "+spec.argv[0]))
	}

	sp := spawned{
		pid:             pid,
		newProcessGroup: spec.opts.NewProcessGroup || spec.processGroup != 0,
		stdinFD:         parentStdin,
		stdoutFD:        parentStdout,
		stderrFD:        parentStderr,
	}
	if spec.opts.NewProcessGroup {
		sp.pgid = pid
	} else {
		sp.pgid = spec.processGroup
	}

	guard.closeExcept(parentStdin, parentStdout, parentStderr)
	return sp, nil
}

func (b posixBackend) wait(sp *spawned, timeout *time.Duration, killGrace time.Duration) (ExitStatus, error) {
	ops := waitOps{
		tryWait:      func() (ExitStatus, bool, error) { return b.tryWait(sp) },
		waitBlocking: func() (ExitStatus, error) { return waitBlocking(sp.pid) },
		terminate:    func() error { return b.terminate(sp) },
		kill:         func() error { return b.kill(sp) },
	}
	return waitWithTimeout(ops, currentClock(), timeout, killGrace)
}

func (posixBackend) tryWait(sp *spawned) (ExitStatus, bool, error) {
	var ws unix.WaitStatus
	for {
		pid, err := unix.Wait4(sp.pid, &ws, unix.WNOHANG, nil)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return ExitStatus{}, false, errnoError(CodeWaitFailed, errnoOf(err), "waitpid")
		}
		if pid == sp.pid {
			return statusFromWait(ws), true, nil
		}
		return ExitStatus{}, false, nil
	}
}

func (posixBackend) terminate(sp *spawned) error {
	return sendSignal(sp, unix.SIGTERM)
}

func (posixBackend) kill(sp *spawned) error {
	return sendSignal(sp, unix.SIGKILL)
}

func (posixBackend) signalProc(sp *spawned, sig syscall.Signal) error {
	return sendSignal(sp, sig)
}

func waitBlocking(pid int) (ExitStatus, error) {
	var ws unix.WaitStatus
	for {
		rv, err := unix.Wait4(pid, &ws, 0, nil)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return ExitStatus{}, errnoError(CodeWaitFailed, errnoOf(err), "waitpid")
		}
		if rv == pid {
			return statusFromWait(ws), nil
		}
		return Other(0), nil
	}
}

func statusFromWait(ws unix.WaitStatus) ExitStatus {
	if ws.Exited() {
		return Exited(ws.ExitStatus(), uint32(ws))
	}
	return Other(uint32(ws))
}

// sendSignal targets the process group when the child was placed in one,
// following the negative-pid convention, and the pid otherwise.
func sendSignal(sp *spawned, sig syscall.Signal) error {
	target := sp.pid
	if sp.newProcessGroup && sp.pgid != 0 {
		target = -sp.pgid
	}
	if err := unix.Kill(target, sig); err != nil {
		return errnoError(CodeKillFailed, errnoOf(err), "kill")
	}
	return nil
}
