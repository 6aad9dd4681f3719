package procly

import "fmt"

type statusKind uint8

const (
	statusExited statusKind = iota
	statusOther
)

// ExitStatus is the portable completion record of a child process: either a
// normal exit carrying a code in [0, 255], or any other ending (signal
// termination, stop) carrying only the raw wait status.
type ExitStatus struct {
	kind   statusKind
	code   int
	native uint32
}

// Exited constructs a status for a normal exit with the given code and raw
// wait status.
func Exited(code int, native uint32) ExitStatus {
	return ExitStatus{kind: statusExited, code: code, native: native}
}

// Other constructs a status for a non-exit ending described only by the raw
// wait status.
func Other(native uint32) ExitStatus {
	return ExitStatus{kind: statusOther, native: native}
}

// Code returns the exit code and true for a normal exit, or false for any
// other ending.
func (s ExitStatus) Code() (int, bool) {
	if s.kind != statusExited {
		return 0, false
	}
	return s.code, true
}

// Success reports whether the child exited normally with code zero.
func (s ExitStatus) Success() bool {
	return s.kind == statusExited && s.code == 0
}

// Native returns the raw OS wait status.
func (s ExitStatus) Native() uint32 {
	return s.native
}

func (s ExitStatus) String() string {
	if code, ok := s.Code(); ok {
		return fmt.Sprintf("exit status %d", code)
	}
	return fmt.Sprintf("wait status %#x", s.native)
}
