//go:build !windows

package procly

import (
	"io"

	"golang.org/x/sys/unix"
)

const pipeReadChunk = 8192

// PipeReader is the owning read end of a child stdio pipe. It satisfies
// io.Reader and io.Closer; interrupted system calls are retried. Ownership
// moves with the value: once taken from a handle, the handle no longer
// closes it.
type PipeReader struct {
	fd int
}

func newPipeReader(fd int) *PipeReader {
	return &PipeReader{fd: fd}
}

// Fd returns the underlying descriptor, or -1 once closed.
func (r *PipeReader) Fd() int {
	if r == nil {
		return -1
	}
	return r.fd
}

// Read reads up to len(p) bytes, retrying on interrupt. It returns io.EOF
// once the write side is closed and the pipe is drained.
func (r *PipeReader) Read(p []byte) (int, error) {
	if r == nil || r.fd < 0 {
		return 0, newError(CodeInvalidStdio, "read")
	}
	for {
		n, err := unix.Read(r.fd, p)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, errnoError(CodeReadFailed, errnoOf(err), "read")
		}
		if n == 0 && len(p) > 0 {
			return 0, io.EOF
		}
		return n, nil
	}
}

// ReadAll appends until end of stream and returns the collected bytes.
func (r *PipeReader) ReadAll() ([]byte, error) {
	if r == nil || r.fd < 0 {
		return nil, newError(CodeInvalidStdio, "read")
	}
	var out []byte
	buf := make([]byte, pipeReadChunk)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			out = append(out, buf[:n]...)
		}
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

// Close releases the descriptor. Closing twice is a no-op.
func (r *PipeReader) Close() error {
	if r == nil || r.fd < 0 {
		return nil
	}
	fd := r.fd
	r.fd = -1
	if err := unix.Close(fd); err != nil {
		return errnoError(CodeCloseFailed, errnoOf(err), "close")
	}
	return nil
}

// PipeWriter is the owning write end of a child stdio pipe. It satisfies
// io.Writer and io.Closer; interrupted system calls are retried.
type PipeWriter struct {
	fd int
}

func newPipeWriter(fd int) *PipeWriter {
	return &PipeWriter{fd: fd}
}

// Fd returns the underlying descriptor, or -1 once closed.
func (w *PipeWriter) Fd() int {
	if w == nil {
		return -1
	}
	return w.fd
}

// Write writes all of p, retrying on interrupt and looping over short
// writes. A write that cannot make progress fails with CodeWriteFailed.
func (w *PipeWriter) Write(p []byte) (int, error) {
	if w == nil || w.fd < 0 {
		return 0, newError(CodeInvalidStdio, "write")
	}
	written := 0
	for written < len(p) {
		n, err := unix.Write(w.fd, p[written:])
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return written, errnoError(CodeWriteFailed, errnoOf(err), "write")
		}
		if n == 0 {
			return written, newError(CodeWriteFailed, "write")
		}
		written += n
	}
	return written, nil
}

// WriteString writes the whole string, mirroring Write.
func (w *PipeWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

// Close releases the descriptor, signalling end of input to the child.
// Closing twice is a no-op.
func (w *PipeWriter) Close() error {
	if w == nil || w.fd < 0 {
		return nil
	}
	fd := w.fd
	w.fd = -1
	if err := unix.Close(fd); err != nil {
		return errnoError(CodeCloseFailed, errnoOf(err), "close")
	}
	return nil
}
