//go:build !windows

package procly

import (
	"bytes"
	"testing"
)

func makePipe(t *testing.T) (*PipeReader, *PipeWriter) {
	t.Helper()
	readFD, writeFD, err := newPipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	return newPipeReader(readFD), newPipeWriter(writeFD)
}

func TestPipeRoundTrip(t *testing.T) {
	r, w := makePipe(t)
	defer r.Close()

	payload := []byte("stdin_payload")
	if _, err := w.Write(payload); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	got, err := r.ReadAll()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("read %q, want %q", got, payload)
	}
}

func TestPipeBufferSizedPayloadSurvivesClose(t *testing.T) {
	r, w := makePipe(t)
	defer r.Close()

	// A payload the size of a full kernel pipe buffer, written and then
	// closed from another goroutine, must be delivered intact.
	payload := bytes.Repeat([]byte{'x'}, 65536)
	done := make(chan error, 1)
	go func() {
		if _, err := w.Write(payload); err != nil {
			done <- err
			return
		}
		done <- w.Close()
	}()

	got, err := r.ReadAll()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("write side: %v", err)
	}
	if len(got) != len(payload) {
		t.Fatalf("read %d bytes, want %d", len(got), len(payload))
	}
}

func TestPipeCloseIsIdempotent(t *testing.T) {
	r, w := makePipe(t)
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second close must be a no-op: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("second close must be a no-op: %v", err)
	}
}

func TestPipeUseAfterCloseFails(t *testing.T) {
	r, w := makePipe(t)
	r.Close()
	w.Close()

	if _, err := w.Write([]byte("x")); err == nil {
		t.Fatal("write on closed pipe must fail")
	}
	buf := make([]byte, 1)
	if _, err := r.Read(buf); err == nil {
		t.Fatal("read on closed pipe must fail")
	}
}
