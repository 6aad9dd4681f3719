// Package procly launches child processes without involving a shell, wires
// their standard streams, composes them into pipelines and waits for their
// completion under timeout and cancellation policies.
//
// Every entry point returns an error rather than panicking, and validation
// happens before any system call: an empty argv or a misconfigured stdio
// selection is reported from lowering, never from the kernel. Output capture
// drains stdout and stderr concurrently through a poll loop, so arbitrarily
// large payloads cannot deadlock on pipe back-pressure.
//
// The library is synchronous from the caller's standpoint and starts no
// goroutines of its own. Callers may invoke the API from multiple goroutines;
// each call is self-contained.
//
// Full process-group semantics are only guaranteed on Linux, where signal
// delivery to a pipeline's group reliably reaches every member. On other
// POSIX systems delivery is best-effort for grandchildren that leave the
// group. Windows is not supported.
package procly
