package procly

import "os"

// OpenMode selects how a file named by a stdio selection is opened.
type OpenMode uint8

const (
	// OpenRead opens the file read-only.
	OpenRead OpenMode = iota
	// OpenWriteTruncate opens the file write-only, creating and truncating it.
	OpenWriteTruncate
	// OpenWriteAppend opens the file write-only, creating it and appending.
	OpenWriteAppend
	// OpenReadWrite opens the file read/write, creating it if missing.
	OpenReadWrite
)

func (m OpenMode) readable() bool {
	return m == OpenRead || m == OpenReadWrite
}

func (m OpenMode) writable() bool {
	return m == OpenWriteTruncate || m == OpenWriteAppend || m == OpenReadWrite
}

type stdioKind uint8

const (
	stdioInherit stdioKind = iota
	stdioNull
	stdioPiped
	stdioFD
	stdioFile
)

// Stdio selects how one of a child's standard streams is wired: inherited
// from the parent, attached to the null device, connected to a fresh pipe
// whose parent end the caller keeps, duplicated from an existing descriptor,
// or redirected to a file. The zero value inherits.
type Stdio struct {
	kind     stdioKind
	fd       int
	path     string
	mode     OpenMode
	modeSet  bool
	perms    os.FileMode
	permsSet bool
}

// StdioInherit wires the stream to the parent's corresponding stream.
func StdioInherit() Stdio {
	return Stdio{kind: stdioInherit}
}

// StdioNull wires the stream to the null device.
func StdioNull() Stdio {
	return Stdio{kind: stdioNull}
}

// StdioPiped creates a pipe and exposes the parent end on the child handle.
func StdioPiped() Stdio {
	return Stdio{kind: stdioPiped}
}

// StdioFD duplicates an existing descriptor onto the stream.
func StdioFD(fd int) Stdio {
	return Stdio{kind: stdioFD, fd: fd}
}

// StdioFile redirects the stream to the named file. The open mode defaults
// by direction: read for stdin, write-truncate for stdout and stderr.
func StdioFile(path string) Stdio {
	return Stdio{kind: stdioFile, path: path}
}

// StdioFileMode redirects the stream to the named file with an explicit
// open mode.
func StdioFileMode(path string, mode OpenMode) Stdio {
	return Stdio{kind: stdioFile, path: path, mode: mode, modeSet: true}
}

// StdioFilePerms redirects the stream to the named file with an explicit
// open mode and permission bits for newly created files.
func StdioFilePerms(path string, mode OpenMode, perms os.FileMode) Stdio {
	return Stdio{
		kind:     stdioFile,
		path:     path,
		mode:     mode,
		modeSet:  true,
		perms:    perms,
		permsSet: true,
	}
}
