//go:build !windows

// Package pathsearch resolves a program name to the path handed to exec.
// Resolution happens in the parent so the child never walks PATH itself;
// when the spawn requests a working-directory change, relative search
// entries are interpreted against that directory, matching what the child
// will observe after chdir.
package pathsearch

import (
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

const fallbackPath = "/usr/bin:/bin"

// Resolve returns the path to exec for argv0. A name containing a slash is
// returned untouched (exec resolves it against the child working directory).
// Otherwise each PATH entry from envp is probed for an executable candidate;
// when no entry matches, argv0 is returned so exec reports the real errno.
func Resolve(argv0 string, envp []string, cwd string) string {
	if strings.Contains(argv0, "/") {
		return argv0
	}

	pathValue, ok := envValue(envp, "PATH")
	if !ok {
		pathValue = fallbackPath
	}
	if pathValue == "" {
		return argv0
	}

	for _, dir := range strings.Split(pathValue, ":") {
		if dir == "" {
			dir = "."
		}
		if cwd != "" && !filepath.IsAbs(dir) {
			dir = filepath.Join(cwd, dir)
		}
		candidate := filepath.Join(dir, argv0)
		if unix.Access(candidate, unix.X_OK) == nil {
			return candidate
		}
	}
	return argv0
}

func envValue(envp []string, key string) (string, bool) {
	for _, entry := range envp {
		if len(entry) <= len(key) {
			continue
		}
		if entry[len(key)] != '=' || entry[:len(key)] != key {
			continue
		}
		return entry[len(key)+1:], true
	}
	return "", false
}
