package storage

import (
	gopath "path"
	"strings"

	"github.com/kaplanelad/active-storage/interfaces"
)

// normalizePath cleans a relative, slash-separated object path. Empty paths,
// absolute paths, and paths escaping the root via ".." are rejected with
// ErrInvalidPath.
func normalizePath(p string) (string, error) {
	if p == "" || strings.HasPrefix(p, "/") || strings.Contains(p, "\x00") {
		return "", interfaces.ErrInvalidPath
	}

	clean := gopath.Clean(p)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", interfaces.ErrInvalidPath
	}

	return clean, nil
}

// underDirectory reports whether p equals dir or sits below it, comparing
// whole path components so "foobar/x" is not under "foo".
func underDirectory(p, dir string) bool {
	return p == dir || strings.HasPrefix(p, dir+"/")
}
