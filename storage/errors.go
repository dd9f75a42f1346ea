package storage

import (
	"fmt"
	"sort"
	"strings"
)

// MirrorStoresError is the terminal failure of a ContinueOnFailure fan-out:
// the full per-store error map, never a single representative error. Keys are
// rendered in lexicographic order so the message is deterministic.
type MirrorStoresError struct {
	Failures map[string]error
}

func (e *MirrorStoresError) Error() string {
	names := make([]string, 0, len(e.Failures))
	for name := range e.Failures {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %v", name, e.Failures[name]))
	}
	return fmt.Sprintf("mirror failed on stores: %s", strings.Join(parts, ", "))
}

// MirrorStoreError is the terminal failure of a StopOnFailure fan-out: the
// single store that failed. Targets ordered after it were never invoked.
type MirrorStoreError struct {
	Store string
	Err   error
}

func (e *MirrorStoreError) Error() string {
	return fmt.Sprintf("mirror failed on store %s: %v", e.Store, e.Err)
}

func (e *MirrorStoreError) Unwrap() error {
	return e.Err
}
