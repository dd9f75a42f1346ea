package storage

import (
	"context"
	"log/slog"
	"time"
)

// Mirror is a transient fan-out executor over a fixed, name-sorted set of
// stores. It is created fresh per logical operation, never mutates the
// MultiStore it came from, and keeps no state across invocations.
//
// Execution is strictly sequential: a target's call must resolve before the
// next target is invoked. Callers wanting to bound latency impose a deadline
// on ctx covering the whole fan-out.
type Mirror struct {
	policy  Policy
	targets []mirrorTarget
	log     *slog.Logger
}

type mirrorTarget struct {
	name  string
	store *Store
}

// StoreNames returns the fan-out targets in execution order.
func (m *Mirror) StoreNames() []string {
	names := make([]string, len(m.targets))
	for i, target := range m.targets {
		names[i] = target.name
	}
	return names
}

// Write stores content at path on every target.
func (m *Mirror) Write(ctx context.Context, path string, content []byte) error {
	return m.fanOut(ctx, "write", path, func(ctx context.Context, store *Store) error {
		return store.Write(ctx, path, content)
	})
}

// Delete removes the object at path from every target.
func (m *Mirror) Delete(ctx context.Context, path string) error {
	return m.fanOut(ctx, "delete", path, func(ctx context.Context, store *Store) error {
		return store.Delete(ctx, path)
	})
}

// DeleteDirectory removes the directory at path from every target.
func (m *Mirror) DeleteDirectory(ctx context.Context, path string) error {
	return m.fanOut(ctx, "delete_directory", path, func(ctx context.Context, store *Store) error {
		return store.DeleteDirectory(ctx, path)
	})
}

func (m *Mirror) fanOut(ctx context.Context, op, path string, apply func(context.Context, *Store) error) error {
	start := time.Now()
	var failures map[string]error

	for _, target := range m.targets {
		err := apply(ctx, target.store)
		if err == nil {
			continue
		}

		m.log.Debug("Mirror target failed",
			slog.String("op", op),
			slog.String("store", target.name),
			slog.String("path", path),
			"err", err)

		if m.policy == StopOnFailure {
			return &MirrorStoreError{Store: target.name, Err: err}
		}

		if failures == nil {
			failures = make(map[string]error)
		}
		failures[target.name] = err
	}

	if len(failures) > 0 {
		m.log.Error("Mirror operation failed on some stores",
			slog.String("op", op),
			slog.String("path", path),
			slog.Int("failed_stores", len(failures)),
			slog.Duration("duration", time.Since(start)))
		return &MirrorStoresError{Failures: failures}
	}

	m.log.Debug("Mirror operation completed",
		slog.String("op", op),
		slog.String("path", path),
		slog.Int("stores", len(m.targets)),
		slog.Duration("duration", time.Since(start)))

	return nil
}
