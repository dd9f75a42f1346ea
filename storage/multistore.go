package storage

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

// Policy governs how a Mirror reacts to a per-target failure.
type Policy int

const (
	// ContinueOnFailure keeps mirroring to the remaining stores and
	// accumulates every failure.
	ContinueOnFailure Policy = iota
	// StopOnFailure aborts the fan-out on the first failing store.
	StopOnFailure
)

// String returns the policy name.
func (p Policy) String() string {
	switch p {
	case ContinueOnFailure:
		return "continue-on-failure"
	case StopOnFailure:
		return "stop-on-failure"
	default:
		return "unknown"
	}
}

// ParsePolicy parses a policy name as rendered by String.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "continue-on-failure":
		return ContinueOnFailure, nil
	case "stop-on-failure":
		return StopOnFailure, nil
	default:
		return ContinueOnFailure, fmt.Errorf("unknown mirrors policy: %s", s)
	}
}

// MultiStore is a registry of one primary Store, named secondary Stores, and
// named mirror groups, with a single mutable policy that applies to every
// Mirror it hands out.
//
// The registry is not designed for concurrent mutation while fan-out
// operations are in flight; callers that need that must serialize mutation
// externally.
type MultiStore struct {
	primary *Store
	stores  map[string]*Store
	mirrors map[string][]string
	policy  Policy
	log     *slog.Logger
}

// NewMultiStore creates a MultiStore around the given primary store, with an
// empty secondary registry, no mirror groups, and the ContinueOnFailure
// policy.
func NewMultiStore(primary *Store, logger *slog.Logger) *MultiStore {
	if logger == nil {
		logger = slog.Default()
	}

	return &MultiStore{
		primary: primary,
		stores:  make(map[string]*Store),
		mirrors: make(map[string][]string),
		policy:  ContinueOnFailure,
		log:     logger,
	}
}

// Primary returns the primary store.
func (m *MultiStore) Primary() *Store {
	return m.primary
}

// AddStores merges the given stores into the secondary registry. A name
// collision overwrites the previous registration silently.
func (m *MultiStore) AddStores(stores map[string]*Store) *MultiStore {
	for name, store := range stores {
		m.stores[name] = store
	}
	return m
}

// SetMirrorsPolicy replaces the active policy for all subsequent Mirror
// executions.
func (m *MultiStore) SetMirrorsPolicy(policy Policy) *MultiStore {
	m.policy = policy
	return m
}

// GetStore looks up a secondary store by name.
func (m *MultiStore) GetStore(name string) (*Store, bool) {
	store, ok := m.stores[name]
	return store, ok
}

// AddMirrors defines a named mirror group over already-registered store
// names. Validation is eager: if any referenced name is unknown the group is
// not created and the error lists every unknown name, not just the first.
// Redefining an existing group overwrites it.
func (m *MultiStore) AddMirrors(name string, storeNames []string) error {
	var unknown []string
	for _, storeName := range storeNames {
		if _, ok := m.stores[storeName]; !ok {
			unknown = append(unknown, storeName)
		}
	}

	if len(unknown) > 0 {
		return fmt.Errorf("the stores: %s not defined", strings.Join(unknown, ","))
	}

	members := make([]string, len(storeNames))
	copy(members, storeNames)
	m.mirrors[name] = members

	m.log.Debug("Mirror group defined",
		slog.String("group", name),
		slog.Int("stores", len(members)))

	return nil
}

// MirrorStoresFromPrimary builds a Mirror whose targets are the primary store
// under the name "primary" plus every registered secondary store, sorted by
// name. Targets are keyed by name, so a secondary registered as "primary"
// replaces the primary store in the fan-out.
func (m *MultiStore) MirrorStoresFromPrimary() *Mirror {
	byName := make(map[string]*Store, len(m.stores)+1)
	byName["primary"] = m.primary
	for name, store := range m.stores {
		byName[name] = store
	}

	return &Mirror{policy: m.policy, targets: targetsFrom(byName), log: m.log}
}

// Mirror builds a Mirror over the named group's members, sorted by name.
// Targets are keyed by name, so duplicate members collapse to one target.
// Returns false if the group is not defined.
func (m *MultiStore) Mirror(name string) (*Mirror, bool) {
	members, ok := m.mirrors[name]
	if !ok {
		return nil, false
	}

	byName := make(map[string]*Store, len(members))
	for _, storeName := range members {
		if store, ok := m.stores[storeName]; ok {
			byName[storeName] = store
		}
	}

	return &Mirror{policy: m.policy, targets: targetsFrom(byName), log: m.log}, true
}

func targetsFrom(byName map[string]*Store) []mirrorTarget {
	targets := make([]mirrorTarget, 0, len(byName))
	for name, store := range byName {
		targets = append(targets, mirrorTarget{name: name, store: store})
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i].name < targets[j].name })
	return targets
}
