// Package interfaces defines the contracts shared across the active-storage
// system: the Driver capability surface every storage backend implements, the
// backend-independent error taxonomy, the Contents byte container, and the
// location URI type used by the store factory.
//
// Concrete backends live in the storage package; nothing in this package
// performs I/O.
package interfaces
