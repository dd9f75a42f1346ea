// Binary storagectl runs one-shot object operations against a set of stores,
// mirroring writes and deletes across all of them.
package main
