// Package common holds small utilities shared by the command binaries,
// currently logger setup.
package common
