// Binary storaged serves the storage gateway API over a MultiStore assembled
// from store location URIs.
package main
