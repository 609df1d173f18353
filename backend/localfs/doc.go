// Package localfs implements the strata.Storage contract on the local
// filesystem. It is the reference backend: everything object-store backends
// emulate with key prefixes is a real directory here.
package localfs
