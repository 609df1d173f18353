// Package strata provides a backend-independent interface to the storage used
// by a backup/restore engine. A backend exposes a bucket, container, or local
// directory as a POSIX-like file hierarchy: list, read, write, and remove
// files under a path, without the engine knowing which concrete store it is
// talking to.
package strata

import (
	"context"
	"io"
	"regexp"
	"time"
)

// DetailLevel controls how much metadata an operation gathers for each entry.
// Higher levels are strictly more expensive on some backends.
type DetailLevel int

const (
	// DetailExists reports only that an entry exists.
	DetailExists DetailLevel = iota

	// DetailType additionally reports whether an entry is a file or a directory.
	DetailType

	// DetailBasic additionally reports size and last-modified time.
	DetailBasic
)

// Kind is the type of a storage entry.
type Kind int

const (
	// KindFile is a regular stored object.
	KindFile Kind = iota

	// KindDir is a directory. On object stores a directory is a naming
	// convention over key prefixes, not a real object.
	KindDir
)

// Entry describes one file or directory found in storage. Size and ModTime
// are populated only when the entry was gathered at DetailBasic.
type Entry struct {
	// Name is relative to the path the entry was listed or queried under.
	Name string

	Kind    Kind
	Exists  bool
	Size    uint64
	ModTime time.Time

	// Level records the detail level the entry was gathered at.
	Level DetailLevel
}

// ReadOptions modify NewReader behavior.
type ReadOptions struct {
	// IgnoreMissing makes a read of an absent file yield an empty stream
	// instead of an error.
	IgnoreMissing bool

	// Offset is the byte position the stream starts at.
	Offset uint64

	// Limit bounds the number of bytes read when non-nil.
	Limit *uint64
}

// Storage is the contract the backup engine programs against. Each backend
// (local disk, Azure Blob Storage, ...) provides one implementation,
// registered with the backend package.
//
// A Storage instance is not safe for concurrent use; a multi-threaded host
// must serialize access per instance.
type Storage interface {
	// Info returns metadata for a single file at the requested detail level.
	// A missing file is not an error: Exists is false on the returned Entry.
	Info(ctx context.Context, name string, level DetailLevel) (Entry, error)

	// List enumerates one directory level under path at the requested detail
	// level. Entries whose names do not match pattern are omitted when
	// pattern is non-nil. A non-existent path yields an empty result.
	List(ctx context.Context, path string, level DetailLevel, pattern *regexp.Regexp) ([]Entry, error)

	// NewReader opens a file for reading as a byte stream.
	NewReader(ctx context.Context, name string, opts ReadOptions) (io.ReadCloser, error)

	// NewWriter creates or truncates a file and returns a byte sink. The
	// write is not durable until Close returns nil.
	NewWriter(ctx context.Context, name string) (io.WriteCloser, error)

	// Remove deletes a single file. A missing file is not an error.
	Remove(ctx context.Context, name string) error

	// RemovePath deletes every file under path. With recursive unset only the
	// single directory level at path is removed.
	RemovePath(ctx context.Context, path string, recursive bool) error
}

// Error is a type that allows for error constants below.
type Error string

// Error returns a string representation of the error.
func (e Error) Error() string { return string(e) }

const (
	// ErrNotExist - file does not exist
	ErrNotExist = Error("file does not exist")

	// ErrNotWritable - storage was configured read-only
	ErrNotWritable = Error("storage is not writable")

	// ErrClosed - operation on a closed reader or writer
	ErrClosed = Error("already closed")
)
