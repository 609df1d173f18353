package localfs

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	"github.com/strataio/strata"
	"github.com/strataio/strata/backend"
	"github.com/strataio/strata/utils"
)

// Name is the registry name of this backend.
const Name = "file"

// Driver implements strata.Storage on a directory of the local filesystem.
type Driver struct {
	root     string
	writable bool
}

// NewDriver returns a Driver rooted at root. Paths passed to the Storage
// operations are absolute within that root.
func NewDriver(root string, writable bool) *Driver {
	return &Driver{root: utils.RemoveTrailingSlash(root), writable: writable}
}

func (d *Driver) localPath(name string) (string, error) {
	if err := utils.ValidateAbsPath(name); err != nil {
		return "", err
	}
	return filepath.Join(d.root, filepath.FromSlash(name)), nil
}

// Info returns metadata for a single file. A missing file reports Exists
// false rather than an error.
func (d *Driver) Info(ctx context.Context, name string, level strata.DetailLevel) (strata.Entry, error) {
	local, err := d.localPath(name)
	if err != nil {
		return strata.Entry{}, err
	}

	stat, err := os.Stat(local)
	if os.IsNotExist(err) {
		return strata.Entry{Name: name, Kind: strata.KindFile, Level: level}, nil
	}
	if err != nil {
		return strata.Entry{}, err
	}

	entry := strata.Entry{Name: name, Kind: strata.KindFile, Exists: true, Level: level}
	if stat.IsDir() {
		entry.Kind = strata.KindDir
	}

	if level >= strata.DetailBasic {
		entry.Size = uint64(stat.Size())
		entry.ModTime = stat.ModTime()
	}

	return entry, nil
}

// List enumerates one directory level under path. A non-existent path yields
// an empty result.
func (d *Driver) List(
	ctx context.Context, path string, level strata.DetailLevel, pattern *regexp.Regexp,
) ([]strata.Entry, error) {
	local, err := d.localPath(path)
	if err != nil {
		return nil, err
	}

	dirEntries, err := os.ReadDir(local)
	if os.IsNotExist(err) {
		return []strata.Entry{}, nil
	}
	if err != nil {
		return nil, err
	}

	entries := []strata.Entry{}

	for _, dirEntry := range dirEntries {
		if pattern != nil && !pattern.MatchString(dirEntry.Name()) {
			continue
		}

		entry := strata.Entry{Name: dirEntry.Name(), Kind: strata.KindFile, Exists: true, Level: level}
		if dirEntry.IsDir() {
			entry.Kind = strata.KindDir
		}

		if level >= strata.DetailBasic {
			stat, err := dirEntry.Info()
			if err != nil {
				// Entry vanished between ReadDir and Info
				if os.IsNotExist(err) {
					continue
				}
				return nil, err
			}
			entry.Size = uint64(stat.Size())
			entry.ModTime = stat.ModTime()
		}

		entries = append(entries, entry)
	}

	return entries, nil
}

// NewReader opens a file for reading, optionally at a byte range.
func (d *Driver) NewReader(ctx context.Context, name string, opts strata.ReadOptions) (io.ReadCloser, error) {
	local, err := d.localPath(name)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(local)
	if os.IsNotExist(err) && opts.IgnoreMissing {
		return io.NopCloser(&emptyReader{}), nil
	}
	if err != nil {
		return nil, err
	}

	if opts.Offset != 0 {
		if _, err := file.Seek(int64(opts.Offset), io.SeekStart); err != nil {
			_ = file.Close()
			return nil, err
		}
	}

	if opts.Limit != nil {
		return &limitedReadCloser{Reader: io.LimitReader(file, int64(*opts.Limit)), file: file}, nil
	}

	return file, nil
}

// NewWriter creates or truncates a file, creating parent directories as
// needed.
func (d *Driver) NewWriter(ctx context.Context, name string) (io.WriteCloser, error) {
	if !d.writable {
		return nil, strata.ErrNotWritable
	}

	local, err := d.localPath(name)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(local), 0o750); err != nil {
		return nil, err
	}

	return os.Create(local)
}

// Remove deletes a single file. A missing file is not an error.
func (d *Driver) Remove(ctx context.Context, name string) error {
	if !d.writable {
		return strata.ErrNotWritable
	}

	local, err := d.localPath(name)
	if err != nil {
		return err
	}

	if err := os.Remove(local); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// RemovePath deletes everything under path. With recursive unset, only
// regular files directly under path are removed, and the call fails if a
// subdirectory remains.
func (d *Driver) RemovePath(ctx context.Context, path string, recursive bool) error {
	if !d.writable {
		return strata.ErrNotWritable
	}

	local, err := d.localPath(path)
	if err != nil {
		return err
	}

	if recursive {
		return os.RemoveAll(local)
	}

	dirEntries, err := os.ReadDir(local)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	for _, dirEntry := range dirEntries {
		if dirEntry.IsDir() {
			return fmt.Errorf("localfs: %s is not empty: %w", path, fs.ErrInvalid)
		}
		if err := os.Remove(filepath.Join(local, dirEntry.Name())); err != nil && !os.IsNotExist(err) {
			return err
		}
	}

	if err := os.Remove(local); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

type emptyReader struct{}

func (*emptyReader) Read([]byte) (int, error) { return 0, io.EOF }

type limitedReadCloser struct {
	io.Reader
	file *os.File
}

func (l *limitedReadCloser) Close() error { return l.file.Close() }

func init() {
	backend.Register(Name, NewDriver("/", true))
}
