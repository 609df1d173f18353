package azure

import (
	"context"
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/strataio/strata"
	"github.com/strataio/strata/utils"
)

// Name is the registry name of this backend.
const Name = "azure"

// Driver implements strata.Storage on an Azure Blob Storage container.
// Configuration is immutable after construction; the only mutable state is
// the cached bearer token and the file-id counter seeding block ids.
type Driver struct {
	opts   *Options
	client *Client

	// fileID is assigned randomly at construction and incremented per object
	// created for write
	fileID uint64
}

// NewDriver constructs a Driver from opts. opts must not be modified
// afterwards.
func NewDriver(opts *Options) (*Driver, error) {
	client, err := NewClient(opts)
	if err != nil {
		return nil, err
	}
	return newDriver(opts, client)
}

func newDriver(opts *Options, client *Client) (*Driver, error) {
	d := &Driver{opts: opts, client: client}

	if err := binary.Read(crand.Reader, binary.BigEndian, &d.fileID); err != nil {
		return nil, fmt.Errorf("azure: seed file id: %w", err)
	}

	return d, nil
}

// Info returns metadata for a single file via a HEAD request. A missing file
// reports Exists false rather than an error.
func (d *Driver) Info(ctx context.Context, name string, level strata.DetailLevel) (strata.Entry, error) {
	file, err := d.resolveFile(name)
	if err != nil {
		return strata.Entry{}, err
	}

	resp, err := d.client.request(
		ctx, http.MethodHead, requestParams{path: file}, responseParams{allowMissing: true})
	if err != nil {
		return strata.Entry{}, err
	}

	entry := strata.Entry{Name: name, Kind: strata.KindFile, Exists: !resp.missing, Level: level}

	if level >= strata.DetailBasic && entry.Exists {
		size, err := strconv.ParseUint(resp.header.Get("Content-Length"), 10, 64)
		if err != nil {
			return strata.Entry{}, fmt.Errorf("azure: parse size for %q: %w", name, err)
		}
		entry.Size = size

		modified, err := http.ParseTime(resp.header.Get("Last-Modified"))
		if err != nil {
			return strata.Entry{}, fmt.Errorf("azure: parse modified time for %q: %w", name, err)
		}
		entry.ModTime = modified
	}

	return entry, nil
}

// List enumerates one directory level under path. Entries not matching
// pattern are dropped; the server-side prefix narrowing the lister performs
// from the pattern is an optimization only, the full match happens here.
func (d *Driver) List(
	ctx context.Context, path string, level strata.DetailLevel, pattern *regexp.Regexp,
) ([]strata.Entry, error) {
	resolved, err := d.resolvePath(path)
	if err != nil {
		return nil, err
	}

	entries := []strata.Entry{}

	err = d.client.listInternal(ctx, resolved, level, pattern, false, func(entry strata.Entry) error {
		if pattern != nil && !pattern.MatchString(entry.Name) {
			return nil
		}
		entries = append(entries, entry)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return entries, nil
}

// NewReader opens a file for reading, optionally at a byte range.
func (d *Driver) NewReader(ctx context.Context, name string, opts strata.ReadOptions) (io.ReadCloser, error) {
	file, err := d.resolveFile(name)
	if err != nil {
		return nil, err
	}
	return d.client.newReader(ctx, file, opts)
}

// NewWriter creates or truncates a file. The object becomes visible when the
// returned writer is closed successfully.
func (d *Driver) NewWriter(ctx context.Context, name string) (io.WriteCloser, error) {
	if !d.opts.Writable {
		return nil, strata.ErrNotWritable
	}

	file, err := d.resolveFile(name)
	if err != nil {
		return nil, err
	}

	fileID := d.fileID
	d.fileID++

	return newWriter(ctx, d.client, file, fileID, d.opts.BlockSize), nil
}

// Remove deletes a single file. A missing file is not an error.
func (d *Driver) Remove(ctx context.Context, name string) error {
	if !d.opts.Writable {
		return strata.ErrNotWritable
	}

	file, err := d.resolveFile(name)
	if err != nil {
		return err
	}
	return d.client.remove(ctx, file)
}

// RemovePath deletes every file under path.
func (d *Driver) RemovePath(ctx context.Context, path string, recursive bool) error {
	if !d.opts.Writable {
		return strata.ErrNotWritable
	}

	resolved, err := d.resolvePath(path)
	if err != nil {
		return err
	}
	return d.client.removePath(ctx, resolved, recursive)
}

// resolvePath expands a "<EXPRESSION>" head via the configured resolver and
// joins the result onto the driver's base path.
func (d *Driver) resolvePath(path string) (string, error) {
	if strings.HasPrefix(path, "<") {
		end := strings.Index(path, ">")
		if end < 0 {
			return "", fmt.Errorf("azure: unterminated path expression in %q", path)
		}
		if d.opts.PathResolver == nil {
			return "", fmt.Errorf("azure: no path resolver configured for %q", path)
		}

		path = utils.EnsureLeadingSlash(d.opts.PathResolver(path[:end+1], strings.TrimPrefix(path[end+1:], "/")))
	}

	if err := utils.ValidateAbsPath(path); err != nil {
		return "", err
	}

	if d.opts.Path == "/" || d.opts.Path == "" {
		return path, nil
	}

	if path == "/" {
		return d.opts.Path, nil
	}

	return utils.RemoveTrailingSlash(d.opts.Path) + path, nil
}

// resolveFile is resolvePath plus the constraint that the result names a
// file, not a directory.
func (d *Driver) resolveFile(name string) (string, error) {
	resolved, err := d.resolvePath(name)
	if err != nil {
		return "", err
	}
	if err := utils.ValidateAbsFilePath(resolved); err != nil {
		return "", err
	}
	return resolved, nil
}
