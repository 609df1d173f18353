package azure

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"

	"github.com/strataio/strata"
	"github.com/strataio/strata/utils"
)

// Blob service listing query tokens.
const (
	queryComp      = "comp"
	queryDelimiter = "delimiter"
	queryMarker    = "marker"
	queryPrefix    = "prefix"
	queryRestype   = "restype"

	queryValueBlock     = "block"
	queryValueBlockList = "blocklist"
	queryValueContainer = "container"
	queryValueList      = "list"
)

// listResults mirrors the EnumerationResults document of a container list
// call: directory-like prefixes first, then blobs, then the continuation
// marker for the next page.
type listResults struct {
	XMLName xml.Name `xml:"EnumerationResults"`
	Blobs   struct {
		Prefixes []listPrefix `xml:"BlobPrefix"`
		Items    []listBlob   `xml:"Blob"`
	} `xml:"Blobs"`
	NextMarker string `xml:"NextMarker"`
}

type listPrefix struct {
	Name string `xml:"Name"`
}

type listBlob struct {
	Name       string `xml:"Name"`
	Properties struct {
		ContentLength string `xml:"Content-Length"`
		LastModified  string `xml:"Last-Modified"`
	} `xml:"Properties"`
}

// listInternal enumerates everything under path, pushing one strata.Entry per
// prefix or blob to fn in server response order. The expression narrows the
// server-side prefix when it has a derivable literal head; matching against
// the full expression remains the caller's job. Page requests are pipelined
// one ahead: the next page is already in flight while the current page's
// entries are dispatched.
func (c *Client) listInternal(
	ctx context.Context, path string, level strata.DetailLevel, expression *regexp.Regexp, recurse bool,
	fn func(strata.Entry) error,
) error {
	// Build the base prefix by stripping off the initial /
	basePrefix := ""
	if path != "/" {
		basePrefix = utils.EnsureTrailingSlash(utils.RemoveLeadingSlash(path))
	}

	// Narrow the query prefix with the expression's literal head when possible
	prefixFilter := basePrefix + utils.RegexpPrefix(expression)

	query := url.Values{}

	// The delimiter collapses everything below one level into BlobPrefix
	// nodes, so leave it out to recurse
	if !recurse {
		query.Set(queryDelimiter, "/")
	}

	query.Set(queryRestype, queryValueContainer)
	query.Set(queryComp, queryValueList)

	// Don't specify an empty prefix because it is the default
	if prefixFilter != "" {
		query.Set(queryPrefix, prefixFilter)
	}

	// Loop as long as a continuation marker is returned
	var pending *pendingRequest

	for {
		var resp *response
		var err error

		// If there is an outstanding async request then wait for the
		// response, else issue and await immediately
		if pending != nil {
			resp, err = c.await(pending, responseParams{})
			pending = nil
		} else {
			resp, err = c.request(ctx, http.MethodGet, requestParams{query: query}, responseParams{})
		}
		if err != nil {
			return err
		}

		// Page state below stays scoped to this iteration so arbitrarily
		// long listings hold at most two pages of state
		var page listResults
		if err := xml.Unmarshal(resp.body, &page); err != nil {
			return fmt.Errorf("azure: parse list response: %w", err)
		}

		// If a continuation marker exists then request the next page before
		// processing this one, overlapping its network latency with the
		// parsing and callbacks below
		if page.NextMarker != "" {
			query.Set(queryMarker, page.NextMarker)

			pending, err = c.requestAsync(ctx, http.MethodGet, requestParams{query: query})
			if err != nil {
				return err
			}
		}

		if err := c.listPage(&page, basePrefix, level, fn); err != nil {
			// The in-flight page must still be consumed before bailing out
			if pending != nil {
				_, _ = c.await(pending, responseParams{})
			}
			return err
		}

		if pending == nil {
			return nil
		}
	}
}

// listPage emits the entries of one page: directory prefixes first, then
// blobs, matching server response order.
func (c *Client) listPage(
	page *listResults, basePrefix string, level strata.DetailLevel, fn func(strata.Entry) error,
) error {
	for _, prefix := range page.Blobs.Prefixes {
		// Strip off the base prefix and the trailing /
		name := prefix.Name[len(basePrefix) : len(prefix.Name)-1]

		if err := fn(strata.Entry{Name: name, Kind: strata.KindDir, Exists: true, Level: level}); err != nil {
			return err
		}
	}

	for _, blob := range page.Blobs.Items {
		entry := strata.Entry{
			Name:   blob.Name[len(basePrefix):],
			Kind:   strata.KindFile,
			Exists: true,
			Level:  level,
		}

		if level >= strata.DetailBasic {
			size, err := strconv.ParseUint(blob.Properties.ContentLength, 10, 64)
			if err != nil {
				return fmt.Errorf("azure: parse blob size for %q: %w", blob.Name, err)
			}
			entry.Size = size

			modified, err := http.ParseTime(blob.Properties.LastModified)
			if err != nil {
				return fmt.Errorf("azure: parse blob modified time for %q: %w", blob.Name, err)
			}
			entry.ModTime = modified
		}

		if err := fn(entry); err != nil {
			return err
		}
	}

	return nil
}
