package azure

import (
	"context"
	"net/http"

	"github.com/strataio/strata"
)

// remove deletes a single blob. A blob that is already gone is not an error.
func (c *Client) remove(ctx context.Context, file string) error {
	_, err := c.request(
		ctx, http.MethodDelete, requestParams{path: file}, responseParams{allowMissing: true})
	return err
}

// removePath deletes every blob under path by composing the lister with
// pipelined deletes: while the previous delete is in flight, the next listing
// page is already being parsed. At most one delete is pending at a time, and
// each is awaited (tolerating not-found, since a concurrent actor may have
// removed the blob first) before the next is issued.
func (c *Client) removePath(ctx context.Context, path string, recurse bool) error {
	basePath := path
	if basePath == "/" {
		basePath = ""
	}

	var pending *pendingRequest

	err := c.listInternal(ctx, path, strata.DetailType, nil, recurse, func(entry strata.Entry) error {
		// Settle the previous delete before issuing another
		if pending != nil {
			if _, err := c.await(pending, responseParams{allowMissing: true}); err != nil {
				pending = nil
				return err
			}
			pending = nil
		}

		// Only delete files since paths don't really exist
		if entry.Kind != strata.KindFile {
			return nil
		}

		var err error
		pending, err = c.requestAsync(ctx, http.MethodDelete, requestParams{path: basePath + "/" + entry.Name})
		return err
	})

	// Check the response on the last async request
	if pending != nil {
		if _, awaitErr := c.await(pending, responseParams{allowMissing: true}); awaitErr != nil && err == nil {
			err = awaitErr
		}
	}

	return err
}
