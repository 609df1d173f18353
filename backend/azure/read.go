package azure

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/strataio/strata"
)

// newReader opens file as a byte stream, translating offset and limit into a
// byte-range header on the GET. A missing file yields an empty stream when
// opts.IgnoreMissing is set.
func (c *Client) newReader(ctx context.Context, file string, opts strata.ReadOptions) (io.ReadCloser, error) {
	// A zero limit asks for no bytes at all; satisfy it locally since the
	// range header cannot express an empty range
	if opts.Limit != nil && *opts.Limit == 0 {
		return http.NoBody, nil
	}

	header := http.Header{}

	if opts.Offset != 0 || opts.Limit != nil {
		if opts.Limit == nil {
			header.Set("Range", fmt.Sprintf("bytes=%d-", opts.Offset))
		} else {
			header.Set("Range", fmt.Sprintf("bytes=%d-%d", opts.Offset, opts.Offset+*opts.Limit-1))
		}
	}

	resp, err := c.request(
		ctx, http.MethodGet, requestParams{path: file, header: header},
		responseParams{allowMissing: opts.IgnoreMissing, stream: true})
	if err != nil {
		return nil, err
	}

	if resp.missing {
		return http.NoBody, nil
	}

	return resp.stream, nil
}
