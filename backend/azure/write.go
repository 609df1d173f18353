package azure

import (
	"context"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"

	"github.com/strataio/strata"
)

// blockList is the document committed at close time. Staged blocks are
// referenced as Uncommitted in the order they were written.
type blockList struct {
	XMLName     xml.Name `xml:"BlockList"`
	Uncommitted []string `xml:"Uncommitted"`
}

// Writer accumulates bytes into fixed-size blocks, stages each full block
// under a unique block id, and commits the ordered block list on Close. A new
// object is always created fresh; there is no append mode.
//
// Any failure while staging or committing is sticky: the writer is failed and
// every subsequent call returns the same error. Blocks staged before the
// failure are left for the service to garbage collect.
type Writer struct {
	client *Client
	ctx    context.Context
	file   string

	// fileID seeds the block ids for this object; together with blockNo it
	// keeps ids unique and strictly increasing within the upload
	fileID    uint64
	blockNo   int
	blockSize int

	buffer []byte
	blocks []string

	closed bool
	err    error
}

func newWriter(ctx context.Context, client *Client, file string, fileID uint64, blockSize int) *Writer {
	return &Writer{
		client:    client,
		ctx:       ctx,
		file:      file,
		fileID:    fileID,
		blockSize: blockSize,
		buffer:    make([]byte, 0, blockSize),
	}
}

// Write buffers p, staging a block each time the buffer reaches the block
// size.
func (w *Writer) Write(p []byte) (int, error) {
	if w.closed {
		return 0, strata.ErrClosed
	}
	if w.err != nil {
		return 0, w.err
	}

	written := len(p)

	for len(p) > 0 {
		room := w.blockSize - len(w.buffer)
		if room > len(p) {
			room = len(p)
		}

		w.buffer = append(w.buffer, p[:room]...)
		p = p[room:]

		if len(w.buffer) == w.blockSize {
			if err := w.stageBlock(); err != nil {
				w.err = err
				return 0, err
			}
		}
	}

	return written, nil
}

// Close flushes any partial final block and commits the block list. The
// object does not exist (or, on overwrite, keeps its old content) until the
// commit succeeds.
func (w *Writer) Close() error {
	if w.closed {
		return strata.ErrClosed
	}
	if w.err != nil {
		return w.err
	}

	w.closed = true

	if len(w.buffer) > 0 {
		if err := w.stageBlock(); err != nil {
			w.err = err
			return err
		}
	}

	commit, err := xml.Marshal(blockList{Uncommitted: w.blocks})
	if err != nil {
		w.err = err
		return err
	}

	query := url.Values{}
	query.Set(queryComp, queryValueBlockList)

	_, err = w.client.request(
		w.ctx, http.MethodPut,
		requestParams{path: w.file, query: query, content: append([]byte(xml.Header), commit...), tag: true},
		responseParams{})
	if err != nil {
		w.err = err
		return err
	}

	return nil
}

// stageBlock uploads the buffered bytes as one block and records its id.
func (w *Writer) stageBlock() error {
	blockID := w.nextBlockID()

	query := url.Values{}
	query.Set(queryComp, queryValueBlock)
	query.Set("blockid", blockID)

	_, err := w.client.request(
		w.ctx, http.MethodPut, requestParams{path: w.file, query: query, content: w.buffer}, responseParams{})
	if err != nil {
		return err
	}

	w.blocks = append(w.blocks, blockID)
	w.buffer = w.buffer[:0]

	return nil
}

// nextBlockID derives a block id from the object's file id and the block
// sequence number. Ids within one upload are fixed width and strictly
// increasing, so the commit can assemble them in write order. The service
// requires base64.
func (w *Writer) nextBlockID() string {
	id := base64.StdEncoding.EncodeToString([]byte(fmt.Sprintf("%016x%07d", w.fileID, w.blockNo)))
	w.blockNo++
	return id
}
