package azure

import (
	"bytes"
	"context"
	"crypto/md5" //nolint:gosec // content integrity header, not a security control
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/benbjohnson/clock"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/rs/zerolog"
)

const (
	headerTags            = "x-ms-tags"
	headerClientRequestID = "x-ms-client-request-id"

	// Query key carrying the SAS signature; never logged
	querySig = "sig"
)

// Client builds, signs, dispatches, and awaits Blob service requests. It is
// shared by every operation of one Driver and, like the Driver, is not safe
// for concurrent use.
type Client struct {
	httpClient *http.Client
	log        zerolog.Logger
	clock      clock.Clock

	keyType    KeyType
	account    string
	host       string // host[:port] requests are addressed to
	pathPrefix string // /container or /account/container
	sharedKey  []byte
	sasKey     url.Values
	tag        string // rendered x-ms-tags value, "" when no tags configured

	credentials *credentialCache
}

// NewClient constructs a Client from validated Options.
func NewClient(opts *Options) (*Client, error) {
	return newClient(opts, clock.New())
}

func newClient(opts *Options, clk clock.Clock) (*Client, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	host := opts.host()
	if opts.Port != 0 {
		host = fmt.Sprintf("%s:%d", host, opts.Port)
	}

	transport, err := newTransport(opts)
	if err != nil {
		return nil, err
	}

	c := &Client{
		httpClient: &http.Client{Transport: transport, Timeout: opts.Timeout},
		log:        opts.Logger,
		clock:      clk,
		keyType:    opts.KeyType,
		account:    opts.Account,
		host:       host,
		pathPrefix: opts.pathPrefix(),
	}

	switch opts.KeyType {
	case KeyTypeShared:
		c.sharedKey, err = base64.StdEncoding.DecodeString(opts.Key)
		if err != nil {
			return nil, fmt.Errorf("azure: decode shared key: %w", err)
		}
	case KeyTypeSAS:
		c.sasKey, err = url.ParseQuery(strings.TrimPrefix(opts.Key, "?"))
		if err != nil {
			return nil, fmt.Errorf("azure: parse sas key: %w", err)
		}
	case KeyTypeAuto:
		c.credentials = newCredentialCache("https://"+opts.host(), opts.Timeout, clk)
	}

	if len(opts.Tags) > 0 {
		tags := url.Values{}
		for key, value := range opts.Tags {
			tags.Set(key, value)
		}
		c.tag = tags.Encode()
	}

	return c, nil
}

func newTransport(opts *Options) (*http.Transport, error) {
	tlsConfig := &tls.Config{InsecureSkipVerify: !opts.VerifyPeer} //nolint:gosec // caller opted out

	if opts.VerifyPeer && (opts.CAFile != "" || opts.CAPath != "") {
		pool, err := x509.SystemCertPool()
		if err != nil {
			pool = x509.NewCertPool()
		}

		if opts.CAFile != "" {
			caFile, err := homedir.Expand(opts.CAFile)
			if err != nil {
				return nil, err
			}
			pem, err := os.ReadFile(caFile)
			if err != nil {
				return nil, fmt.Errorf("azure: read ca file: %w", err)
			}
			if !pool.AppendCertsFromPEM(pem) {
				return nil, fmt.Errorf("azure: no certificates found in %s", caFile)
			}
		}

		if opts.CAPath != "" {
			files, err := os.ReadDir(opts.CAPath)
			if err != nil {
				return nil, fmt.Errorf("azure: read ca path: %w", err)
			}
			for _, file := range files {
				pem, err := os.ReadFile(filepath.Join(opts.CAPath, file.Name()))
				if err != nil {
					continue
				}
				pool.AppendCertsFromPEM(pem)
			}
		}

		tlsConfig.RootCAs = pool
	}

	return &http.Transport{TLSClientConfig: tlsConfig}, nil
}

// requestParams are the optional parts of a logical operation.
type requestParams struct {
	path    string
	header  http.Header
	query   url.Values
	content []byte
	tag     bool
}

// responseParams modify how a response is awaited.
type responseParams struct {
	allowMissing bool
	stream       bool
}

// response is the decoded outcome of one request.
type response struct {
	statusCode int
	header     http.Header
	body       []byte
	stream     io.ReadCloser

	// missing is set instead of an error when a not-found response was
	// explicitly allowed
	missing bool
}

type requestResult struct {
	resp *http.Response
	err  error
}

// pendingRequest is a request that has been sent but whose response has not
// been consumed. It must be awaited before the next dependent request in the
// same pipeline is issued.
type pendingRequest struct {
	verb string
	path string
	done chan requestResult
}

// requestAsync builds, signs, and dispatches a request, returning a handle
// the caller awaits later. Overlap is limited to the one outstanding request
// the handle represents.
func (c *Client) requestAsync(ctx context.Context, verb string, params requestParams) (*pendingRequest, error) {
	// Prepend the account/container prefix and encode
	path := uriEncode(c.pathPrefix + params.path)

	header := make(http.Header, len(params.header)+6)
	for name, values := range params.header {
		header[name] = append([]string(nil), values...)
	}

	// Content length is always set, explicitly zero for empty bodies
	header.Set("Content-Length", strconv.Itoa(len(params.content)))

	if len(params.content) > 0 {
		digest := md5.Sum(params.content) //nolint:gosec
		header.Set("Content-MD5", base64.StdEncoding.EncodeToString(digest[:]))
	}

	if params.tag && c.tag != "" {
		header.Set(headerTags, c.tag)
	}

	header.Set(headerClientRequestID, uuid.NewString())

	// Copy the query so neither authentication nor pagination mutates the
	// caller's value
	query := make(url.Values, len(params.query)+4)
	for key, values := range params.query {
		query[key] = append([]string(nil), values...)
	}

	if err := c.authenticate(ctx, verb, path, query, c.clock.Now().UTC().Format(http.TimeFormat), header); err != nil {
		return nil, err
	}

	c.log.Debug().
		Str("verb", verb).
		Str("path", path).
		Str("query", redactQuery(query)).
		Interface("header", redactHeader(header)).
		Msg("azure request")

	requestURL := "https://" + c.host + path
	if encoded := query.Encode(); encoded != "" {
		requestURL += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, verb, requestURL, bytes.NewReader(params.content))
	if err != nil {
		return nil, err
	}
	req.Host = c.host
	for name, values := range header {
		if name == "Content-Length" || name == "Host" {
			continue
		}
		req.Header[name] = values
	}
	req.ContentLength = int64(len(params.content))

	pending := &pendingRequest{verb: verb, path: params.path, done: make(chan requestResult, 1)}

	go func() {
		resp, err := c.dispatch(ctx, req, params.content)
		pending.done <- requestResult{resp: resp, err: err}
	}()

	return pending, nil
}

// dispatch performs the round trip with the transport-level retry policy:
// exponential backoff on connection failures and retryable statuses, bounded
// by the client timeout. The final attempt's response is returned as is so
// status handling stays with await.
func (c *Client) dispatch(ctx context.Context, req *http.Request, content []byte) (*http.Response, error) {
	bo := backoff.WithContext(backoff.NewExponentialBackOff(), ctx)

	for {
		attempt := req.Clone(ctx)
		attempt.Body = io.NopCloser(bytes.NewReader(content))

		resp, err := c.httpClient.Do(attempt)
		if err == nil && !retryableStatus(resp.StatusCode) {
			return resp, nil
		}

		next := bo.NextBackOff()
		if next == backoff.Stop {
			return resp, err
		}

		if resp != nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
		}

		timer := c.clock.Timer(next)
		select {
		case <-ctx.Done():
			timer.Stop()
			if resp == nil && err != nil {
				return nil, err
			}
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func retryableStatus(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || statusCode >= 500
}

// await consumes the response of a previously issued request. Statuses
// outside the success range raise a RequestError, except a not-found response
// when allowMissing is set, which is reported as a miss instead.
func (c *Client) await(pending *pendingRequest, params responseParams) (*response, error) {
	result := <-pending.done
	if result.err != nil {
		return nil, fmt.Errorf("azure: %s %s: %w", pending.verb, pending.path, result.err)
	}

	resp := result.resp
	ok := resp.StatusCode >= 200 && resp.StatusCode <= 299

	if !ok && params.allowMissing && resp.StatusCode == http.StatusNotFound {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
		return &response{statusCode: resp.StatusCode, header: resp.Header, missing: true}, nil
	}

	if !ok {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		_ = resp.Body.Close()
		return nil, &RequestError{Verb: pending.verb, Path: pending.path, StatusCode: resp.StatusCode, Body: body}
	}

	if params.stream {
		return &response{statusCode: resp.StatusCode, header: resp.Header, stream: resp.Body}, nil
	}

	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("azure: %s %s: %w", pending.verb, pending.path, err)
	}

	return &response{statusCode: resp.StatusCode, header: resp.Header, body: body}, nil
}

// request is requestAsync followed immediately by await.
func (c *Client) request(
	ctx context.Context, verb string, params requestParams, respParams responseParams,
) (*response, error) {
	pending, err := c.requestAsync(ctx, verb, params)
	if err != nil {
		return nil, err
	}
	return c.await(pending, respParams)
}

// uriEncode percent-encodes a key path, preserving the path separators.
func uriEncode(path string) string {
	segments := strings.Split(path, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.Join(segments, "/")
}

// redactHeader renders headers for logging with credential-bearing values
// masked. Authorization and Date never appear in logs.
func redactHeader(header http.Header) map[string]string {
	rendered := make(map[string]string, len(header))
	for name := range header {
		if name == "Authorization" || name == "Date" {
			rendered[name] = "<redacted>"
			continue
		}
		rendered[name] = header.Get(name)
	}
	return rendered
}

// redactQuery renders a query string for logging with the SAS signature
// masked.
func redactQuery(query url.Values) string {
	redacted := make(url.Values, len(query))
	for key, values := range query {
		if key == querySig {
			redacted.Set(key, "<redacted>")
			continue
		}
		redacted[key] = values
	}
	return redacted.Encode()
}
