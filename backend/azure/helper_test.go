package azure

import (
	"encoding/base64"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	testAccount   = "myaccount"
	testContainer = "mycontainer"
)

var testSharedKey = base64.StdEncoding.EncodeToString([]byte("testkey"))

// capturedRequest records what the fake service saw.
type capturedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

// fakeService is an in-process stand-in for the Blob service. Responses are
// produced by respond; every request is captured for assertions. The mutex is
// only there because request dispatch happens on a goroutine per request.
type fakeService struct {
	mu       sync.Mutex
	requests []capturedRequest
	respond  func(w http.ResponseWriter, r *http.Request)
}

func (f *fakeService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	f.requests = append(f.requests, capturedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
		Header: r.Header.Clone(),
		Body:   body,
	})
	f.mu.Unlock()

	if f.respond != nil {
		f.respond(w, r)
	}
}

func (f *fakeService) captured() []capturedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]capturedRequest(nil), f.requests...)
}

// newTestService starts a TLS fake service and returns Options wired to it:
// path-style addressing against the test listener, certificate verification
// off.
func newTestService(t *testing.T) (*fakeService, *Options) {
	t.Helper()

	service := &fakeService{}
	server := httptest.NewTLSServer(service)
	t.Cleanup(server.Close)

	serverURL, err := url.Parse(server.URL)
	require.NoError(t, err)

	host, portStr, err := net.SplitHostPort(serverURL.Host)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	opts := NewOptions()
	opts.Account = testAccount
	opts.Container = testContainer
	opts.KeyType = KeyTypeShared
	opts.Key = testSharedKey
	opts.Endpoint = host
	opts.URIStyle = URIStylePath
	opts.Port = uint(port)
	opts.VerifyPeer = false

	return service, opts
}

func newTestDriver(t *testing.T) (*fakeService, *Driver) {
	t.Helper()

	service, opts := newTestService(t)
	driver, err := NewDriver(opts)
	require.NoError(t, err)

	return service, driver
}

// containerPath returns the service-side path for a key under the test
// account and container.
func containerPath(key string) string {
	return "/" + testAccount + "/" + testContainer + key
}
