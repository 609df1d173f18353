package azure

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/benbjohnson/clock"
)

// Instance metadata service used for managed-identity credentials. The
// service is local-network-only and speaks plain HTTP.
// https://learn.microsoft.com/en-us/entra/identity/managed-identities-azure-resources/how-to-use-vm-token
const (
	credentialHost       = "169.254.169.254"
	credentialPath       = "/metadata/identity/oauth2/token"
	credentialAPIVersion = "2018-02-01"
)

// credentialCache holds a bearer access token and refreshes it from the
// instance metadata endpoint when it is absent or expired. The token and its
// expiry are the only mutable state shared across operations of one driver
// instance.
type credentialCache struct {
	httpClient *http.Client
	endpoint   string // scheme://host, overridable for tests
	resource   string // https://{storage-host}
	timeout    time.Duration
	clock      clock.Clock

	token   string
	expires time.Time
}

func newCredentialCache(resource string, timeout time.Duration, clk clock.Clock) *credentialCache {
	return &credentialCache{
		// Separate client from the one serving storage requests: the
		// metadata service is a fixed local host and never uses TLS.
		httpClient: &http.Client{Timeout: timeout},
		endpoint:   "http://" + credentialHost,
		resource:   resource,
		timeout:    timeout,
		clock:      clk,
	}
}

// ensure returns a token valid for at least one request round trip, fetching
// a fresh one only when the cached token is absent or expired.
func (c *credentialCache) ensure(ctx context.Context) (string, error) {
	now := c.clock.Now()
	if c.token != "" && now.Before(c.expires) {
		return c.token, nil
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodGet, c.endpoint+credentialPath+"?api-version="+credentialAPIVersion+"&resource="+c.resource, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Metadata", "true")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("azure: credential request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("azure: credential response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &RequestError{Verb: http.MethodGet, Path: credentialPath, StatusCode: resp.StatusCode, Body: body}
	}

	var credential map[string]any
	if err := json.Unmarshal(body, &credential); err != nil {
		return "", fmt.Errorf("azure: credential response: %w", err)
	}

	token, ok := credential["access_token"].(string)
	if !ok || token == "" {
		return "", &FormatError{Msg: "access token missing"}
	}

	expiresIn, err := credentialExpiry(credential["expires_in"])
	if err != nil {
		return "", err
	}

	c.token = token
	// Subtract the request timeout twice so the token cannot expire in the
	// middle of a retried request.
	c.expires = now.Add(time.Duration(expiresIn)*time.Second - 2*c.timeout)

	return c.token, nil
}

// credentialExpiry extracts expires_in, which the metadata service reports as
// either a JSON number or a numeric string.
func credentialExpiry(value any) (int64, error) {
	switch v := value.(type) {
	case string:
		expiresIn, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, &FormatError{Msg: "expiry missing"}
		}
		return expiresIn, nil
	case float64:
		return int64(v), nil
	default:
		return 0, &FormatError{Msg: "expiry missing"}
	}
}
