package azure

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// KeyType selects the authentication scheme used for requests.
type KeyType string

const (
	// KeyTypeShared signs each request with the account's shared key.
	KeyTypeShared KeyType = "shared"

	// KeyTypeSAS appends a pre-signed shared-access-signature query string.
	KeyTypeSAS KeyType = "sas"

	// KeyTypeAuto fetches bearer tokens from the instance metadata endpoint
	// (Azure managed identity).
	KeyTypeAuto KeyType = "auto"
)

// URIStyle selects how the account name is embedded in request URIs.
type URIStyle string

const (
	// URIStyleHost addresses the account in the host name, e.g.
	// https://myaccount.blob.core.windows.net/container/key.
	URIStyleHost URIStyle = "host"

	// URIStylePath addresses the account in the path, e.g.
	// https://endpoint/myaccount/container/key. Used by emulators and
	// gateways.
	URIStylePath URIStyle = "path"
)

const (
	defaultEndpoint  = "blob.core.windows.net"
	defaultBlockSize = 4 * 1024 * 1024
	defaultTimeout   = 60 * time.Second
)

// PathResolver expands a path expression of the form "<NAME>" into a concrete
// base path. It is supplied by the embedding engine.
type PathResolver func(expression, path string) string

// Options contains options necessary for the azure storage implementation.
// Options are immutable once a Driver has been constructed from them.
type Options struct {
	// Account holds the Azure Blob Storage account name
	Account string

	// Container holds the container all keys live under
	Container string

	// KeyType selects the authentication scheme: shared, sas, or auto
	KeyType KeyType

	// Key holds the raw key material: the base64-encoded shared key for
	// KeyTypeShared, the SAS query string for KeyTypeSAS, unused for
	// KeyTypeAuto
	Key string

	// Path is the base path prepended to every name the engine passes in
	Path string

	// Writable permits NewWriter, Remove, and RemovePath
	Writable bool

	// PathResolver expands "<EXPRESSION>"-style paths when set
	PathResolver PathResolver

	// Endpoint is the service endpoint host, without the account name
	Endpoint string

	// URIStyle selects host-embedded vs path-embedded account addressing
	URIStyle URIStyle

	// Port overrides the default port when non-zero
	Port uint

	// BlockSize is the buffer size for multi-block uploads
	BlockSize int

	// Tags are applied to every object created by NewWriter
	Tags map[string]string

	// Timeout bounds each request round trip
	Timeout time.Duration

	// VerifyPeer controls TLS certificate verification
	VerifyPeer bool

	// CAFile and CAPath optionally supply the trust store used when
	// VerifyPeer is set. A leading ~ in CAFile is expanded.
	CAFile string
	CAPath string

	// Logger receives redacted request logging at debug level
	Logger zerolog.Logger
}

// NewOptions returns Options populated with defaults and any values found in
// the environment.
func NewOptions() *Options {
	return &Options{
		Account:    os.Getenv("STRATA_AZURE_STORAGE_ACCOUNT"),
		Container:  os.Getenv("STRATA_AZURE_STORAGE_CONTAINER"),
		Key:        os.Getenv("STRATA_AZURE_STORAGE_KEY"),
		KeyType:    KeyTypeShared,
		Path:       "/",
		Writable:   true,
		Endpoint:   defaultEndpoint,
		URIStyle:   URIStyleHost,
		BlockSize:  defaultBlockSize,
		Timeout:    defaultTimeout,
		VerifyPeer: true,
		Logger:     zerolog.Nop(),
	}
}

func (o *Options) validate() error {
	if o.Account == "" {
		return fmt.Errorf("azure: account is required")
	}
	if o.Container == "" {
		return fmt.Errorf("azure: container is required")
	}
	if o.Endpoint == "" {
		return fmt.Errorf("azure: endpoint is required")
	}
	if o.BlockSize <= 0 {
		return fmt.Errorf("azure: block size must be greater than zero")
	}

	switch o.KeyType {
	case KeyTypeShared, KeyTypeSAS:
		if o.Key == "" {
			return fmt.Errorf("azure: key is required for key type %q", o.KeyType)
		}
	case KeyTypeAuto:
	default:
		return fmt.Errorf("azure: unknown key type %q", o.KeyType)
	}

	switch o.URIStyle {
	case URIStyleHost, URIStylePath:
	default:
		return fmt.Errorf("azure: unknown uri style %q", o.URIStyle)
	}

	return nil
}

// host returns the host requests are addressed to, without the port.
func (o *Options) host() string {
	if o.URIStyle == URIStyleHost {
		return o.Account + "." + o.Endpoint
	}
	return o.Endpoint
}

// pathPrefix returns the account/container prefix prepended to every key.
func (o *Options) pathPrefix() string {
	if o.URIStyle == URIStyleHost {
		return "/" + o.Container
	}
	return "/" + o.Account + "/" + o.Container
}
