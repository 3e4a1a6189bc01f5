package client

import (
	"fmt"
	"net"
	"net/http"

	"phoenix-rest/internal/config"
	"phoenix-rest/internal/logging"
	"phoenix-rest/internal/protocol"
	"phoenix-rest/internal/token"
)

const maxResponseBytes = 1 << 20

// PhoenixClient talks to the REST API of one application. It holds only
// read-only configuration and is safe for concurrent use.
type PhoenixClient struct {
	http      *http.Client
	cfg       config.Client
	endpoints config.APIEndpoints
	auth      token.Authenticator
	logger    *logging.Logger
}

func New(httpClient *http.Client, cfg config.Client, logger *logging.Logger) (*PhoenixClient, error) {
	if logger == nil {
		panic("client.New: logger must not be nil")
	}
	endpoints, err := config.BuildEndpoints(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", protocol.ErrConfiguration, err)
	}
	auth, err := token.NewAuthenticator(cfg.AuthMode, cfg.Credentials())
	if err != nil {
		return nil, err
	}
	if httpClient == nil {
		httpClient = NewHTTPClient(cfg)
	}
	return &PhoenixClient{http: httpClient, cfg: cfg, endpoints: endpoints, auth: auth, logger: logger}, nil
}

// NewHTTPClient maps the configured timeouts onto the transport: connect
// onto the dialer, send onto the TLS handshake, receive onto the wait for
// response headers, keep-alive onto TCP keep-alive and idle connections.
func NewHTTPClient(cfg config.Client) *http.Client {
	dialer := &net.Dialer{Timeout: cfg.ConnectTimeout, KeepAlive: cfg.KeepAliveTimeout}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = dialer.DialContext
	transport.TLSHandshakeTimeout = cfg.SendTimeout
	transport.ResponseHeaderTimeout = cfg.ReceiveTimeout
	transport.IdleConnTimeout = cfg.KeepAliveTimeout
	return &http.Client{
		Transport: transport,
		Timeout:   cfg.ConnectTimeout + cfg.SendTimeout + cfg.ReceiveTimeout,
	}
}

func (c *PhoenixClient) Config() config.Client {
	return c.cfg
}

func (c *PhoenixClient) Configured() bool {
	return c.cfg.Configured()
}
