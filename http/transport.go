package http

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"

	"github.com/quic-go/quic-go"
	"github.com/quic-go/quic-go/http3"
	"golang.org/x/net/http2"
)

// TransportConfig selects protocols and connection pool limits.
type TransportConfig struct {
	EnableHTTP2 bool

	// EnableHTTP3 tries QUIC first for https feeds and falls back to TCP.
	EnableHTTP3 bool

	MaxIdleConns          int
	MaxIdleConnsPerHost   int
	IdleConnTimeout       time.Duration
	TLSHandshakeTimeout   time.Duration
	ResponseHeaderTimeout time.Duration

	// MaxConnsPerHost bounds connections to one feed; 0 is unlimited.
	MaxConnsPerHost int

	TLSConfig *tls.Config
}

// DefaultTransportConfig enables HTTP/2 and sizes the idle pool for a gather
// fanning out to a handful of feeds.
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		EnableHTTP2:           true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   16,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
	}
}

// NewTransport builds a RoundTripper for config.
func NewTransport(config TransportConfig) http.RoundTripper {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          config.MaxIdleConns,
		MaxIdleConnsPerHost:   config.MaxIdleConnsPerHost,
		IdleConnTimeout:       config.IdleConnTimeout,
		TLSHandshakeTimeout:   config.TLSHandshakeTimeout,
		ResponseHeaderTimeout: config.ResponseHeaderTimeout,
		MaxConnsPerHost:       config.MaxConnsPerHost,
		TLSClientConfig:       config.TLSConfig,
	}

	if config.EnableHTTP2 {
		// falls back to HTTP/1.1 when ALPN negotiation fails
		_ = http2.ConfigureTransport(transport)
	}
	if config.EnableHTTP3 {
		return newHTTP3Transport(transport, config.TLSConfig)
	}
	return transport
}

type http3Transport struct {
	fallback http.RoundTripper
	quic     *http3.Transport
}

func newHTTP3Transport(fallback http.RoundTripper, tlsConfig *tls.Config) *http3Transport {
	if tlsConfig == nil {
		tlsConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return &http3Transport{
		fallback: fallback,
		quic: &http3.Transport{
			TLSClientConfig: tlsConfig,
			QUICConfig:      &quic.Config{Allow0RTT: true},
		},
	}
}

func (t *http3Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL.Scheme == "https" {
		if resp, err := t.quic.RoundTrip(req); err == nil {
			return resp, nil
		}
	}
	return t.fallback.RoundTrip(req)
}

func (t *http3Transport) Close() error {
	return t.quic.Close()
}

// ProtocolVersion names the protocol a response arrived over.
func ProtocolVersion(resp *http.Response) string {
	switch resp.ProtoMajor {
	case 3:
		return "HTTP/3"
	case 2:
		return "HTTP/2"
	}
	return "HTTP/1.1"
}
