// Package torproxy routes mwcpayd's outbound HTTP traffic (oracle
// polls, merchant callbacks) through a Tor SOCKS5 proxy when the
// operator configures one (spec.md section 6's
// `--tor_socks_proxy_address / _port`). Dials through
// golang.org/x/net/proxy's SOCKS5 client, the same family of dialer the
// teacher's lnd/tor package wraps around; publishing an onion service is
// out of scope here since mwcpayd only needs the *outbound* leg (spec.md
// section 1's "embedded anonymity-network proxy" collaborator backs the
// payment-proof address scheme in section 4.D, not transport-level
// hidden-service hosting).
package torproxy

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/net/proxy"
)

// Config holds spec.md section 6's `--tor_socks_proxy_address / _port`
// flags.
type Config struct {
	SocksAddress string
	SocksPort    int
}

// Enabled reports whether a Tor proxy was configured at all.
func (c Config) Enabled() bool {
	return c.SocksAddress != ""
}

func (c Config) socksAddr() string {
	return net.JoinHostPort(c.SocksAddress, strconv.Itoa(c.SocksPort))
}

// NewHTTPClient returns an *http.Client whose transport dials outbound
// connections through the SOCKS5 proxy described by cfg. If cfg is not
// Enabled, it returns http.DefaultClient unchanged — oracle/callback
// traffic then goes out directly, which is the expected posture for
// operators who didn't ask for Tor.
func NewHTTPClient(cfg Config) (*http.Client, error) {
	if !cfg.Enabled() {
		return http.DefaultClient, nil
	}

	baseDialer := &net.Dialer{Timeout: 30 * time.Second}
	socksDialer, err := proxy.SOCKS5("tcp", cfg.socksAddr(), nil, baseDialer)
	if err != nil {
		return nil, err
	}

	contextDialer, ok := socksDialer.(proxy.ContextDialer)
	if !ok {
		// Every proxy.SOCKS5 dialer in practice implements
		// ContextDialer; this only guards against a future library
		// change silently dropping it.
		contextDialer = noContextDialer{socksDialer}
	}

	transport := &http.Transport{
		DialContext:     contextDialer.DialContext,
		IdleConnTimeout: 90 * time.Second,
	}
	return &http.Client{Transport: transport}, nil
}

type noContextDialer struct {
	proxy.Dialer
}

func (d noContextDialer) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	return d.Dial(network, addr)
}
