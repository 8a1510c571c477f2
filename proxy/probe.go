// Package proxy – egress probe.
//
// Before a profile's first launch the engine can verify that its assigned
// proxy actually carries traffic.  A naive probe (stdlib TLS, Go's default
// ClientHello) would itself be a detection signal and can poison the egress
// IP's reputation before the browser ever connects, so the probe handshakes
// with a uTLS Chrome ClientHello and speaks HTTP/2 with Chrome's SETTINGS
// values.  From the target's perspective the probe is indistinguishable from
// a real browser tab opening.
package proxy

import (
	"bufio"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	utls "github.com/refraction-networking/utls"
	"golang.org/x/net/http2"
	xproxy "golang.org/x/net/proxy"
)

// Chrome HTTP/2 SETTINGS frame values captured from a real Windows Chrome
// client (verified against Wireshark traces).
//
// Reference: https://datatracker.ietf.org/doc/html/rfc7540#section-6.5
const (
	// chromeH2HeaderTableSize is sent as SETTINGS_HEADER_TABLE_SIZE.
	// Chrome raises this from the default 4 096 to 65 536 octets.
	chromeH2HeaderTableSize uint32 = 65536

	// chromeH2MaxHeaderListSize is sent as SETTINGS_MAX_HEADER_LIST_SIZE.
	chromeH2MaxHeaderListSize uint32 = 262144
)

// Prober checks that a proxy descriptor carries traffic end to end.
//
// A single Prober is safe for concurrent use; each Probe call builds its own
// tunnel and transport so probes through different proxies never share
// connections.
type Prober struct {
	// Timeout bounds one complete probe: proxy dial, tunnel establishment,
	// TLS handshake, request and response.  Defaults to 30 s when zero.
	Timeout time.Duration

	// HelloID is the uTLS ClientHello fingerprint used for the origin TLS
	// handshake.  Defaults to utls.HelloChrome_Auto when zero.
	HelloID utls.ClientHelloID
}

// Probe sends one GET through d to probeURL and returns nil when the proxy
// delivered any well-formed HTTP response.  Response status is deliberately
// not inspected beyond basic sanity: a 204 or a 403 both prove the tunnel
// works; only transport-level failures mean the proxy is dead.
func (p *Prober) Probe(ctx context.Context, d *Descriptor, probeURL string) error {
	if d == nil {
		return fmt.Errorf("proxy: probe: descriptor must not be nil")
	}

	timeout := p.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	target, err := url.Parse(probeURL)
	if err != nil {
		return fmt.Errorf("proxy: probe %q: parse URL: %w", d.ID, err)
	}
	if target.Scheme != "https" {
		return fmt.Errorf("proxy: probe %q: URL %q must be https", d.ID, probeURL)
	}

	helloID := p.HelloID
	if helloID == (utls.ClientHelloID{}) {
		helloID = utls.HelloChrome_Auto
	}

	// The http2.Transport drives the probe; its DialTLSContext builds the
	// tunnel through the proxy and performs the uTLS handshake, so the
	// transport never dials directly.
	t := &http2.Transport{
		DialTLSContext: func(ctx context.Context, network, addr string, tlsCfg *tls.Config) (net.Conn, error) {
			return dialThroughProxy(ctx, d, addr, tlsCfg, helloID)
		},
		MaxDecoderHeaderTableSize: chromeH2HeaderTableSize,
		MaxEncoderHeaderTableSize: chromeH2HeaderTableSize,
		MaxHeaderListSize:         chromeH2MaxHeaderListSize,
	}
	defer t.CloseIdleConnections()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, probeURL, nil)
	if err != nil {
		return fmt.Errorf("proxy: probe %q: build request: %w", d.ID, err)
	}

	resp, err := t.RoundTrip(req)
	if err != nil {
		return fmt.Errorf("proxy: probe %q via %s: %w", d.ID, d.ServerAddr(), err)
	}
	defer func() { _, _ = io.Copy(io.Discard, resp.Body); resp.Body.Close() }()

	return nil
}

// dialThroughProxy opens a raw connection to addr via d (CONNECT for HTTP
// proxies, the SOCKS5 protocol for socks5 descriptors) and wraps it with a
// uTLS client handshake impersonating the browser fingerprint described by
// helloID.
//
// The uTLS config advertises ALPN h2 so the origin negotiates HTTP/2, which
// the caller's http2.Transport requires.
func dialThroughProxy(ctx context.Context, d *Descriptor, addr string, tlsCfg *tls.Config, helloID utls.ClientHelloID) (net.Conn, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("proxy: parse addr %q: %w", addr, err)
	}
	sni := host
	if tlsCfg != nil && tlsCfg.ServerName != "" {
		sni = tlsCfg.ServerName
	}

	var rawConn net.Conn
	switch d.Protocol {
	case "socks5":
		rawConn, err = dialSOCKS5(ctx, d, addr)
	default:
		rawConn, err = dialCONNECT(ctx, d, addr)
	}
	if err != nil {
		return nil, err
	}

	// Build the uTLS config.  We deliberately do not copy the caller's
	// *tls.Config verbatim because many of its fields (CipherSuites,
	// CurvePreferences, …) are overridden by the ClientHelloSpec anyway.
	uCfg := &utls.Config{
		ServerName: sni,
		NextProtos: []string{"h2"},
	}

	uConn := utls.UClient(rawConn, uCfg, helloID)
	if err := uConn.HandshakeContext(ctx); err != nil {
		_ = rawConn.Close()
		return nil, fmt.Errorf("proxy: TLS handshake with %s via %q: %w", addr, d.ID, err)
	}

	return uConn, nil
}

// dialCONNECT establishes an HTTP CONNECT tunnel to addr through d,
// attaching Proxy-Authorization when the descriptor carries credentials.
func dialCONNECT(ctx context.Context, d *Descriptor, addr string) (net.Conn, error) {
	var nd net.Dialer
	conn, err := nd.DialContext(ctx, "tcp", net.JoinHostPort(d.Host, fmt.Sprintf("%d", d.Port)))
	if err != nil {
		return nil, fmt.Errorf("proxy: dial %q: %w", d.ID, err)
	}

	req := &http.Request{
		Method: http.MethodConnect,
		URL:    &url.URL{Opaque: addr},
		Host:   addr,
		Header: make(http.Header),
	}
	if d.Authenticated() {
		req.SetBasicAuth(d.Username, d.Password)
		req.Header.Set("Proxy-Authorization", req.Header.Get("Authorization"))
		req.Header.Del("Authorization")
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	if err := req.Write(conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("proxy: CONNECT via %q: write: %w", d.ID, err)
	}

	br := bufio.NewReader(conn)
	resp, err := http.ReadResponse(br, req)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("proxy: CONNECT via %q: read: %w", d.ID, err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_ = conn.Close()
		return nil, fmt.Errorf("proxy: CONNECT via %q: status %s", d.ID, resp.Status)
	}

	// Clear the handshake deadline; the http2 layer manages its own.
	_ = conn.SetDeadline(time.Time{})
	return conn, nil
}

// dialSOCKS5 establishes a SOCKS5 connection to addr through d.
func dialSOCKS5(ctx context.Context, d *Descriptor, addr string) (net.Conn, error) {
	var auth *xproxy.Auth
	if d.Authenticated() {
		auth = &xproxy.Auth{User: d.Username, Password: d.Password}
	}
	dialer, err := xproxy.SOCKS5("tcp", net.JoinHostPort(d.Host, fmt.Sprintf("%d", d.Port)), auth, nil)
	if err != nil {
		return nil, fmt.Errorf("proxy: socks5 dialer for %q: %w", d.ID, err)
	}
	cd, ok := dialer.(xproxy.ContextDialer)
	if !ok {
		return nil, fmt.Errorf("proxy: socks5 dialer for %q does not support context", d.ID)
	}
	conn, err := cd.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("proxy: socks5 dial %s via %q: %w", addr, d.ID, err)
	}
	return conn, nil
}
