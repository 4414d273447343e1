// Package fingerprint builds HTTP transports that present a browser-like TLS
// ClientHello, so image hosts behind bot filters see a familiar handshake.
package fingerprint

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	utls "github.com/refraction-networking/utls"
)

// Profile represents a recognized TLS fingerprint profile.
type Profile string

const (
	ProfileChrome  Profile = "chrome"
	ProfileFirefox Profile = "firefox"
	ProfileSafari  Profile = "safari"
	ProfileGo      Profile = "go"     // standard go TLS
	ProfileRandom  Profile = "random" // randomized uTLS profile
)

var helloIDs = map[Profile]utls.ClientHelloID{
	ProfileChrome:  utls.HelloChrome_Auto,
	ProfileFirefox: utls.HelloFirefox_Auto,
	ProfileSafari:  utls.HelloIOS_Auto,
	ProfileRandom:  utls.HelloRandomizedALPN,
}

// ParseProfile maps a config string onto a Profile. Empty means ProfileGo.
func ParseProfile(s string) (Profile, error) {
	p := Profile(strings.ToLower(strings.TrimSpace(s)))
	if p == "" {
		return ProfileGo, nil
	}
	if p == ProfileGo {
		return p, nil
	}
	if _, ok := helloIDs[p]; !ok {
		return "", fmt.Errorf("unknown fingerprint profile %q", s)
	}
	return p, nil
}

// Options tunes the transport. The zero value uses the Go TLS stack with no
// proxy.
type Options struct {
	Profile Profile
	// Proxy is optional. If set it becomes the transport's Proxy func.
	Proxy func(*http.Request) (*url.URL, error)
	// InsecureSkipVerify disables certificate checks. Only for tests against
	// self-signed servers.
	InsecureSkipVerify bool
}

// Transport returns an http.RoundTripper for the given options. ProfileGo
// yields a plain cloned http.Transport; every other profile dials TLS through
// utls.UClient.
func Transport(opts Options) (*http.Transport, error) {
	p := opts.Profile
	if p == "" {
		p = ProfileGo
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if opts.Proxy != nil {
		transport.Proxy = opts.Proxy
	}

	if p == ProfileGo {
		if opts.InsecureSkipVerify {
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
		}
		return transport, nil
	}

	id, ok := helloIDs[p]
	if !ok {
		return nil, fmt.Errorf("unknown fingerprint profile %q", p)
	}

	dial := transport.DialContext
	transport.DialTLSContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		tcpConn, err := dial(ctx, network, addr)
		if err != nil {
			return nil, err
		}

		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			host = addr
		}

		uConn, err := newUClient(tcpConn, host, id, opts.InsecureSkipVerify)
		if err != nil {
			_ = tcpConn.Close()
			return nil, err
		}
		if err := uConn.HandshakeContext(ctx); err != nil {
			_ = tcpConn.Close()
			return nil, fmt.Errorf("utls handshake with %s: %w", host, err)
		}
		return uConn, nil
	}
	// The custom dialer only speaks HTTP/1.1.
	transport.ForceAttemptHTTP2 = false

	return transport, nil
}

// newUClient wraps conn with the requested hello. Fixed browser presets have
// their ALPN list pinned to http/1.1 since net/http cannot upgrade a
// hand-dialed connection to h2.
func newUClient(conn net.Conn, host string, id utls.ClientHelloID, insecure bool) (*utls.UConn, error) {
	cfg := &utls.Config{ServerName: host, InsecureSkipVerify: insecure} //nolint:gosec

	spec, err := utls.UTLSIdToSpec(id)
	if err != nil {
		// randomized ids have no static spec
		return utls.UClient(conn, cfg, id), nil
	}
	for _, ext := range spec.Extensions {
		if alpn, ok := ext.(*utls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
		}
	}

	uConn := utls.UClient(conn, cfg, utls.HelloCustom)
	if err := uConn.ApplyPreset(&spec); err != nil {
		return nil, fmt.Errorf("apply %s preset: %w", id.Str(), err)
	}
	return uConn, nil
}
