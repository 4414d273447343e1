// Package bypass recognizes bot-protection block pages in failed image
// responses so a run can tell a missing image from a challenged one.
package bypass

import (
	"bytes"
	"net/http"
	"slices"
)

// Response is the slice of an HTTP response the detectors look at. Body is
// expected to be truncated by the caller.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// Signature describes how one vendor's block page looks.
type Signature struct {
	Source   string
	Statuses []int
	// ServerTokens are matched case-insensitively against the Server header.
	ServerTokens []string
	// HeaderKeys trigger when any is present.
	HeaderKeys []string
	// BodyMarkers trigger when any appears in the body.
	BodyMarkers []string
	// BodyAll triggers only when every marker appears.
	BodyAll []string
}

// Match reports whether res carries this signature.
func (s Signature) Match(res Response) bool {
	if !slices.Contains(s.Statuses, res.StatusCode) {
		return false
	}

	server := bytes.ToLower([]byte(res.Headers.Get("Server")))
	for _, tok := range s.ServerTokens {
		if bytes.Contains(server, []byte(tok)) {
			return true
		}
	}
	for _, k := range s.HeaderKeys {
		if res.Headers.Get(k) != "" {
			return true
		}
	}
	for _, m := range s.BodyMarkers {
		if bytes.Contains(res.Body, []byte(m)) {
			return true
		}
	}
	if len(s.BodyAll) > 0 {
		for _, m := range s.BodyAll {
			if !bytes.Contains(res.Body, []byte(m)) {
				return false
			}
		}
		return true
	}
	return false
}

// DefaultSignatures returns the known vendor signatures, checked in order.
func DefaultSignatures() []Signature {
	return []Signature{
		{
			Source:       "Cloudflare",
			Statuses:     []int{http.StatusForbidden, http.StatusServiceUnavailable},
			ServerTokens: []string{"cloudflare"},
			BodyMarkers: []string{
				"cf-browser-verification",
				"cloudflare-nginx",
				"cf-turnstile",
				"Attention Required! | Cloudflare",
			},
		},
		{
			Source:       "Akamai",
			Statuses:     []int{http.StatusForbidden},
			ServerTokens: []string{"akamai"},
			BodyAll:      []string{"Reference #", "Access Denied"},
		},
		{
			Source:       "DataDome",
			Statuses:     []int{http.StatusForbidden},
			ServerTokens: []string{"datadome"},
			HeaderKeys:   []string{"X-DataDome", "X-DataDome-Response"},
			BodyMarkers:  []string{"geo.captcha-delivery.com", "datadome"},
		},
		{
			Source:      "PerimeterX",
			Statuses:    []int{http.StatusForbidden},
			HeaderKeys:  []string{"X-Px-Captcha"},
			BodyMarkers: []string{"client.perimeterx.net", "px-captcha", "_pxBlock"},
		},
	}
}

// Detect returns the first matching vendor name, or "" when nothing matched.
func Detect(res Response, sigs []Signature) string {
	for _, s := range sigs {
		if s.Match(res) {
			return s.Source
		}
	}
	return ""
}
