package client

import (
	"crypto/tls"
	"net/http"
	"time"
)

// New builds the HTTP client shared by list acquisition and probing. Probe
// hostnames are synthetic per-candidate subdomains, so certificate
// verification is skipped the same way the trace endpoints expect.
func New(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: true,
		},
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}

// RoundTripperFunc adapts a function to http.RoundTripper, used by tests to
// fake transport-level responses.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (rf RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return rf(req)
}
