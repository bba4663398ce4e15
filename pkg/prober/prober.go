// Package prober performs single-candidate reachability tests against the
// trace endpoint and classifies the responder.
package prober

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/projectdiscovery/edgefinder/pkg/client"
	"github.com/projectdiscovery/edgefinder/pkg/types"
	"github.com/projectdiscovery/gologger"
)

const (
	// attemptTimeout bounds a single probe attempt.
	attemptTimeout = 5 * time.Second
	// maxAttempts is the per-candidate retry budget.
	maxAttempts = 3
	// retryBackoff is the fixed pause between attempts.
	retryBackoff = 200 * time.Millisecond
	// tracePath is the endpoint that echoes connection metadata.
	tracePath = "/cdn-cgi/trace"
)

// Prober tests one candidate at a time and never returns an error to the
// caller: all network and protocol failures are consumed by the retry policy.
type Prober struct {
	client       *http.Client
	helperDomain string
	colos        *coloResolver
}

// New returns a Prober that addresses candidates through the given helper
// domain.
func New(helperDomain string) *Prober {
	httpClient := client.New(attemptTimeout)
	return &Prober{
		client:       httpClient,
		helperDomain: helperDomain,
		colos:        newColoResolver(httpClient),
	}
}

// NewWithClient is used by tests to inject a fake transport.
func NewWithClient(httpClient *http.Client, helperDomain string) *Prober {
	return &Prober{
		client:       httpClient,
		helperDomain: helperDomain,
		colos:        newColoResolver(httpClient),
	}
}

// Probe tests a candidate with up to three attempts and a fixed backoff
// between them. The first success wins. If every attempt fails the candidate
// yields no result.
func (p *Prober) Probe(ctx context.Context, candidate types.Candidate) (*types.Result, bool) {
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if ctx.Err() != nil {
			return nil, false
		}

		outcome, err := p.attempt(ctx, candidate)
		if err == nil {
			gologger.Verbose().Msgf("%s answered in %.0fms from %s (attempt %d)",
				candidate.Address(), outcome.Latency, outcome.Colo, attempt)
			return &types.Result{
				IP:             candidate.Host,
				Port:           candidate.Port,
				Latency:        outcome.Latency,
				Colo:           outcome.Colo,
				Country:        p.colos.CountryForColo(ctx, outcome.Colo),
				Classification: outcome.Classification(),
			}, true
		}

		gologger.Verbose().Msgf("%s attempt %d/%d failed: %v", candidate.Address(), attempt, maxAttempts, err)
		if attempt < maxAttempts {
			time.Sleep(retryBackoff)
		}
	}
	return nil, false
}

// attempt performs one probe round trip.
func (p *Prober) attempt(ctx context.Context, candidate types.Candidate) (*types.ProbeOutcome, error) {
	probeURL, err := p.traceURL(candidate)
	if err != nil {
		return nil, err
	}

	attemptCtx, cancel := context.WithTimeout(ctx, attemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, probeURL, nil)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	latency := float64(time.Since(start)) / float64(time.Millisecond)

	fields := ParseTrace(string(body))
	reported, colo := fields["ip"], fields["colo"]
	if reported == "" || colo == "" {
		return nil, fmt.Errorf("trace response missing ip or colo field")
	}

	return &types.ProbeOutcome{
		Latency:              latency,
		Colo:                 colo,
		ReportedIP:           reported,
		ReportedIPv6:         strings.Contains(reported, ":"),
		ReportedEqualsDialed: reported == candidate.Host,
	}, nil
}

// traceURL builds the per-probe URL. The dialed IPv4 is hex-encoded octet by
// octet into a subdomain of the helper domain, which resolves back to the
// candidate itself.
func (p *Prober) traceURL(candidate types.Candidate) (string, error) {
	host, err := HexHost(candidate.Host)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("https://%s.%s:%d%s", host, p.helperDomain, candidate.Port, tracePath), nil
}

// HexHost encodes an IPv4 address as eight lowercase hex digits.
func HexHost(ip string) (string, error) {
	octets := strings.Split(ip, ".")
	if len(octets) != 4 {
		return "", fmt.Errorf("not an IPv4 address: %q", ip)
	}
	var sb strings.Builder
	for _, octet := range octets {
		value, err := strconv.Atoi(octet)
		if err != nil || value < 0 || value > 255 {
			return "", fmt.Errorf("invalid octet %q in %q", octet, ip)
		}
		fmt.Fprintf(&sb, "%02x", value)
	}
	return sb.String(), nil
}

// ParseTrace parses the key=value line-oriented trace body into a flat map.
// Lines without '=' are ignored.
func ParseTrace(body string) map[string]string {
	fields := make(map[string]string)
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		fields[key] = value
	}
	return fields
}
