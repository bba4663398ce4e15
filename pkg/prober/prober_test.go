package prober

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/projectdiscovery/edgefinder/pkg/client"
	"github.com/projectdiscovery/edgefinder/pkg/types"
)

func TestHexHost(t *testing.T) {
	tests := []struct {
		ip      string
		want    string
		wantErr bool
	}{
		{ip: "1.2.3.4", want: "01020304"},
		{ip: "104.16.0.1", want: "68100001"},
		{ip: "255.255.255.255", want: "ffffffff"},
		{ip: "1.2.3", wantErr: true},
		{ip: "1.2.3.999", wantErr: true},
		{ip: "a.b.c.d", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			got, err := HexHost(tt.ip)
			if (err != nil) != tt.wantErr {
				t.Fatalf("HexHost(%q) error = %v, wantErr %v", tt.ip, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("HexHost(%q) = %q, want %q", tt.ip, got, tt.want)
			}
		})
	}
}

func TestParseTrace(t *testing.T) {
	body := "fl=123\nip=104.16.0.1\n\ncolo=SJC\nnonsense line\nts=1700000000.123\n"
	fields := ParseTrace(body)

	want := map[string]string{"fl": "123", "ip": "104.16.0.1", "colo": "SJC", "ts": "1700000000.123"}
	if len(fields) != len(want) {
		t.Fatalf("got %d fields, want %d: %v", len(fields), len(want), fields)
	}
	for k, v := range want {
		if fields[k] != v {
			t.Errorf("field %q = %q, want %q", k, fields[k], v)
		}
	}
}

func TestProbeOutcomeClassification(t *testing.T) {
	tests := []struct {
		name    string
		outcome types.ProbeOutcome
		want    types.Classification
	}{
		{
			name:    "different reported address is a direct edge hit",
			outcome: types.ProbeOutcome{ReportedIP: "198.51.100.7"},
			want:    types.ClassificationPrimary,
		},
		{
			name:    "ipv6 reported address means relayed",
			outcome: types.ProbeOutcome{ReportedIP: "2606:4700::1", ReportedIPv6: true},
			want:    types.ClassificationRelayed,
		},
		{
			name:    "echoed dial address means relayed",
			outcome: types.ProbeOutcome{ReportedIP: "1.2.3.4", ReportedEqualsDialed: true},
			want:    types.ClassificationRelayed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.outcome.Classification(); got != tt.want {
				t.Errorf("classification = %q, want %q", got, tt.want)
			}
		})
	}
}

// traceTransport fakes the probe transport: trace requests answer according
// to the per-call plan, everything else (the colo directory) returns 404 so
// unresolved colos pass through.
func traceTransport(attempts *int, failures int, traceBody string) *http.Client {
	return &http.Client{
		Transport: client.RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if !strings.Contains(req.URL.Path, "cdn-cgi/trace") {
				return &http.Response{
					StatusCode: http.StatusNotFound,
					Body:       io.NopCloser(strings.NewReader("")),
					Header:     make(http.Header),
					Request:    req,
				}, nil
			}
			*attempts++
			if *attempts <= failures {
				return nil, fmt.Errorf("connection reset")
			}
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(strings.NewReader(traceBody)),
				Header:     make(http.Header),
				Request:    req,
			}, nil
		}),
	}
}

func TestProbe(t *testing.T) {
	candidate := types.Candidate{Host: "104.16.0.1", Port: 443}

	t.Run("first attempt success", func(t *testing.T) {
		attempts := 0
		p := NewWithClient(traceTransport(&attempts, 0, "ip=198.51.100.9\ncolo=SJC\n"), "helper.test")

		result, ok := p.Probe(context.Background(), candidate)
		if !ok {
			t.Fatal("expected a result")
		}
		if attempts != 1 {
			t.Errorf("expected 1 attempt, got %d", attempts)
		}
		if result.IP != "104.16.0.1" || result.Port != 443 {
			t.Errorf("unexpected endpoint %s:%d", result.IP, result.Port)
		}
		if result.Colo != "SJC" {
			t.Errorf("colo = %q, want SJC", result.Colo)
		}
		if result.Country != "US" {
			t.Errorf("country = %q, want US from the static table", result.Country)
		}
		if result.Classification != types.ClassificationPrimary {
			t.Errorf("classification = %q, want primary", result.Classification)
		}
		if result.Latency < 0 {
			t.Errorf("latency must be non-negative, got %f", result.Latency)
		}
	})

	t.Run("retries until success", func(t *testing.T) {
		attempts := 0
		p := NewWithClient(traceTransport(&attempts, 2, "ip=198.51.100.9\ncolo=HKG\n"), "helper.test")

		result, ok := p.Probe(context.Background(), candidate)
		if !ok {
			t.Fatal("expected a result after retries")
		}
		if attempts != 3 {
			t.Errorf("expected 3 attempts, got %d", attempts)
		}
		if result.Country != "HK" {
			t.Errorf("country = %q, want HK", result.Country)
		}
	})

	t.Run("gives up after three failures", func(t *testing.T) {
		attempts := 0
		p := NewWithClient(traceTransport(&attempts, 100, ""), "helper.test")

		if _, ok := p.Probe(context.Background(), candidate); ok {
			t.Fatal("expected no result")
		}
		if attempts != 3 {
			t.Errorf("expected exactly 3 attempts, got %d", attempts)
		}
	})

	t.Run("missing required trace fields is a failure", func(t *testing.T) {
		attempts := 0
		p := NewWithClient(traceTransport(&attempts, 0, "colo=SJC\n"), "helper.test")

		if _, ok := p.Probe(context.Background(), candidate); ok {
			t.Fatal("expected no result when ip field is missing")
		}
	})

	t.Run("relayed classification for echoed address", func(t *testing.T) {
		attempts := 0
		p := NewWithClient(traceTransport(&attempts, 0, "ip=104.16.0.1\ncolo=SJC\n"), "helper.test")

		result, ok := p.Probe(context.Background(), candidate)
		if !ok {
			t.Fatal("expected a result")
		}
		if result.Classification != types.ClassificationRelayed {
			t.Errorf("classification = %q, want relayed", result.Classification)
		}
	})
}

func TestCountryForColoPassthrough(t *testing.T) {
	attempts := 0
	p := NewWithClient(traceTransport(&attempts, 0, ""), "helper.test")

	// directory fetch 404s, so an unknown colo passes through uppercased
	if got := p.colos.CountryForColo(context.Background(), "xxz"); got != "XXZ" {
		t.Errorf("got %q, want passthrough XXZ", got)
	}
}
