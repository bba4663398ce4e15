package sources

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/projectdiscovery/edgefinder/pkg/client"
)

func fakeHTTPClient(status int, body string, err error) *http.Client {
	return &http.Client{
		Transport: client.RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if err != nil {
				return nil, err
			}
			return &http.Response{
				StatusCode: status,
				Body:       io.NopCloser(strings.NewReader(body)),
				Header:     make(http.Header),
				Request:    req,
			}, nil
		}),
	}
}

func TestFetchLines(t *testing.T) {
	official := Catalog[0]
	secondary := Catalog[1]

	t.Run("parses body lines", func(t *testing.T) {
		body := "1.0.0.0/24\n\n# comment\n2.0.0.0/24\n1.0.0.0/24\n"
		f := NewFetcherWithClient(fakeHTTPClient(http.StatusOK, body, nil))
		lines, err := f.FetchLines(context.Background(), secondary)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []string{"1.0.0.0/24", "2.0.0.0/24"}
		if len(lines) != len(want) {
			t.Fatalf("got %v, want %v", lines, want)
		}
		for i := range want {
			if lines[i] != want[i] {
				t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
			}
		}
	})

	t.Run("official falls back to built-in ranges on error status", func(t *testing.T) {
		f := NewFetcherWithClient(fakeHTTPClient(http.StatusBadGateway, "", nil))
		lines, err := f.FetchLines(context.Background(), official)
		if err != nil {
			t.Fatalf("official source must not fail: %v", err)
		}
		if len(lines) != len(DefaultCIDRs) {
			t.Fatalf("got %d fallback lines, want %d", len(lines), len(DefaultCIDRs))
		}
	})

	t.Run("non-official source propagates fetch failure", func(t *testing.T) {
		f := NewFetcherWithClient(fakeHTTPClient(http.StatusNotFound, "", nil))
		if _, err := f.FetchLines(context.Background(), secondary); err == nil {
			t.Fatal("expected an error for non-official source")
		}
	})
}
