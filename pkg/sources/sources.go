// Package sources defines the ordered catalog of address pools and the
// acquisition of their raw candidate text.
package sources

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/projectdiscovery/edgefinder/pkg/client"
	"github.com/projectdiscovery/gologger"
	sliceutil "github.com/projectdiscovery/utils/slice"
)

// Kind distinguishes how a source's raw text is turned into candidates.
type Kind int

const (
	// KindCIDRList is a newline-delimited list of CIDR blocks to sample from.
	KindCIDRList Kind = iota
	// KindProxyList is a newline-delimited address:port[#comment] list.
	KindProxyList
)

func (k Kind) String() string {
	switch k {
	case KindCIDRList:
		return "cidr-list"
	case KindProxyList:
		return "proxy-list"
	default:
		return "unknown"
	}
}

// Source names one address pool and where its raw text comes from. Sources
// are tried in catalog order and never retried within one run.
type Source struct {
	Name string
	URL  string
	Kind Kind
}

// Catalog is the fixed priority order of address pools.
var Catalog = []Source{
	{Name: "official", URL: "https://www.cloudflare.com/ips-v4/", Kind: KindCIDRList},
	{Name: "cm", URL: "https://raw.githubusercontent.com/cmliu/cmliu/main/CF-CIDR.txt", Kind: KindCIDRList},
	{Name: "as13335", URL: "https://raw.githubusercontent.com/ipverse/asn-ip/master/as/13335/ipv4-aggregated.txt", Kind: KindCIDRList},
	{Name: "as209242", URL: "https://raw.githubusercontent.com/ipverse/asn-ip/master/as/209242/ipv4-aggregated.txt", Kind: KindCIDRList},
	{Name: "proxyip", URL: "https://raw.githubusercontent.com/cmliu/ACL4SSR/main/baipiao.txt", Kind: KindProxyList},
	{Name: "as24429", URL: "https://raw.githubusercontent.com/ipverse/asn-ip/master/as/24429/ipv4-aggregated.txt", Kind: KindCIDRList},
	{Name: "as35916", URL: "https://raw.githubusercontent.com/ipverse/asn-ip/master/as/35916/ipv4-aggregated.txt", Kind: KindCIDRList},
	{Name: "as199524", URL: "https://raw.githubusercontent.com/ipverse/asn-ip/master/as/199524/ipv4-aggregated.txt", Kind: KindCIDRList},
}

// DefaultCIDRs is the compiled-in fallback for the official source when its
// published list cannot be fetched.
var DefaultCIDRs = []string{
	"173.245.48.0/20",
	"103.21.244.0/22",
	"103.22.200.0/22",
	"103.31.4.0/22",
	"141.101.64.0/18",
	"108.162.192.0/18",
	"190.93.240.0/20",
	"188.114.96.0/20",
	"197.234.240.0/22",
	"198.41.128.0/17",
	"162.158.0.0/15",
	"104.16.0.0/13",
	"104.24.0.0/14",
	"172.64.0.0/13",
	"131.0.72.0/22",
}

const fetchTimeout = 10 * time.Second

// Fetcher retrieves the raw line set of a source over HTTP.
type Fetcher struct {
	client *http.Client
}

// NewFetcher returns a Fetcher with the shared HTTP client.
func NewFetcher() *Fetcher {
	return &Fetcher{client: client.New(fetchTimeout)}
}

// NewFetcherWithClient is used by tests to inject a fake transport.
func NewFetcherWithClient(httpClient *http.Client) *Fetcher {
	return &Fetcher{client: httpClient}
}

// FetchLines downloads the source body and returns its content lines with
// blanks and comment lines removed. The official source falls back to the
// compiled-in CIDR list instead of failing; every other source returns an
// error so the caller can skip it.
func (f *Fetcher) FetchLines(ctx context.Context, src Source) ([]string, error) {
	body, err := f.get(ctx, src.URL)
	if err != nil {
		if src.Name == "official" {
			gologger.Warning().Msgf("could not fetch %s list (%v), using built-in ranges", src.Name, err)
			return append([]string(nil), DefaultCIDRs...), nil
		}
		return nil, err
	}
	return ParseLines(body), nil
}

func (f *Fetcher) get(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code %d for %s", resp.StatusCode, url)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// ParseLines splits raw list text into trimmed content lines, dropping
// blanks, '#' comment lines and exact duplicates.
func ParseLines(body string) []string {
	var lines []string
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	return sliceutil.Dedupe(lines)
}
