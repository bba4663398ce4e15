package prober

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/projectdiscovery/gologger"
	envutil "github.com/projectdiscovery/utils/env"
	"github.com/tidwall/gjson"
)

var (
	// helperDomainOverride skips the DoH lookup entirely when set.
	helperDomainOverride = envutil.GetEnvOrDefault("EDGEFINDER_HELPER_DOMAIN", "")
	// FallbackHelperDomain is used when the DoH lookup fails.
	FallbackHelperDomain = "nip.lfree.org"
	// helperDoHURL is the TXT query that publishes the current helper domain.
	helperDoHURL = envutil.GetEnvOrDefault("EDGEFINDER_DOH_URL",
		"https://cloudflare-dns.com/dns-query?name=nip.090227.xyz&type=TXT")
)

// ResolveHelperDomain looks up the domain used to build per-probe hostnames.
// It runs once per session, before any probing. On any failure it degrades
// to the fixed fallback domain.
func ResolveHelperDomain(ctx context.Context, httpClient *http.Client) string {
	if helperDomainOverride != "" {
		return helperDomainOverride
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, helperDoHURL, nil)
	if err != nil {
		return FallbackHelperDomain
	}
	req.Header.Set("Accept", "application/dns-json")

	resp, err := httpClient.Do(req)
	if err != nil {
		gologger.Warning().Msgf("helper domain lookup failed (%v), using %s", err, FallbackHelperDomain)
		return FallbackHelperDomain
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		gologger.Warning().Msgf("helper domain lookup returned %d, using %s", resp.StatusCode, FallbackHelperDomain)
		return FallbackHelperDomain
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return FallbackHelperDomain
	}

	result := gjson.ParseBytes(body)
	if result.Get("Status").Int() != 0 {
		return FallbackHelperDomain
	}
	answer := result.Get("Answer.0.data").String()
	domain := strings.Trim(strings.TrimSpace(answer), `"`)
	if domain == "" {
		return FallbackHelperDomain
	}

	gologger.Info().Msgf("resolved helper domain: %s", domain)
	return domain
}
