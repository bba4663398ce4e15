package prober

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/projectdiscovery/gcache"
	"github.com/projectdiscovery/gologger"
	envutil "github.com/projectdiscovery/utils/env"
	"github.com/tidwall/gjson"
)

// locationsURL serves the full colo directory used as the remote fallback.
var locationsURL = envutil.GetEnvOrDefault("EDGEFINDER_LOCATIONS_URL", "https://speed.cloudflare.com/locations")

// coloCountries maps the common IATA point-of-presence codes to ISO-3166
// alpha-2 country codes. Colos missing here are resolved remotely.
var coloCountries = map[string]string{
	// North America
	"ATL": "US", "BOS": "US", "BUF": "US", "CLT": "US", "DEN": "US",
	"DFW": "US", "EWR": "US", "IAD": "US", "IAH": "US", "LAS": "US",
	"LAX": "US", "MCI": "US", "MIA": "US", "MSP": "US", "ORD": "US",
	"PDX": "US", "PHL": "US", "PHX": "US", "PIT": "US", "SAN": "US",
	"SEA": "US", "SJC": "US", "SMF": "US", "STL": "US", "TPA": "US",
	"YUL": "CA", "YVR": "CA", "YWG": "CA", "YYC": "CA", "YYZ": "CA",
	"GDL": "MX", "MEX": "MX", "QRO": "MX",
	// South America
	"BOG": "CO", "EZE": "AR", "FOR": "BR", "GIG": "BR", "GRU": "BR",
	"LIM": "PE", "SCL": "CL",
	// Europe
	"AMS": "NL", "ARN": "SE", "ATH": "GR", "BCN": "ES", "BRU": "BE",
	"BUD": "HU", "CDG": "FR", "CPH": "DK", "DUB": "IE", "DUS": "DE",
	"EDI": "GB", "FRA": "DE", "GVA": "CH", "HAM": "DE", "HEL": "FI",
	"LHR": "GB", "LIS": "PT", "LYS": "FR", "MAD": "ES", "MAN": "GB",
	"MRS": "FR", "MUC": "DE", "MXP": "IT", "OSL": "NO", "OTP": "RO",
	"PRG": "CZ", "FCO": "IT", "VIE": "AT", "WAW": "PL", "ZRH": "CH",
	// Middle East and Africa
	"AUH": "AE", "CAI": "EG", "CPT": "ZA", "DOH": "QA", "DXB": "AE",
	"IST": "TR", "JED": "SA", "JNB": "ZA", "KWI": "KW", "LOS": "NG",
	"NBO": "KE", "RUH": "SA", "TLV": "IL",
	// Asia-Pacific
	"AKL": "NZ", "BKK": "TH", "BLR": "IN", "BNE": "AU", "BOM": "IN",
	"CCU": "IN", "CEB": "PH", "CGK": "ID", "DEL": "IN", "DPS": "ID",
	"FUK": "JP", "HAN": "VN", "HKG": "HK", "HYD": "IN", "ICN": "KR",
	"KHH": "TW", "KIX": "JP", "KUL": "MY", "MAA": "IN", "MEL": "AU",
	"MNL": "PH", "NRT": "JP", "OKA": "JP", "PER": "AU", "SGN": "VN",
	"SIN": "SG", "SYD": "AU", "TPE": "TW",
}

// coloResolver answers colo→country questions from a two-tier lookup: the
// static table first, then the remote locations directory fetched at most
// once and cached for the process lifetime.
type coloResolver struct {
	client        *http.Client
	cache         gcache.Cache[string, string]
	locationsOnce sync.Once
}

func newColoResolver(httpClient *http.Client) *coloResolver {
	return &coloResolver{
		client: httpClient,
		cache:  gcache.New[string, string](512).LRU().Build(),
	}
}

// CountryForColo resolves a colo code to a country code. Unresolvable codes
// pass through uppercased rather than failing.
func (c *coloResolver) CountryForColo(ctx context.Context, colo string) string {
	colo = strings.ToUpper(strings.TrimSpace(colo))
	if colo == "" {
		return colo
	}

	if country, ok := coloCountries[colo]; ok {
		return country
	}
	if country, err := c.cache.Get(colo); err == nil {
		return country
	}

	c.locationsOnce.Do(func() {
		c.loadLocations(ctx)
	})

	if country, err := c.cache.Get(colo); err == nil {
		return country
	}
	return colo
}

// loadLocations fetches the remote colo directory and fills the cache.
func (c *coloResolver) loadLocations(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locationsURL, nil)
	if err != nil {
		return
	}
	resp, err := c.client.Do(req)
	if err != nil {
		gologger.Warning().Msgf("could not fetch colo directory: %v", err)
		return
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		gologger.Warning().Msgf("colo directory returned status %d", resp.StatusCode)
		return
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return
	}

	count := 0
	gjson.ParseBytes(body).ForEach(func(_, location gjson.Result) bool {
		iata := strings.ToUpper(location.Get("iata").String())
		cca2 := strings.ToUpper(location.Get("cca2").String())
		if iata == "" || cca2 == "" {
			return true
		}
		if err := c.cache.Set(iata, cca2); err == nil {
			count++
		}
		return true
	})
	gologger.Verbose().Msgf("cached %d colo locations from remote directory", count)
}
