package sources

import (
	"math/rand"
	"net"
	"strconv"
	"strings"

	"github.com/projectdiscovery/edgefinder/pkg/types"
	"github.com/projectdiscovery/gologger"
)

// defaultProxyPort applies to lines that carry no explicit port.
const defaultProxyPort = 443

// ParseProxyList turns address:port[#comment] lines into candidates for the
// given target port. A line whose explicit port differs from the target port
// is dropped, never rewritten. Lines without a port default to 443 and
// survive only when the target port is 443. Malformed lines are silently
// dropped.
func ParseProxyList(lines []string, targetPort int) []types.Candidate {
	candidates := make([]types.Candidate, 0, len(lines))
	for _, line := range lines {
		candidate, ok := parseProxyLine(line, targetPort)
		if !ok {
			continue
		}
		candidates = append(candidates, candidate)
	}
	return candidates
}

func parseProxyLine(line string, targetPort int) (types.Candidate, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return types.Candidate{}, false
	}

	main := line
	comment := ""
	if idx := strings.Index(line, "#"); idx >= 0 {
		main = strings.TrimSpace(line[:idx])
		comment = strings.TrimSpace(line[idx+1:])
	}

	host := main
	port := defaultProxyPort
	if strings.Contains(main, ":") {
		parts := strings.Split(main, ":")
		if len(parts) != 2 {
			return types.Candidate{}, false
		}
		host = strings.TrimSpace(parts[0])
		parsed, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil || parsed < 1 || parsed > 65535 {
			return types.Candidate{}, false
		}
		port = parsed
	}

	ip := net.ParseIP(host)
	if ip == nil || ip.To4() == nil {
		return types.Candidate{}, false
	}
	if port != targetPort {
		return types.Candidate{}, false
	}

	return types.Candidate{Host: host, Port: port, Comment: comment}, true
}

// CapProxyCandidates keeps a uniform random subset of at most max
// candidates. Proxy lists are assumed pre-curated, so truncation happens
// here before probing; sampled CIDR sources are truncated after probing, by
// latency, in the ranker. The two paths are deliberately separate.
func CapProxyCandidates(candidates []types.Candidate, max int, rng *rand.Rand) []types.Candidate {
	if max <= 0 || len(candidates) <= max {
		return candidates
	}

	gologger.Info().Msgf("proxy list has %d candidates, keeping a random %d", len(candidates), max)

	subset := append([]types.Candidate(nil), candidates...)
	rng.Shuffle(len(subset), func(i, j int) {
		subset[i], subset[j] = subset[j], subset[i]
	})
	return subset[:max]
}
