// Package sampler draws random host addresses from CIDR blocks without
// enumerating them, trading uniform probability for broad coverage across
// blocks of very different sizes.
package sampler

import (
	"math/rand"
	"net"
	"strings"
	"time"

	"github.com/projectdiscovery/gologger"
	"github.com/projectdiscovery/mapcidr"
)

const (
	// maxRounds bounds the number of sampling rounds over the block list.
	maxRounds = 100
	// drawAttempts bounds the retries for a single draw so near-exhausted
	// small blocks cannot loop forever.
	drawAttempts = 10
)

// Sampler produces unique IPv4 addresses from sets of CIDR blocks.
type Sampler struct {
	rng *rand.Rand
}

// New returns a Sampler seeded from the wall clock.
func New() *Sampler {
	return &Sampler{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// NewWithSeed returns a deterministic Sampler, used by tests.
func NewWithSeed(seed int64) *Sampler {
	return &Sampler{rng: rand.New(rand.NewSource(seed))}
}

// Rand exposes the sampler's random source so sibling sampling decisions
// (like proxy-list capping) share one seed.
func (s *Sampler) Rand() *rand.Rand {
	return s.rng
}

// Sample returns up to target unique addresses drawn from the union of the
// given CIDR blocks. It proceeds in rounds, drawing one random usable host
// from every block per round, and stops when the target is met or the round
// cap is hit. Returning fewer than target addresses is a normal outcome for
// small address spaces. Malformed blocks are skipped with a warning.
func (s *Sampler) Sample(cidrs []string, target int) []string {
	if target <= 0 {
		return nil
	}

	blocks := parseBlocks(cidrs)
	if len(blocks) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, target)
	picked := make([]string, 0, target)

	for round := 1; round <= maxRounds && len(picked) < target; round++ {
		for _, block := range blocks {
			if len(picked) >= target {
				break
			}
			ip, ok := s.drawHost(block, seen)
			if !ok {
				continue
			}
			seen[ip] = struct{}{}
			picked = append(picked, ip)
		}
		gologger.Verbose().Msgf("sampling round %d: %d/%d addresses", round, len(picked), target)
	}

	return picked
}

// drawHost picks one random usable host from the block that is not already
// in the seen set. The network and broadcast addresses are never returned.
func (s *Sampler) drawHost(block *net.IPNet, seen map[string]struct{}) (string, bool) {
	usable := int64(mapcidr.AddressCountIpnet(block)) - 2
	if usable <= 0 {
		return "", false
	}

	base := mapcidr.Inet_aton(block.IP)
	for attempt := 0; attempt < drawAttempts; attempt++ {
		offset := s.rng.Int63n(usable) + 1
		ip := mapcidr.Inet_ntoa(base + offset).String()
		if _, dup := seen[ip]; !dup {
			return ip, true
		}
	}
	return "", false
}

// parseBlocks parses CIDR strings into IPv4 networks, dropping malformed or
// non-IPv4 entries with a logged warning.
func parseBlocks(cidrs []string) []*net.IPNet {
	blocks := make([]*net.IPNet, 0, len(cidrs))
	for _, cidr := range cidrs {
		cidr = strings.TrimSpace(cidr)
		if cidr == "" {
			continue
		}
		_, block, err := net.ParseCIDR(cidr)
		if err != nil {
			gologger.Warning().Msgf("skipping malformed CIDR %q: %v", cidr, err)
			continue
		}
		if block.IP.To4() == nil {
			gologger.Warning().Msgf("skipping non-IPv4 CIDR %q", cidr)
			continue
		}
		blocks = append(blocks, block)
	}
	return blocks
}
