package sampler

import (
	"net"
	"testing"
)

func TestSample(t *testing.T) {
	tests := []struct {
		name     string
		cidrs    []string
		target   int
		maxCount int
		validate func(t *testing.T, ips []string)
	}{
		{
			name:     "target smaller than /24 space",
			cidrs:    []string{"192.168.1.0/24"},
			target:   50,
			maxCount: 50,
			validate: func(t *testing.T, ips []string) {
				if len(ips) != 50 {
					t.Errorf("expected 50 addresses, got %d", len(ips))
				}
			},
		},
		{
			name:     "target larger than tiny block",
			cidrs:    []string{"10.0.0.0/30"},
			target:   100,
			maxCount: 2, // only .1 and .2 are usable
		},
		{
			name:     "/31 has no usable hosts",
			cidrs:    []string{"10.0.0.0/31"},
			target:   10,
			maxCount: 0,
		},
		{
			name:     "/32 has no usable hosts",
			cidrs:    []string{"10.0.0.1/32"},
			target:   10,
			maxCount: 0,
		},
		{
			name:     "malformed CIDR is skipped not fatal",
			cidrs:    []string{"not-a-cidr", "300.1.2.0/24", "10.0.1.0/29"},
			target:   20,
			maxCount: 6,
			validate: func(t *testing.T, ips []string) {
				if len(ips) != 6 {
					t.Errorf("expected all 6 usable hosts of the valid /29, got %d", len(ips))
				}
			},
		},
		{
			name:     "overlapping blocks never duplicate",
			cidrs:    []string{"172.16.0.0/29", "172.16.0.0/29"},
			target:   12,
			maxCount: 6,
		},
		{
			name:     "empty input",
			cidrs:    nil,
			target:   10,
			maxCount: 0,
		},
		{
			name:     "zero target",
			cidrs:    []string{"192.168.1.0/24"},
			target:   0,
			maxCount: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewWithSeed(1)
			ips := s.Sample(tt.cidrs, tt.target)

			if len(ips) > tt.maxCount {
				t.Errorf("got %d addresses, want at most %d", len(ips), tt.maxCount)
			}
			if len(ips) > tt.target {
				t.Errorf("got %d addresses, exceeds target %d", len(ips), tt.target)
			}

			assertUniqueAndUsable(t, ips, tt.cidrs)

			if tt.validate != nil {
				tt.validate(t, ips)
			}
		})
	}
}

// assertUniqueAndUsable checks that every address is unique, belongs to one
// of the blocks, and is neither a network nor a broadcast address.
func assertUniqueAndUsable(t *testing.T, ips []string, cidrs []string) {
	t.Helper()

	var blocks []*net.IPNet
	for _, cidr := range cidrs {
		if _, block, err := net.ParseCIDR(cidr); err == nil {
			blocks = append(blocks, block)
		}
	}

	seen := make(map[string]struct{})
	for _, ipStr := range ips {
		if _, dup := seen[ipStr]; dup {
			t.Errorf("duplicate address %s", ipStr)
		}
		seen[ipStr] = struct{}{}

		ip := net.ParseIP(ipStr)
		if ip == nil || ip.To4() == nil {
			t.Errorf("invalid IPv4 address %q", ipStr)
			continue
		}

		contained := false
		for _, block := range blocks {
			if !block.Contains(ip) {
				continue
			}
			contained = true
			if isNetworkOrBroadcast(ip, block) {
				t.Errorf("address %s is the network or broadcast address of %s", ipStr, block)
			}
		}
		if !contained {
			t.Errorf("address %s is outside every input block", ipStr)
		}
	}
}

func isNetworkOrBroadcast(ip net.IP, block *net.IPNet) bool {
	ip4 := ip.To4()
	network := block.IP.To4()
	if ip4 == nil || network == nil {
		return false
	}
	if ip4.Equal(network) {
		return true
	}
	broadcast := make(net.IP, len(network))
	for i := range network {
		broadcast[i] = network[i] | ^block.Mask[i]
	}
	return ip4.Equal(broadcast)
}

func TestSampleRoundCapBoundsWork(t *testing.T) {
	// A single /29 (6 usable hosts) with a large target must terminate and
	// return exactly the usable hosts.
	s := NewWithSeed(7)
	ips := s.Sample([]string{"10.9.8.0/29"}, 1000)
	if len(ips) != 6 {
		t.Fatalf("expected 6 addresses, got %d", len(ips))
	}
}
