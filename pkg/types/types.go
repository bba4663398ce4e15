package types

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// Classification describes how a probed endpoint answered.
type Classification string

const (
	// ClassificationPrimary marks a direct anycast edge hit.
	ClassificationPrimary Classification = "primary"
	// ClassificationRelayed marks a response that went through a relay hop.
	ClassificationRelayed Classification = "relayed"
)

// Candidate is an address:port pair that has not been probed yet.
type Candidate struct {
	Host    string
	Port    int
	Comment string
}

// Address returns the dialable host:port form of the candidate.
func (c Candidate) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c Candidate) String() string {
	if c.Comment != "" {
		return fmt.Sprintf("%s:%d#%s", c.Host, c.Port, c.Comment)
	}
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ProbeOutcome is the raw result of a single successful probe attempt.
//
// ReportedIPv6 and ReportedEqualsDialed are kept as separate facts even
// though only the merged classification is exposed downstream: the two
// signals mean different things and a reader should not have to re-derive
// them from the merged label.
type ProbeOutcome struct {
	Latency              float64 // round-trip time in milliseconds
	Colo                 string  // short point-of-presence code
	ReportedIP           string  // address the responder claims it saw
	ReportedIPv6         bool
	ReportedEqualsDialed bool
}

// Classification merges the raw responder facts into a single label.
// Heuristic: an IPv6 literal or an echo of the dialed address indicates a
// relay in front of the edge; anything else is treated as a direct hit.
func (o ProbeOutcome) Classification() Classification {
	if o.ReportedIPv6 || o.ReportedEqualsDialed {
		return ClassificationRelayed
	}
	return ClassificationPrimary
}

// Result is one probed and classified endpoint.
type Result struct {
	IP             string
	Port           int
	Latency        float64 // milliseconds
	Colo           string
	Country        string
	Classification Classification
}

// Key uniquely identifies a result for deduplication purposes.
func (r Result) Key() string {
	return fmt.Sprintf("%s:%d", r.IP, r.Port)
}

// DisplayFormat renders the result in the output file line format.
func (r Result) DisplayFormat() string {
	return fmt.Sprintf("%s:%d#%s %s %.0fms", r.IP, r.Port, r.Country, r.Classification, r.Latency)
}

// SessionConfig holds the knobs for one optimization run. It is created at
// session start and never mutated afterwards.
type SessionConfig struct {
	TargetCountry          string
	TargetCount            int
	MaxCandidatesPerSource int
	MaxConcurrency         int
	TargetPort             int
}

// Validate checks the configuration for values that cannot produce a
// meaningful run.
func (c SessionConfig) Validate() error {
	if strings.TrimSpace(c.TargetCountry) == "" {
		return fmt.Errorf("target country must not be empty")
	}
	if c.TargetCount <= 0 {
		return fmt.Errorf("target count must be positive, got %d", c.TargetCount)
	}
	if c.MaxCandidatesPerSource <= 0 {
		return fmt.Errorf("per-source candidate cap must be positive, got %d", c.MaxCandidatesPerSource)
	}
	if c.MaxConcurrency <= 0 {
		return fmt.Errorf("concurrency must be positive, got %d", c.MaxConcurrency)
	}
	if c.TargetPort < 1 || c.TargetPort > 65535 {
		return fmt.Errorf("target port out of range: %d", c.TargetPort)
	}
	return nil
}
