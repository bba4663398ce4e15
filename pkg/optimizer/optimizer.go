// Package optimizer walks the ordered source catalog, probes each source's
// candidates and accumulates deduplicated target-country results until the
// session target is met.
package optimizer

import (
	"context"
	"strings"

	"github.com/projectdiscovery/edgefinder/pkg/sampler"
	"github.com/projectdiscovery/edgefinder/pkg/scheduler"
	"github.com/projectdiscovery/edgefinder/pkg/sources"
	"github.com/projectdiscovery/edgefinder/pkg/types"
	"github.com/projectdiscovery/gologger"
	mapsutil "github.com/projectdiscovery/utils/maps"
)

// AcquireFunc obtains the raw content lines of a source. The default is
// Fetcher.FetchLines; tests inject fakes.
type AcquireFunc func(ctx context.Context, src sources.Source) ([]string, error)

// Iterator drives one optimization run over the source catalog.
type Iterator struct {
	Config  types.SessionConfig
	Sources []sources.Source
	Acquire AcquireFunc
	Sampler *sampler.Sampler
	Probe   scheduler.ProbeFunc
}

// New wires an Iterator with the default acquisition and sampling
// implementations.
func New(config types.SessionConfig, probe scheduler.ProbeFunc) *Iterator {
	fetcher := sources.NewFetcher()
	return &Iterator{
		Config:  config,
		Sources: sources.Catalog,
		Acquire: fetcher.FetchLines,
		Sampler: sampler.New(),
		Probe:   probe,
	}
}

// Run walks the sources in priority order. Each source is probed with the
// early-stop scheduler, filtered to the target country and deduplicated by
// ip:port against everything accumulated so far. Iteration stops as soon as
// the accumulated total reaches the session target. A failing source is
// skipped, never fatal, and exhausting every source below the target is a
// normal outcome.
func (it *Iterator) Run(ctx context.Context) []*types.Result {
	seen := mapsutil.NewSyncLockMap[string, struct{}]()
	var accumulated []*types.Result

	for i, src := range it.Sources {
		if ctx.Err() != nil {
			break
		}
		if len(accumulated) >= it.Config.TargetCount {
			break
		}

		gologger.Info().Msgf("[%d/%d] trying source %s", i+1, len(it.Sources), src.Name)

		candidates, err := it.candidatesFor(ctx, src)
		if err != nil {
			gologger.Warning().Msgf("skipping source %s: %v", src.Name, err)
			continue
		}
		if len(candidates) == 0 {
			gologger.Info().Msgf("source %s produced no candidates", src.Name)
			continue
		}

		gologger.Info().Msgf("probing %d candidates from %s on port %d with concurrency %d",
			len(candidates), src.Name, it.Config.TargetPort, it.Config.MaxConcurrency)

		results, err := scheduler.ProbeUntil(ctx, candidates, it.Probe,
			it.Config.MaxConcurrency, it.Config.TargetCount, it.matchesTargetCountry)
		if err != nil {
			gologger.Warning().Msgf("skipping source %s: %v", src.Name, err)
			continue
		}

		fresh := 0
		for _, result := range results {
			if !it.matchesTargetCountry(result) {
				continue
			}
			key := result.Key()
			if _, dup := seen.Get(key); dup {
				continue
			}
			_ = seen.Set(key, struct{}{})
			accumulated = append(accumulated, result)
			fresh++
		}

		gologger.Info().Msgf("source %s yielded %d new %s endpoints (total %d/%d)",
			src.Name, fresh, it.Config.TargetCountry, len(accumulated), it.Config.TargetCount)
	}

	return accumulated
}

// candidatesFor turns a source's raw lines into probe candidates. CIDR
// sources are sampled up to the per-source cap; proxy lists are parsed for
// the target port and randomly capped before probing.
func (it *Iterator) candidatesFor(ctx context.Context, src sources.Source) ([]types.Candidate, error) {
	lines, err := it.Acquire(ctx, src)
	if err != nil {
		return nil, err
	}

	switch src.Kind {
	case sources.KindProxyList:
		candidates := sources.ParseProxyList(lines, it.Config.TargetPort)
		gologger.Verbose().Msgf("proxy list %s: %d candidates match port %d", src.Name, len(candidates), it.Config.TargetPort)
		return sources.CapProxyCandidates(candidates, it.Config.MaxCandidatesPerSource, it.Sampler.Rand()), nil
	default:
		ips := it.Sampler.Sample(lines, it.Config.MaxCandidatesPerSource)
		candidates := make([]types.Candidate, 0, len(ips))
		for _, ip := range ips {
			candidates = append(candidates, types.Candidate{Host: ip, Port: it.Config.TargetPort})
		}
		return candidates, nil
	}
}

func (it *Iterator) matchesTargetCountry(result *types.Result) bool {
	return strings.EqualFold(result.Country, it.Config.TargetCountry)
}
