// Package scheduler runs probes over a candidate set under a shared
// concurrency bound, optionally halting new admissions once enough matching
// results have been observed.
package scheduler

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/projectdiscovery/edgefinder/pkg/types"
	"github.com/projectdiscovery/gologger"
	syncutil "github.com/projectdiscovery/utils/sync"
)

// ProbeFunc tests one candidate. A false second return means the candidate
// yielded no result.
type ProbeFunc func(ctx context.Context, candidate types.Candidate) (*types.Result, bool)

// progress intervals, in completed probes. Advisory reporting only.
const (
	progressEveryAll       = 50
	progressEveryEarlyStop = 20
)

// ProbeAll probes every candidate under the concurrency bound and returns
// all non-empty results in completion order.
func ProbeAll(ctx context.Context, candidates []types.Candidate, probe ProbeFunc, concurrency int) ([]*types.Result, error) {
	return run(ctx, candidates, probe, concurrency, nil)
}

// ProbeUntil probes candidates under the concurrency bound but stops
// admitting new work once target results matching the filter have been
// observed. Probes already in flight finish naturally; the returned set may
// therefore contain extra non-matching results observed incidentally.
func ProbeUntil(ctx context.Context, candidates []types.Candidate, probe ProbeFunc, concurrency, target int, matches func(*types.Result) bool) ([]*types.Result, error) {
	return run(ctx, candidates, probe, concurrency, &earlyStop{target: target, matches: matches})
}

// earlyStop tracks matching results and raises the stop flag exactly once.
type earlyStop struct {
	target  int
	matches func(*types.Result) bool

	matched int32
	stop    atomic.Bool
}

// observe records a result and returns true when this result is the one
// that crossed the target. The unset→set transition happens exactly once no
// matter how many probes race on it.
func (e *earlyStop) observe(result *types.Result) bool {
	if e.matches == nil || !e.matches(result) {
		return false
	}
	if atomic.AddInt32(&e.matched, 1) < int32(e.target) {
		return false
	}
	return e.stop.CompareAndSwap(false, true)
}

func (e *earlyStop) raised() bool {
	return e != nil && e.stop.Load()
}

func run(ctx context.Context, candidates []types.Candidate, probe ProbeFunc, concurrency int, stopper *earlyStop) ([]*types.Result, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	if concurrency < 1 {
		concurrency = 1
	}

	awg, err := syncutil.New(syncutil.WithSize(concurrency))
	if err != nil {
		return nil, err
	}

	progressEvery := progressEveryAll
	if stopper != nil {
		progressEvery = progressEveryEarlyStop
	}

	var (
		mu      sync.Mutex
		results []*types.Result

		completed int64
	)

	total := len(candidates)
	for _, candidate := range candidates {
		if ctx.Err() != nil || stopper.raised() {
			break
		}

		// admission may block until a slot frees up
		awg.Add()

		// the stop flag may have been raised while waiting for a slot
		if stopper.raised() {
			awg.Done()
			break
		}

		go func(candidate types.Candidate) {
			defer awg.Done()

			result, ok := probe(ctx, candidate)
			if ok {
				mu.Lock()
				results = append(results, result)
				mu.Unlock()

				if stopper != nil && stopper.observe(result) {
					gologger.Info().Msgf("found %d matching endpoints, halting new probes", stopper.target)
				}
			}

			done := atomic.AddInt64(&completed, 1)
			if int(done)%progressEvery == 0 || int(done) == total {
				mu.Lock()
				found := len(results)
				mu.Unlock()
				gologger.Verbose().Msgf("probed %d/%d candidates, %d responded", done, total, found)
			}
		}(candidate)
	}

	awg.Wait()
	return results, nil
}
