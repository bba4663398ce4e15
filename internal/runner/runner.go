package runner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/projectdiscovery/edgefinder/pkg/client"
	"github.com/projectdiscovery/edgefinder/pkg/optimizer"
	"github.com/projectdiscovery/edgefinder/pkg/output"
	"github.com/projectdiscovery/edgefinder/pkg/prober"
	"github.com/projectdiscovery/edgefinder/pkg/types"
	"github.com/projectdiscovery/gologger"
	errorutil "github.com/projectdiscovery/utils/errors"
	"github.com/rs/xid"
)

// Runner contains the internal logic of the program
type Runner struct {
	options *Options
	runID   string
}

// NewRunner instance
func NewRunner(options *Options) (*Runner, error) {
	return &Runner{options: options, runID: xid.New().String()}, nil
}

// Run executes one optimization session: resolve the helper domain once,
// walk the source catalog, rank what accumulated and persist it.
func (r *Runner) Run(ctx context.Context) error {
	config := types.SessionConfig{
		TargetCountry:          strings.ToUpper(strings.TrimSpace(r.options.TargetCountry)),
		TargetCount:            r.options.TargetCount,
		MaxCandidatesPerSource: r.options.MaxCandidates,
		MaxConcurrency:         r.options.Concurrency,
		TargetPort:             r.options.TargetPort,
	}
	if err := config.Validate(); err != nil {
		return errorutil.NewWithErr(err).Msgf("invalid session configuration")
	}

	gologger.Info().Msgf("run %s: looking for %s %s endpoints on port %d",
		r.runID, humanize.Comma(int64(config.TargetCount)), config.TargetCountry, config.TargetPort)

	helperDomain := prober.ResolveHelperDomain(ctx, client.New(10*time.Second))
	gologger.Verbose().Msgf("using helper domain %s", helperDomain)

	p := prober.New(helperDomain)
	it := optimizer.New(config, p.Probe)

	started := time.Now()
	results := it.Run(ctx)
	if err := ctx.Err(); err != nil {
		return errorutil.NewWithErr(err).Msgf("run interrupted")
	}

	ranked := optimizer.Rank(results, config.TargetCount)
	if len(ranked) == 0 {
		gologger.Info().Msgf("no %s endpoints found across %s sources, nothing to save",
			config.TargetCountry, au.Cyan("all").String())
		return nil
	}

	if err := output.WriteResults(ranked, r.options.OutputFile); err != nil {
		return errorutil.NewWithErr(err).Msgf("could not save results to %s", r.options.OutputFile)
	}

	r.printSummary(ranked, time.Since(started))
	return nil
}

// printSummary reports the ranked endpoint list and latency spread.
func (r *Runner) printSummary(ranked []*types.Result, elapsed time.Duration) {
	var sum float64
	for _, result := range ranked {
		sum += result.Latency
	}
	mean := sum / float64(len(ranked))

	gologger.Info().Msgf("found %s endpoints in %s (latency %s - %s, mean %.0fms)",
		au.Green(humanize.Comma(int64(len(ranked)))).String(),
		elapsed.Round(time.Second),
		au.Green(fmt.Sprintf("%.0fms", ranked[0].Latency)).String(),
		au.Yellow(fmt.Sprintf("%.0fms", ranked[len(ranked)-1].Latency)).String(),
		mean)

	for i, result := range ranked {
		gologger.Silent().Msgf("%2d. %s", i+1, result.DisplayFormat())
	}
}
