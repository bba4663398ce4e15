package optimizer

import (
	"sort"

	"github.com/projectdiscovery/edgefinder/pkg/types"
)

// Rank orders results by latency ascending and truncates to limit. Ties keep
// their insertion order. The input slice is not modified.
func Rank(results []*types.Result, limit int) []*types.Result {
	ranked := append([]*types.Result(nil), results...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Latency < ranked[j].Latency
	})
	if limit >= 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
