package signals

import (
	"sort"

	"github.com/ducminhle1904/gridscope/pkg/types"
)

// Rank sorts results by grid score, best first. Equal scores are ordered by less when it
// is given and otherwise keep their input order. The input slice is not modified.
func Rank(results []types.SignalResult, less func(a, b types.SignalResult) bool) []types.SignalResult {
	ranked := make([]types.SignalResult, len(results))
	copy(ranked, results)

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].GridScore != ranked[j].GridScore {
			return ranked[i].GridScore > ranked[j].GridScore
		}
		if less != nil {
			return less(ranked[i], ranked[j])
		}
		return false
	})
	return ranked
}
