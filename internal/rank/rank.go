package rank

import (
	"sort"

	"Mirror_Rank_Go/pkg/model"
)

// Classification thresholds in Mbps, compared against the best observed
// speed. Strictly below the low bound is Slow, strictly above the high
// bound is Good, the closed interval between them is Moderate.
const (
	slowBelowMbps = 5.0
	goodAboveMbps = 15.0
)

// Parallel download hints handed to the artifact emitter.
const (
	parallelSlow = 3
	parallelFast = 5
)

// Aggregate filters the run's outcomes to successes, orders them fastest
// first and computes the run summary. The sort is stable: equal speeds keep
// their catalog order. The input is never mutated.
func Aggregate(outcomes []model.ProbeOutcome) ([]model.ProbeOutcome, model.RunSummary) {
	var ranked []model.ProbeOutcome
	for _, o := range outcomes {
		if o.Success() {
			ranked = append(ranked, o)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].SpeedBps > ranked[j].SpeedBps
	})

	summary := model.RunSummary{
		Probed:    len(outcomes),
		Succeeded: len(ranked),
		Failed:    len(outcomes) - len(ranked),
	}
	if len(ranked) == 0 {
		return ranked, summary
	}

	summary.BestBps = ranked[0].SpeedBps
	var sum float64
	for _, o := range ranked {
		sum += o.SpeedBps
	}
	summary.MeanBps = sum / float64(len(ranked))
	summary.Quality = classify(summary.BestMbps())
	summary.ParallelHint = parallelHint(summary.BestMbps())
	return ranked, summary
}

func classify(bestMbps float64) string {
	switch {
	case bestMbps < slowBelowMbps:
		return "Slow"
	case bestMbps > goodAboveMbps:
		return "Good"
	default:
		return "Moderate"
	}
}

func parallelHint(bestMbps float64) int {
	if bestMbps < slowBelowMbps {
		return parallelSlow
	}
	return parallelFast
}
