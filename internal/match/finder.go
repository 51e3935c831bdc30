package match

import (
	"fmt"
	"sort"

	"horse.fit/citycal/internal/event"
)

// FindMatches scores every same-date pair across two source collections and
// returns the pairs whose total meets or exceeds minScore, sorted by
// descending total. Bucketing the second collection by calendar date bounds
// the comparison to same-day candidates; cross-date pairs are never produced.
//
// No one-to-one constraint is enforced here: an event may appear in several
// returned pairs. Resolving each event to at most one duplicate relationship
// is the materialization pipeline's job.
func FindMatches(aEvents, bEvents []event.Event, minScore float64, weights *Weights) ([]Result, error) {
	byDate := make(map[string][]event.Event, len(bEvents))
	for _, b := range bEvents {
		if err := b.Validate(); err != nil {
			return nil, fmt.Errorf("find matches: %w", err)
		}
		byDate[b.Date] = append(byDate[b.Date], b)
	}

	var results []Result
	for _, a := range aEvents {
		if err := a.Validate(); err != nil {
			return nil, fmt.Errorf("find matches: %w", err)
		}
		for _, b := range byDate[a.Date] {
			result, err := ScoreMatch(a, b, weights)
			if err != nil {
				return nil, fmt.Errorf("find matches: %w", err)
			}
			if result.Total >= minScore {
				results = append(results, result)
			}
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Total > results[j].Total
	})
	return results, nil
}
