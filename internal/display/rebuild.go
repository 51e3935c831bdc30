// Package display materializes the deduplicated, query-facing event set from
// the full event collection plus the stored match edges. The rebuild itself
// is a pure function over in-memory collections; the storage-backed service
// around it owns the atomic table replacement.
package display

import (
	"fmt"

	"github.com/rs/zerolog"

	"horse.fit/citycal/internal/event"
	"horse.fit/citycal/internal/match"
)

// Row is one display row: one real-world event after deduplication, carrying
// the canonical record's attributes plus an optional link to the excluded
// duplicate.
type Row struct {
	event.Event
	AlternateURL    *string
	AlternateSource *string
}

// alternate is the looked-up link data attached to a retained primary.
type alternate struct {
	url        *string
	source     string
	confidence match.Confidence
	score      float64
}

// Rebuild produces the canonical display set. Only medium and high confidence
// edges participate; low confidence edges are informational and never cause
// exclusion or merging. Events missing an identifier or date are contract
// violations and abort the rebuild. An edge referencing an unknown event
// identifier contributes no alternate link and is logged, but does not abort:
// a single bad edge must not blank the canonical set.
//
// Rebuild is deterministic and idempotent: the same events and edges always
// produce the same rows in the same order.
func Rebuild(events []event.Event, edges []match.Edge, logger zerolog.Logger) ([]Row, error) {
	byID := make(map[string]event.Event, len(events))
	for _, e := range events {
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("rebuild display events: %w", err)
		}
		byID[e.ID] = e
	}

	excluded := make(map[string]struct{})
	alternates := make(map[string]alternate)
	for _, edge := range edges {
		if edge.Confidence != match.ConfidenceHigh && edge.Confidence != match.ConfidenceMedium {
			continue
		}

		excluded[edge.SecondaryEventID] = struct{}{}

		secondary, ok := byID[edge.SecondaryEventID]
		if !ok {
			logger.Warn().
				Str("secondary_event_id", edge.SecondaryEventID).
				Str("primary_event_id", edge.PrimaryEventID).
				Msg("match edge references unknown secondary event, skipping alternate link")
			continue
		}
		if _, ok := byID[edge.PrimaryEventID]; !ok {
			logger.Warn().
				Str("secondary_event_id", edge.SecondaryEventID).
				Str("primary_event_id", edge.PrimaryEventID).
				Msg("match edge references unknown primary event, skipping alternate link")
			continue
		}

		candidate := alternate{
			url:        secondary.URL,
			source:     secondary.Source,
			confidence: edge.Confidence,
			score:      edge.Score,
		}
		if current, ok := alternates[edge.PrimaryEventID]; !ok || betterAlternate(candidate, current) {
			alternates[edge.PrimaryEventID] = candidate
		}
	}

	ordered := make([]event.Event, len(events))
	copy(ordered, events)
	event.SortChronological(ordered)

	rows := make([]Row, 0, len(ordered))
	for _, e := range ordered {
		if _, skip := excluded[e.ID]; skip {
			continue
		}

		row := Row{Event: e}
		if alt, ok := alternates[e.ID]; ok {
			row.AlternateURL = alt.url
			altSource := alt.source
			row.AlternateSource = &altSource
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// betterAlternate prefers the higher confidence tier, then the higher score.
func betterAlternate(candidate, current alternate) bool {
	candidateHigh := candidate.confidence == match.ConfidenceHigh
	currentHigh := current.confidence == match.ConfidenceHigh
	if candidateHigh != currentHigh {
		return candidateHigh
	}
	return candidate.score > current.score
}
