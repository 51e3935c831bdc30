// Package event defines the in-memory domain model shared by the matching
// and materialization code. Events are ingested per source and are read-only
// to everything downstream of ingest.
package event

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Event is one source-published occurrence of a listing.
//
// ID is globally unique and prefixed per source ("<source>:<source_event_id>")
// so identifiers from independently-run calendars cannot collide. Date is the
// calendar date of the next occurrence in YYYY-MM-DD form. Optional fields are
// pointers; a nil pointer means the source did not publish that attribute.
type Event struct {
	ID         string
	Title      string
	Date       string
	StartTime  *string
	StartDate  *string
	EndDate    *string
	Location   *string
	City       *string
	Latitude   *float64
	Longitude  *float64
	URL        *string
	ImageURL   *string
	Categories []string
	Source     string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Validate reports the contract violations that scoring and materialization
// must fail fast on. Missing optional fields are never an error.
func (e Event) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return fmt.Errorf("event is missing an identifier")
	}
	if strings.TrimSpace(e.Date) == "" {
		return fmt.Errorf("event %s is missing a calendar date", e.ID)
	}
	return nil
}

// HasCoordinates reports whether both latitude and longitude are present.
func (e Event) HasCoordinates() bool {
	return e.Latitude != nil && e.Longitude != nil
}

// ID construction uses this separator between source and source-local id.
const idSeparator = ":"

// BuildID returns the globally unique identifier for a source-local id.
func BuildID(source, sourceEventID string) string {
	return strings.TrimSpace(source) + idSeparator + strings.TrimSpace(sourceEventID)
}

// SortChronological orders events by date ascending, then start time ascending
// with untimed events after all timed events on the same date, then input
// order. The sort is stable so insertion order is the final tie-break.
func SortChronological(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return Less(events[i], events[j])
	})
}

// Less reports whether a sorts before b in display order.
func Less(a, b Event) bool {
	if a.Date != b.Date {
		return a.Date < b.Date
	}
	aTimed := a.StartTime != nil && strings.TrimSpace(*a.StartTime) != ""
	bTimed := b.StartTime != nil && strings.TrimSpace(*b.StartTime) != ""
	switch {
	case aTimed && !bTimed:
		return true
	case !aTimed && bTimed:
		return false
	case aTimed && bTimed:
		return *a.StartTime < *b.StartTime
	default:
		return false
	}
}
