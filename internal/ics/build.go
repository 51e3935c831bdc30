// Package ics renders the deduplicated display set as an iCalendar feed so
// calendar clients can subscribe to the merged metro listing directly.
package ics

import (
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"horse.fit/citycal/internal/display"
)

const productID = "-//citycal//event feed//EN"

// BuildCalendar converts display rows into a VCALENDAR. Rows without a start
// time become all-day events. Rows whose date fails to parse are skipped;
// a malformed row must not break the whole feed.
func BuildCalendar(rows []display.Row, now time.Time) (*ical.Calendar, []string, error) {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)

	var skipped []string
	for _, row := range rows {
		date, err := time.Parse("2006-01-02", row.Date)
		if err != nil {
			skipped = append(skipped, row.ID)
			continue
		}

		ev := cal.AddEvent(row.ID)
		ev.SetDtStampTime(now.UTC())
		ev.SetSummary(row.Title)

		if start, ok := eventStart(date, row.StartTime); ok {
			ev.SetStartAt(start)
			ev.SetEndAt(start.Add(time.Hour))
		} else {
			ev.SetAllDayStartAt(date)
			ev.SetAllDayEndAt(date.AddDate(0, 0, 1))
		}

		if location := joinLocation(row.Location, row.City); location != "" {
			ev.SetLocation(location)
		}
		if row.URL != nil && strings.TrimSpace(*row.URL) != "" {
			ev.SetURL(strings.TrimSpace(*row.URL))
		}
		if row.Latitude != nil && row.Longitude != nil {
			ev.SetGeo(*row.Latitude, *row.Longitude)
		}
		if row.AlternateURL != nil && strings.TrimSpace(*row.AlternateURL) != "" {
			ev.SetDescription(fmt.Sprintf("Also listed at: %s", strings.TrimSpace(*row.AlternateURL)))
		}
	}

	return cal, skipped, nil
}

// eventStart combines the calendar date with an optional HH:MM:SS start time.
func eventStart(date time.Time, startTime *string) (time.Time, bool) {
	if startTime == nil {
		return time.Time{}, false
	}
	trimmed := strings.TrimSpace(*startTime)
	if trimmed == "" {
		return time.Time{}, false
	}
	clock, err := time.Parse("15:04:05", trimmed)
	if err != nil {
		return time.Time{}, false
	}
	return time.Date(
		date.Year(), date.Month(), date.Day(),
		clock.Hour(), clock.Minute(), clock.Second(),
		0, date.Location(),
	), true
}

func joinLocation(location, city *string) string {
	var parts []string
	if location != nil && strings.TrimSpace(*location) != "" {
		parts = append(parts, strings.TrimSpace(*location))
	}
	if city != nil && strings.TrimSpace(*city) != "" {
		parts = append(parts, strings.TrimSpace(*city))
	}
	return strings.Join(parts, ", ")
}
