package match

import (
	"math"
	"strings"
	"testing"

	"horse.fit/citycal/internal/event"
)

func strPtr(s string) *string { return &s }

func f64Ptr(f float64) *float64 { return &f }

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func testEvent(id, title, date string) event.Event {
	return event.Event{ID: id, Title: title, Date: date, Source: "test"}
}

func TestScoreTitleSubstring(t *testing.T) {
	t.Parallel()

	// Substring containment with adequate length ratio pins the title score
	// at 0.95 regardless of edit distance.
	score, reason := scoreTitle("Fall Art Walk", "Fall Art Walk 2025 - Downtown")
	if score != 0.95 {
		t.Fatalf("expected title score 0.95, got %f", score)
	}
	if !strings.Contains(reason, "substring") {
		t.Fatalf("expected substring reason, got %q", reason)
	}
}

func TestScoreTitleShortSubstringFallsThrough(t *testing.T) {
	t.Parallel()

	// "Gala" is contained but far too short for the substring rule; full
	// token containment still triggers the overlap rule.
	score, _ := scoreTitle("Gala", "Gala Fundraiser Evening at Grand Hotel Ballroom")
	if score != 0.9 {
		t.Fatalf("expected title score 0.9 from token overlap, got %f", score)
	}
}

func TestScoreTitleIdentical(t *testing.T) {
	t.Parallel()

	score, _ := scoreTitle("Trivia Night", "trivia  night")
	if score != 0.95 {
		t.Fatalf("expected identical titles to hit the substring rule at 0.95, got %f", score)
	}
}

func TestScoreTitleUnrelated(t *testing.T) {
	t.Parallel()

	score, reason := scoreTitle("Morning Yoga in the Park", "Late Night Comedy Showcase")
	if score > 0.5 {
		t.Fatalf("expected low score for unrelated titles, got %f", score)
	}
	if reason != "low title similarity" {
		t.Fatalf("unexpected reason: %q", reason)
	}
}

func TestScoreTimeBands(t *testing.T) {
	t.Parallel()

	if score, _ := scoreTime(strPtr("09:00:00"), strPtr("09:00:00")); score != 1 {
		t.Fatalf("expected exact time match to score 1, got %f", score)
	}
	if score, _ := scoreTime(strPtr("09:00:00"), strPtr("09:25:00")); score != 0.8 {
		t.Fatalf("expected 25 minute gap to score 0.8, got %f", score)
	}
	if score, _ := scoreTime(strPtr("09:00:00"), strPtr("10:00:00")); score != 0 {
		t.Fatalf("expected 60 minute gap to score 0, got %f", score)
	}
	if score, _ := scoreTime(nil, strPtr("09:00:00")); score != 0.5 {
		t.Fatalf("expected missing time to score neutral 0.5, got %f", score)
	}
	// Seconds are truncated: :30 seconds does not push the gap past 30 min.
	if score, _ := scoreTime(strPtr("09:00:30"), strPtr("09:30:00")); score != 0.8 {
		t.Fatalf("expected 30 minute gap to score 0.8, got %f", score)
	}
	// Malformed values count as missing.
	if score, _ := scoreTime(strPtr("soon"), strPtr("09:00:00")); score != 0.5 {
		t.Fatalf("expected malformed time to score neutral 0.5, got %f", score)
	}
}

func TestScoreVenue(t *testing.T) {
	t.Parallel()

	if score, _ := scoreVenue(nil, strPtr("The Armory")); score != 0.5 {
		t.Fatalf("expected missing venue to score neutral 0.5, got %f", score)
	}
	if score, _ := scoreVenue(strPtr("The Armory"), strPtr("Armory")); score != 1 {
		t.Fatalf("expected venue substring match to score 1, got %f", score)
	}
}

func TestScoreGeoBands(t *testing.T) {
	t.Parallel()

	base := testEvent("a:1", "x", "2025-10-04")
	base.Latitude = f64Ptr(40.7128)
	base.Longitude = f64Ptr(-74.0060)

	near := base
	near.Latitude = f64Ptr(40.71325) // ~50 m north

	far := base
	far.Latitude = f64Ptr(40.7308) // ~2 km north

	if score, _ := scoreGeo(base, near); score != 1 {
		t.Fatalf("expected venues ~50 m apart to score 1, got %f", score)
	}
	if score, _ := scoreGeo(base, far); score != 0 {
		t.Fatalf("expected venues ~2 km apart to score 0, got %f", score)
	}

	noCoords := testEvent("a:2", "x", "2025-10-04")
	if score, _ := scoreGeo(base, noCoords); score != 0.5 {
		t.Fatalf("expected missing coordinates to score neutral 0.5, got %f", score)
	}
}

func TestClassifyTitleGate(t *testing.T) {
	t.Parallel()

	// A strong aggregate cannot reach high or medium without title agreement.
	if got := Classify(0.9, 0.5); got != ConfidenceLow {
		t.Fatalf("expected low confidence when the title gate fails, got %s", got)
	}
	if got := Classify(0.86, 0.85); got != ConfidenceHigh {
		t.Fatalf("expected high confidence, got %s", got)
	}
	if got := Classify(0.75, 0.65); got != ConfidenceMedium {
		t.Fatalf("expected medium confidence, got %s", got)
	}
	if got := Classify(0.85, 0.8); got != ConfidenceHigh {
		t.Fatalf("expected boundary values to classify high, got %s", got)
	}
	if got := Classify(0.5, 1); got != ConfidenceLow {
		t.Fatalf("expected low confidence for weak total, got %s", got)
	}
}

func TestScoreMatchContractViolations(t *testing.T) {
	t.Parallel()

	valid := testEvent("a:1", "Fall Art Walk", "2025-10-04")

	missingID := testEvent("", "Fall Art Walk", "2025-10-04")
	if _, err := ScoreMatch(missingID, valid, nil); err == nil {
		t.Fatalf("expected error for event missing an identifier")
	}

	missingDate := testEvent("b:1", "Fall Art Walk", "")
	if _, err := ScoreMatch(valid, missingDate, nil); err == nil {
		t.Fatalf("expected error for event missing a calendar date")
	}
}

func TestWeightsValidate(t *testing.T) {
	t.Parallel()

	if err := DefaultWeights().Validate(); err != nil {
		t.Fatalf("default weights must validate: %v", err)
	}
	bad := Weights{Title: 0.5, Venue: 0.5, Time: 0.5, Geo: 0.5}
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected error for weights not summing to 1")
	}
	negative := Weights{Title: -0.5, Venue: 0.5, Time: 0.5, Geo: 0.5}
	if err := negative.Validate(); err == nil {
		t.Fatalf("expected error for negative weight")
	}
}

func TestScoreMatchFallArtWalk(t *testing.T) {
	t.Parallel()

	a := testEvent("cityweekly:101", "Fall Art Walk", "2025-10-04")
	a.StartTime = strPtr("18:00:00")
	a.Location = strPtr("Downtown Arts District")
	a.Latitude = f64Ptr(40.7128)
	a.Longitude = f64Ptr(-74.0060)

	b := testEvent("metrotix:900", "Fall Art Walk 2025 - Downtown", "2025-10-04")
	b.StartTime = strPtr("18:00:00")
	b.Location = strPtr("Downtown Arts District")
	b.Latitude = f64Ptr(40.71325)
	b.Longitude = f64Ptr(-74.0060)

	result, err := ScoreMatch(a, b, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Scores.Title != 0.95 {
		t.Fatalf("expected title score 0.95, got %f", result.Scores.Title)
	}
	if result.Scores.Venue != 1 || result.Scores.Time != 1 || result.Scores.Geo != 1 {
		t.Fatalf("expected perfect venue/time/geo, got %+v", result.Scores)
	}
	if !approx(result.Total, 0.975) {
		t.Fatalf("expected total 0.975, got %f", result.Total)
	}
	if result.Confidence != ConfidenceHigh {
		t.Fatalf("expected high confidence, got %s", result.Confidence)
	}
	if len(result.Reasons) != 4 {
		t.Fatalf("expected one reason per dimension, got %v", result.Reasons)
	}
}
