// Package match scores candidate duplicate pairs across two calendar sources
// and finds all pairs above a caller-supplied threshold. Scoring is pure:
// no I/O, no clock, no storage.
package match

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"horse.fit/citycal/internal/event"
	"horse.fit/citycal/internal/geo"
	"horse.fit/citycal/internal/textnorm"
)

// Confidence is the coarse reliability tier of a match result.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// MatchTypeAuto marks pipeline-generated matches; manual overrides would use
// a different type.
const MatchTypeAuto = "auto"

// Weights are the per-dimension contributions to the total score. They must
// sum to 1.
type Weights struct {
	Title float64
	Venue float64
	Time  float64
	Geo   float64
}

// DefaultWeights returns the production weighting. Title dominates because it
// is the only signal every source publishes.
func DefaultWeights() Weights {
	return Weights{Title: 0.5, Venue: 0.25, Time: 0.15, Geo: 0.10}
}

// Validate rejects negative weights and weight sets that do not sum to 1.
func (w Weights) Validate() error {
	if w.Title < 0 || w.Venue < 0 || w.Time < 0 || w.Geo < 0 {
		return fmt.Errorf("match weights must not be negative")
	}
	sum := w.Title + w.Venue + w.Time + w.Geo
	if math.Abs(sum-1) > 1e-9 {
		return fmt.Errorf("match weights must sum to 1.0, got %.4f", sum)
	}
	return nil
}

// DimensionScores holds the per-dimension similarity scores, each in [0,1].
type DimensionScores struct {
	Title float64
	Venue float64
	Time  float64
	Geo   float64
}

// Result is one scored pair. AEventID belongs to the first collection passed
// to FindMatches (the secondary source by pipeline convention) and BEventID
// to the second (the primary).
type Result struct {
	AEventID   string
	BEventID   string
	Scores     DimensionScores
	Total      float64
	Confidence Confidence
	Reasons    []string
}

// titleComparison carries everything the title rules look at, computed once.
type titleComparison struct {
	substring   bool
	lengthRatio float64
	overlap     float64
	similarity  float64
}

// titleRule is one (predicate, outcome) entry of the ordered title table.
// The first rule whose applies function returns true wins.
type titleRule struct {
	applies func(titleComparison) bool
	outcome func(titleComparison) (float64, string)
}

var titleRules = []titleRule{
	{
		applies: func(c titleComparison) bool { return c.substring && c.lengthRatio > 0.4 },
		outcome: func(c titleComparison) (float64, string) {
			return 0.95, fmt.Sprintf("title substring match (length ratio %s)", formatScore(c.lengthRatio))
		},
	},
	{
		applies: func(c titleComparison) bool { return c.overlap > 0.8 },
		outcome: func(c titleComparison) (float64, string) {
			return 0.9, fmt.Sprintf("high title token overlap (%s)", formatScore(c.overlap))
		},
	},
	{
		applies: func(c titleComparison) bool { return c.similarity > 0.85 },
		outcome: func(c titleComparison) (float64, string) {
			return c.similarity, fmt.Sprintf("high title string similarity (%s)", formatScore(c.similarity))
		},
	},
	{
		applies: func(c titleComparison) bool { return c.overlap > 0.6 },
		outcome: func(c titleComparison) (float64, string) {
			return c.overlap * 0.85, fmt.Sprintf("partial title token overlap (%s)", formatScore(c.overlap))
		},
	},
	{
		applies: func(titleComparison) bool { return true },
		outcome: func(c titleComparison) (float64, string) {
			return math.Max(c.similarity, c.overlap*0.7), "low title similarity"
		},
	},
}

// confidenceRule is one (predicate, tier) entry of the ordered confidence
// table. The title score gates the tier: a high aggregate score alone cannot
// classify as high or medium without adequate title agreement.
type confidenceRule struct {
	tier    Confidence
	applies func(total, title float64) bool
}

var confidenceRules = []confidenceRule{
	{ConfidenceHigh, func(total, title float64) bool { return total >= 0.85 && title >= 0.8 }},
	{ConfidenceMedium, func(total, title float64) bool { return total >= 0.70 && title >= 0.6 }},
	{ConfidenceLow, func(total, title float64) bool { return true }},
}

// Classify maps a total score and title score onto a confidence tier.
func Classify(total, title float64) Confidence {
	for _, rule := range confidenceRules {
		if rule.applies(total, title) {
			return rule.tier
		}
	}
	return ConfidenceLow
}

// ScoreMatch scores one candidate pair from two different sources. A nil
// weights pointer selects DefaultWeights. Events missing an identifier or a
// calendar date are contract violations and return an error; missing optional
// attributes score the neutral 0.5 on their dimension.
func ScoreMatch(a, b event.Event, weights *Weights) (Result, error) {
	if err := a.Validate(); err != nil {
		return Result{}, fmt.Errorf("score match: %w", err)
	}
	if err := b.Validate(); err != nil {
		return Result{}, fmt.Errorf("score match: %w", err)
	}

	w := DefaultWeights()
	if weights != nil {
		w = *weights
	}
	if err := w.Validate(); err != nil {
		return Result{}, fmt.Errorf("score match: %w", err)
	}

	titleScore, titleReason := scoreTitle(a.Title, b.Title)
	venueScore, venueReason := scoreVenue(a.Location, b.Location)
	timeScore, timeReason := scoreTime(a.StartTime, b.StartTime)
	geoScore, geoReason := scoreGeo(a, b)

	total := clamp01(w.Title*titleScore + w.Venue*venueScore + w.Time*timeScore + w.Geo*geoScore)

	return Result{
		AEventID: a.ID,
		BEventID: b.ID,
		Scores: DimensionScores{
			Title: titleScore,
			Venue: venueScore,
			Time:  timeScore,
			Geo:   geoScore,
		},
		Total:      total,
		Confidence: Classify(total, titleScore),
		Reasons:    []string{titleReason, venueReason, timeReason, geoReason},
	}, nil
}

func scoreTitle(a, b string) (float64, string) {
	comparison := compareTitles(a, b)
	for _, rule := range titleRules {
		if rule.applies(comparison) {
			return rule.outcome(comparison)
		}
	}
	return 0, "low title similarity"
}

func compareTitles(a, b string) titleComparison {
	left := textnorm.Normalize(a)
	right := textnorm.Normalize(b)

	c := titleComparison{
		substring:  textnorm.ContainsSubstring(left, right),
		overlap:    textnorm.TokenOverlap(left, right),
		similarity: textnorm.Similarity(left, right),
	}
	if c.substring {
		shorter := len([]rune(left))
		longer := len([]rune(right))
		if shorter > longer {
			shorter, longer = longer, shorter
		}
		if longer > 0 {
			c.lengthRatio = float64(shorter) / float64(longer)
		}
	}
	return c
}

func scoreVenue(a, b *string) (float64, string) {
	left := optionalText(a)
	right := optionalText(b)
	if left == "" || right == "" {
		return 0.5, "venue missing on at least one side (neutral)"
	}

	if textnorm.ContainsSubstring(left, right) {
		return 1, "venue substring match"
	}
	if overlap := textnorm.TokenOverlap(left, right); overlap > 0.5 {
		return overlap, fmt.Sprintf("venue token overlap (%s)", formatScore(overlap))
	}
	similarity := textnorm.Similarity(left, right)
	return similarity, fmt.Sprintf("venue string similarity (%s)", formatScore(similarity))
}

func scoreTime(a, b *string) (float64, string) {
	left, leftOK := parseMinutesOfDay(optionalText(a))
	right, rightOK := parseMinutesOfDay(optionalText(b))
	if !leftOK || !rightOK {
		return 0.5, "start time missing on at least one side (neutral)"
	}

	diff := left - right
	if diff < 0 {
		diff = -diff
	}
	switch {
	case diff == 0:
		return 1, "exact start time match"
	case diff <= 30:
		return 0.8, fmt.Sprintf("start times within 30 minutes (%d min apart)", diff)
	default:
		return 0, fmt.Sprintf("start times %d minutes apart", diff)
	}
}

func scoreGeo(a, b event.Event) (float64, string) {
	if !a.HasCoordinates() || !b.HasCoordinates() {
		return 0.5, "coordinates missing on at least one side (neutral)"
	}

	distance := geo.DistanceMeters(*a.Latitude, *a.Longitude, *b.Latitude, *b.Longitude)
	switch {
	case distance < 100:
		return 1, fmt.Sprintf("venues %.0f m apart", distance)
	case distance < 500:
		return 0.8, fmt.Sprintf("venues %.0f m apart", distance)
	case distance < 1000:
		return 0.5, fmt.Sprintf("venues %.0f m apart", distance)
	default:
		return 0, fmt.Sprintf("venues %.0f m apart", distance)
	}
}

// parseMinutesOfDay converts "HH:MM:SS" or "HH:MM" to minutes since midnight,
// truncating seconds. Blank or malformed values report false and are treated
// as missing by the caller.
func parseMinutesOfDay(value string) (int, bool) {
	if value == "" {
		return 0, false
	}
	parts := strings.Split(value, ":")
	if len(parts) < 2 {
		return 0, false
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil || hours < 0 || hours > 23 {
		return 0, false
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil || minutes < 0 || minutes > 59 {
		return 0, false
	}
	return hours*60 + minutes, true
}

func optionalText(value *string) string {
	if value == nil {
		return ""
	}
	return strings.TrimSpace(*value)
}

func formatScore(value float64) string {
	return strconv.FormatFloat(value, 'f', 2, 64)
}

func clamp01(value float64) float64 {
	switch {
	case value < 0:
		return 0
	case value > 1:
		return 1
	default:
		return value
	}
}
