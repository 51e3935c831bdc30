package match

// Edge is a stored match edge between two events from different sources.
// Member order is fixed by the pipeline convention: the first identifier
// always names the secondary (excluded on display) event, the second the
// primary (retained) one. At most one edge exists per unordered pair.
type Edge struct {
	SecondaryEventID string
	PrimaryEventID   string
	Score            float64
	Confidence       Confidence
	Reasons          []string
	MatchType        string
}

// EdgeFromResult converts a finder result into its stored-edge form. The
// finder's A side is the secondary source by pipeline convention.
func EdgeFromResult(r Result) Edge {
	return Edge{
		SecondaryEventID: r.AEventID,
		PrimaryEventID:   r.BEventID,
		Score:            r.Total,
		Confidence:       r.Confidence,
		Reasons:          r.Reasons,
		MatchType:        MatchTypeAuto,
	}
}
