package sentiment

// Thresholds of the fixed scoring policy. Zero compound polarity counts as
// positive, and the negative cutoff sits at -0.05, leaving a neutral gap of
// (-0.05, 0). Both boundaries are intentional and pinned by tests.
const negativeCutoff = -0.05

// Scorer maps a message to a signed sentiment delta.
type Scorer struct {
	analyzer PolarityAnalyzer
}

// NewScorer returns a Scorer backed by the given analyzer.
func NewScorer(analyzer PolarityAnalyzer) *Scorer {
	return &Scorer{analyzer: analyzer}
}

// Score returns +1, 0, or -1 for a single message.
func (s *Scorer) Score(message string) int {
	v := s.analyzer.Polarity(message)
	switch {
	case v >= 0:
		return 1
	case v <= negativeCutoff:
		return -1
	default:
		return 0
	}
}
