package sentiment

import "testing"

type fixedAnalyzer struct {
	v float64
}

func (a fixedAnalyzer) Polarity(string) float64 {
	return a.v
}

func TestScorerPolicyBoundaries(t *testing.T) {
	cases := []struct {
		name string
		v    float64
		want int
	}{
		{"clearly positive", 0.8, 1},
		{"exactly zero counts as positive", 0.0, 1},
		{"inside neutral gap", -0.03, 0},
		{"just above negative cutoff", -0.049, 0},
		{"exactly at negative cutoff", -0.05, -1},
		{"clearly negative", -0.9, -1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			scorer := NewScorer(fixedAnalyzer{v: tc.v})
			if got := scorer.Score("whatever"); got != tc.want {
				t.Fatalf("Score with polarity %v = %d, want %d", tc.v, got, tc.want)
			}
		})
	}
}

func TestVADERAnalyzerReturnsBoundedPolarity(t *testing.T) {
	analyzer := NewVADERAnalyzer()
	for _, text := range []string{"I love this place", "I hate you", "the door"} {
		v := analyzer.Polarity(text)
		if v < -1 || v > 1 {
			t.Fatalf("Polarity(%q) = %v, want value in [-1, 1]", text, v)
		}
	}
}
