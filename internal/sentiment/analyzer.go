// Package sentiment classifies user messages into signed sentiment deltas.
package sentiment

import "github.com/jonreiter/govader"

// PolarityAnalyzer produces a compound polarity in [-1, 1] for a message.
type PolarityAnalyzer interface {
	Polarity(text string) float64
}

// VADERAnalyzer is the lexicon-based default analyzer.
type VADERAnalyzer struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

// NewVADERAnalyzer returns a VADERAnalyzer.
func NewVADERAnalyzer() *VADERAnalyzer {
	return &VADERAnalyzer{analyzer: govader.NewSentimentIntensityAnalyzer()}
}

// Polarity returns the compound polarity score for text.
func (a *VADERAnalyzer) Polarity(text string) float64 {
	return a.analyzer.PolarityScores(text).Compound
}
