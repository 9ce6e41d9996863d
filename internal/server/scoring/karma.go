package scoring

import "github.com/dmitrijs2005/pagenotes/internal/server/models"

const somewhatWeight = 0.5

// NoteKarma is a single note's contribution to its author's karma.
func NoteKarma(t models.Tally) float64 {
	return float64(t.Helpful) + float64(t.Somewhat)*somewhatWeight - float64(t.NotHelpful)
}

// Karma sums the contributions of every authored note. It may be negative.
func Karma(tallies []models.Tally) float64 {
	var sum float64
	for _, t := range tallies {
		sum += NoteKarma(t)
	}
	return Round2(sum)
}
