package scoring

import "github.com/dmitrijs2005/pagenotes/internal/server/models"

const (
	// EarlyRank is the last insertion rank on a note that still counts as early.
	EarlyRank = 5

	consensusWeight = 0.7
	earlyWeight     = 1.5
)

// RatingImpact rewards participation in decided notes and early ratings on
// them. Early rank is per note, so a user can be early on one note and late
// on another.
func RatingImpact(decided []models.DecidedRating) float64 {
	notes := make(map[string]struct{}, len(decided))
	early := 0
	for _, r := range decided {
		if !r.NoteStatus.Decided() {
			continue
		}
		if _, seen := notes[r.NoteID]; seen {
			continue
		}
		notes[r.NoteID] = struct{}{}
		if r.Rank >= 1 && r.Rank <= EarlyRank {
			early++
		}
	}
	return Round2(float64(len(notes))*consensusWeight + float64(early)*earlyWeight)
}
