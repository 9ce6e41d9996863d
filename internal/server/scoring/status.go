// Package scoring holds the pure consensus and reputation rules. Nothing here
// touches storage; services load rows, call these functions and persist the
// results.
package scoring

import "github.com/dmitrijs2005/pagenotes/internal/server/models"

const (
	// MinVotes is how many positive (or negative) ratings a side needs
	// before it can decide a note.
	MinVotes = 3
	// RatioFactor is how many times larger the winning side must be.
	RatioFactor = 2
)

// NextStatus evaluates the transition rule on a fresh tally. A decided note
// never returns to pending, but it can swing directly between helpful and
// not_helpful when the opposite side later satisfies its rule.
func NextStatus(current models.NoteStatus, t models.Tally) models.NoteStatus {
	pos, neg := t.Positive(), t.Negative()
	switch {
	case pos >= MinVotes && pos > RatioFactor*neg:
		return models.StatusHelpful
	case neg >= MinVotes && neg > RatioFactor*pos:
		return models.StatusNotHelpful
	default:
		return current
	}
}
