package models

import (
	"fmt"
	"strings"
	"time"
)

// Helpfulness is a rater's vote. Values are persisted.
type Helpfulness int16

const (
	HelpfulnessYes Helpfulness = iota
	HelpfulnessSomewhat
	HelpfulnessNo
)

func (h Helpfulness) String() string {
	switch h {
	case HelpfulnessYes:
		return "yes"
	case HelpfulnessSomewhat:
		return "somewhat"
	case HelpfulnessNo:
		return "no"
	default:
		return fmt.Sprintf("Helpfulness(%d)", int16(h))
	}
}

// Valid reports whether h is one of the three enumerated values.
func (h Helpfulness) Valid() bool {
	return h == HelpfulnessYes || h == HelpfulnessSomewhat || h == HelpfulnessNo
}

// MarshalText renders the helpfulness name in JSON payloads.
func (h Helpfulness) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// ParseHelpfulness maps "yes", "somewhat" and "no" to their values.
func ParseHelpfulness(s string) (Helpfulness, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes":
		return HelpfulnessYes, true
	case "somewhat":
		return HelpfulnessSomewhat, true
	case "no":
		return HelpfulnessNo, true
	default:
		return 0, false
	}
}

// Rating is the single vote of a user on a note. ID grows with insertion
// order and is what "early rater" ranks by.
type Rating struct {
	ID          int64
	UserID      string
	NoteID      string
	Helpfulness Helpfulness
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// UserRating is one of a user's ratings joined with the note it was cast on.
type UserRating struct {
	Rating
	NoteBody     string
	NoteAuthorID string
	NoteStatus   NoteStatus
}

// DecidedRating is one of a user's ratings on a decided note, together with
// the note's status and the rating's 1-based insertion rank on that note.
type DecidedRating struct {
	NoteID      string
	Helpfulness Helpfulness
	NoteStatus  NoteStatus
	Rank        int
}
