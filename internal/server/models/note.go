package models

import (
	"fmt"
	"time"
)

// NoteStatus is the public trust status of a note. Values are persisted.
type NoteStatus int16

const (
	StatusPending NoteStatus = iota
	StatusHelpful
	StatusNotHelpful
)

func (s NoteStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusHelpful:
		return "helpful"
	case StatusNotHelpful:
		return "not_helpful"
	default:
		return fmt.Sprintf("NoteStatus(%d)", int16(s))
	}
}

// Decided reports whether consensus has been reached either way.
func (s NoteStatus) Decided() bool {
	return s == StatusHelpful || s == StatusNotHelpful
}

// MarshalText renders the status name in JSON payloads.
func (s NoteStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Tally holds the per-note counts derived from the rating ledger.
type Tally struct {
	Helpful    int `json:"helpful_count"`
	Somewhat   int `json:"somewhat_count"`
	NotHelpful int `json:"not_helpful_count"`
}

// Positive counts yes and somewhat ratings together.
func (t Tally) Positive() int { return t.Helpful + t.Somewhat }

// Negative counts no ratings.
func (t Tally) Negative() int { return t.NotHelpful }

// Total is the number of live ratings.
func (t Tally) Total() int { return t.Positive() + t.NotHelpful }

// Note is a piece of community context attached to a page.
type Note struct {
	ID           string
	AuthorID     string
	PageKey      string
	Body         string
	SelectedText string

	Tally
	Status       NoteStatus
	ReportsCount int

	EditedAt  *time.Time
	CreatedAt time.Time
}

// NoteVersion keeps the body a note had before an edit.
type NoteVersion struct {
	ID           int64
	NoteID       string
	PreviousBody string
	CreatedAt    time.Time
}

// NoteStats summarizes an author's notes for the profile page.
type NoteStats struct {
	Total      int `json:"total"`
	Helpful    int `json:"helpful"`
	NotHelpful int `json:"not_helpful"`
	Pending    int `json:"pending"`
	// Public counts notes still shown on read surfaces.
	Public int `json:"public"`
}
