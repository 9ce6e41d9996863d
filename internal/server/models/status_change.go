package models

import "time"

// TriggerRating labels transitions caused by a rating write.
const TriggerRating = "rating"

// TriggerRecompute labels transitions found by an explicit full recompute.
const TriggerRecompute = "recompute"

// NoteStatusChange is an immutable audit row written once per transition.
type NoteStatusChange struct {
	ID         int64
	NoteID     string
	FromStatus NoteStatus
	ToStatus   NoteStatus
	// Counts at the moment of the transition.
	Tally
	Trigger   string
	CreatedAt time.Time
}
