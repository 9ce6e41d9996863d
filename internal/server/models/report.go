package models

import (
	"strings"
	"time"
)

// ReportReason classifies a moderation report.
type ReportReason int16

const (
	ReasonSpam ReportReason = iota
	ReasonHarassment
	ReasonMisleading
	ReasonOther
)

var reasonNames = [...]string{"spam", "harassment", "misleading", "other"}

func (r ReportReason) String() string {
	if r < 0 || int(r) >= len(reasonNames) {
		return "unknown"
	}
	return reasonNames[r]
}

// MarshalText renders the reason name in JSON payloads.
func (r ReportReason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// ParseReportReason maps a reason name to its value.
func ParseReportReason(s string) (ReportReason, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range reasonNames {
		if name == s {
			return ReportReason(i), true
		}
	}
	return 0, false
}

// HiddenReportsThreshold is the report count at which a note leaves public
// read surfaces.
const HiddenReportsThreshold = 3

// Report is one user's moderation flag on a note.
type Report struct {
	ID        string
	UserID    string
	NoteID    string
	Reason    ReportReason
	CreatedAt time.Time
}
