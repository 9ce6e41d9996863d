// Package models defines server-side data models persisted in the database.
package models

import "time"

// Default permission thresholds on ReputationScore.
const (
	MinRatingReputation  = 15
	MinWritingReputation = 25
)

// Role is an external authorization role; it is never scored.
type Role int16

const (
	RoleUser Role = iota
	RoleAdmin
	RoleSuperadmin
)

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleSuperadmin:
		return "superadmin"
	default:
		return "user"
	}
}

// IsAdmin reports whether the role may use moderation endpoints.
func (r Role) IsAdmin() bool { return r == RoleAdmin || r == RoleSuperadmin }

// User is a rater and/or author. The three score fields are written only by
// the reputation, rating impact and karma recomputes.
type User struct {
	ID          string
	ExternalID  string
	Handle      string
	DisplayName string

	// Account signals from the identity provider; both may be unknown.
	FollowerCount    *int
	AccountCreatedAt *time.Time

	ReputationScore float64
	RatingImpact    float64
	Karma           float64

	Role      Role
	CreatedAt time.Time
}

// CanRate reports whether the user meets the given rating reputation gate.
func (u *User) CanRate(min float64) bool { return u.ReputationScore >= min }

// CanWrite reports whether the user meets the given note-writing gate.
func (u *User) CanWrite(min float64) bool { return u.ReputationScore >= min }
