package scoring

import (
	"math"
	"time"

	"github.com/dmitrijs2005/pagenotes/internal/server/models"
)

// Component caps. They add up to MaxReputation.
const (
	MaxAgeBonus      = 20.0
	MaxFollowerBonus = 30.0
	MaxAccuracyBonus = 50.0
	MaxReputation    = MaxAgeBonus + MaxFollowerBonus + MaxAccuracyBonus

	agePointsPerYear     = 4.0
	followerPointsPerLog = 10.0
	hoursPerYear         = 24 * 365.2425
)

// Breakdown is a reputation score split into its components.
type Breakdown struct {
	Age      float64 `json:"age_bonus"`
	Follower float64 `json:"follower_bonus"`
	Accuracy float64 `json:"accuracy_bonus"`
	Total    float64 `json:"total"`
}

// AgeBonus grants four points per year of account age, capped at 20. An
// unknown creation time or one in the future yields zero.
func AgeBonus(createdAt *time.Time, now time.Time) float64 {
	if createdAt == nil {
		return 0
	}
	years := now.Sub(*createdAt).Hours() / hoursPerYear
	if years <= 0 {
		return 0
	}
	return math.Min(years*agePointsPerYear, MaxAgeBonus)
}

// FollowerBonus grants ten points per order of magnitude of followers,
// capped at 30.
func FollowerBonus(followers *int) float64 {
	if followers == nil || *followers <= 0 {
		return 0
	}
	return math.Min(math.Log10(float64(*followers))*followerPointsPerLog, MaxFollowerBonus)
}

// AccuracyBonus scores how often the user's yes/no ratings on decided notes
// matched the outcome. Somewhat ratings and pending notes are ignored.
func AccuracyBonus(decided []models.DecidedRating) float64 {
	var total, correct int
	for _, r := range decided {
		if !r.NoteStatus.Decided() {
			continue
		}
		switch r.Helpfulness {
		case models.HelpfulnessYes:
			total++
			if r.NoteStatus == models.StatusHelpful {
				correct++
			}
		case models.HelpfulnessNo:
			total++
			if r.NoteStatus == models.StatusNotHelpful {
				correct++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(correct) / float64(total) * MaxAccuracyBonus
}

// Reputation computes the user's score from account signals and decided
// ratings. The result lies in [0, 100] and is rounded to two decimals.
func Reputation(u *models.User, decided []models.DecidedRating, now time.Time) Breakdown {
	b := Breakdown{
		Age:      AgeBonus(u.AccountCreatedAt, now),
		Follower: FollowerBonus(u.FollowerCount),
		Accuracy: AccuracyBonus(decided),
	}
	total := b.Age + b.Follower + b.Accuracy
	b.Total = Round2(math.Max(0, math.Min(total, MaxReputation)))
	return b
}
