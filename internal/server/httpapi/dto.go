package httpapi

import (
	"time"

	"github.com/dmitrijs2005/pagenotes/internal/server/models"
	"github.com/dmitrijs2005/pagenotes/internal/server/scoring"
	"github.com/dmitrijs2005/pagenotes/internal/server/services"
)

type noteResponse struct {
	ID           string            `json:"id"`
	AuthorID     string            `json:"author_id"`
	URL          string            `json:"url"`
	Body         string            `json:"body"`
	SelectedText string            `json:"selected_text"`
	Status       models.NoteStatus `json:"status"`
	models.Tally
	ReportsCount int        `json:"reports_count"`
	EditedAt     *time.Time `json:"edited_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`

	Transparency *scoring.TransparencyView `json:"transparency,omitempty"`
	ViewerRating *models.Helpfulness       `json:"viewer_rating,omitempty"`
	EditClosesAt *time.Time                `json:"edit_closes_at,omitempty"`
}

func toNote(n *models.Note) noteResponse {
	return noteResponse{
		ID:           n.ID,
		AuthorID:     n.AuthorID,
		URL:          n.PageKey,
		Body:         n.Body,
		SelectedText: n.SelectedText,
		Status:       n.Status,
		Tally:        n.Tally,
		ReportsCount: n.ReportsCount,
		EditedAt:     n.EditedAt,
		CreatedAt:    n.CreatedAt,
	}
}

func toNoteView(v *services.NoteView) noteResponse {
	out := toNote(v.Note)
	view := v.Transparency
	closes := v.EditClosesAt
	out.Transparency = &view
	out.ViewerRating = v.ViewerRating
	out.EditClosesAt = &closes
	return out
}

type ratingResponse struct {
	Created      bool                     `json:"created"`
	Helpfulness  *models.Helpfulness      `json:"helpfulness,omitempty"`
	Note         noteResponse             `json:"note"`
	Transparency scoring.TransparencyView `json:"transparency"`
	Transition   *changeResponse          `json:"transition,omitempty"`
}

func toRatingResult(r *services.RatingResult) ratingResponse {
	out := ratingResponse{
		Created:      r.Created,
		Note:         toNote(r.Note),
		Transparency: r.Transparency,
	}
	if r.Rating != nil {
		h := r.Rating.Helpfulness
		out.Helpfulness = &h
	}
	if r.Transition != nil {
		ch := toChange(r.Transition)
		out.Transition = &ch
	}
	return out
}

type userRatingResponse struct {
	NoteID       string             `json:"note_id"`
	NoteBody     string             `json:"note_body"`
	NoteAuthorID string             `json:"note_author_id"`
	NoteStatus   models.NoteStatus  `json:"note_status"`
	Helpfulness  models.Helpfulness `json:"helpfulness"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

func toUserRating(r *models.UserRating) userRatingResponse {
	return userRatingResponse{
		NoteID:       r.NoteID,
		NoteBody:     r.NoteBody,
		NoteAuthorID: r.NoteAuthorID,
		NoteStatus:   r.NoteStatus,
		Helpfulness:  r.Helpfulness,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

type changeResponse struct {
	From      models.NoteStatus `json:"from"`
	To        models.NoteStatus `json:"to"`
	Trigger   string            `json:"trigger"`
	Tally     models.Tally      `json:"tally"`
	CreatedAt time.Time         `json:"created_at"`
}

func toChange(c *models.NoteStatusChange) changeResponse {
	return changeResponse{
		From:      c.FromStatus,
		To:        c.ToStatus,
		Trigger:   c.Trigger,
		Tally:     c.Tally,
		CreatedAt: c.CreatedAt,
	}
}

type versionResponse struct {
	PreviousBody string    `json:"previous_body"`
	CreatedAt    time.Time `json:"created_at"`
}

type reportResponse struct {
	ID        string              `json:"id"`
	UserID    string              `json:"user_id"`
	NoteID    string              `json:"note_id"`
	Reason    models.ReportReason `json:"reason"`
	CreatedAt time.Time           `json:"created_at"`
}

func toReport(r *models.Report) reportResponse {
	return reportResponse{
		ID:        r.ID,
		UserID:    r.UserID,
		NoteID:    r.NoteID,
		Reason:    r.Reason,
		CreatedAt: r.CreatedAt,
	}
}

type userResponse struct {
	ID              string  `json:"id"`
	Handle          string  `json:"handle"`
	DisplayName     string  `json:"display_name"`
	ReputationScore float64 `json:"reputation_score"`
	RatingImpact    float64 `json:"rating_impact"`
	Karma           float64 `json:"karma"`
	Role            string  `json:"role"`
}

func toUser(u *models.User) userResponse {
	return userResponse{
		ID:              u.ID,
		Handle:          u.Handle,
		DisplayName:     u.DisplayName,
		ReputationScore: u.ReputationScore,
		RatingImpact:    u.RatingImpact,
		Karma:           u.Karma,
		Role:            u.Role.String(),
	}
}

type profileResponse struct {
	User         userResponse      `json:"user"`
	CanRate      bool              `json:"can_rate"`
	CanWrite     bool              `json:"can_write"`
	Notes        *models.NoteStats `json:"notes"`
	RatingsCount int               `json:"ratings_count"`
	Reputation   scoring.Breakdown `json:"reputation"`
}

func toProfile(p *services.Profile) profileResponse {
	return profileResponse{
		User:         toUser(p.User),
		CanRate:      p.CanRate,
		CanWrite:     p.CanWrite,
		Notes:        p.Stats,
		RatingsCount: p.RatingsCount,
		Reputation:   p.Reputation,
	}
}

type signInResponse struct {
	User        userResponse `json:"user"`
	AccessToken string       `json:"access_token"`
}
