package httpapi

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/pagenotes/internal/common"
	"github.com/dmitrijs2005/pagenotes/internal/server/models"
	"github.com/dmitrijs2005/pagenotes/internal/server/services"
	"github.com/gin-gonic/gin"
)

func (s *Server) createNote(c *gin.Context) {
	var req createNoteRequest
	if err := s.bind(c, &req); err != nil {
		s.abort(c, err)
		return
	}

	note, err := s.notes.Create(c.Request.Context(), currentUserID(c), req.URL, req.Body, req.SelectedText)
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, toNote(note))
}

func (s *Server) listNotes(c *gin.Context) {
	views, err := s.notes.ListForPage(c.Request.Context(), currentUserID(c), c.Query("url"))
	if err != nil {
		s.abort(c, err)
		return
	}

	out := make([]noteResponse, 0, len(views))
	for _, v := range views {
		out = append(out, toNoteView(v))
	}
	c.JSON(http.StatusOK, gin.H{"notes": out})
}

func (s *Server) editNote(c *gin.Context) {
	var req editNoteRequest
	if err := s.bind(c, &req); err != nil {
		s.abort(c, err)
		return
	}

	note, err := s.notes.Edit(c.Request.Context(), currentUserID(c), c.Param("id"), req.Body)
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, toNote(note))
}

func (s *Server) deleteNote(c *gin.Context) {
	if err := s.notes.Delete(c.Request.Context(), currentUserID(c), c.Param("id")); err != nil {
		s.abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) noteVersions(c *gin.Context) {
	versions, err := s.notes.Versions(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.abort(c, err)
		return
	}

	out := make([]versionResponse, 0, len(versions))
	for _, v := range versions {
		out = append(out, versionResponse{PreviousBody: v.PreviousBody, CreatedAt: v.CreatedAt})
	}
	c.JSON(http.StatusOK, gin.H{"versions": out})
}

func (s *Server) noteTransparency(c *gin.Context) {
	note, view, err := s.notes.Transparency(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"note_id": note.ID, "status": note.Status, "transparency": view})
}

func (s *Server) noteHistory(c *gin.Context) {
	changes, err := s.notes.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.abort(c, err)
		return
	}

	out := make([]changeResponse, 0, len(changes))
	for _, ch := range changes {
		out = append(out, toChange(ch))
	}
	c.JSON(http.StatusOK, gin.H{"history": out})
}

func (s *Server) submitRating(c *gin.Context) {
	var req ratingRequest
	if err := s.bind(c, &req); err != nil {
		s.abort(c, err)
		return
	}
	h, _ := models.ParseHelpfulness(req.Helpfulness)

	res, err := s.ratings.SubmitRating(c.Request.Context(), currentUserID(c), c.Param("id"), h)
	if err != nil {
		s.abort(c, err)
		return
	}

	code := http.StatusOK
	if res.Created {
		code = http.StatusCreated
	}
	c.JSON(code, toRatingResult(res))
}

func (s *Server) deleteRating(c *gin.Context) {
	res, err := s.ratings.DeleteRating(c.Request.Context(), currentUserID(c), c.Param("id"))
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, toRatingResult(res))
}

func (s *Server) reportNote(c *gin.Context) {
	var req reportRequest
	if err := s.bind(c, &req); err != nil {
		s.abort(c, err)
		return
	}
	reason, _ := models.ParseReportReason(req.Reason)

	report, err := s.moderation.Report(c.Request.Context(), currentUserID(c), c.Param("id"), reason)
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, toReport(report))
}

func (s *Server) me(c *gin.Context) {
	s.writeProfile(c, currentUserID(c))
}

func (s *Server) myNotes(c *gin.Context) {
	list, err := s.users.OwnNotes(c.Request.Context(), currentUserID(c))
	if err != nil {
		s.abort(c, err)
		return
	}

	out := make([]noteResponse, 0, len(list))
	for _, n := range list {
		out = append(out, toNote(n))
	}
	c.JSON(http.StatusOK, gin.H{"notes": out})
}

func (s *Server) myRatings(c *gin.Context) {
	list, err := s.users.OwnRatings(c.Request.Context(), currentUserID(c))
	if err != nil {
		s.abort(c, err)
		return
	}

	out := make([]userRatingResponse, 0, len(list))
	for _, r := range list {
		out = append(out, toUserRating(r))
	}
	c.JSON(http.StatusOK, gin.H{"ratings": out})
}

func (s *Server) userProfile(c *gin.Context) {
	s.writeProfile(c, c.Param("id"))
}

func (s *Server) writeProfile(c *gin.Context, userID string) {
	p, err := s.users.Profile(c.Request.Context(), userID)
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, toProfile(p))
}

func (s *Server) signIn(c *gin.Context) {
	var req signInRequest
	if err := s.bind(c, &req); err != nil {
		s.abort(c, err)
		return
	}

	res, err := s.users.SignIn(c.Request.Context(), services.Identity{
		ExternalID:       req.ExternalID,
		Handle:           req.Handle,
		DisplayName:      req.DisplayName,
		FollowerCount:    req.FollowerCount,
		AccountCreatedAt: req.AccountCreatedAt,
	})
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, signInResponse{User: toUser(res.User), AccessToken: res.AccessToken})
}

func (s *Server) updateSignals(c *gin.Context) {
	var req signalsRequest
	if err := s.bind(c, &req); err != nil {
		s.abort(c, err)
		return
	}

	u, err := s.users.UpdateAccountSignals(c.Request.Context(), c.Param("id"), req.FollowerCount, req.AccountCreatedAt)
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, toUser(u))
}

func (s *Server) listReports(c *gin.Context) {
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.abort(c, fmt.Errorf("%w: limit must be a positive integer", common.ErrorValidation))
			return
		}
		limit = n
	}

	reports, err := s.moderation.ListReports(c.Request.Context(), limit)
	if err != nil {
		s.abort(c, err)
		return
	}

	out := make([]reportResponse, 0, len(reports))
	for _, r := range reports {
		out = append(out, toReport(r))
	}
	c.JSON(http.StatusOK, gin.H{"reports": out})
}

func (s *Server) dismissReports(c *gin.Context) {
	if err := s.moderation.Dismiss(c.Request.Context(), c.Param("id")); err != nil {
		s.abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) removeNote(c *gin.Context) {
	if err := s.moderation.Remove(c.Request.Context(), c.Param("id")); err != nil {
		s.abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) recomputeNote(c *gin.Context) {
	res, err := s.ratings.Recompute(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.abort(c, err)
		return
	}

	out := gin.H{"note": toNote(res.Note)}
	if res.Transition != nil {
		out["transition"] = toChange(res.Transition)
	}
	c.JSON(http.StatusOK, out)
}
