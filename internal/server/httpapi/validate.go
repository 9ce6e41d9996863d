package httpapi

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/pagenotes/internal/common"
	"github.com/dmitrijs2005/pagenotes/internal/server/models"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("helpfulness", validateHelpfulness)
	_ = v.RegisterValidation("reportreason", validateReportReason)
	return v
}

func validateHelpfulness(fl validator.FieldLevel) bool {
	_, ok := models.ParseHelpfulness(fl.Field().String())
	return ok
}

func validateReportReason(fl validator.FieldLevel) bool {
	_, ok := models.ParseReportReason(fl.Field().String())
	return ok
}

type createNoteRequest struct {
	URL          string `json:"url" validate:"required,max=2048"`
	Body         string `json:"body" validate:"required,max=4000"`
	SelectedText string `json:"selected_text" validate:"required,max=4000"`
}

type editNoteRequest struct {
	Body string `json:"body" validate:"required,max=4000"`
}

type ratingRequest struct {
	Helpfulness string `json:"helpfulness" validate:"required,helpfulness"`
}

type reportRequest struct {
	Reason string `json:"reason" validate:"required,reportreason"`
}

type signInRequest struct {
	ExternalID       string     `json:"external_id" validate:"required,max=255"`
	Handle           string     `json:"handle" validate:"required,max=255"`
	DisplayName      string     `json:"display_name" validate:"max=255"`
	FollowerCount    *int       `json:"follower_count" validate:"omitempty,min=0"`
	AccountCreatedAt *time.Time `json:"account_created_at"`
}

type signalsRequest struct {
	FollowerCount    *int       `json:"follower_count" validate:"omitempty,min=0"`
	AccountCreatedAt *time.Time `json:"account_created_at"`
}

// bind decodes the JSON body into req and runs the struct validators.
func (s *Server) bind(c *gin.Context, req any) error {
	if err := c.ShouldBindJSON(req); err != nil {
		return fmt.Errorf("%w: %v", common.ErrorValidation, err)
	}
	if err := s.validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %v", common.ErrorValidation, err)
	}
	return nil
}
