package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/pagenotes/internal/common"
	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Error string `json:"error"`
}

// statusFor maps the common error taxonomy to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrorValidation):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired):
		return http.StatusUnauthorized
	case errors.Is(err, common.ErrorForbidden):
		return http.StatusForbidden
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrorDuplicate):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// abort writes err as a JSON body and stops the handler chain. Internal
// errors are logged and not echoed to the client.
func (s *Server) abort(c *gin.Context, err error) {
	code := statusFor(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		s.logger.Error(c.Request.Context(), "request failed", "path", c.Request.URL.Path, "error", err)
		msg = common.ErrorInternal.Error()
	}
	c.AbortWithStatusJSON(code, errorResponse{Error: msg})
}
