package handlers

import (
	"errors"
	"net/http"

	"github.com/gametriol/InductionMainPage2k25/internal/models"
	"github.com/gametriol/InductionMainPage2k25/internal/services"
	apperrors "github.com/gametriol/InductionMainPage2k25/pkg/errors"
	"github.com/gin-gonic/gin"
)

// attachError attaches err to the gin context so the observability middleware
// can include the reason in the request log. c.Error() returns *gin.Error (not
// the error interface), so we suppress errcheck here intentionally.
func attachError(c *gin.Context, err error) {
	if err != nil {
		_ = c.Error(err) //nolint:errcheck
	}
}

// respondError sends an error JSON response and attaches the error to the gin context
func respondError(c *gin.Context, status int, message string, err error) {
	attachError(c, err)
	c.JSON(status, gin.H{"error": message})
}

// respondErrorWithDetails sends an error response with an additional details field.
func respondErrorWithDetails(c *gin.Context, status int, message string, details any, err error) {
	attachError(c, err)
	c.JSON(status, gin.H{"error": message, "details": details})
}

// respondSessionError answers a rejected intent with the session's current snapshot
func respondSessionError(c *gin.Context, snapshot models.Snapshot, err error) {
	status, message := sessionErrorStatus(err)
	attachError(c, err)
	c.JSON(status, models.SessionResponse{Session: &snapshot, Error: message})
}

func sessionErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrSubmissionInFlight),
		errors.Is(err, services.ErrAlreadySubmitted),
		errors.Is(err, services.ErrResetNotAllowed),
		errors.Is(err, services.ErrSignInInProgress),
		errors.Is(err, services.ErrAlreadySignedIn):
		return http.StatusConflict, err.Error()
	case errors.Is(err, services.ErrSignInRequired):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, services.ErrFieldLocked):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, services.ErrUnknownField),
		errors.Is(err, services.ErrSignInUnavailable):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, apperrors.ErrSignIn):
		return http.StatusUnauthorized, apperrors.UserMessage(err)
	case errors.Is(err, apperrors.ErrTimeout):
		return http.StatusGatewayTimeout, apperrors.UserMessage(err)
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}
