package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gametriol/InductionMainPage2k25/internal/services"
	"github.com/gin-gonic/gin"
)

const (
	// SessionIDParam is the route parameter carrying the form session id
	SessionIDParam = "id"

	// FormSessionContextKey is the key used to store the session in context
	FormSessionContextKey = "form_session"
)

var (
	ErrSessionNotFound = errors.New("session not found in context")
	ErrInvalidSession  = errors.New("invalid session type")
)

// FormSessionMiddleware resolves the :id route parameter to a live form session
func FormSessionMiddleware(forms services.FormServiceInterface) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param(SessionIDParam)

		session, err := forms.Session(id)
		if err != nil {
			_ = c.Error(fmt.Errorf("form session %q: %w", id, err)) //nolint:errcheck
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found or expired"})
			c.Abort()
			return
		}

		c.Set(FormSessionContextKey, session)
		c.Next()
	}
}

// GetFormSession extracts the session from context
func GetFormSession(c *gin.Context) (services.SessionInterface, error) {
	val, exists := c.Get(FormSessionContextKey)
	if !exists {
		return nil, ErrSessionNotFound
	}

	session, ok := val.(services.SessionInterface)
	if !ok {
		return nil, ErrInvalidSession
	}

	return session, nil
}
