package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	activeSessions func() int
}

func NewHealthHandler(activeSessions func() int) *HealthHandler {
	return &HealthHandler{
		activeSessions: activeSessions,
	}
}

func (h *HealthHandler) Healthcheck(c *gin.Context) {
	c.Header("Cache-Control", "no-cache, no-store, max-age=0, must-revalidate")

	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"activeSessions": h.activeSessions(),
	})
}
