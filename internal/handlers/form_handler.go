package handlers

import (
	"net/http"

	"github.com/gametriol/InductionMainPage2k25/internal/models"
	"github.com/gametriol/InductionMainPage2k25/internal/services"
	"github.com/gin-gonic/gin"
)

// FormHandler serves the stateless form endpoints
type FormHandler struct {
	service services.FormServiceInterface
}

func NewFormHandler(service services.FormServiceInterface) *FormHandler {
	return &FormHandler{service: service}
}

// GetForm handles GET /api/v1/form
func (h *FormHandler) GetForm(c *gin.Context) {
	c.Header("Cache-Control", "public, max-age=300")
	c.JSON(http.StatusOK, h.service.Schema())
}

// ValidateField handles POST /api/v1/validate
func (h *FormHandler) ValidateField(c *gin.Context) {
	var req models.ValidateFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErrorWithDetails(c, http.StatusBadRequest, "Invalid request", ParseValidationErrors(err), err)
		return
	}

	resp, err := h.service.ValidateField(req.Field, req.Value)
	if err != nil {
		respondError(c, http.StatusBadRequest, "Unknown field", err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
