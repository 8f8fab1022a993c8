package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gametriol/InductionMainPage2k25/internal/middleware"
	"github.com/gametriol/InductionMainPage2k25/internal/models"
	"github.com/gametriol/InductionMainPage2k25/internal/services"
	"github.com/gametriol/InductionMainPage2k25/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	imageFormField = "file"

	submittedMessage = "Application Submitted! Thank you for your interest in joining Flux. " +
		"We'll review your application and get back to you soon."
	fixErrorsMessage = "Please fix the highlighted fields"
)

// SessionHandler dispatches view intents to form sessions
type SessionHandler struct {
	service services.FormServiceInterface
}

func NewSessionHandler(service services.FormServiceInterface) *SessionHandler {
	return &SessionHandler{service: service}
}

// Create handles POST /api/v1/sessions
func (h *SessionHandler) Create(c *gin.Context) {
	session := h.service.CreateSession()
	snapshot := session.Snapshot()
	c.JSON(http.StatusCreated, models.SessionResponse{Session: &snapshot})
}

// Get handles GET /api/v1/sessions/:id
func (h *SessionHandler) Get(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	snapshot := session.Snapshot()
	c.JSON(http.StatusOK, models.SessionResponse{Session: &snapshot})
}

// Abandon handles DELETE /api/v1/sessions/:id
func (h *SessionHandler) Abandon(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	if err := h.service.EndSession(session.ID()); err != nil {
		respondSessionError(c, session.Snapshot(), err)
		return
	}

	c.Status(http.StatusNoContent)
}

// UpdateField handles PATCH /api/v1/sessions/:id/fields
func (h *SessionHandler) UpdateField(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var req models.UpdateFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErrorWithDetails(c, http.StatusBadRequest, "Invalid request", ParseValidationErrors(err), err)
		return
	}

	field, known := models.ParseField(req.Field)
	if !known || !field.IsText() {
		snapshot := session.Snapshot()
		respondSessionError(c, snapshot, services.ErrUnknownField)
		return
	}

	h.respondPlain(c, func() (models.Snapshot, error) {
		return session.SetField(field, req.Value)
	})
}

// SetImage handles PUT /api/v1/sessions/:id/image
func (h *SessionHandler) SetImage(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	header, err := c.FormFile(imageFormField)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondError(c, http.StatusRequestEntityTooLarge, "Image too large", err)
			return
		}
		respondError(c, http.StatusBadRequest, "Missing image file", err)
		return
	}

	file, err := header.Open()
	if err != nil {
		respondError(c, http.StatusBadRequest, "Could not read image file", err)
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(c, http.StatusBadRequest, "Could not read image file", err)
		return
	}

	image := models.NewImageFile(header.Filename, header.Header.Get("Content-Type"), data)
	snapshot, err := session.SetImage(image)
	if err != nil {
		respondSessionError(c, snapshot, err)
		return
	}

	logger.Debug("Image selected",
		zap.String("session_id", session.ID()),
		zap.String("content_type", image.ContentType),
		zap.Int64("size", image.Size))

	c.JSON(http.StatusOK, models.SessionResponse{Session: &snapshot})
}

// ClearImage handles DELETE /api/v1/sessions/:id/image
func (h *SessionHandler) ClearImage(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	h.respondPlain(c, session.ClearImage)
}

// SignIn handles POST /api/v1/sessions/:id/sign-in
func (h *SessionHandler) SignIn(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var req models.SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErrorWithDetails(c, http.StatusBadRequest, "Invalid request", ParseValidationErrors(err), err)
		return
	}

	snapshot, err := session.SignIn(c.Request.Context(), req.IDToken)
	if err != nil {
		respondSessionError(c, snapshot, err)
		return
	}

	c.JSON(http.StatusOK, models.SessionResponse{Session: &snapshot})
}

// Submit handles POST /api/v1/sessions/:id/submit
func (h *SessionHandler) Submit(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	snapshot, err := session.Submit(c.Request.Context())
	if err != nil {
		respondSessionError(c, snapshot, err)
		return
	}

	switch snapshot.State {
	case models.StateSucceeded:
		c.JSON(http.StatusOK, models.SessionResponse{Session: &snapshot, Message: submittedMessage})
	case models.StateFailed:
		c.JSON(http.StatusBadGateway, models.SessionResponse{Session: &snapshot, Error: snapshot.FailureReason})
	default:
		c.JSON(http.StatusUnprocessableEntity, models.SessionResponse{Session: &snapshot, Error: fixErrorsMessage})
	}
}

// Reset handles POST /api/v1/sessions/:id/reset
func (h *SessionHandler) Reset(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	h.respondPlain(c, session.Reset)
}

func (h *SessionHandler) session(c *gin.Context) (services.SessionInterface, bool) {
	session, err := middleware.GetFormSession(c)
	if err != nil {
		respondError(c, http.StatusNotFound, "Session not found or expired", err)
		return nil, false
	}
	return session, true
}

func (h *SessionHandler) respondPlain(c *gin.Context, intent func() (models.Snapshot, error)) {
	snapshot, err := intent()
	if err != nil {
		respondSessionError(c, snapshot, err)
		return
	}
	c.JSON(http.StatusOK, models.SessionResponse{Session: &snapshot})
}
