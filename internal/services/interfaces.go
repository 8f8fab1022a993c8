package services

import (
	"context"

	"github.com/gametriol/InductionMainPage2k25/internal/models"
)

// FormServiceInterface defines the interface for form and session lookup operations
type FormServiceInterface interface {
	Schema() models.FormSchema
	ValidateField(field, value string) (*models.ValidateFieldResponse, error)
	CreateSession() SessionInterface
	Session(id string) (SessionInterface, error)
	EndSession(id string) error
}

// SessionInterface defines the intents a view can dispatch to one form session
type SessionInterface interface {
	ID() string
	Snapshot() models.Snapshot
	SetField(field models.Field, value string) (models.Snapshot, error)
	SetImage(file *models.ImageFile) (models.Snapshot, error)
	ClearImage() (models.Snapshot, error)
	SignIn(ctx context.Context, credential string) (models.Snapshot, error)
	Submit(ctx context.Context) (models.Snapshot, error)
	Reset() (models.Snapshot, error)
}

// Ensure services implement their interfaces
var _ FormServiceInterface = (*FormService)(nil)
var _ SessionInterface = (*Orchestrator)(nil)
