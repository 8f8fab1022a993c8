package services

import (
	"time"

	"github.com/gametriol/InductionMainPage2k25/config"
	"github.com/gametriol/InductionMainPage2k25/internal/cache"
	"github.com/gametriol/InductionMainPage2k25/internal/models"
	"github.com/gametriol/InductionMainPage2k25/internal/validation"
	apperrors "github.com/gametriol/InductionMainPage2k25/pkg/errors"
	"github.com/gametriol/InductionMainPage2k25/pkg/httpclient"
	"github.com/gametriol/InductionMainPage2k25/pkg/identity"
	"github.com/gametriol/InductionMainPage2k25/pkg/logger"
	"github.com/gametriol/InductionMainPage2k25/pkg/records"
	"github.com/gametriol/InductionMainPage2k25/pkg/upload"
	"go.uber.org/zap"
)

// FormService hands out form sessions and answers stateless form questions
type FormService struct {
	validator *validation.Validator
	sessions  *cache.SessionCache[*Orchestrator]
	uploader  UploadClient
	records   RecordClient
	gate      AuthGate
	opts      OrchestratorOptions
}

// NewFormService wires the collaborators shared by every session
func NewFormService(
	v *validation.Validator,
	uploader UploadClient,
	recordClient RecordClient,
	gate AuthGate,
	sessionTTL time.Duration,
	opts OrchestratorOptions,
) *FormService {
	return &FormService{
		validator: v,
		sessions:  cache.NewSessionCache[*Orchestrator](sessionTTL),
		uploader:  uploader,
		records:   recordClient,
		gate:      gate,
		opts:      opts,
	}
}

// NewFormServiceFromConfig picks the upload backend and the identity gate from configuration
func NewFormServiceFromConfig(cfg *config.Config, v *validation.Validator, httpClient httpclient.Client) *FormService {
	var uploader UploadClient
	switch cfg.Upload.Backend {
	case config.UploadBackendS3:
		uploader = upload.NewObjectStorageClient(upload.ObjectStorageSettings{
			AccessKeyID:     cfg.ObjectStorage.AccessKeyID,
			SecretAccessKey: cfg.ObjectStorage.SecretAccessKey,
			BucketName:      cfg.ObjectStorage.BucketName,
			Endpoint:        cfg.ObjectStorage.Endpoint,
			Region:          cfg.ObjectStorage.Region,
		})
	default:
		uploader = upload.NewMultipartClient(cfg.Upload.URL, cfg.Upload.Preset, httpClient)
	}

	var gate AuthGate
	if cfg.IdentityGateEnabled() {
		gate = identity.NewVerifier(cfg.Identity.SigningSecret, cfg.Identity.Issuer, cfg.Identity.Audience)
	}

	logger.Info("Form service configured",
		zap.String("upload_backend", cfg.Upload.Backend),
		zap.Bool("sign_in_required", gate != nil),
		zap.Duration("step_timeout", cfg.Submission.StepTimeout),
	)

	return NewFormService(v, uploader, records.NewClient(cfg.Records.APIBase, httpClient), gate,
		cfg.Submission.SessionTTL,
		OrchestratorOptions{
			StepTimeout:    cfg.Submission.StepTimeout,
			DefaultSociety: cfg.Submission.DefaultSociety,
		})
}

// Schema describes the form with the limits of the active rule table
func (s *FormService) Schema() models.FormSchema {
	fields := make([]models.FormField, 0, len(models.FormLayout))
	for _, f := range models.FormLayout {
		f.MaxLength = s.validator.MaxLength(f.Name)
		f.WordLimit = s.validator.WordLimit(f.Name)
		fields = append(fields, f)
	}

	return models.FormSchema{
		Fields:         fields,
		Image:          s.validator.ImageConstraints(),
		SignInRequired: s.gate != nil,
	}
}

// ValidateField checks a single value without touching any session
func (s *FormService) ValidateField(field, value string) (*models.ValidateFieldResponse, error) {
	f, ok := models.ParseField(field)
	if !ok || !f.IsText() {
		return nil, apperrors.InvalidInputError(field, ErrUnknownField.Error())
	}

	msg := s.validator.Validate(f, value)
	return &models.ValidateFieldResponse{Field: field, Valid: msg == "", Error: msg}, nil
}

// CreateSession starts a new form session
func (s *FormService) CreateSession() SessionInterface {
	_, o := s.sessions.Create(func(id string) *Orchestrator {
		return NewOrchestrator(id, s.validator, s.uploader, s.records, s.gate, s.opts)
	})
	logger.Debug("Form session created", zap.String("session_id", o.ID()))
	return o
}

// Session looks up a live session
func (s *FormService) Session(id string) (SessionInterface, error) {
	o, ok := s.sessions.Get(id)
	if !ok {
		return nil, apperrors.NotFoundError("session")
	}
	return o, nil
}

// EndSession drops an abandoned session. A session with a submission running is kept.
func (s *FormService) EndSession(id string) error {
	o, ok := s.sessions.Get(id)
	if !ok {
		return apperrors.NotFoundError("session")
	}
	if o.Snapshot().State.InFlight() {
		return ErrSubmissionInFlight
	}

	s.sessions.Delete(id)
	logger.Debug("Form session ended", zap.String("session_id", id))
	return nil
}

// ActiveSessions returns the number of sessions held in memory
func (s *FormService) ActiveSessions() int {
	return s.sessions.Count()
}
