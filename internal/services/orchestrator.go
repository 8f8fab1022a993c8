package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gametriol/InductionMainPage2k25/internal/models"
	"github.com/gametriol/InductionMainPage2k25/internal/validation"
	apperrors "github.com/gametriol/InductionMainPage2k25/pkg/errors"
	"github.com/gametriol/InductionMainPage2k25/pkg/logger"
	"github.com/gametriol/InductionMainPage2k25/pkg/metrics"
	"github.com/gametriol/InductionMainPage2k25/pkg/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Intent rejections. They leave the session untouched.
var (
	ErrSubmissionInFlight = errors.New("a submission is already in progress")
	ErrAlreadySubmitted   = errors.New("application already submitted, reset to start a new one")
	ErrSignInRequired     = errors.New("sign in before filling the form")
	ErrSignInUnavailable  = errors.New("sign-in is not enabled")
	ErrSignInInProgress   = errors.New("sign-in is already in progress")
	ErrAlreadySignedIn    = errors.New("already signed in")
	ErrFieldLocked        = errors.New("field is set by sign-in and cannot be edited")
	ErrUnknownField       = errors.New("unknown field")
	ErrResetNotAllowed    = errors.New("cannot reset while a submission is in progress")
)

// DefaultStepTimeout bounds each network step when no timeout is configured
const DefaultStepTimeout = 30 * time.Second

// UploadClient stores an image and returns its public URL
type UploadClient interface {
	Upload(ctx context.Context, image *models.ImageFile) (string, error)
}

// RecordClient creates the application record
type RecordClient interface {
	Create(ctx context.Context, payload models.ApplicationPayload) error
}

// AuthGate confirms the applicant's identity
type AuthGate interface {
	SignIn(ctx context.Context, credential string) (*models.AuthSession, error)
}

// TransitionHook observes every state change. It runs with the session lock
// held and must not call back into the orchestrator.
type TransitionHook func(sessionID string, from, to models.SubmissionState)

// OrchestratorOptions tunes an orchestrator; zero values use defaults
type OrchestratorOptions struct {
	StepTimeout    time.Duration
	DefaultSociety string
	OnTransition   TransitionHook
}

// Orchestrator owns one form session: the draft, its errors and the submit
// pipeline. All methods are safe for concurrent use; the lock is never held
// across a network call.
type Orchestrator struct {
	id        string
	validator *validation.Validator
	uploader  UploadClient
	records   RecordClient
	gate      AuthGate

	stepTimeout    time.Duration
	defaultSociety string
	onTransition   TransitionHook

	mu          sync.Mutex
	draft       models.ApplicationDraft
	errors      models.FieldErrorMap
	state       models.SubmissionState
	failure     string
	auth        *models.AuthSession
	signingIn   bool
	uploadedURL string
	uploadedFor string // fingerprint of the image uploadedURL belongs to
}

// NewOrchestrator creates the session state owner. A nil gate disables sign-in.
func NewOrchestrator(
	id string,
	v *validation.Validator,
	uploader UploadClient,
	records RecordClient,
	gate AuthGate,
	opts OrchestratorOptions,
) *Orchestrator {
	if opts.StepTimeout <= 0 {
		opts.StepTimeout = DefaultStepTimeout
	}

	o := &Orchestrator{
		id:             id,
		validator:      v,
		uploader:       uploader,
		records:        records,
		gate:           gate,
		stepTimeout:    opts.StepTimeout,
		defaultSociety: opts.DefaultSociety,
		onTransition:   opts.OnTransition,
		errors:         models.FieldErrorMap{},
		state:          models.StateIdle,
	}
	o.draft = o.freshDraft()
	return o
}

// ID returns the session id
func (o *Orchestrator) ID() string {
	return o.id
}

// Snapshot returns a read-only copy of the session
func (o *Orchestrator) Snapshot() models.Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

// SetField edits one text field and clears its cached error
func (o *Orchestrator) SetField(field models.Field, value string) (models.Snapshot, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !field.IsText() {
		return o.snapshotLocked(), ErrUnknownField
	}
	if err := o.editableLocked(); err != nil {
		return o.snapshotLocked(), err
	}
	if field == models.FieldEmail && o.auth != nil {
		return o.snapshotLocked(), ErrFieldLocked
	}

	o.draft.SetText(field, value)
	delete(o.errors, field)
	return o.snapshotLocked(), nil
}

// SetImage selects the profile picture. The file rule is checked right away;
// an image that differs from the last uploaded one forgets that upload.
func (o *Orchestrator) SetImage(file *models.ImageFile) (models.Snapshot, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.editableLocked(); err != nil {
		return o.snapshotLocked(), err
	}

	o.draft.ImageFile = file
	if file == nil || file.Fingerprint() != o.uploadedFor {
		o.uploadedURL = ""
		o.uploadedFor = ""
	}

	delete(o.errors, models.FieldImageFile)
	if msg := o.validator.ValidateImage(file); msg != "" {
		o.errors[models.FieldImageFile] = msg
	}
	return o.snapshotLocked(), nil
}

// ClearImage removes the selected image
func (o *Orchestrator) ClearImage() (models.Snapshot, error) {
	return o.SetImage(nil)
}

// SignIn runs the identity check once. On success the email field is
// overwritten with the confirmed address and locked.
func (o *Orchestrator) SignIn(ctx context.Context, credential string) (models.Snapshot, error) {
	o.mu.Lock()
	switch {
	case o.gate == nil:
		defer o.mu.Unlock()
		return o.snapshotLocked(), ErrSignInUnavailable
	case o.auth != nil:
		defer o.mu.Unlock()
		return o.snapshotLocked(), ErrAlreadySignedIn
	case o.signingIn:
		defer o.mu.Unlock()
		return o.snapshotLocked(), ErrSignInInProgress
	}
	o.signingIn = true
	o.mu.Unlock()

	var session *models.AuthSession
	err := o.runStep(ctx, "Sign-in", "submission.sign_in", func(stepCtx context.Context) error {
		var err error
		session, err = o.gate.SignIn(stepCtx, credential)
		if err == nil && session == nil {
			err = apperrors.SignInError("identity provider returned no session", nil)
		}
		return err
	})

	o.mu.Lock()
	defer o.mu.Unlock()
	o.signingIn = false

	if err != nil {
		logger.Warn("Sign-in rejected", zap.String("session_id", o.id), zap.Error(err))
		return o.snapshotLocked(), err
	}

	o.auth = session
	o.draft.Email = session.Email
	delete(o.errors, models.FieldEmail)

	logger.Info("Applicant signed in", zap.String("session_id", o.id))
	return o.snapshotLocked(), nil
}

// Submit runs validation, the optional image upload and record creation.
// A submit while one is running, or after success, is rejected without side effects.
func (o *Orchestrator) Submit(ctx context.Context) (models.Snapshot, error) {
	o.mu.Lock()
	if err := o.gateLocked(); err != nil {
		defer o.mu.Unlock()
		return o.snapshotLocked(), err
	}
	if !o.state.AcceptsSubmit() {
		defer o.mu.Unlock()
		metrics.Submissions.WithLabelValues("ignored").Inc()
		if o.state == models.StateSucceeded {
			return o.snapshotLocked(), ErrAlreadySubmitted
		}
		return o.snapshotLocked(), ErrSubmissionInFlight
	}

	o.transitionLocked(models.StateValidating)
	o.failure = ""

	errs := o.validator.ValidateAll(&o.draft)
	if len(errs) > 0 {
		defer o.mu.Unlock()
		o.errors = errs
		o.transitionLocked(models.StateIdle)
		metrics.Submissions.WithLabelValues("invalid").Inc()
		logger.Debug("Submission rejected by validation",
			zap.String("session_id", o.id),
			zap.Int("error_count", len(errs)),
		)
		return o.snapshotLocked(), nil
	}
	o.errors = models.FieldErrorMap{}

	// Edits are rejected while in flight, so this copy stays current
	draft := o.draft
	image := draft.ImageFile
	fingerprint := image.Fingerprint()
	imageURL := ""
	if image != nil && o.uploadedFor == fingerprint && o.uploadedURL != "" {
		imageURL = o.uploadedURL
	}

	if image != nil && imageURL == "" {
		o.transitionLocked(models.StateUploadingImage)
		o.mu.Unlock()

		err := o.runStep(ctx, "Image upload", "submission.upload_image", func(stepCtx context.Context) error {
			var err error
			imageURL, err = o.uploader.Upload(stepCtx, image)
			return err
		})

		o.mu.Lock()
		if err != nil {
			defer o.mu.Unlock()
			o.failLocked("upload_image", err)
			return o.snapshotLocked(), nil
		}
		o.uploadedURL = imageURL
		o.uploadedFor = fingerprint
	} else if imageURL != "" {
		logger.Debug("Reusing uploaded image", zap.String("session_id", o.id))
	}

	o.transitionLocked(models.StateCreatingRecord)
	o.mu.Unlock()

	payload := models.NewApplicationPayload(draft, imageURL)
	err := o.runStep(ctx, "Application submission", "submission.create_record", func(stepCtx context.Context) error {
		return o.records.Create(stepCtx, payload)
	})

	o.mu.Lock()
	defer o.mu.Unlock()
	if err != nil {
		o.failLocked("create_record", err)
		return o.snapshotLocked(), nil
	}

	o.transitionLocked(models.StateSucceeded)
	metrics.Submissions.WithLabelValues("succeeded").Inc()
	logger.Info("Application submitted",
		zap.String("session_id", o.id),
		zap.Bool("with_image", imageURL != ""),
	)
	return o.snapshotLocked(), nil
}

// Reset starts a new draft. A signed-in identity survives and keeps the email locked.
func (o *Orchestrator) Reset() (models.Snapshot, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state.InFlight() {
		return o.snapshotLocked(), ErrResetNotAllowed
	}
	if err := o.gateLocked(); err != nil {
		return o.snapshotLocked(), err
	}

	o.draft = o.freshDraft()
	if o.auth != nil {
		o.draft.Email = o.auth.Email
	}
	o.errors = models.FieldErrorMap{}
	o.failure = ""
	o.uploadedURL = ""
	o.uploadedFor = ""
	if o.state != models.StateIdle {
		o.transitionLocked(models.StateIdle)
	}
	return o.snapshotLocked(), nil
}

// runStep bounds one network call by the step timeout, independent of the
// caller's cancellation. A missed deadline is reported as a timeout.
func (o *Orchestrator) runStep(ctx context.Context, step, spanName string, fn func(context.Context) error) error {
	stepCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.stepTimeout)
	defer cancel()

	stepCtx, span := tracing.StartSpan(stepCtx, spanName, attribute.String("session.id", o.id))
	err := fn(stepCtx)
	if err != nil && !errors.Is(err, apperrors.ErrConfiguration) {
		if ctxErr := apperrors.FromContext(stepCtx, step, o.stepTimeout); ctxErr != nil {
			err = ctxErr
		}
	}
	tracing.EndSpan(span, err)
	return err
}

func (o *Orchestrator) failLocked(step string, err error) {
	o.failure = apperrors.UserMessage(err)
	o.transitionLocked(models.StateFailed)
	metrics.Submissions.WithLabelValues("failed").Inc()
	logger.Error("Submission step failed",
		zap.String("session_id", o.id),
		zap.String("step", step),
		zap.Error(err),
	)
}

func (o *Orchestrator) transitionLocked(to models.SubmissionState) {
	from := o.state
	o.state = to
	metrics.StateTransitions.WithLabelValues(string(from), string(to)).Inc()
	if o.onTransition != nil {
		o.onTransition(o.id, from, to)
	}
}

func (o *Orchestrator) gateLocked() error {
	if o.gate != nil && o.auth == nil {
		return ErrSignInRequired
	}
	return nil
}

func (o *Orchestrator) editableLocked() error {
	if err := o.gateLocked(); err != nil {
		return err
	}
	if o.state.InFlight() {
		return ErrSubmissionInFlight
	}
	if o.state == models.StateSucceeded {
		return ErrAlreadySubmitted
	}
	return nil
}

func (o *Orchestrator) freshDraft() models.ApplicationDraft {
	return models.ApplicationDraft{Society: o.defaultSociety}
}

func (o *Orchestrator) snapshotLocked() models.Snapshot {
	draft := o.draft
	draft.ImageFile = nil

	errs := make(models.FieldErrorMap, len(o.errors))
	for f, msg := range o.errors {
		errs[f] = msg
	}

	counts := map[models.Field]models.WordCount{}
	for _, f := range o.validator.WordLimitedFields() {
		counts[f] = models.WordCount{
			Count: validation.CountWords(o.draft.Text(f)),
			Limit: o.validator.WordLimit(f),
		}
	}

	locked := []models.Field{}
	var auth *models.AuthSession
	if o.auth != nil {
		copied := *o.auth
		auth = &copied
		locked = append(locked, models.FieldEmail)
	}

	return models.Snapshot{
		SessionID:        o.id,
		State:            o.state,
		FailureReason:    o.failure,
		Draft:            draft,
		Image:            o.draft.ImageFile.Summary(),
		Errors:           errs,
		WordCounts:       counts,
		Auth:             auth,
		SignInRequired:   o.gate != nil && o.auth == nil,
		LockedFields:     locked,
		UploadedImageURL: o.uploadedURL,
	}
}
