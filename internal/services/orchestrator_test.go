package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gametriol/InductionMainPage2k25/internal/models"
	"github.com/gametriol/InductionMainPage2k25/internal/services"
	apperrors "github.com/gametriol/InductionMainPage2k25/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newOrchestrator(uploader services.UploadClient, recordClient services.RecordClient, gate services.AuthGate, log *transitionLog) *services.Orchestrator {
	opts := services.OrchestratorOptions{StepTimeout: 2 * time.Second, DefaultSociety: "Flux"}
	if log != nil {
		opts.OnTransition = log.hook
	}
	return services.NewOrchestrator("session-1", testValidator, uploader, recordClient, gate, opts)
}

func TestOrchestrator_NewSessionIsIdle(t *testing.T) {
	o := newOrchestrator(new(MockUploadClient), new(MockRecordClient), nil, nil)

	snap := o.Snapshot()

	assert.Equal(t, "session-1", snap.SessionID)
	assert.Equal(t, models.StateIdle, snap.State)
	assert.Equal(t, "Flux", snap.Draft.Society)
	assert.Empty(t, snap.Draft.Name)
	assert.Empty(t, snap.Errors)
	assert.Nil(t, snap.Image)
	assert.False(t, snap.SignInRequired)
	assert.Equal(t, models.WordCount{Count: 0, Limit: 200}, snap.WordCounts[models.FieldWhyJoin])
}

func TestOrchestrator_Submit_WithoutImage(t *testing.T) {
	uploader := new(MockUploadClient)
	recordClient := new(MockRecordClient)
	log := &transitionLog{}
	o := newOrchestrator(uploader, recordClient, nil, log)
	fillValid(o)

	recordClient.On("Create", mock.Anything, mock.MatchedBy(func(p models.ApplicationPayload) bool {
		return p.RollNo == "2300123456" && p.Society == "Flux" && p.ImageURL == ""
	})).Return(nil).Once()

	snap, err := o.Submit(context.Background())

	require.NoError(t, err)
	assert.Equal(t, models.StateSucceeded, snap.State)
	assert.Empty(t, snap.FailureReason)
	assert.Equal(t, []models.SubmissionState{
		models.StateIdle, models.StateValidating, models.StateCreatingRecord, models.StateSucceeded,
	}, log.sequence())
	uploader.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
	recordClient.AssertExpectations(t)
}

func TestOrchestrator_Submit_WithImage(t *testing.T) {
	uploader := new(MockUploadClient)
	recordClient := new(MockRecordClient)
	log := &transitionLog{}
	o := newOrchestrator(uploader, recordClient, nil, log)
	fillValid(o)
	image := pngImage("me.png", 1024)
	_, err := o.SetImage(image)
	require.NoError(t, err)

	uploader.On("Upload", mock.Anything, image).Return("https://cdn.example.com/me.png", nil).Once()
	recordClient.On("Create", mock.Anything, mock.MatchedBy(func(p models.ApplicationPayload) bool {
		return p.ImageURL == "https://cdn.example.com/me.png"
	})).Return(nil).Once()

	snap, err := o.Submit(context.Background())

	require.NoError(t, err)
	assert.Equal(t, models.StateSucceeded, snap.State)
	assert.Equal(t, "https://cdn.example.com/me.png", snap.UploadedImageURL)
	assert.Equal(t, []models.SubmissionState{
		models.StateIdle, models.StateValidating, models.StateUploadingImage, models.StateCreatingRecord, models.StateSucceeded,
	}, log.sequence())
	uploader.AssertExpectations(t)
	recordClient.AssertExpectations(t)
}

func TestOrchestrator_Submit_ValidationErrorsStayLocal(t *testing.T) {
	uploader := new(MockUploadClient)
	recordClient := new(MockRecordClient)
	log := &transitionLog{}
	o := newOrchestrator(uploader, recordClient, nil, log)
	fillValid(o, models.FieldRollNo)
	_, _ = o.SetField(models.FieldRollNo, "123")

	snap, err := o.Submit(context.Background())

	require.NoError(t, err)
	assert.Equal(t, models.StateIdle, snap.State)
	require.Len(t, snap.Errors, 1)
	assert.Equal(t, "Roll number must be exactly 10 characters", snap.Errors[models.FieldRollNo])
	assert.Equal(t, []models.SubmissionState{models.StateIdle, models.StateValidating, models.StateIdle}, log.sequence())
	uploader.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
	recordClient.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestOrchestrator_Submit_OversizedImageNeverLeavesTheService(t *testing.T) {
	uploader := new(MockUploadClient)
	recordClient := new(MockRecordClient)
	o := newOrchestrator(uploader, recordClient, nil, nil)
	fillValid(o)

	snap, err := o.SetImage(pngImage("big.png", 2*1024*1024))
	require.NoError(t, err)
	assert.Equal(t, "Image size must be less than 1MB", snap.Errors[models.FieldImageFile])

	snap, err = o.Submit(context.Background())

	require.NoError(t, err)
	assert.Equal(t, models.StateIdle, snap.State)
	assert.Equal(t, "Image size must be less than 1MB", snap.Errors[models.FieldImageFile])
	uploader.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
	recordClient.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestOrchestrator_Submit_UploadFailureSkipsRecord(t *testing.T) {
	uploader := new(MockUploadClient)
	recordClient := new(MockRecordClient)
	o := newOrchestrator(uploader, recordClient, nil, nil)
	fillValid(o)
	_, _ = o.SetImage(pngImage("me.png", 10))

	uploader.On("Upload", mock.Anything, mock.Anything).
		Return("", apperrors.TransportError("Image upload failed: 500 boom", nil)).Once()

	snap, err := o.Submit(context.Background())

	require.NoError(t, err)
	assert.Equal(t, models.StateFailed, snap.State)
	assert.Equal(t, "Submission failed: Image upload failed: 500 boom", snap.FailureReason)
	assert.Empty(t, snap.UploadedImageURL)
	assert.Equal(t, "Asha Verma", snap.Draft.Name)
	recordClient.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestOrchestrator_Submit_MissingUploadConfiguration(t *testing.T) {
	uploader := new(MockUploadClient)
	recordClient := new(MockRecordClient)
	o := newOrchestrator(uploader, recordClient, nil, nil)
	fillValid(o)
	_, _ = o.SetImage(pngImage("me.png", 10))

	uploader.On("Upload", mock.Anything, mock.Anything).
		Return("", apperrors.ConfigurationError("UPLOAD_URL", "Image upload")).Once()

	snap, err := o.Submit(context.Background())

	require.NoError(t, err)
	assert.Equal(t, models.StateFailed, snap.State)
	assert.Equal(t, "Submission failed: Image upload not configured. Set UPLOAD_URL", snap.FailureReason)
}

func TestOrchestrator_Submit_RetryAfterRecordFailureReusesUpload(t *testing.T) {
	uploader := new(MockUploadClient)
	recordClient := new(MockRecordClient)
	log := &transitionLog{}
	o := newOrchestrator(uploader, recordClient, nil, log)
	fillValid(o)
	_, _ = o.SetImage(pngImage("me.png", 10))

	uploader.On("Upload", mock.Anything, mock.Anything).Return("https://cdn.example.com/me.png", nil).Once()
	recordClient.On("Create", mock.Anything, mock.Anything).
		Return(apperrors.TransportError("Server responded with 500: oops", nil)).Once()
	recordClient.On("Create", mock.Anything, mock.MatchedBy(func(p models.ApplicationPayload) bool {
		return p.ImageURL == "https://cdn.example.com/me.png"
	})).Return(nil).Once()

	snap, err := o.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.StateFailed, snap.State)
	assert.Equal(t, "Submission failed: Server responded with 500: oops", snap.FailureReason)
	assert.Equal(t, "https://cdn.example.com/me.png", snap.UploadedImageURL)

	snap, err = o.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.StateSucceeded, snap.State)
	assert.Empty(t, snap.FailureReason)

	uploader.AssertNumberOfCalls(t, "Upload", 1)
	recordClient.AssertNumberOfCalls(t, "Create", 2)
	assert.Equal(t, []models.SubmissionState{
		models.StateIdle, models.StateValidating, models.StateUploadingImage, models.StateCreatingRecord, models.StateFailed,
		models.StateValidating, models.StateCreatingRecord, models.StateSucceeded,
	}, log.sequence())
}

func TestOrchestrator_ChangingImageForgetsUpload(t *testing.T) {
	uploader := new(MockUploadClient)
	recordClient := new(MockRecordClient)
	o := newOrchestrator(uploader, recordClient, nil, nil)
	fillValid(o)
	first := pngImage("first.png", 10)
	second := pngImage("second.png", 20)
	_, _ = o.SetImage(first)

	uploader.On("Upload", mock.Anything, first).Return("https://cdn.example.com/first.png", nil).Once()
	uploader.On("Upload", mock.Anything, second).Return("https://cdn.example.com/second.png", nil).Once()
	recordClient.On("Create", mock.Anything, mock.Anything).
		Return(apperrors.TransportError("Server responded with 503: busy", nil)).Once()
	recordClient.On("Create", mock.Anything, mock.MatchedBy(func(p models.ApplicationPayload) bool {
		return p.ImageURL == "https://cdn.example.com/second.png"
	})).Return(nil).Once()

	snap, _ := o.Submit(context.Background())
	require.Equal(t, models.StateFailed, snap.State)

	snap, err := o.SetImage(second)
	require.NoError(t, err)
	assert.Empty(t, snap.UploadedImageURL)

	snap, err = o.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.StateSucceeded, snap.State)
	uploader.AssertExpectations(t)
	recordClient.AssertExpectations(t)
}

func TestOrchestrator_ClearingImageDropsImageURL(t *testing.T) {
	uploader := new(MockUploadClient)
	recordClient := new(MockRecordClient)
	o := newOrchestrator(uploader, recordClient, nil, nil)
	fillValid(o)
	_, _ = o.SetImage(pngImage("me.png", 10))

	uploader.On("Upload", mock.Anything, mock.Anything).Return("https://cdn.example.com/me.png", nil).Once()
	recordClient.On("Create", mock.Anything, mock.Anything).
		Return(apperrors.TransportError("Server responded with 500: oops", nil)).Once()
	recordClient.On("Create", mock.Anything, mock.MatchedBy(func(p models.ApplicationPayload) bool {
		return p.ImageURL == ""
	})).Return(nil).Once()

	_, _ = o.Submit(context.Background())
	snap, err := o.ClearImage()
	require.NoError(t, err)
	assert.Nil(t, snap.Image)

	snap, err = o.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.StateSucceeded, snap.State)
	uploader.AssertNumberOfCalls(t, "Upload", 1)
	recordClient.AssertExpectations(t)
}

func TestOrchestrator_ConcurrentSubmitIsIgnored(t *testing.T) {
	recordClient := newBlockingRecordClient()
	o := newOrchestrator(new(MockUploadClient), recordClient, nil, nil)
	fillValid(o)

	done := make(chan models.Snapshot, 1)
	go func() {
		snap, _ := o.Submit(context.Background())
		done <- snap
	}()
	<-recordClient.entered

	snap, err := o.Submit(context.Background())
	assert.ErrorIs(t, err, services.ErrSubmissionInFlight)
	assert.Equal(t, models.StateCreatingRecord, snap.State)

	_, err = o.SetField(models.FieldName, "Someone Else")
	assert.ErrorIs(t, err, services.ErrSubmissionInFlight)

	_, err = o.SetImage(pngImage("late.png", 10))
	assert.ErrorIs(t, err, services.ErrSubmissionInFlight)

	_, err = o.Reset()
	assert.ErrorIs(t, err, services.ErrResetNotAllowed)

	close(recordClient.release)
	final := <-done

	assert.Equal(t, models.StateSucceeded, final.State)
	assert.Equal(t, "Asha Verma", final.Draft.Name)
	assert.Equal(t, 1, recordClient.calls)
}

func TestOrchestrator_SubmitDuringUploadIsIgnored(t *testing.T) {
	uploader := newBlockingUploadClient("https://cdn.example.com/me.png")
	recordClient := new(MockRecordClient)
	o := newOrchestrator(uploader, recordClient, nil, nil)
	fillValid(o)
	_, err := o.SetImage(pngImage("me.png", 10))
	require.NoError(t, err)

	recordClient.On("Create", mock.Anything, mock.MatchedBy(func(p models.ApplicationPayload) bool {
		return p.ImageURL == "https://cdn.example.com/me.png"
	})).Return(nil).Once()

	done := make(chan models.Snapshot, 1)
	go func() {
		snap, _ := o.Submit(context.Background())
		done <- snap
	}()
	<-uploader.entered

	snap, err := o.Submit(context.Background())
	assert.ErrorIs(t, err, services.ErrSubmissionInFlight)
	assert.Equal(t, models.StateUploadingImage, snap.State)

	close(uploader.release)
	final := <-done

	assert.Equal(t, models.StateSucceeded, final.State)
	assert.Equal(t, 1, uploader.calls)
	recordClient.AssertNumberOfCalls(t, "Create", 1)
}

func TestOrchestrator_StepTimeout(t *testing.T) {
	recordClient := newBlockingRecordClient()
	o := services.NewOrchestrator("session-1", testValidator, new(MockUploadClient), recordClient, nil,
		services.OrchestratorOptions{StepTimeout: 50 * time.Millisecond})
	fillValid(o)

	snap, err := o.Submit(context.Background())

	require.NoError(t, err)
	assert.Equal(t, models.StateFailed, snap.State)
	assert.Equal(t, "Submission failed: Application submission timed out after 50ms. Please try again", snap.FailureReason)
}

func TestOrchestrator_CallerCancellationDoesNotAbortStep(t *testing.T) {
	recordClient := new(MockRecordClient)
	o := newOrchestrator(new(MockUploadClient), recordClient, nil, nil)
	fillValid(o)

	recordClient.On("Create", mock.MatchedBy(func(ctx context.Context) bool {
		_, hasDeadline := ctx.Deadline()
		return ctx.Err() == nil && hasDeadline
	}), mock.Anything).Return(nil).Once()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	snap, err := o.Submit(ctx)

	require.NoError(t, err)
	assert.Equal(t, models.StateSucceeded, snap.State)
	recordClient.AssertExpectations(t)
}

func TestOrchestrator_SucceededOffersOnlyReset(t *testing.T) {
	recordClient := new(MockRecordClient)
	recordClient.On("Create", mock.Anything, mock.Anything).Return(nil).Once()
	log := &transitionLog{}
	o := newOrchestrator(new(MockUploadClient), recordClient, nil, log)
	fillValid(o)

	_, err := o.Submit(context.Background())
	require.NoError(t, err)

	_, err = o.Submit(context.Background())
	assert.ErrorIs(t, err, services.ErrAlreadySubmitted)
	_, err = o.SetField(models.FieldName, "Changed")
	assert.ErrorIs(t, err, services.ErrAlreadySubmitted)
	_, err = o.SetImage(pngImage("me.png", 10))
	assert.ErrorIs(t, err, services.ErrAlreadySubmitted)

	snap, err := o.Reset()
	require.NoError(t, err)
	assert.Equal(t, models.StateIdle, snap.State)
	assert.Equal(t, models.ApplicationDraft{Society: "Flux"}, snap.Draft)
	assert.Empty(t, snap.Errors)
	assert.Equal(t, models.StateIdle, log.sequence()[len(log.sequence())-1])
	recordClient.AssertNumberOfCalls(t, "Create", 1)
}

func TestOrchestrator_SetField(t *testing.T) {
	o := newOrchestrator(new(MockUploadClient), new(MockRecordClient), nil, nil)

	_, err := o.SetField("nickname", "x")
	assert.ErrorIs(t, err, services.ErrUnknownField)
	_, err = o.SetField(models.FieldImageFile, "x")
	assert.ErrorIs(t, err, services.ErrUnknownField)

	snap, _ := o.Submit(context.Background())
	require.Contains(t, snap.Errors, models.FieldName)
	require.Contains(t, snap.Errors, models.FieldRollNo)

	snap, err = o.SetField(models.FieldName, "Asha")
	require.NoError(t, err)
	assert.NotContains(t, snap.Errors, models.FieldName)
	assert.Contains(t, snap.Errors, models.FieldRollNo)

	snap, _ = o.SetField(models.FieldWhyJoin, "three whole words")
	assert.Equal(t, models.WordCount{Count: 3, Limit: 200}, snap.WordCounts[models.FieldWhyJoin])
}

func TestOrchestrator_SignInGate(t *testing.T) {
	gate := new(MockAuthGate)
	recordClient := new(MockRecordClient)
	o := newOrchestrator(new(MockUploadClient), recordClient, gate, nil)

	snap := o.Snapshot()
	assert.True(t, snap.SignInRequired)

	_, err := o.SetField(models.FieldName, "Asha")
	assert.ErrorIs(t, err, services.ErrSignInRequired)
	_, err = o.SetImage(pngImage("me.png", 10))
	assert.ErrorIs(t, err, services.ErrSignInRequired)
	_, err = o.Submit(context.Background())
	assert.ErrorIs(t, err, services.ErrSignInRequired)
	recordClient.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)

	gate.On("SignIn", mock.Anything, "id-token").
		Return(&models.AuthSession{Email: "confirmed@example.com", DisplayName: "Asha"}, nil).Once()

	snap, err = o.SignIn(context.Background(), "id-token")
	require.NoError(t, err)
	assert.False(t, snap.SignInRequired)
	assert.Equal(t, "confirmed@example.com", snap.Draft.Email)
	assert.Equal(t, []models.Field{models.FieldEmail}, snap.LockedFields)
	require.NotNil(t, snap.Auth)
	assert.Equal(t, "Asha", snap.Auth.DisplayName)

	_, err = o.SetField(models.FieldEmail, "other@example.com")
	assert.ErrorIs(t, err, services.ErrFieldLocked)

	_, err = o.SignIn(context.Background(), "id-token")
	assert.ErrorIs(t, err, services.ErrAlreadySignedIn)

	fillValid(o, models.FieldEmail)
	recordClient.On("Create", mock.Anything, mock.MatchedBy(func(p models.ApplicationPayload) bool {
		return p.Email == "confirmed@example.com"
	})).Return(nil).Once()

	snap, err = o.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.StateSucceeded, snap.State)

	snap, err = o.Reset()
	require.NoError(t, err)
	assert.Equal(t, "confirmed@example.com", snap.Draft.Email)
	assert.Empty(t, snap.Draft.Name)
	assert.NotNil(t, snap.Auth)

	gate.AssertExpectations(t)
	recordClient.AssertExpectations(t)
}

func TestOrchestrator_SignInFailure(t *testing.T) {
	gate := new(MockAuthGate)
	o := newOrchestrator(new(MockUploadClient), new(MockRecordClient), gate, nil)

	gate.On("SignIn", mock.Anything, "bad").Return(nil, apperrors.SignInError("identity could not be confirmed", errors.New("expired"))).Once()

	snap, err := o.SignIn(context.Background(), "bad")

	assert.ErrorIs(t, err, apperrors.ErrSignIn)
	assert.Nil(t, snap.Auth)
	assert.True(t, snap.SignInRequired)
	assert.Empty(t, snap.Draft.Email)
}

func TestOrchestrator_SignInWithoutSession(t *testing.T) {
	gate := new(MockAuthGate)
	o := newOrchestrator(new(MockUploadClient), new(MockRecordClient), gate, nil)

	gate.On("SignIn", mock.Anything, "id-token").Return(nil, nil).Once()

	snap, err := o.SignIn(context.Background(), "id-token")

	assert.ErrorIs(t, err, apperrors.ErrSignIn)
	assert.Nil(t, snap.Auth)
	assert.True(t, snap.SignInRequired)

	gate.On("SignIn", mock.Anything, "id-token").
		Return(&models.AuthSession{Email: "confirmed@example.com"}, nil).Once()
	snap, err = o.SignIn(context.Background(), "id-token")
	require.NoError(t, err)
	assert.Equal(t, "confirmed@example.com", snap.Draft.Email)
}

func TestOrchestrator_SignInTimeout(t *testing.T) {
	gate := new(MockAuthGate)
	o := services.NewOrchestrator("session-1", testValidator, new(MockUploadClient), new(MockRecordClient), gate,
		services.OrchestratorOptions{StepTimeout: 50 * time.Millisecond})

	gate.On("SignIn", mock.Anything, "slow").Run(func(args mock.Arguments) {
		<-args.Get(0).(context.Context).Done()
	}).Return(nil, context.DeadlineExceeded).Once()

	snap, err := o.SignIn(context.Background(), "slow")

	assert.ErrorIs(t, err, apperrors.ErrTimeout)
	assert.Nil(t, snap.Auth)
	assert.Equal(t, "Submission failed: Sign-in timed out after 50ms. Please try again", apperrors.UserMessage(err))
}

func TestOrchestrator_SignInWithoutGate(t *testing.T) {
	o := newOrchestrator(new(MockUploadClient), new(MockRecordClient), nil, nil)

	_, err := o.SignIn(context.Background(), "id-token")

	assert.ErrorIs(t, err, services.ErrSignInUnavailable)
}

func TestOrchestrator_SnapshotIsACopy(t *testing.T) {
	o := newOrchestrator(new(MockUploadClient), new(MockRecordClient), nil, nil)
	_, _ = o.SetImage(pngImage("big.png", 2*1024*1024))

	snap := o.Snapshot()
	snap.Errors[models.FieldName] = "tampered"
	snap.Draft.Name = "tampered"

	again := o.Snapshot()
	assert.NotContains(t, again.Errors, models.FieldName)
	assert.Empty(t, again.Draft.Name)
	assert.Nil(t, again.Draft.ImageFile)
	require.NotNil(t, again.Image)
	assert.Equal(t, "big.png", again.Image.FileName)
}
