package models

// SubmissionState is the orchestrator's current stage in the submit pipeline
type SubmissionState string

const (
	StateIdle           SubmissionState = "idle"
	StateValidating     SubmissionState = "validating"
	StateUploadingImage SubmissionState = "uploading_image"
	StateCreatingRecord SubmissionState = "creating_record"
	StateSucceeded      SubmissionState = "succeeded"
	StateFailed         SubmissionState = "failed"
)

// InFlight reports whether a submission attempt is running
func (s SubmissionState) InFlight() bool {
	switch s {
	case StateValidating, StateUploadingImage, StateCreatingRecord:
		return true
	}
	return false
}

// AcceptsSubmit reports whether a new attempt may start from this state
func (s SubmissionState) AcceptsSubmit() bool {
	return s == StateIdle || s == StateFailed
}

// WordCount is a live counter shown under a word-limited field
type WordCount struct {
	Count int `json:"count"`
	Limit int `json:"limit"`
}

// Snapshot is a read-only copy of one form session for the view layer
type Snapshot struct {
	SessionID        string              `json:"sessionId"`
	State            SubmissionState     `json:"state"`
	FailureReason    string              `json:"failureReason,omitempty"`
	Draft            ApplicationDraft    `json:"draft"`
	Image            *ImageSummary       `json:"image,omitempty"`
	Errors           FieldErrorMap       `json:"errors"`
	WordCounts       map[Field]WordCount `json:"wordCounts"`
	Auth             *AuthSession        `json:"auth,omitempty"`
	SignInRequired   bool                `json:"signInRequired"`
	LockedFields     []Field             `json:"lockedFields"`
	UploadedImageURL string              `json:"uploadedImageUrl,omitempty"`
}
