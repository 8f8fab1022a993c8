package errors

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Failure categories. Every error that leaves a collaborator wraps exactly one
// of these so the orchestrator can translate it without inspecting strings.
var (
	// ErrInvalidInput indicates invalid input data
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound indicates a requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrConfiguration indicates a step cannot run because its settings are missing
	ErrConfiguration = errors.New("configuration error")

	// ErrTransport indicates an external collaborator failed or answered with an error
	ErrTransport = errors.New("transport error")

	// ErrTimeout indicates an external step did not finish within its time budget
	ErrTimeout = errors.New("timeout")

	// ErrSignIn indicates the identity check rejected the credential
	ErrSignIn = errors.New("sign-in failed")
)

// failure carries the human-readable detail separately from the category
type failure struct {
	kind   error
	detail string
	cause  error
}

func (f *failure) Error() string {
	if f.cause != nil {
		return fmt.Sprintf("%s: %v", f.detail, f.cause)
	}
	return f.detail
}

func (f *failure) Unwrap() []error {
	if f.cause != nil {
		return []error{f.kind, f.cause}
	}
	return []error{f.kind}
}

// NotFoundError creates a not found error with context
func NotFoundError(resource string) error {
	return fmt.Errorf("%s %w", resource, ErrNotFound)
}

// InvalidInputError creates an invalid input error with context
func InvalidInputError(field, reason string) error {
	return fmt.Errorf("%s: %s: %w", field, reason, ErrInvalidInput)
}

// ConfigurationError reports a missing setting needed by one step
func ConfigurationError(setting, detail string) error {
	return &failure{kind: ErrConfiguration, detail: fmt.Sprintf("%s not configured. Set %s", detail, setting)}
}

// TransportError reports a collaborator failure with a user-readable detail
func TransportError(detail string, cause error) error {
	return &failure{kind: ErrTransport, detail: detail, cause: cause}
}

// SignInError reports a rejected identity credential
func SignInError(detail string, cause error) error {
	return &failure{kind: ErrSignIn, detail: detail, cause: cause}
}

// FromContext converts a context failure for the named step into a categorised error.
// It returns nil when the context is still live.
func FromContext(ctx context.Context, step string, budget time.Duration) error {
	switch ctx.Err() {
	case nil:
		return nil
	case context.DeadlineExceeded:
		return &failure{kind: ErrTimeout, detail: fmt.Sprintf("%s timed out after %s", step, budget)}
	default:
		return &failure{kind: ErrTransport, detail: fmt.Sprintf("%s was interrupted", step), cause: ctx.Err()}
	}
}

// UserMessage converts any submission failure into the single message shown to the user
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var f *failure
	switch {
	case errors.As(err, &f) && errors.Is(err, ErrConfiguration):
		return "Submission failed: " + f.detail
	case errors.As(err, &f) && errors.Is(err, ErrTimeout):
		return "Submission failed: " + f.detail + ". Please try again"
	case errors.As(err, &f) && errors.Is(err, ErrSignIn):
		return "Sign-in failed: " + f.Error()
	case errors.As(err, &f):
		return "Submission failed: " + f.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return "Submission failed: request timed out. Please try again"
	default:
		return "Submission failed: " + err.Error()
	}
}

// Is checks if an error matches a target error (works with wrapped errors)
func Is(err, target error) bool {
	return errors.Is(err, target)
}
