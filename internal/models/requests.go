package models

// UpdateFieldRequest edits one text field of a session draft
type UpdateFieldRequest struct {
	Field string `json:"field" binding:"required,max=50"`
	Value string `json:"value" binding:"max=20000"`
}

// ValidateFieldRequest asks for a single-field check without a session
type ValidateFieldRequest struct {
	Field string `json:"field" binding:"required,max=50"`
	Value string `json:"value" binding:"max=20000"`
}

// ValidateFieldResponse carries the message for one field; empty Error means valid
type ValidateFieldResponse struct {
	Field string `json:"field"`
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// SignInRequest carries the ID token obtained from the identity provider popup
type SignInRequest struct {
	IDToken string `json:"idToken" binding:"required,min=20"`
}

// SessionResponse wraps a snapshot with an optional top-level message
type SessionResponse struct {
	Session *Snapshot `json:"session"`
	Message string    `json:"message,omitempty"`
	Error   string    `json:"error,omitempty"`
}
