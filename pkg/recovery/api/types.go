package api

// StartRecoveryRequest is the body for POST /start
type StartRecoveryRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ApplyRecoveryRequest is the body for POST /apply
type ApplyRecoveryRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required"`
}

// SuccessResponse acknowledges a request; its shape is identical whether or
// not the address exists.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}
