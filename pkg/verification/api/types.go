package api

// StartVerificationRequest is the body for POST /start and POST /resend
type StartVerificationRequest struct {
	UserId string `json:"userId" validate:"required,uuid"`
	Email  string `json:"email" validate:"omitempty,email"`
}

// SuccessResponse acknowledges an accepted issuance
type SuccessResponse struct {
	Success bool `json:"success"`
}

// RateLimitedResponse carries the remaining cooldown in whole seconds
type RateLimitedResponse struct {
	RetryAfterSeconds int `json:"retryAfterSeconds"`
}

// ValidateResponse reports the outcome of a token validation
type ValidateResponse struct {
	Valid   bool `json:"valid"`
	Expired bool `json:"expired,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}
