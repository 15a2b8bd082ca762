package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/tendant/simple-signup/pkg/ratelimit"
	"github.com/tendant/simple-signup/pkg/verification"
)

// Handle implements the HTTP surface of the verification flow
type Handle struct {
	service  *verification.Service
	validate *validator.Validate
}

// NewHandle creates a new verification API handle
func NewHandle(service *verification.Service) *Handle {
	return &Handle{
		service:  service,
		validate: validator.New(),
	}
}

// Routes registers the verification endpoints on the router
func (h *Handle) Routes(r chi.Router) {
	r.Post("/start", h.Start)
	r.Post("/resend", h.Start)
	r.Get("/validate", h.Validate)
}

// Start handles POST /start and POST /resend. Both issue a fresh secret
// under the same cooldown.
func (h *Handle) Start(w http.ResponseWriter, r *http.Request) {
	var req StartVerificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Failed to decode request body", "error", err)
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "Invalid request body"})
		return
	}

	if err := h.validate.Struct(req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "userId is required and must be a valid id"})
		return
	}

	userID, err := uuid.Parse(req.UserId)
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "Invalid userId"})
		return
	}

	err = h.service.Start(r.Context(), userID, req.Email)
	if err != nil {
		var rateLimited *ratelimit.RateLimitedError
		switch {
		case errors.As(err, &rateLimited):
			render.Status(r, http.StatusTooManyRequests)
			render.JSON(w, r, RateLimitedResponse{RetryAfterSeconds: rateLimited.RetryAfterSeconds()})
		case errors.Is(err, verification.ErrAccountNotFound):
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, ErrorResponse{Error: "Account not found"})
		case errors.Is(err, verification.ErrAlreadyVerified):
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, ErrorResponse{Error: "Email is already verified"})
		default:
			slog.Error("Failed to start verification", "error", err)
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, ErrorResponse{Error: "An error occurred while sending verification email"})
		}
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, SuccessResponse{Success: true})
}

// Validate handles GET /validate?token=...
func (h *Handle) Validate(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "token is required"})
		return
	}

	err := h.service.Validate(r.Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, verification.ErrTokenExpired):
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, ValidateResponse{Valid: false, Expired: true})
		case errors.Is(err, verification.ErrTokenNotFound):
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, ValidateResponse{Valid: false})
		default:
			slog.Error("Failed to validate verification token", "error", err)
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, ErrorResponse{Error: "An error occurred while verifying email"})
		}
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, ValidateResponse{Valid: true})
}
