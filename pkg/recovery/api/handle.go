package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/tendant/simple-signup/pkg/credentials"
	"github.com/tendant/simple-signup/pkg/recovery"
)

// Handle implements the HTTP surface of the recovery flow
type Handle struct {
	service  *recovery.Service
	validate *validator.Validate
}

// NewHandle creates a new recovery API handle
func NewHandle(service *recovery.Service) *Handle {
	return &Handle{
		service:  service,
		validate: validator.New(),
	}
}

// Routes registers the recovery endpoints on the router
func (h *Handle) Routes(r chi.Router) {
	r.Post("/start", h.Start)
	r.Post("/apply", h.Apply)
}

// Start handles POST /start. The response is the same generic success
// whether or not the address exists, so the endpoint cannot be used to probe
// the user database.
func (h *Handle) Start(w http.ResponseWriter, r *http.Request) {
	var req StartRecoveryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Failed to decode request body", "error", err)
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "Invalid request body"})
		return
	}

	if err := h.validate.Struct(req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "A valid email is required"})
		return
	}

	if err := h.service.Request(r.Context(), req.Email); err != nil {
		slog.Error("Failed to start password recovery", "error", err)
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, ErrorResponse{Error: "An error occurred, please try again"})
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, SuccessResponse{Success: true})
}

// Apply handles POST /apply
func (h *Handle) Apply(w http.ResponseWriter, r *http.Request) {
	var req ApplyRecoveryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Failed to decode request body", "error", err)
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "Invalid request body"})
		return
	}

	if err := h.validate.Struct(req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "token and newPassword are required"})
		return
	}

	err := h.service.Apply(r.Context(), req.Token, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, recovery.ErrTokenNotFound):
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, ErrorResponse{Error: "Invalid reset token"})
		case errors.Is(err, recovery.ErrTokenExpired):
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, ErrorResponse{Error: "Reset token has expired"})
		case errors.Is(err, credentials.ErrPasswordTooShort):
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, ErrorResponse{Error: "Password does not meet the minimum length"})
		default:
			slog.Error("Failed to apply password reset", "error", err)
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, ErrorResponse{Error: "An error occurred, please try again"})
		}
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, SuccessResponse{Success: true})
}
