package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vuxmai/catalog-admin/internal/apperr"
	"github.com/vuxmai/catalog-admin/internal/model"
	"github.com/vuxmai/catalog-admin/internal/service"
)

type authHandler struct {
	svc *Service

	authSvc service.AuthService
}

func newAuthHandler(svc *Service, authSvc service.AuthService) *authHandler {
	return &authHandler{
		svc:     svc,
		authSvc: authSvc,
	}
}

type adminResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toAdminResponse(a model.Admin) adminResponse {
	return adminResponse{
		ID:        a.ID,
		Name:      a.Name,
		Email:     a.Email,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

type registerRequest struct {
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

func (h *authHandler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := h.svc.decodeJSON(r, &req); err != nil {
		h.svc.respondError(w, r, err)
		return
	}

	admin, err := h.authSvc.Register(r.Context(), service.RegisterParams{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.svc.respondError(w, r, err)
		return
	}

	h.svc.respond(w, r, http.StatusCreated, "admin registered", toAdminResponse(admin))
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Admin       adminResponse `json:"admin"`
	AccessToken string        `json:"access_token"`
}

func (h *authHandler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := h.svc.decodeJSON(r, &req); err != nil {
		h.svc.respondError(w, r, err)
		return
	}

	result, err := h.authSvc.Login(r.Context(), service.LoginParams{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.svc.respondError(w, r, err)
		return
	}

	h.svc.respond(w, r, http.StatusOK, "login successful", loginResponse{
		Admin:       toAdminResponse(result.Admin),
		AccessToken: result.AccessToken,
	})
}

// logout revokes the presented access token. It takes the token from the
// Authorization header, so a logged-out client can only log itself out.
func (h *authHandler) logout(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerTokenFromRequest(r)
	if !ok {
		h.svc.respondError(w, r, apperr.ErrMissingAuthHeader)
		return
	}

	if err := h.authSvc.Logout(r.Context(), token); err != nil {
		h.svc.respondError(w, r, err)
		return
	}

	h.svc.respond(w, r, http.StatusOK, "logged out", nil)
}

func bearerTokenFromRequest(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return header[len(prefix):], true
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type forgotPasswordResponse struct {
	ResetToken string `json:"reset_token,omitempty"`
}

// forgotPassword answers the same message whether or not the email is
// known. Without an outbound mailer the token, when issued, is returned
// to the caller directly.
func (h *authHandler) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := h.svc.decodeJSON(r, &req); err != nil {
		h.svc.respondError(w, r, err)
		return
	}

	token, err := h.authSvc.ForgotPassword(r.Context(), req.Email)
	if err != nil {
		h.svc.respondError(w, r, err)
		return
	}

	var data any
	if token != "" {
		data = forgotPasswordResponse{ResetToken: token}
	}

	h.svc.respond(w, r, http.StatusOK, "if the email exists, a reset token has been issued", data)
}

type resetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

func (h *authHandler) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := h.svc.decodeJSON(r, &req); err != nil {
		h.svc.respondError(w, r, err)
		return
	}

	if err := h.authSvc.ResetPassword(r.Context(), service.ResetPasswordParams{
		Token:    req.Token,
		Password: req.Password,
	}); err != nil {
		h.svc.respondError(w, r, err)
		return
	}

	h.svc.respond(w, r, http.StatusOK, "password reset", nil)
}
