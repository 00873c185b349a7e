// internal/http/handlers/auth.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/v1kassh/escrawl-connect/internal/auth"
	"github.com/v1kassh/escrawl-connect/internal/config"
	"github.com/v1kassh/escrawl-connect/internal/middleware"
	"github.com/v1kassh/escrawl-connect/internal/models"
	"github.com/v1kassh/escrawl-connect/internal/store"
	"github.com/v1kassh/escrawl-connect/pkg/logger"
	"github.com/v1kassh/escrawl-connect/pkg/response"
)

type AuthHandler struct {
	users    *store.Users
	cfg      config.JWTConfig
	validate *validator.Validate
	logger   *logger.Logger
}

func NewAuthHandler(users *store.Users, cfg config.JWTConfig, log *logger.Logger) *AuthHandler {
	return &AuthHandler{
		users:    users,
		cfg:      cfg,
		validate: validator.New(),
		logger:   log,
	}
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  loginUserDTO `json:"user"`
}

type loginUserDTO struct {
	Username string      `json:"username"`
	Role     models.Role `json:"role"`
	Verified bool        `json:"isVerified"`
}

// HandleLogin verifies credentials and issues a JWT. Unknown usernames
// and wrong passwords get the same answer.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.ValidationError(w, err)
		return
	}

	user, hash, err := h.users.Credentials(r.Context(), req.Username)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			response.BadRequest(w, "Invalid credentials")
			return
		}
		h.logger.Error("Failed to load credentials", "error", err)
		response.InternalServerError(w, "")
		return
	}

	if !auth.CheckPassword(hash, req.Password) {
		h.logger.Warn("Login failed", "username", req.Username)
		response.BadRequest(w, "Invalid credentials")
		return
	}

	// The distinguished super admin is always treated as verified.
	verified := user.Verified
	if user.Username == models.SuperAdminUsername {
		verified = true
	}

	token, err := auth.Sign(*user, h.cfg.Secret, h.cfg.Issuer, h.cfg.Expiration)
	if err != nil {
		h.logger.Error("Failed to sign token", "error", err)
		response.InternalServerError(w, "")
		return
	}

	response.JSON(w, loginResponse{
		Token: token,
		User: loginUserDTO{
			Username: user.Username,
			Role:     user.Role,
			Verified: verified,
		},
	})
}

// HandleMe returns the current actor's profile free of secrets.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	actor := middleware.Actor(r.Context())

	user, err := h.users.GetByID(r.Context(), actor.ID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			response.NotFound(w, "User not found")
			return
		}
		h.logger.Error("Failed to load user", "error", err)
		response.InternalServerError(w, "")
		return
	}

	response.JSON(w, user)
}
