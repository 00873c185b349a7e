// internal/http/handlers/users.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/v1kassh/escrawl-connect/internal/auth"
	"github.com/v1kassh/escrawl-connect/internal/middleware"
	"github.com/v1kassh/escrawl-connect/internal/models"
	"github.com/v1kassh/escrawl-connect/internal/store"
	"github.com/v1kassh/escrawl-connect/pkg/logger"
	"github.com/v1kassh/escrawl-connect/pkg/response"
)

type UsersHandler struct {
	users    *store.Users
	validate *validator.Validate
	logger   *logger.Logger
}

func NewUsersHandler(users *store.Users, log *logger.Logger) *UsersHandler {
	return &UsersHandler{
		users:    users,
		validate: validator.New(),
		logger:   log,
	}
}

// HandleList returns every actor. Admin and above.
func (h *UsersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		h.logger.Error("Failed to list users", "error", err)
		response.InternalServerError(w, "")
		return
	}
	response.JSON(w, users)
}

// verifiedUserDTO is the trimmed shape membership pickers consume.
type verifiedUserDTO struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// HandleListVerified returns verified actors for membership pickers.
func (h *UsersHandler) HandleListVerified(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListVerified(r.Context())
	if err != nil {
		h.logger.Error("Failed to list verified users", "error", err)
		response.InternalServerError(w, "")
		return
	}

	out := make([]verifiedUserDTO, 0, len(users))
	for _, u := range users {
		out = append(out, verifiedUserDTO{ID: u.ID, Username: u.Username})
	}
	response.JSON(w, out)
}

type createUserRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Password string `json:"password" validate:"required,min=8,max=128"`
	Role     string `json:"role" validate:"required,oneof=user admin super_admin"`
}

// HandleCreate registers an actor on behalf of the super admin. Manually
// created actors skip verification.
func (h *UsersHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.ValidationError(w, err)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.logger.Error("Failed to hash password", "error", err)
		response.InternalServerError(w, "")
		return
	}

	user, err := h.users.Create(r.Context(), req.Username, hash, models.ParseRole(req.Role), true, "")
	if err != nil {
		if errors.Is(err, store.ErrDuplicateUsername) {
			response.BadRequest(w, "Username already exists")
			return
		}
		h.logger.Error("Failed to create user", "error", err)
		response.InternalServerError(w, "")
		return
	}

	h.logger.Info("User created",
		"username", user.Username,
		"role", user.Role,
		"created_by", middleware.Actor(r.Context()).Username)

	response.Created(w, user)
}

// HandleDelete removes an actor. The distinguished super admin cannot be
// deleted by anyone.
func (h *UsersHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	user, err := h.users.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			response.NotFound(w, "User not found")
			return
		}
		h.logger.Error("Failed to load user", "error", err)
		response.InternalServerError(w, "")
		return
	}

	if user.Username == models.SuperAdminUsername {
		response.Forbidden(w, "Cannot delete Super Admin")
		return
	}

	if err := h.users.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			response.NotFound(w, "User not found")
			return
		}
		h.logger.Error("Failed to delete user", "error", err)
		response.InternalServerError(w, "")
		return
	}

	response.Success(w, "User deleted successfully")
}
