// internal/http/handlers/messages.go
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/v1kassh/escrawl-connect/internal/access"
	"github.com/v1kassh/escrawl-connect/internal/directory"
	"github.com/v1kassh/escrawl-connect/internal/middleware"
	"github.com/v1kassh/escrawl-connect/internal/models"
	"github.com/v1kassh/escrawl-connect/internal/realtime"
	"github.com/v1kassh/escrawl-connect/internal/store"
	"github.com/v1kassh/escrawl-connect/pkg/logger"
	"github.com/v1kassh/escrawl-connect/pkg/response"
)

const historyLimit = 100

type MessagesHandler struct {
	messages  *store.Store
	users     *store.Users
	directory *directory.Directory
	rt        *realtime.Server
	logger    *logger.Logger
}

func NewMessagesHandler(messages *store.Store, users *store.Users, dir *directory.Directory, rt *realtime.Server, log *logger.Logger) *MessagesHandler {
	return &MessagesHandler{
		messages:  messages,
		users:     users,
		directory: dir,
		rt:        rt,
		logger:    log,
	}
}

// resolveRoom loads the channel behind roomId and checks view access.
// It writes the error response itself and returns false on denial.
func (h *MessagesHandler) resolveRoom(w http.ResponseWriter, r *http.Request, roomID string) bool {
	channel, err := h.directory.GetByName(r.Context(), roomID)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			response.NotFound(w, "Channel not found")
			return false
		}
		h.logger.Error("Failed to load channel", "room", roomID, "error", err)
		response.InternalServerError(w, "")
		return false
	}

	if !access.CanView(middleware.Actor(r.Context()), channel) {
		response.Forbidden(w, "Access denied: You are not a member of this group")
		return false
	}
	return true
}

// HandleGetRoom returns up to 100 messages of a room in ascending
// creation order, gated on view access.
func (h *MessagesHandler) HandleGetRoom(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomId")
	if !h.resolveRoom(w, r, roomID) {
		return
	}

	messages, err := h.messages.ListRoom(r.Context(), roomID, historyLimit)
	if err != nil {
		h.logger.Error("Failed to list messages", "room", roomID, "error", err)
		response.InternalServerError(w, "")
		return
	}
	response.JSON(w, messages)
}

// HandleDelete removes a message when the deletion hierarchy allows it:
// super admins delete anything, admins delete user messages and orphans
// but never admin or super admin authored ones, their own included.
func (h *MessagesHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	actor := middleware.Actor(r.Context())

	msg, err := h.messages.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			response.NotFound(w, "Message not found")
			return
		}
		h.logger.Error("Failed to load message", "error", err)
		response.InternalServerError(w, "")
		return
	}

	var (
		authorRole  models.Role
		authorKnown bool
	)
	author, err := h.users.GetByUsername(r.Context(), msg.User)
	switch {
	case err == nil:
		authorRole = author.Role
		authorKnown = true
	case errors.Is(err, store.ErrUserNotFound):
		// Deleted account; the guard lets admins clean up after those.
	default:
		h.logger.Error("Failed to resolve message author", "error", err)
		response.InternalServerError(w, "")
		return
	}

	if !access.CanDeleteMessage(actor, authorRole, authorKnown) {
		response.Forbidden(w, "You cannot delete this message")
		return
	}

	if err := h.messages.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			response.NotFound(w, "Message not found")
			return
		}
		h.logger.Error("Failed to delete message", "error", err)
		response.InternalServerError(w, "")
		return
	}

	h.rt.NotifyMessageDeleted(msg.RoomID, msg.ID)
	h.logger.Info("Message deleted",
		"message_id", msg.ID,
		"room", msg.RoomID,
		"deleted_by", actor.Username)

	response.Success(w, "Message deleted successfully")
}

// HandleDownload streams the full room history as a JSON attachment.
func (h *MessagesHandler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomId")
	if !h.resolveRoom(w, r, roomID) {
		return
	}

	messages, err := h.messages.ListRoom(r.Context(), roomID, historyLimit)
	if err != nil {
		h.logger.Error("Failed to export conversation", "room", roomID, "error", err)
		response.InternalServerError(w, "Error downloading conversation")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=conversation-%s.json", roomID))

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(messages); err != nil {
		h.logger.Error("Failed to write conversation export", "room", roomID, "error", err)
	}
}
