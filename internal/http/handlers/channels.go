// internal/http/handlers/channels.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/v1kassh/escrawl-connect/internal/directory"
	"github.com/v1kassh/escrawl-connect/internal/middleware"
	"github.com/v1kassh/escrawl-connect/internal/models"
	"github.com/v1kassh/escrawl-connect/internal/realtime"
	"github.com/v1kassh/escrawl-connect/pkg/logger"
	"github.com/v1kassh/escrawl-connect/pkg/response"
)

// channelCatalog is the slice of the channel directory the handler
// needs.
type channelCatalog interface {
	GetByID(ctx context.Context, id string) (*models.Channel, error)
	ListVisible(ctx context.Context, actor models.User) ([]*models.Channel, error)
	Create(ctx context.Context, c *models.Channel) (*models.Channel, error)
	Update(ctx context.Context, id string, c *models.Channel) (*models.Channel, error)
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) error
}

// messageLog is the slice of the message store the handler needs.
type messageLog interface {
	Append(ctx context.Context, m *models.Message) (*models.Message, error)
}

// roomNotifier is the realtime surface channel administration touches.
type roomNotifier interface {
	RoomSize(roomID string) int
	RenameRoom(oldName, newName string)
	BroadcastSystemMessage(msg *models.Message)
	NotifyChannelUpdated(ch *models.Channel)
	NotifyChannelDeleted(channelID string)
	NotifySystemReset(data interface{})
}

type ChannelsHandler struct {
	directory channelCatalog
	messages  messageLog
	rt        roomNotifier
	validate  *validator.Validate
	logger    *logger.Logger
}

func NewChannelsHandler(dir channelCatalog, messages messageLog, rt roomNotifier, log *logger.Logger) *ChannelsHandler {
	return &ChannelsHandler{
		directory: dir,
		messages:  messages,
		rt:        rt,
		validate:  validator.New(),
		logger:    log,
	}
}

// HandleList returns the channels visible to the caller.
func (h *ChannelsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	channels, err := h.directory.ListVisible(r.Context(), middleware.Actor(r.Context()))
	if err != nil {
		h.logger.Error("Failed to list channels", "error", err)
		response.InternalServerError(w, "")
		return
	}
	response.JSON(w, channels)
}

type createChannelRequest struct {
	Name         string   `json:"name" validate:"required,min=1,max=64"`
	Type         string   `json:"type" validate:"omitempty,oneof=public private announcement"`
	Description  string   `json:"description" validate:"max=512"`
	Members      []string `json:"members"`
	AllowedRoles []string `json:"allowedRoles"`
	PostingRoles []string `json:"postingRoles"`
}

func rolesOf(ss []string) []models.Role {
	roles := make([]models.Role, len(ss))
	for i, s := range ss {
		roles[i] = models.Role(s)
	}
	return roles
}

func defaultRoles(ss []string) []models.Role {
	if len(ss) == 0 {
		return []models.Role{models.RoleUser, models.RoleAdmin}
	}
	return rolesOf(ss)
}

// HandleCreate creates a channel. The creator joins the membership set
// automatically; a taken name is a 400, not a 409.
func (h *ChannelsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createChannelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.ValidationError(w, err)
		return
	}

	actor := middleware.Actor(r.Context())

	channelType := models.ChannelType(req.Type)
	if channelType == "" {
		channelType = models.ChannelPublic
	}

	channel := &models.Channel{
		Name:         req.Name,
		Type:         channelType,
		Description:  req.Description,
		CreatorID:    actor.ID,
		Members:      append(req.Members, actor.Username),
		AllowedRoles: defaultRoles(req.AllowedRoles),
		PostingRoles: defaultRoles(req.PostingRoles),
	}

	created, err := h.directory.Create(r.Context(), channel)
	if err != nil {
		if errors.Is(err, directory.ErrDuplicateName) {
			response.BadRequest(w, "Channel name already exists")
			return
		}
		h.logger.Error("Failed to create channel", "error", err)
		response.InternalServerError(w, "")
		return
	}

	h.logger.Info("Channel created", "name", created.Name, "created_by", actor.Username)
	response.Created(w, created)
}

// updateChannelRequest distinguishes absent fields from empty ones; an
// absent field leaves the stored value untouched.
type updateChannelRequest struct {
	Name         *string   `json:"name" validate:"omitempty,min=1,max=64"`
	Description  *string   `json:"description" validate:"omitempty,max=512"`
	Members      *[]string `json:"members"`
	AllowedRoles *[]string `json:"allowedRoles"`
	PostingRoles *[]string `json:"postingRoles"`
}

// HandleUpdate patches a channel's mutable settings. Fields omitted
// from the request keep their stored values; only an explicit empty
// array clears a set. A rename re-keys live room subscriptions,
// membership changes leave an audit trail of system messages in the
// channel's room, and every session learns about the update.
func (h *ChannelsHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req updateChannelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.ValidationError(w, err)
		return
	}

	original, err := h.directory.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			response.NotFound(w, "Channel not found")
			return
		}
		h.logger.Error("Failed to load channel", "error", err)
		response.InternalServerError(w, "")
		return
	}

	next := &models.Channel{
		Name:         original.Name,
		Description:  original.Description,
		Members:      original.Members,
		AllowedRoles: original.AllowedRoles,
		PostingRoles: original.PostingRoles,
	}
	if req.Name != nil {
		next.Name = *req.Name
	}
	if req.Description != nil {
		next.Description = *req.Description
	}
	if req.Members != nil {
		next.Members = *req.Members
	}
	if req.AllowedRoles != nil {
		next.AllowedRoles = rolesOf(*req.AllowedRoles)
	}
	if req.PostingRoles != nil {
		next.PostingRoles = rolesOf(*req.PostingRoles)
	}

	updated, err := h.directory.Update(r.Context(), id, next)
	if err != nil {
		if errors.Is(err, directory.ErrDuplicateName) {
			response.BadRequest(w, "Channel name already exists")
			return
		}
		h.logger.Error("Failed to update channel", "error", err)
		response.InternalServerError(w, "")
		return
	}

	if original.Name != updated.Name {
		// Re-keyed right after the persisted rename; sends racing this
		// window fall under the same best-effort model as delivery
		// status.
		h.rt.RenameRoom(original.Name, updated.Name)
	}

	actor := middleware.Actor(r.Context())
	h.announceMemberChanges(r.Context(), actor, original, updated)

	h.rt.NotifyChannelUpdated(updated)
	response.JSON(w, updated)
}

// announceMemberChanges diffs the membership sets and drops exactly one
// system message per added or removed member into the channel's room,
// naming the admin who performed the change.
func (h *ChannelsHandler) announceMemberChanges(ctx context.Context, actor models.User, original, updated *models.Channel) {
	for _, member := range updated.Members {
		if !original.HasMember(member) {
			h.postSystemMessage(ctx, updated.Name, member+" was added to the group by "+actor.Username)
		}
	}
	for _, member := range original.Members {
		if !updated.HasMember(member) {
			h.postSystemMessage(ctx, updated.Name, member+" was removed from the group by "+actor.Username)
		}
	}
}

func (h *ChannelsHandler) postSystemMessage(ctx context.Context, roomID, text string) {
	msg, err := h.messages.Append(ctx, &models.Message{
		RoomID: roomID,
		User:   models.SystemAuthor,
		Text:   text,
		Type:   models.MessageSystem,
		Status: realtime.InitialStatus(h.rt.RoomSize(roomID)),
	})
	if err != nil {
		h.logger.Error("Failed to persist system message", "room", roomID, "error", err)
		return
	}
	h.rt.BroadcastSystemMessage(msg)
}

// HandleDelete removes one channel and tells every connected session,
// members or not.
func (h *ChannelsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, err := h.directory.GetByID(r.Context(), id); err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			response.NotFound(w, "Channel not found")
			return
		}
		h.logger.Error("Failed to load channel", "error", err)
		response.InternalServerError(w, "")
		return
	}

	if err := h.directory.Delete(r.Context(), id); err != nil {
		h.logger.Error("Failed to delete channel", "error", err)
		response.InternalServerError(w, "")
		return
	}

	h.rt.NotifyChannelDeleted(id)
	response.JSON(w, map[string]interface{}{
		"message":   "Channel deleted successfully",
		"channelId": id,
	})
}

// HandleResetSystem wipes the channel catalog and recreates the reset
// defaults: General open to everyone, Announcements restricted to admin
// posting. Every connected session is told, whatever it was a member of.
func (h *ChannelsHandler) HandleResetSystem(w http.ResponseWriter, r *http.Request) {
	actor := middleware.Actor(r.Context())
	h.logger.Warn("System reset triggered", "username", actor.Username)

	if err := h.directory.DeleteAll(r.Context()); err != nil {
		h.logger.Error("Failed to wipe channels", "error", err)
		response.InternalServerError(w, "Reset failed")
		return
	}

	recreated := make([]*models.Channel, 0, 2)
	for _, c := range directory.ResetDefaults() {
		created, err := h.directory.Create(r.Context(), c)
		if err != nil {
			h.logger.Error("Failed to recreate default channel", "name", c.Name, "error", err)
			response.InternalServerError(w, "Reset failed")
			return
		}
		recreated = append(recreated, created)
	}

	h.rt.NotifySystemReset(map[string]string{"generalId": recreated[0].ID})
	response.JSON(w, map[string]interface{}{
		"message":  "System reset complete",
		"channels": recreated,
	})
}
