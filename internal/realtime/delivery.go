// internal/realtime/delivery.go
package realtime

import (
	"context"

	"github.com/v1kassh/escrawl-connect/internal/access"
	"github.com/v1kassh/escrawl-connect/internal/models"
)

// InitialStatus classifies a freshly created message from a room-size
// snapshot: delivered when somebody besides the sender is connected,
// sent otherwise. The snapshot is best-effort; a join racing the send
// may yield a stale status, and nothing upgrades sent to delivered
// afterwards. Only the jump to read happens post hoc.
func InitialStatus(roomSize int) models.MessageStatus {
	if roomSize > 1 {
		return models.StatusDelivered
	}
	return models.StatusSent
}

// AcceptMessage runs the full send pipeline: resolve the channel, check
// posting permission, classify delivery, persist. The result is explicit
// so callers decide what reaches the wire; the realtime transport drops
// denials silently.
func (s *Server) AcceptMessage(ctx context.Context, actor models.User, p SendMessagePayload) SendResult {
	channel, err := s.directory.GetByName(ctx, p.RoomID)
	if err != nil {
		return SendResult{Reason: "channel not found"}
	}

	if !access.CanPost(actor, channel) {
		messagesDenied.Inc()
		return SendResult{Reason: "posting denied"}
	}

	msgType := models.MessageType(p.Type)
	if msgType == "" {
		msgType = models.MessageText
	}

	// The author is the authenticated session, never the payload.
	msg := &models.Message{
		RoomID:   p.RoomID,
		User:     actor.Username,
		Text:     p.Text,
		FileURL:  p.FileURL,
		FileName: p.FileName,
		Type:     msgType,
		Status:   InitialStatus(s.registry.RoomSize(p.RoomID)),
	}

	stored, err := s.store.Append(ctx, msg)
	if err != nil {
		s.logger.Error("Failed to persist message", "room", p.RoomID, "error", err)
		return SendResult{Reason: "persistence failure"}
	}

	messagesAccepted.Inc()
	return SendResult{Accepted: true, Message: stored}
}
