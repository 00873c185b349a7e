// internal/realtime/types.go
package realtime

import (
	"context"
	"encoding/json"

	"github.com/v1kassh/escrawl-connect/internal/models"
)

// Event names exchanged over the duplex connection.
const (
	// client -> server
	EventJoinRoom     = "join-room"
	EventLeaveRoom    = "leave-room"
	EventSendMessage  = "send-message"
	EventMarkRoomRead = "mark-room-read"
	EventTyping       = "typing"
	EventStopTyping   = "stop-typing"
	EventOffer        = "offer"
	EventAnswer       = "answer"
	EventICECandidate = "ice-candidate"

	// server -> client
	EventReceiveMessage = "receive-message"
	EventMessagesRead   = "messages-read"
	EventMessageDeleted = "message-deleted"
	EventChannelUpdated = "channel-updated"
	EventChannelDeleted = "channel-deleted"
	EventSystemReset    = "system-reset"
	EventPresence       = "presence"
)

// Envelope frames every event in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// outbound is the server->client frame before marshalling.
type outbound struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

type JoinRoomPayload struct {
	RoomID   string `json:"roomId"`
	Username string `json:"username,omitempty"`
}

type SendMessagePayload struct {
	RoomID   string `json:"roomId"`
	User     string `json:"user"`
	Text     string `json:"text,omitempty"`
	Type     string `json:"type,omitempty"`
	FileURL  string `json:"fileUrl,omitempty"`
	FileName string `json:"fileName,omitempty"`
}

type MarkReadPayload struct {
	RoomID   string `json:"roomId"`
	Username string `json:"username"`
}

type MessagesReadPayload struct {
	RoomID string `json:"roomId"`
	ReadBy string `json:"readBy"`
}

type TypingPayload struct {
	RoomID   string `json:"roomId"`
	Username string `json:"username"`
}

// signalTarget extracts the addressing field of a signaling payload; the
// payload itself is forwarded verbatim.
type signalTarget struct {
	Target string `json:"target"`
}

// PresencePayload announces room membership changes. The join event is
// also the call rendezvous trigger: the first participant in a call room
// originates its offer when the second participant's join arrives.
type PresencePayload struct {
	RoomID   string `json:"roomId"`
	Username string `json:"username"`
	Action   string `json:"action"` // join, leave
}

const (
	PresenceJoin  = "join"
	PresenceLeave = "leave"
)

// SendResult is the explicit outcome of a send attempt. The wire
// protocol stays silent on denial; the result exists so the core is
// observable without a live connection.
type SendResult struct {
	Accepted bool
	Reason   string
	Message  *models.Message
}

// ChannelDirectory is the slice of the channel catalog the realtime
// server needs.
type ChannelDirectory interface {
	GetByName(ctx context.Context, name string) (*models.Channel, error)
	ListVisible(ctx context.Context, actor models.User) ([]*models.Channel, error)
}

// MessageStore is the slice of the message log the realtime server needs.
type MessageStore interface {
	Append(ctx context.Context, m *models.Message) (*models.Message, error)
	MarkRoomRead(ctx context.Context, roomID, reader string) error
}
