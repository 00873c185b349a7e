// internal/realtime/server.go
package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/v1kassh/escrawl-connect/internal/models"
	"github.com/v1kassh/escrawl-connect/pkg/logger"
)

const handlerTimeout = 5 * time.Second

// Server owns the room registry and processes every realtime event. One
// reader goroutine per connection feeds handleEvent; registration and
// teardown are serialized through the run loop.
type Server struct {
	registry  *RoomRegistry
	directory ChannelDirectory
	store     MessageStore
	logger    *logger.Logger

	register   chan *Client
	unregister chan *Client

	upgrader websocket.Upgrader

	ctx    context.Context
	cancel context.CancelFunc
}

func NewServer(dir ChannelDirectory, store MessageStore, log *logger.Logger) *Server {
	initMetrics()
	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		registry:   NewRoomRegistry(),
		directory:  dir,
		store:      store,
		logger:     log,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // origin enforcement is handled by the CORS layer
			},
		},
		ctx:    ctx,
		cancel: cancel,
	}
}

// Run starts the registration loop.
func (s *Server) Run() {
	for {
		select {
		case client := <-s.register:
			s.handleRegister(client)

		case client := <-s.unregister:
			s.handleUnregister(client)

		case <-s.ctx.Done():
			return
		}
	}
}

// Close stops the run loop.
func (s *Server) Close() {
	s.cancel()
}

// UpgradeConnection upgrades an HTTP request to a WebSocket.
func (s *Server) UpgradeConnection(w http.ResponseWriter, r *http.Request) (*websocket.Conn, error) {
	return s.upgrader.Upgrade(w, r, nil)
}

// CreateClient binds a connection to an authenticated actor.
func (s *Server) CreateClient(conn *websocket.Conn, user models.User) *Client {
	return newClient(conn, s, user)
}

func (s *Server) RegisterClient(c *Client) {
	select {
	case s.register <- c:
	case <-s.ctx.Done():
	}
}

func (s *Server) UnregisterClient(c *Client) {
	select {
	case s.unregister <- c:
	case <-s.ctx.Done():
	}
}

func (s *Server) handleRegister(c *Client) {
	s.registry.Register(c)
	connectedSessions.Inc()

	s.logger.Info("Client connected",
		"client_id", c.ID,
		"username", c.user.Username)

	// Eagerly subscribe one notification room per visible channel so the
	// session receives fan-out for everything it may see. Viewing a room
	// "actively" is the same join primitive issued by the client.
	ctx, cancel := context.WithTimeout(s.ctx, handlerTimeout)
	defer cancel()

	channels, err := s.directory.ListVisible(ctx, c.user)
	if err != nil {
		s.logger.Error("Failed to list visible channels on connect", "error", err)
		return
	}
	for _, ch := range channels {
		s.joinRoom(c, ch.Name)
	}
}

func (s *Server) handleUnregister(c *Client) {
	left := s.registry.Unregister(c)
	for _, roomID := range left {
		s.registry.Broadcast(roomID, EventPresence, PresencePayload{
			RoomID:   roomID,
			Username: c.user.Username,
			Action:   PresenceLeave,
		}, nil)
	}
	close(c.send)
	connectedSessions.Dec()

	s.logger.Info("Client disconnected",
		"client_id", c.ID,
		"username", c.user.Username)
}

// handleEvent dispatches one inbound event. Unknown events are dropped.
func (s *Server) handleEvent(c *Client, env Envelope) {
	eventsReceived.WithLabelValues(env.Event).Inc()

	switch env.Event {
	case EventJoinRoom:
		var p JoinRoomPayload
		if err := json.Unmarshal(env.Data, &p); err != nil || p.RoomID == "" {
			return
		}
		s.joinRoom(c, p.RoomID)

	case EventLeaveRoom:
		var p JoinRoomPayload
		if err := json.Unmarshal(env.Data, &p); err != nil || p.RoomID == "" {
			return
		}
		s.leaveRoom(c, p.RoomID)

	case EventSendMessage:
		var p SendMessagePayload
		if err := json.Unmarshal(env.Data, &p); err != nil || p.RoomID == "" {
			return
		}
		s.handleSend(c, p)

	case EventMarkRoomRead:
		var p MarkReadPayload
		if err := json.Unmarshal(env.Data, &p); err != nil || p.RoomID == "" {
			return
		}
		s.handleMarkRead(c, p)

	case EventTyping, EventStopTyping:
		var p TypingPayload
		if err := json.Unmarshal(env.Data, &p); err != nil || p.RoomID == "" {
			return
		}
		s.registry.Broadcast(p.RoomID, env.Event, p, c)

	case EventOffer, EventAnswer, EventICECandidate:
		s.relaySignal(c, env.Event, env.Data)
	}
}

// joinRoom adds the membership and announces presence room-wide, the
// joiner included. The join announcement doubles as the two-party call
// rendezvous trigger.
func (s *Server) joinRoom(c *Client, roomID string) {
	s.registry.Join(c, roomID)
	s.registry.Broadcast(roomID, EventPresence, PresencePayload{
		RoomID:   roomID,
		Username: c.user.Username,
		Action:   PresenceJoin,
	}, nil)
}

func (s *Server) leaveRoom(c *Client, roomID string) {
	s.registry.Leave(c, roomID)
	s.registry.Broadcast(roomID, EventPresence, PresencePayload{
		RoomID:   roomID,
		Username: c.user.Username,
		Action:   PresenceLeave,
	}, nil)
}

// handleSend runs the send pipeline. Denials stay silent on the wire by
// design; the explicit result is logged and counted instead.
func (s *Server) handleSend(c *Client, p SendMessagePayload) {
	ctx, cancel := context.WithTimeout(s.ctx, handlerTimeout)
	defer cancel()

	res := s.AcceptMessage(ctx, c.user, p)
	if !res.Accepted {
		s.logger.Warn("Message dropped",
			"room", p.RoomID,
			"username", c.user.Username,
			"reason", res.Reason)
		return
	}

	s.registry.Broadcast(p.RoomID, EventReceiveMessage, res.Message, nil)
}

// handleMarkRead advances read state for the whole room. The store
// update is idempotent, so racing duplicates are harmless.
func (s *Server) handleMarkRead(c *Client, p MarkReadPayload) {
	ctx, cancel := context.WithTimeout(s.ctx, handlerTimeout)
	defer cancel()

	reader := p.Username
	if reader == "" {
		reader = c.user.Username
	}

	if err := s.store.MarkRoomRead(ctx, p.RoomID, reader); err != nil {
		s.logger.Error("Failed to mark room read", "room", p.RoomID, "error", err)
		return
	}

	s.registry.Broadcast(p.RoomID, EventMessagesRead, MessagesReadPayload{
		RoomID: p.RoomID,
		ReadBy: reader,
	}, nil)
}

// relaySignal forwards an offer/answer/ice-candidate payload verbatim to
// every other member of the target room. No validation, no access
// control, no state.
func (s *Server) relaySignal(c *Client, event string, raw json.RawMessage) {
	var t signalTarget
	if err := json.Unmarshal(raw, &t); err != nil || t.Target == "" {
		return
	}
	s.registry.Broadcast(t.Target, event, raw, c)
	signalsRelayed.Inc()
}

// BroadcastSystemMessage fans a server-generated message into its room.
func (s *Server) BroadcastSystemMessage(msg *models.Message) {
	s.registry.Broadcast(msg.RoomID, EventReceiveMessage, msg, nil)
}

// NotifyMessageDeleted announces a guard-authorized deletion to the
// message's room.
func (s *Server) NotifyMessageDeleted(roomID, messageID string) {
	s.registry.Broadcast(roomID, EventMessageDeleted, messageID, nil)
}

// NotifyChannelUpdated announces a channel change to every session;
// clients filter for relevance.
func (s *Server) NotifyChannelUpdated(ch *models.Channel) {
	s.registry.BroadcastGlobally(EventChannelUpdated, ch)
}

// NotifyChannelDeleted announces a deletion to every session, members or
// not.
func (s *Server) NotifyChannelDeleted(channelID string) {
	s.registry.BroadcastGlobally(EventChannelDeleted, channelID)
}

// NotifySystemReset announces a full reset to every session.
func (s *Server) NotifySystemReset(data interface{}) {
	s.registry.BroadcastGlobally(EventSystemReset, data)
}

// RenameRoom re-keys live subscriptions after a persisted channel
// rename.
func (s *Server) RenameRoom(oldName, newName string) {
	s.registry.Rename(oldName, newName)
}

// RoomSize exposes the best-effort occupancy snapshot.
func (s *Server) RoomSize(roomID string) int {
	return s.registry.RoomSize(roomID)
}
