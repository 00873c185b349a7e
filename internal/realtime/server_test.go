// internal/realtime/server_test.go
package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/v1kassh/escrawl-connect/internal/access"
	"github.com/v1kassh/escrawl-connect/internal/directory"
	"github.com/v1kassh/escrawl-connect/internal/models"
	"github.com/v1kassh/escrawl-connect/pkg/logger"
)

// --- in-memory doubles -------------------------------------------------

type fakeDirectory struct {
	channels map[string]*models.Channel
}

func (f *fakeDirectory) GetByName(_ context.Context, name string) (*models.Channel, error) {
	if c, ok := f.channels[name]; ok {
		return c, nil
	}
	return nil, directory.ErrNotFound
}

func (f *fakeDirectory) ListVisible(_ context.Context, actor models.User) ([]*models.Channel, error) {
	all := make([]*models.Channel, 0, len(f.channels))
	for _, c := range f.channels {
		all = append(all, c)
	}
	return access.VisibleTo(actor, all), nil
}

type fakeStore struct {
	messages []*models.Message
}

func (f *fakeStore) Append(_ context.Context, m *models.Message) (*models.Message, error) {
	stored := *m
	stored.ID = uuid.NewString()
	stored.ReadBy = []string{}
	stored.CreatedAt = time.Now()
	f.messages = append(f.messages, &stored)
	return &stored, nil
}

func (f *fakeStore) MarkRoomRead(_ context.Context, roomID, reader string) error {
	for _, m := range f.messages {
		if m.RoomID != roomID || m.User == reader || m.Status == models.StatusRead {
			continue
		}
		m.Status = models.StatusRead
		if !contains(m.ReadBy, reader) {
			m.ReadBy = append(m.ReadBy, reader)
		}
	}
	return nil
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

// --- helpers -----------------------------------------------------------

func testLogger() *logger.Logger {
	h := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError + 1})
	return &logger.Logger{Logger: slog.New(h)}
}

func testServer(channels ...*models.Channel) (*Server, *fakeStore) {
	dir := &fakeDirectory{channels: make(map[string]*models.Channel)}
	for _, c := range channels {
		dir.channels[c.Name] = c
	}
	st := &fakeStore{}
	return NewServer(dir, st, testLogger()), st
}

func connect(s *Server, id string, role models.Role) *Client {
	c := newClient(nil, s, models.User{ID: id, Username: id, Role: role})
	s.registry.Register(c)
	return c
}

type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// drain decodes all frames currently queued for the client.
func drain(t *testing.T, c *Client) []frame {
	t.Helper()
	var frames []frame
	for {
		select {
		case raw := <-c.send:
			var f frame
			require.NoError(t, json.Unmarshal(raw, &f))
			frames = append(frames, f)
		default:
			return frames
		}
	}
}

func eventsOf(frames []frame) []string {
	out := make([]string, len(frames))
	for i, f := range frames {
		out[i] = f.Event
	}
	return out
}

func openChannel(name string, members ...string) *models.Channel {
	return &models.Channel{
		Name:         name,
		Type:         models.ChannelPublic,
		Members:      members,
		AllowedRoles: []models.Role{models.RoleUser},
		PostingRoles: []models.Role{models.RoleUser},
	}
}

// --- router ------------------------------------------------------------

func TestRegistryJoinLeave(t *testing.T) {
	s, _ := testServer()
	a := connect(s, "alice", models.RoleUser)
	b := connect(s, "bob", models.RoleUser)

	s.registry.Join(a, "ops")
	s.registry.Join(b, "ops")
	assert.Equal(t, 2, s.registry.RoomSize("ops"))

	s.registry.Broadcast("ops", "ping", nil, nil)
	assert.Len(t, drain(t, a), 1)
	assert.Len(t, drain(t, b), 1)

	s.registry.Broadcast("ops", "ping", nil, a)
	assert.Empty(t, drain(t, a))
	assert.Len(t, drain(t, b), 1)

	s.registry.Leave(b, "ops")
	assert.Equal(t, 1, s.registry.RoomSize("ops"))
}

func TestRegistryUnregisterCleansEveryRoom(t *testing.T) {
	s, _ := testServer()
	a := connect(s, "alice", models.RoleUser)

	s.registry.Join(a, "ops")
	s.registry.Join(a, "design")
	s.registry.Join(a, "call:xyz")

	left := s.registry.Unregister(a)
	assert.ElementsMatch(t, []string{"ops", "design", "call:xyz"}, left)
	assert.Zero(t, s.registry.RoomSize("ops"))
	assert.Zero(t, s.registry.RoomSize("design"))
	assert.Zero(t, s.registry.RoomSize("call:xyz"))
}

func TestRegistryRename(t *testing.T) {
	s, _ := testServer()
	a := connect(s, "alice", models.RoleUser)
	s.registry.Join(a, "old-name")

	s.registry.Rename("old-name", "new-name")
	assert.Zero(t, s.registry.RoomSize("old-name"))
	assert.Equal(t, 1, s.registry.RoomSize("new-name"))

	// membership index follows the rename
	left := s.registry.Unregister(a)
	assert.Equal(t, []string{"new-name"}, left)
}

// --- presence and rendezvous -------------------------------------------

func TestJoinAnnouncesPresenceIncludingSelf(t *testing.T) {
	s, _ := testServer()
	a := connect(s, "alice", models.RoleUser)

	s.handleEvent(a, envelope(t, EventJoinRoom, JoinRoomPayload{RoomID: "call:42"}))

	frames := drain(t, a)
	require.Len(t, frames, 1)
	assert.Equal(t, EventPresence, frames[0].Event)

	var p PresencePayload
	require.NoError(t, json.Unmarshal(frames[0].Data, &p))
	assert.Equal(t, PresenceJoin, p.Action)
	assert.Equal(t, "alice", p.Username)
}

func TestSecondJoinReachesFirstParticipant(t *testing.T) {
	// The first participant's trigger to originate an offer is the
	// presence event announcing the second arrival.
	s, _ := testServer()
	a := connect(s, "alice", models.RoleUser)
	b := connect(s, "bob", models.RoleUser)

	s.handleEvent(a, envelope(t, EventJoinRoom, JoinRoomPayload{RoomID: "call:42"}))
	drain(t, a)

	s.handleEvent(b, envelope(t, EventJoinRoom, JoinRoomPayload{RoomID: "call:42"}))

	frames := drain(t, a)
	require.Len(t, frames, 1)
	var p PresencePayload
	require.NoError(t, json.Unmarshal(frames[0].Data, &p))
	assert.Equal(t, "bob", p.Username)
	assert.Equal(t, PresenceJoin, p.Action)
}

// --- delivery state -----------------------------------------------------

func TestInitialStatus(t *testing.T) {
	assert.Equal(t, models.StatusSent, InitialStatus(0))
	assert.Equal(t, models.StatusSent, InitialStatus(1))
	assert.Equal(t, models.StatusDelivered, InitialStatus(2))
}

func TestSendMessageStatusFromRoomOccupancy(t *testing.T) {
	s, st := testServer(openChannel("General"))
	a := connect(s, "alice", models.RoleUser)
	s.registry.Join(a, "General")

	s.handleEvent(a, envelope(t, EventSendMessage, SendMessagePayload{RoomID: "General", Text: "hi"}))
	require.Len(t, st.messages, 1)
	assert.Equal(t, models.StatusSent, st.messages[0].Status)

	b := connect(s, "bob", models.RoleUser)
	s.registry.Join(b, "General")
	drain(t, a)
	drain(t, b)

	s.handleEvent(a, envelope(t, EventSendMessage, SendMessagePayload{RoomID: "General", Text: "again"}))
	require.Len(t, st.messages, 2)
	assert.Equal(t, models.StatusDelivered, st.messages[1].Status)

	// both members got the broadcast, sender included
	assert.Equal(t, []string{EventReceiveMessage}, eventsOf(drain(t, a)))
	assert.Equal(t, []string{EventReceiveMessage}, eventsOf(drain(t, b)))
}

func TestSendDeniedIsSilent(t *testing.T) {
	announcements := &models.Channel{
		Name:         "Announcements",
		Type:         models.ChannelAnnouncement,
		AllowedRoles: []models.Role{models.RoleUser, models.RoleAdmin},
		PostingRoles: []models.Role{models.RoleAdmin},
	}
	s, st := testServer(announcements)
	a := connect(s, "alice", models.RoleUser)
	s.registry.Join(a, "Announcements")

	s.handleEvent(a, envelope(t, EventSendMessage, SendMessagePayload{RoomID: "Announcements", Text: "hi"}))

	assert.Empty(t, st.messages, "denied message must not persist")
	assert.Empty(t, drain(t, a), "denied message must not broadcast, not even an error")
}

func TestSendUnknownChannelDropped(t *testing.T) {
	s, st := testServer()
	a := connect(s, "alice", models.RoleUser)

	res := s.AcceptMessage(context.Background(), a.user, SendMessagePayload{RoomID: "nope", Text: "hi"})
	assert.False(t, res.Accepted)
	assert.Equal(t, "channel not found", res.Reason)
	assert.Empty(t, st.messages)
}

func TestAuthorComesFromSession(t *testing.T) {
	s, st := testServer(openChannel("General"))
	a := connect(s, "alice", models.RoleUser)

	s.handleEvent(a, envelope(t, EventSendMessage, SendMessagePayload{
		RoomID: "General", User: "mallory", Text: "hi",
	}))
	require.Len(t, st.messages, 1)
	assert.Equal(t, "alice", st.messages[0].User)
}

// --- read receipts ------------------------------------------------------

func TestMarkRoomReadIdempotent(t *testing.T) {
	s, st := testServer(openChannel("General"))
	alice := connect(s, "alice", models.RoleUser)
	bob := connect(s, "bob", models.RoleUser)
	s.registry.Join(alice, "General")
	s.registry.Join(bob, "General")

	s.handleEvent(alice, envelope(t, EventSendMessage, SendMessagePayload{RoomID: "General", Text: "one"}))
	s.handleEvent(bob, envelope(t, EventSendMessage, SendMessagePayload{RoomID: "General", Text: "two"}))
	drain(t, alice)
	drain(t, bob)

	for i := 0; i < 2; i++ {
		s.handleEvent(bob, envelope(t, EventMarkRoomRead, MarkReadPayload{RoomID: "General", Username: "bob"}))
	}

	require.Len(t, st.messages, 2)
	aliceMsg, bobMsg := st.messages[0], st.messages[1]

	assert.Equal(t, models.StatusRead, aliceMsg.Status)
	assert.Equal(t, []string{"bob"}, aliceMsg.ReadBy, "repeat mark-read must not duplicate")

	// the reader's own message is untouched
	assert.NotEqual(t, models.StatusRead, bobMsg.Status)
	assert.Empty(t, bobMsg.ReadBy)

	// each mark-read broadcasts a receipt to the room
	aliceFrames := drain(t, alice)
	require.NotEmpty(t, aliceFrames)
	assert.Equal(t, EventMessagesRead, aliceFrames[0].Event)
	var receipt MessagesReadPayload
	require.NoError(t, json.Unmarshal(aliceFrames[0].Data, &receipt))
	assert.Equal(t, "bob", receipt.ReadBy)
}

// --- typing -------------------------------------------------------------

func TestTypingExcludesSender(t *testing.T) {
	s, _ := testServer()
	a := connect(s, "alice", models.RoleUser)
	b := connect(s, "bob", models.RoleUser)
	s.registry.Join(a, "General")
	s.registry.Join(b, "General")

	s.handleEvent(a, envelope(t, EventTyping, TypingPayload{RoomID: "General", Username: "alice"}))

	assert.Empty(t, drain(t, a))
	frames := drain(t, b)
	require.Len(t, frames, 1)
	assert.Equal(t, EventTyping, frames[0].Event)
}

// --- signaling relay ----------------------------------------------------

func TestSignalRelay(t *testing.T) {
	s, _ := testServer()
	caller := connect(s, "alice", models.RoleUser)
	callee := connect(s, "bob", models.RoleUser)
	s.registry.Join(caller, "call:42")
	s.registry.Join(callee, "call:42")

	payload := json.RawMessage(`{"target":"call:42","sdp":{"type":"offer","sdp":"v=0..."}}`)
	s.handleEvent(caller, Envelope{Event: EventOffer, Data: payload})

	assert.Empty(t, drain(t, caller), "sender must not receive its own offer")

	frames := drain(t, callee)
	require.Len(t, frames, 1)
	assert.Equal(t, EventOffer, frames[0].Event)
	assert.JSONEq(t, string(payload), string(frames[0].Data), "payload forwarded verbatim")
}

func TestSignalWithoutTargetDropped(t *testing.T) {
	s, _ := testServer()
	a := connect(s, "alice", models.RoleUser)
	b := connect(s, "bob", models.RoleUser)
	s.registry.Join(a, "call:42")
	s.registry.Join(b, "call:42")

	s.handleEvent(a, Envelope{Event: EventICECandidate, Data: json.RawMessage(`{"candidate":"x"}`)})
	assert.Empty(t, drain(t, b))
}

// --- disconnect ---------------------------------------------------------

func TestDisconnectBroadcastsLeaveAndCleansUp(t *testing.T) {
	s, _ := testServer()
	a := connect(s, "alice", models.RoleUser)
	b := connect(s, "bob", models.RoleUser)
	s.registry.Join(a, "General")
	s.registry.Join(b, "General")
	drain(t, a)
	drain(t, b)

	s.handleUnregister(a)

	assert.Equal(t, 1, s.registry.RoomSize("General"))
	frames := drain(t, b)
	require.Len(t, frames, 1)
	var p PresencePayload
	require.NoError(t, json.Unmarshal(frames[0].Data, &p))
	assert.Equal(t, PresenceLeave, p.Action)
	assert.Equal(t, "alice", p.Username)
}

// --- eager subscribe on connect -----------------------------------------

func TestRegisterSubscribesVisibleChannels(t *testing.T) {
	s, _ := testServer(
		openChannel("General"),
		openChannel("ops", "alice"),
		openChannel("design", "someone-else"),
	)
	a := connect(s, "alice", models.RoleUser)

	s.handleRegister(a)

	assert.Equal(t, 1, s.registry.RoomSize("General"))
	assert.Equal(t, 1, s.registry.RoomSize("ops"))
	assert.Zero(t, s.registry.RoomSize("design"))
}

func envelope(t *testing.T, event string, data interface{}) Envelope {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	return Envelope{Event: event, Data: raw}
}
