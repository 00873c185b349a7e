// internal/realtime/router.go
package realtime

import (
	"encoding/json"
	"sync"
)

// RoomRegistry maintains connection <-> room membership and fans events
// out. It is an owned service instance handed to the realtime server,
// never ambient global state. Rooms are keyed by channel name; call
// rooms are ad-hoc keys created by join alone.
type RoomRegistry struct {
	mu          sync.RWMutex
	rooms       map[string]map[*Client]bool
	memberships map[*Client]map[string]bool
	clients     map[*Client]bool
}

func NewRoomRegistry() *RoomRegistry {
	return &RoomRegistry{
		rooms:       make(map[string]map[*Client]bool),
		memberships: make(map[*Client]map[string]bool),
		clients:     make(map[*Client]bool),
	}
}

// Register adds a connection to the global session set.
func (r *RoomRegistry) Register(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[c] = true
	if r.memberships[c] == nil {
		r.memberships[c] = make(map[string]bool)
	}
}

// Unregister removes the connection from the session set and from every
// room it was a member of, returning the rooms it left. No membership
// dangles after a disconnect.
func (r *RoomRegistry) Unregister(c *Client) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.clients, c)
	left := make([]string, 0, len(r.memberships[c]))
	for roomID := range r.memberships[c] {
		left = append(left, roomID)
		r.removeLocked(c, roomID)
	}
	delete(r.memberships, c)
	return left
}

// Join adds the connection to a room, creating the room on first join.
func (r *RoomRegistry) Join(c *Client, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.rooms[roomID] == nil {
		r.rooms[roomID] = make(map[*Client]bool)
	}
	r.rooms[roomID][c] = true
	if r.memberships[c] == nil {
		r.memberships[c] = make(map[string]bool)
	}
	r.memberships[c][roomID] = true
}

// Leave removes the connection from a room. Empty rooms are dropped.
func (r *RoomRegistry) Leave(c *Client, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(c, roomID)
	delete(r.memberships[c], roomID)
}

func (r *RoomRegistry) removeLocked(c *Client, roomID string) {
	if members, ok := r.rooms[roomID]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(r.rooms, roomID)
		}
	}
}

// RoomSize returns the number of connected sessions in a room. This is a
// best-effort snapshot used for the initial delivery status; it is not a
// delivery guarantee.
func (r *RoomRegistry) RoomSize(roomID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[roomID])
}

// Rename re-keys a room. Called under the same logical step as a
// persisted channel rename so realtime addressing never diverges from
// the catalog.
func (r *RoomRegistry) Rename(oldID, newID string) {
	if oldID == newID {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.rooms[oldID]
	if !ok {
		return
	}
	delete(r.rooms, oldID)
	r.rooms[newID] = members
	for c := range members {
		delete(r.memberships[c], oldID)
		r.memberships[c][newID] = true
	}
}

// Broadcast emits an event to every current member of a room. Pass
// exclude to skip the originating connection (typing indicators,
// signaling relay).
func (r *RoomRegistry) Broadcast(roomID, event string, data interface{}, exclude *Client) {
	frame, err := json.Marshal(outbound{Event: event, Data: data})
	if err != nil {
		return
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	for c := range r.rooms[roomID] {
		if c == exclude {
			continue
		}
		c.enqueue(frame)
	}
}

// BroadcastGlobally emits an event to every connected session regardless
// of room membership. Channel deletion and system reset use this
// deliberately, non-members included.
func (r *RoomRegistry) BroadcastGlobally(event string, data interface{}) {
	frame, err := json.Marshal(outbound{Event: event, Data: data})
	if err != nil {
		return
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	for c := range r.clients {
		c.enqueue(frame)
	}
}
