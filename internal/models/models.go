package models

import (
	"time"
)

// Role is an ordered actor role. The order is total:
// super_admin > admin > user.
type Role string

const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

// rank maps roles onto the total order. Unknown roles rank below user.
func (r Role) rank() int {
	switch r {
	case RoleSuperAdmin:
		return 3
	case RoleAdmin:
		return 2
	case RoleUser:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether r ranks at or above other.
func (r Role) AtLeast(other Role) bool {
	return r.rank() >= other.rank()
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r.rank() > 0
}

func (r Role) String() string {
	return string(r)
}

// ParseRole normalizes a role string, falling back to user for
// anything unrecognized.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleAdmin:
		return RoleAdmin
	case RoleSuperAdmin:
		return RoleSuperAdmin
	default:
		return RoleUser
	}
}

// SuperAdminUsername is the distinguished super admin identity seeded at
// boot. It is implicitly a member of every channel and cannot be deleted.
const SuperAdminUsername = "vikash@escrawl"

// User is an authenticated identity, independent of channel membership.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Role      Role      `json:"role"`
	Verified  bool      `json:"isVerified"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// ChannelType classifies a channel.
type ChannelType string

const (
	ChannelPublic       ChannelType = "public"
	ChannelPrivate      ChannelType = "private"
	ChannelAnnouncement ChannelType = "announcement"
)

// ExemptChannels are visible to every authenticated actor irrespective
// of allowedRoles/members. Their seeded postingRoles are open too.
var ExemptChannels = map[string]bool{
	"General": true,
	"Random":  true,
}

// Channel is the unit of access control. Its name is globally unique and
// doubles as the realtime room key, so a rename must re-key live room
// subscriptions together with the persisted update.
type Channel struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Type         ChannelType `json:"type"`
	Description  string      `json:"description,omitempty"`
	CreatorID    string      `json:"creator,omitempty"`
	Members      []string    `json:"members"`
	AllowedRoles []Role      `json:"allowedRoles"`
	PostingRoles []Role      `json:"postingRoles"`
	CreatedAt    time.Time   `json:"createdAt"`
}

// HasMember reports whether the given username is in the membership set.
// Usernames are the membership key; they are immutable once registered.
func (c *Channel) HasMember(username string) bool {
	for _, m := range c.Members {
		if m == username {
			return true
		}
	}
	return false
}

// AllowsRole reports whether role is in allowedRoles.
func (c *Channel) AllowsRole(role Role) bool {
	return containsRole(c.AllowedRoles, role)
}

// PermitsPosting reports whether role is in postingRoles.
func (c *Channel) PermitsPosting(role Role) bool {
	return containsRole(c.PostingRoles, role)
}

func containsRole(roles []Role, role Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// MessageType classifies a chat message. System messages are
// server-generated and bypass author permission checks.
type MessageType string

const (
	MessageText   MessageType = "text"
	MessageFile   MessageType = "file"
	MessageSystem MessageType = "system"
)

// MessageStatus is the best-effort delivery classification. It only ever
// advances: sent -> delivered -> read.
type MessageStatus string

const (
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusRead      MessageStatus = "read"
)

// SystemAuthor is the author recorded on server-generated messages.
const SystemAuthor = "System"

// Message is one entry in a channel's append-only log. RoomID is the
// channel name at send time; deleting a channel orphans its messages.
type Message struct {
	ID        string        `json:"_id"`
	RoomID    string        `json:"roomId"`
	User      string        `json:"user"`
	Text      string        `json:"text,omitempty"`
	FileURL   string        `json:"fileUrl,omitempty"`
	FileName  string        `json:"fileName,omitempty"`
	Type      MessageType   `json:"type"`
	Status    MessageStatus `json:"status"`
	ReadBy    []string      `json:"readBy"`
	CreatedAt time.Time     `json:"createdAt"`
}
