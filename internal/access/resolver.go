// internal/access/resolver.go

// Package access holds the pure authorization logic: the channel access
// resolver and the admin hierarchy guard. Nothing here touches storage or
// the network; every decision is a predicate over a snapshot.
package access

import (
	"github.com/v1kassh/escrawl-connect/internal/models"
)

// CanView reports whether actor may see channel and read its messages.
// Super admins see everything; General and Random are open to every
// authenticated actor.
func CanView(actor models.User, channel *models.Channel) bool {
	if channel == nil {
		return false
	}
	if actor.Role == models.RoleSuperAdmin {
		return true
	}
	if channel.HasMember(actor.Username) {
		return true
	}
	if models.ExemptChannels[channel.Name] {
		return true
	}
	return channel.AllowsRole(actor.Role)
}

// CanPost reports whether actor may send messages into channel. Admins
// and super admins may post anywhere regardless of channel settings.
// Private channels gate on membership, everything else on postingRoles.
func CanPost(actor models.User, channel *models.Channel) bool {
	if channel == nil {
		return false
	}
	if actor.Role.AtLeast(models.RoleAdmin) {
		return true
	}
	if channel.Type == models.ChannelPrivate {
		return channel.HasMember(actor.Username)
	}
	return channel.PermitsPosting(actor.Role)
}

// VisibleTo filters channels down to those actor may list: membership
// plus the globally exempt channels. Super admins get the full set.
func VisibleTo(actor models.User, channels []*models.Channel) []*models.Channel {
	if actor.Role == models.RoleSuperAdmin {
		return channels
	}
	visible := make([]*models.Channel, 0, len(channels))
	for _, c := range channels {
		if c.HasMember(actor.Username) || models.ExemptChannels[c.Name] {
			visible = append(visible, c)
		}
	}
	return visible
}
