// internal/access/resolver_test.go
package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/v1kassh/escrawl-connect/internal/models"
)

func user(id string, role models.Role) models.User {
	return models.User{ID: id, Username: id, Role: role}
}

func privateChannel(name string, members ...string) *models.Channel {
	return &models.Channel{
		Name:         name,
		Type:         models.ChannelPrivate,
		Members:      members,
		AllowedRoles: []models.Role{},
		PostingRoles: []models.Role{},
	}
}

func TestCanViewSuperAdminSeesEverything(t *testing.T) {
	super := user("s1", models.RoleSuperAdmin)

	channels := []*models.Channel{
		privateChannel("ops", "someone-else"),
		{Name: "locked", Type: models.ChannelAnnouncement, AllowedRoles: []models.Role{models.RoleAdmin}},
	}
	for _, c := range channels {
		assert.True(t, CanView(super, c), "super admin must view %s", c.Name)
		assert.True(t, CanPost(super, c), "super admin must post to %s", c.Name)
	}
}

func TestCanView(t *testing.T) {
	member := user("u1", models.RoleUser)
	outsider := user("u2", models.RoleUser)

	tests := []struct {
		name    string
		actor   models.User
		channel *models.Channel
		want    bool
	}{
		{"member of private channel", member, privateChannel("ops", "u1"), true},
		{"non-member of private channel", outsider, privateChannel("ops", "u1"), false},
		{"general is open to everyone", outsider, privateChannel("General"), true},
		{"random is open to everyone", outsider, privateChannel("Random"), true},
		{"allowed role grants view", outsider, &models.Channel{
			Name: "town-hall", Type: models.ChannelPublic,
			AllowedRoles: []models.Role{models.RoleUser},
		}, true},
		{"role not allowed", outsider, &models.Channel{
			Name: "staff", Type: models.ChannelPublic,
			AllowedRoles: []models.Role{models.RoleAdmin},
		}, false},
		{"nil channel never visible", member, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanView(tt.actor, tt.channel))
		})
	}
}

func TestCanPost(t *testing.T) {
	admin := user("a1", models.RoleAdmin)
	member := user("u1", models.RoleUser)
	outsider := user("u2", models.RoleUser)

	announcements := &models.Channel{
		Name: "Announcements", Type: models.ChannelAnnouncement,
		AllowedRoles: []models.Role{models.RoleUser, models.RoleAdmin, models.RoleSuperAdmin},
		PostingRoles: []models.Role{models.RoleAdmin, models.RoleSuperAdmin},
	}

	tests := []struct {
		name    string
		actor   models.User
		channel *models.Channel
		want    bool
	}{
		{"admin override on announcement channel", admin, announcements, true},
		{"user denied by posting roles", member, announcements, false},
		{"private channel member may post", member, privateChannel("ops", "u1"), true},
		{"private channel non-member denied", outsider, privateChannel("ops", "u1"), false},
		{"public channel posting role", member, &models.Channel{
			Name: "General", Type: models.ChannelPublic,
			PostingRoles: []models.Role{models.RoleUser},
		}, true},
		{"nil channel", member, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanPost(tt.actor, tt.channel))
		})
	}
}

func TestVisibleTo(t *testing.T) {
	channels := []*models.Channel{
		privateChannel("General"),
		privateChannel("Random"),
		privateChannel("ops", "u1"),
		privateChannel("design", "u2"),
	}

	visible := VisibleTo(user("u1", models.RoleUser), channels)
	require.Len(t, visible, 3)
	names := []string{visible[0].Name, visible[1].Name, visible[2].Name}
	assert.ElementsMatch(t, []string{"General", "Random", "ops"}, names)

	all := VisibleTo(user("s1", models.RoleSuperAdmin), channels)
	assert.Len(t, all, 4)
}

func TestRoleOrdering(t *testing.T) {
	assert.True(t, models.RoleSuperAdmin.AtLeast(models.RoleAdmin))
	assert.True(t, models.RoleAdmin.AtLeast(models.RoleUser))
	assert.False(t, models.RoleUser.AtLeast(models.RoleAdmin))
	assert.True(t, models.RoleUser.AtLeast(models.Role("banana")))
	assert.False(t, models.Role("banana").Valid())
}
