// internal/access/guard_test.go
package access

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/v1kassh/escrawl-connect/internal/models"
)

func TestCanDeleteMessage(t *testing.T) {
	tests := []struct {
		name        string
		actor       models.Role
		authorRole  models.Role
		authorKnown bool
		want        bool
	}{
		{"super admin deletes user message", models.RoleSuperAdmin, models.RoleUser, true, true},
		{"super admin deletes admin message", models.RoleSuperAdmin, models.RoleAdmin, true, true},
		{"super admin deletes super admin message", models.RoleSuperAdmin, models.RoleSuperAdmin, true, true},
		{"admin deletes user message", models.RoleAdmin, models.RoleUser, true, true},
		{"admin denied on super admin message", models.RoleAdmin, models.RoleSuperAdmin, true, false},
		{"admin denied on other admin message", models.RoleAdmin, models.RoleAdmin, true, false},
		{"admin deletes orphaned-author message", models.RoleAdmin, "", false, true},
		{"user never deletes", models.RoleUser, models.RoleUser, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actor := models.User{ID: "actor", Role: tt.actor}
			assert.Equal(t, tt.want, CanDeleteMessage(actor, tt.authorRole, tt.authorKnown))
		})
	}
}

func TestAdminCannotDeleteOwnMessage(t *testing.T) {
	// The hierarchy denies admin-authored deletions even when the actor
	// is the author.
	admin := models.User{ID: "a1", Username: "alice", Role: models.RoleAdmin}
	assert.False(t, CanDeleteMessage(admin, models.RoleAdmin, true))
}

func TestCanManageChannels(t *testing.T) {
	assert.True(t, CanManageChannels(models.User{Role: models.RoleSuperAdmin}))
	assert.True(t, CanManageChannels(models.User{Role: models.RoleAdmin}))
	assert.False(t, CanManageChannels(models.User{Role: models.RoleUser}))
}
