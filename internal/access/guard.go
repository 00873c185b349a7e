// internal/access/guard.go
package access

import (
	"github.com/v1kassh/escrawl-connect/internal/models"
)

// CanManageChannels reports whether actor may create, update or delete
// channels, or trigger a system reset.
func CanManageChannels(actor models.User) bool {
	return actor.Role.AtLeast(models.RoleAdmin)
}

// CanDeleteMessage resolves the deletion hierarchy for a message whose
// author holds authorRole. authorKnown is false when the author could not
// be resolved (deleted account); admins may clean up after those.
//
// The table, first match wins:
//
//	super_admin -> any message: allow
//	admin       -> super_admin author: deny
//	admin       -> admin author (including self): deny
//	admin       -> user or unresolvable author: allow
//	user        -> deny
func CanDeleteMessage(actor models.User, authorRole models.Role, authorKnown bool) bool {
	switch actor.Role {
	case models.RoleSuperAdmin:
		return true
	case models.RoleAdmin:
		if !authorKnown {
			return true
		}
		return !authorRole.AtLeast(models.RoleAdmin)
	default:
		return false
	}
}
