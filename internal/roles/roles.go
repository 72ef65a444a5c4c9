// Package roles decides what each user role is allowed to do.
//
// The check is deliberately strict: a role grants exactly its own
// capability, admins are allowed everything, and anything unknown is
// denied. Handlers never compare role strings directly.
package roles

import "github.com/devcon-dev/devcon/internal/models"

type Capability string

const (
	ActAsSelf             Capability = "act_as_self"
	ActAsParticipant      Capability = "act_as_participant"
	ActAsAmbassador       Capability = "act_as_ambassador"
	ActAsRegistrationTeam Capability = "act_as_registration_team"
	ActAsAdmin            Capability = "act_as_admin"
)

// Allows reports whether role is permitted to exercise cap. It is total:
// unknown roles and unknown capabilities always deny.
func Allows(role models.UserRole, cap Capability) bool {
	if !role.Valid() {
		return false
	}

	switch cap {
	case ActAsSelf:
		return true
	case ActAsParticipant:
		return role == models.RoleParticipant || role == models.RoleAdmin
	case ActAsAmbassador:
		return role == models.RoleAmbassador || role == models.RoleAdmin
	case ActAsRegistrationTeam:
		return role == models.RoleRegistrationTeam || role == models.RoleAdmin
	case ActAsAdmin:
		return role == models.RoleAdmin
	}

	return false
}
