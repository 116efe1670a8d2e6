package access

import "visualizar-api/internal/domain/users"

// RoleSet is the closed set of roles permitted to reach a route. Routes
// declare their set once in the route table; the guard middleware is the
// only code that checks membership.
type RoleSet map[users.Role]struct{}

func Permit(roles ...users.Role) RoleSet {
	set := make(RoleSet, len(roles))
	for _, r := range roles {
		set[r] = struct{}{}
	}
	return set
}

func (s RoleSet) Allows(role users.Role) bool {
	_, ok := s[role]
	return ok
}
