// Package domain defines shared domain constants and types.
package domain

import "fmt"

// Role is one of the fixed, ordered access tiers.
type Role string

const (
	// RoleBlocked represents a user barred from every command.
	RoleBlocked Role = "blocked"
	// RoleUser represents a standard user with no elevated privileges.
	RoleUser Role = "user"
	// RoleAdmin represents elevated administrators below super admins.
	RoleAdmin Role = "admin"
	// RoleSuperAdmin represents the highest privilege tier.
	RoleSuperAdmin Role = "super_admin"
)

// Role priorities form the total order used by access checks.
const (
	RolePriorityBlocked    = 0
	RolePriorityUser       = 1
	RolePriorityAdmin      = 2
	RolePrioritySuperAdmin = 3
)

// UnknownRoleError reports a stored role tag outside the fixed hierarchy. It
// is a programming-error or data-corruption condition, never an access denial.
type UnknownRoleError struct {
	Role Role
}

func (e *UnknownRoleError) Error() string {
	return fmt.Sprintf("unknown role %q", string(e.Role))
}

// RolePriority returns the rank of a role within the hierarchy. A tag outside
// the hierarchy yields an UnknownRoleError rather than any default rank.
func RolePriority(role Role) (int, error) {
	switch role {
	case RoleBlocked:
		return RolePriorityBlocked, nil
	case RoleUser:
		return RolePriorityUser, nil
	case RoleAdmin:
		return RolePriorityAdmin, nil
	case RoleSuperAdmin:
		return RolePrioritySuperAdmin, nil
	default:
		return 0, &UnknownRoleError{Role: role}
	}
}

// ValidRole reports whether the tag belongs to the fixed hierarchy.
func ValidRole(role Role) bool {
	_, err := RolePriority(role)
	return err == nil
}
