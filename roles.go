package auth

// UserRole is the user's role
type UserRole string

const (
	// RoleGuest is an guest role (ie. view)
	RoleGuest UserRole = "guest"
	// RoleMember us a member (i.e. view, edit)
	RoleMember UserRole = "member"
	// RoleAdmin is an admin role (i.e. view, edit, create)
	RoleAdmin UserRole = "admin"
	// RoleOwner is an admin role (i.e. view, edit, create, delete)
	RoleOwner UserRole = "owner"
)

var roleHierarchy = map[UserRole]int{
	RoleGuest:  0,
	RoleMember: 1,
	RoleAdmin:  2,
	RoleOwner:  3,
}

// IsValid checks if the role is one of the predefined valid roles
func (r UserRole) IsValid() bool {
	_, ok := roleHierarchy[r]
	return ok
}

// IsAtLeast checks if this role meets the minimum required level
func (r UserRole) IsAtLeast(minRole UserRole) bool {
	currentLevel, exists := roleHierarchy[r]
	if !exists {
		return false
	}

	minLevel, exists := roleHierarchy[minRole]
	if !exists {
		return false
	}

	return currentLevel >= minLevel
}

// Authorities lists this role and every role below it, lowest first
func (r UserRole) Authorities() []string {
	level, ok := roleHierarchy[r]
	if !ok {
		return nil
	}
	out := make([]string, 0, level+1)
	for _, role := range GetAllRoles() {
		if roleHierarchy[role] <= level {
			out = append(out, string(role))
		}
	}
	return out
}

// GetAllRoles returns all predefined roles in hierarchical order
func GetAllRoles() []UserRole {
	return []UserRole{
		RoleGuest,
		RoleMember,
		RoleAdmin,
		RoleOwner,
	}
}

// ParseRole safely parses a string into a UserRole type
func ParseRole(roleStr string) (UserRole, bool) {
	role := UserRole(roleStr)
	return role, role.IsValid()
}

// HasAuthority reports whether any of the authorities meets minRole
func HasAuthority(authorities []string, minRole string) bool {
	required, ok := ParseRole(minRole)
	if !ok {
		return false
	}
	for _, a := range authorities {
		if role, ok := ParseRole(a); ok && role.IsAtLeast(required) {
			return true
		}
	}
	return false
}
