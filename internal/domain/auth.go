package domain

// Role governs the operation set a caller may perform.
type Role string

const (
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

// ParseRole maps a provider role claim to a Role. Anything unrecognized is a member.
func ParseRole(raw string) Role {
	if Role(raw) == RoleAdmin {
		return RoleAdmin
	}
	return RoleMember
}

// Principal represents the authenticated caller.
type Principal struct {
	UserID string
	Role   Role
}

// IsAdmin reports whether the caller holds the admin role.
func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}

// Dashboard returns the landing route for the caller's role. It is a navigation hint only.
func (p *Principal) Dashboard() string {
	if p.IsAdmin() {
		return "/admin/dashboard"
	}
	return "/dashboard"
}
