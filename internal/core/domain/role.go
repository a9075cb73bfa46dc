package domain

import "strings"

// Role is the closed set of roles a portal user can hold. Values the backend
// sends outside the set decode to RoleUnknown instead of failing.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleMember  Role = "member"
	RoleUnknown Role = "unknown"
)

const (
	LoginRoute            = "/login"
	AdminDashboardRoute   = "/admin/dashboard"
	ManagerDashboardRoute = "/manager/dashboard"
	MemberDashboardRoute  = "/user/dashboard"
)

var dashboardRoutes = map[Role]string{
	RoleAdmin:   AdminDashboardRoute,
	RoleManager: ManagerDashboardRoute,
	RoleMember:  MemberDashboardRoute,
}

// ParseRole maps a raw role string onto the closed set.
func ParseRole(s string) Role {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleAdmin, RoleManager, RoleMember:
		return r
	default:
		return RoleUnknown
	}
}

// Known reports whether r is one of admin, manager or member.
func (r Role) Known() bool {
	_, ok := dashboardRoutes[r]
	return ok
}

// Routing returns the role used for route decisions. Unknown roles are
// routed as members.
func (r Role) Routing() Role {
	if r.Known() {
		return r
	}
	return RoleMember
}

// DashboardRoute returns the canonical dashboard for r.
func (r Role) DashboardRoute() string {
	return dashboardRoutes[r.Routing()]
}

func (r Role) String() string { return string(r) }

// MarshalText keeps the wire form a plain string.
func (r Role) MarshalText() ([]byte, error) {
	if r == "" {
		return []byte(RoleUnknown), nil
	}
	return []byte(r), nil
}

// UnmarshalText normalises whatever the backend sent into the closed set.
func (r *Role) UnmarshalText(b []byte) error {
	*r = ParseRole(string(b))
	return nil
}
