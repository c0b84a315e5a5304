package rbac

// Role names. Keep these stable; they are part of auth/RBAC contracts.
const (
	RoleOwner      = "owner"
	RoleReviewer   = "reviewer"
	RoleAnalyst    = "analyst"
	RoleAgent      = "agent"
	RoleSuperAdmin = "super_admin"
)

// ReviewRoles may approve or reject pending calls.
var ReviewRoles = []string{RoleOwner, RoleReviewer}

// ReadRoles may list calls and read dashboards.
var ReadRoles = []string{RoleOwner, RoleReviewer, RoleAnalyst, RoleAgent}

func IsSuperAdmin(role string) bool { return role == RoleSuperAdmin }

// Known reports whether role is one of the roles above. Tokens are only
// issued for known roles.
func Known(role string) bool {
	switch role {
	case RoleOwner, RoleReviewer, RoleAnalyst, RoleAgent, RoleSuperAdmin:
		return true
	default:
		return false
	}
}
