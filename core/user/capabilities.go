package user

// Capability names an action a role may perform. Authorization decisions go
// through the table below instead of ad-hoc role string comparisons scattered
// across handlers.
type Capability string

const (
	CapManageUsers    Capability = "users:manage"
	CapAuthorCourses  Capability = "courses:author"
	CapApproveCourses Capability = "courses:approve"
	CapEnroll         Capability = "courses:enroll"
	CapViewReports    Capability = "reports:view"
)

var roleCapabilities = map[string]map[Capability]bool{
	RoleStudent: {
		CapEnroll: true,
	},
	RoleInstructor: {
		CapAuthorCourses: true,
		CapEnroll:        true,
	},
	RoleAdmin: {
		CapManageUsers:    true,
		CapAuthorCourses:  true,
		CapApproveCourses: true,
		CapEnroll:         true,
		CapViewReports:    true,
	},
}

// HasCapability reports whether the given role grants the capability.
// Unknown roles grant nothing.
func HasCapability(role string, cap Capability) bool {
	return roleCapabilities[role][cap]
}

// AnyRoleHasCapability reports whether any of the roles grants the capability.
func AnyRoleHasCapability(roles []string, cap Capability) bool {
	for _, role := range roles {
		if HasCapability(role, cap) {
			return true
		}
	}
	return false
}

func (u *User) Can(cap Capability) bool {
	return AnyRoleHasCapability(u.Roles, cap)
}
