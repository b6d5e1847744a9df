package constants

const (
	Admin   = "admin"
	Manager = "manager"
	Agent   = "agent"
	Portal  = "portal"
)

// ValidRoles is the set of allowed values for Users.role.
var ValidRoles = []string{Portal, Agent, Manager, Admin}

// IsValidRole returns true if role is one of the allowed values.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}
