package domain

// AgentRole enumerates portal operator roles.
type AgentRole string

const (
	AgentRoleAgent      AgentRole = "AGENT"
	AgentRoleSuperAdmin AgentRole = "SUPER_ADMIN"
)

// Agent models a human operator of the inbox portal.
//
// The JSON tags mirror the column names of the hosted store so records
// round-trip through the relay without translation. Password holds either a
// bcrypt hash (records created by this service) or plaintext (records synced
// from the legacy store).
type Agent struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	Password        string    `json:"password"`
	Role            AgentRole `json:"role"`
	Avatar          string    `json:"avatar"`
	Status          string    `json:"status"`
	AssignedPageIDs []string  `json:"assignedPageIds"`
}

// IsAdmin reports whether the agent holds the super-admin role.
func (a Agent) IsAdmin() bool {
	return a.Role == AgentRoleSuperAdmin
}

// AssignedTo reports whether the agent is assigned to the given page.
func (a Agent) AssignedTo(pageID string) bool {
	for _, id := range a.AssignedPageIDs {
		if id == pageID {
			return true
		}
	}
	return false
}
