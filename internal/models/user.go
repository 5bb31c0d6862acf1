package models

// Role scopes what a signed-in user may do.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleSupervisor Role = "supervisor"
	RoleOperator   Role = "operator"
)

// User represents the signed-in account as the auth endpoint returns it
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
	Plant string `json:"plantId,omitempty"`
}

// CanWeigh reports whether the role may create entries and record exits.
func (r Role) CanWeigh() bool {
	return r == RoleOperator || r == RoleAdmin
}
