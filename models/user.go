package models

// Principal is the authenticated caller as issued by the identity provider.
// The core only compares IDs; it does not manage users.
type Principal struct {
	ID    string `json:"user_id"`
	Role  string `json:"role"`
	Admin bool   `json:"-"`
}

const RoleAdmin = "admin"

// NewPrincipal builds a principal from token claims.
func NewPrincipal(id, role string) *Principal {
	return &Principal{
		ID:    id,
		Role:  role,
		Admin: role == RoleAdmin,
	}
}
