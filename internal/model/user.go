package model

import "time"

// User represents an operational account. Each user holds exactly one role.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// Role is one of the fixed operational functions. Roles are flat:
// no role implies another, each endpoint names the roles it accepts.
type Role string

const (
	RoleMaintenance Role = "MAINT"
	RoleLogistics   Role = "LOG"
	RolePurchasing  Role = "ACHAT"
	RoleEngineering Role = "INGE"
)

// Roles lists all known roles.
var Roles = []Role{RoleMaintenance, RoleLogistics, RolePurchasing, RoleEngineering}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleMaintenance, RoleLogistics, RolePurchasing, RoleEngineering:
		return true
	}
	return false
}
