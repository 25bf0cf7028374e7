package auth

import (
	"slices"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the JWT claims issued to SACCO staff and integrations.
// The subject is the staff member's user id and doubles as the approver
// recorded on waivers and restructures.
type Claims struct {
	jwt.RegisteredClaims
	BranchID string   `json:"branch_id,omitempty"`
	Roles    []string `json:"roles"`
}

// HasRole checks if the claims include the specified role.
func (c Claims) HasRole(role string) bool {
	return slices.Contains(c.Roles, role)
}

// HasAnyRole reports whether at least one of roles is held.
func (c Claims) HasAnyRole(roles ...string) bool {
	for _, r := range roles {
		if c.HasRole(r) {
			return true
		}
	}
	return false
}

// Role constants
const (
	RoleAdmin         = "admin"
	RoleLoanOfficer   = "loan_officer"
	RoleCreditManager = "credit_manager"
	RoleTeller        = "teller"
	RoleAuditor       = "auditor"
	RoleSystem        = "system"
)
