package auth

import (
	"github.com/angelmondragon/rentalcrm-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
)

// IdentityPayload captures the identity fields carried by a bearer token.
type IdentityPayload struct {
	UserID string
	Email  string
	Role   enums.StaffRole
}

// IdentityClaims is the token shape issued by the identity provider.
// The user id travels in the standard sub claim.
type IdentityClaims struct {
	Email string          `json:"email,omitempty"`
	Role  enums.StaffRole `json:"role"`
	jwt.RegisteredClaims
}

func (c *IdentityClaims) UserID() string {
	if c == nil {
		return ""
	}
	return c.Subject
}
