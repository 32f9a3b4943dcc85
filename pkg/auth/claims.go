package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/mashael7430-ux/MPADCS/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	StaffID     uuid.UUID
	StaffNumber string
	DisplayName string
	Role        enums.StaffRole
	JTI         string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	StaffID     uuid.UUID       `json:"staff_id"`
	StaffNumber string          `json:"staff_number"`
	DisplayName string          `json:"display_name"`
	Role        enums.StaffRole `json:"role"`
	jwt.RegisteredClaims
}

// Can reports whether the token's role grants the capability.
func (c AccessTokenClaims) Can(capability enums.Capability) bool {
	return Allows(c.Role, capability)
}
