package auth

import (
	"time"

	"github.com/google/uuid"

	"github.com/mashael7430-ux/MPADCS/pkg/db/models"
	"github.com/mashael7430-ux/MPADCS/pkg/enums"
)

// LoginRequest captures the staff credentials sent to the login endpoint.
type LoginRequest struct {
	StaffNumber string `json:"staffNumber" validate:"required"`
	Password    string `json:"password" validate:"required"`
}

// TokenPair is returned by login and refresh.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// LoginResponse contains the tokens and the signed-in staff member.
type LoginResponse struct {
	TokenPair
	Staff        *StaffDTO          `json:"staff"`
	Capabilities []enums.Capability `json:"capabilities"`
}

// CreateStaffRequest registers a new unit member.
type CreateStaffRequest struct {
	StaffNumber string          `json:"staffNumber" validate:"required"`
	DisplayName string          `json:"displayName" validate:"required"`
	Role        enums.StaffRole `json:"role" validate:"required"`
	Password    string          `json:"password" validate:"required"`
}

// StaffDTO is the public projection of a staff account.
type StaffDTO struct {
	ID          uuid.UUID       `json:"id"`
	StaffNumber string          `json:"staffNumber"`
	DisplayName string          `json:"displayName"`
	Role        enums.StaffRole `json:"role"`
	Active      bool            `json:"active"`
	LastLoginAt *time.Time      `json:"lastLoginAt,omitempty"`
}

func FromModel(s *models.Staff) *StaffDTO {
	if s == nil {
		return nil
	}
	return &StaffDTO{
		ID:          s.ID,
		StaffNumber: s.StaffNumber,
		DisplayName: s.DisplayName,
		Role:        s.Role,
		Active:      s.Active,
		LastLoginAt: s.LastLoginAt,
	}
}
