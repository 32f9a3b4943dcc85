package auth

import (
	"github.com/google/uuid"

	"github.com/mashael7430-ux/MPADCS/pkg/enums"
	pkgerrors "github.com/mashael7430-ux/MPADCS/pkg/errors"
	"github.com/mashael7430-ux/MPADCS/pkg/outbox"
)

// Actor is the authenticated staff member behind a service call.
type Actor struct {
	StaffID uuid.UUID
	Name    string
	Role    enums.StaffRole
}

// ActorFromClaims builds an Actor from verified access token claims.
func ActorFromClaims(claims *AccessTokenClaims) Actor {
	if claims == nil {
		return Actor{}
	}
	return Actor{StaffID: claims.StaffID, Name: claims.DisplayName, Role: claims.Role}
}

// Require fails with FORBIDDEN unless the actor's role grants capability.
func (a Actor) Require(capability enums.Capability) error {
	if a.StaffID == uuid.Nil || !a.Role.IsValid() {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "staff identity required")
	}
	if !Allows(a.Role, capability) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "role lacks capability").
			WithDetails(map[string]any{"capability": capability, "role": a.Role})
	}
	return nil
}

// EventActor returns the outbox actor reference for a.
func (a Actor) EventActor() *outbox.ActorRef {
	if a.StaffID == uuid.Nil {
		return nil
	}
	return &outbox.ActorRef{StaffID: a.StaffID, Name: a.Name, Role: string(a.Role)}
}
