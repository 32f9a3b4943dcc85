package auth

import (
	"testing"

	"github.com/google/uuid"

	"github.com/mashael7430-ux/MPADCS/pkg/enums"
	pkgerrors "github.com/mashael7430-ux/MPADCS/pkg/errors"
)

func TestActorRequire(t *testing.T) {
	staffID := uuid.New()
	cases := []struct {
		name  string
		actor Actor
		cap   enums.Capability
		code  pkgerrors.Code
	}{
		{"nurse dispenses", Actor{StaffID: staffID, Role: enums.StaffRoleNurse}, enums.CapabilityDispense, ""},
		{"nurse cannot approve disposal", Actor{StaffID: staffID, Role: enums.StaffRoleNurse}, enums.CapabilityDisposalApprove, pkgerrors.CodeForbidden},
		{"pharmacist approves supply", Actor{StaffID: staffID, Role: enums.StaffRolePharmacist}, enums.CapabilitySupplyApprove, ""},
		{"anonymous", Actor{}, enums.CapabilityView, pkgerrors.CodeUnauthorized},
		{"unknown role", Actor{StaffID: staffID, Role: "janitor"}, enums.CapabilityView, pkgerrors.CodeUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.actor.Require(tc.cap)
			if tc.code == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !pkgerrors.Is(err, tc.code) {
				t.Fatalf("expected %s, got %v", tc.code, err)
			}
		})
	}
}

func TestActorFromClaims(t *testing.T) {
	id := uuid.New()
	actor := ActorFromClaims(&AccessTokenClaims{StaffID: id, DisplayName: "Sara", Role: enums.StaffRoleSupervisor})
	if actor.StaffID != id || actor.Name != "Sara" || actor.Role != enums.StaffRoleSupervisor {
		t.Fatalf("unexpected actor %+v", actor)
	}
	ref := actor.EventActor()
	if ref == nil || ref.StaffID != id || ref.Role != "supervisor" {
		t.Fatalf("unexpected event actor %+v", ref)
	}
	if (Actor{}).EventActor() != nil {
		t.Fatal("expected nil event actor for anonymous")
	}
	if got := ActorFromClaims(nil); got.StaffID != uuid.Nil {
		t.Fatalf("expected zero actor, got %+v", got)
	}
}
