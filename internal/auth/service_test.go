package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mashael7430-ux/MPADCS/internal/testdb"
	pkgAuth "github.com/mashael7430-ux/MPADCS/pkg/auth"
	"github.com/mashael7430-ux/MPADCS/pkg/auth/session"
	"github.com/mashael7430-ux/MPADCS/pkg/config"
	"github.com/mashael7430-ux/MPADCS/pkg/enums"
	pkgerrors "github.com/mashael7430-ux/MPADCS/pkg/errors"
)

var testJWT = config.JWTConfig{
	Secret:            "secret",
	Issuer:            "mpadcs",
	ExpirationMinutes: 30,
}

type stubSessionManager struct {
	mu       sync.Mutex
	sessions map[string]string
	revoked  []string
}

func newStubSessionManager() *stubSessionManager {
	return &stubSessionManager{sessions: map[string]string{}}
}

func (s *stubSessionManager) Generate(_ context.Context, _ string, accessID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token := "refresh-" + accessID
	s.sessions[accessID] = token
	return token, nil
}

func (s *stubSessionManager) Rotate(ctx context.Context, staffID, oldAccessID, provided string) (string, string, error) {
	s.mu.Lock()
	stored, ok := s.sessions[oldAccessID]
	if !ok || stored != provided {
		s.mu.Unlock()
		return "", "", session.ErrInvalidRefreshToken
	}
	delete(s.sessions, oldAccessID)
	s.mu.Unlock()
	next := session.NewAccessID()
	token, err := s.Generate(ctx, staffID, next)
	return next, token, err
}

func (s *stubSessionManager) Revoke(_ context.Context, _ string, accessID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, accessID)
	return nil
}

func (s *stubSessionManager) RevokeAll(_ context.Context, staffID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked = append(s.revoked, staffID)
	s.sessions = map[string]string{}
	return nil
}

type harness struct {
	svc      *service
	sessions *stubSessionManager
}

func newHarness(t *testing.T) harness {
	t.Helper()
	client := testdb.New(t)
	sessions := newStubSessionManager()
	svc, err := NewService(ServiceParams{
		StaffRepo:      NewStaffRepository(client.DB()),
		SessionManager: sessions,
		JWTConfig:      testJWT,
		Logger:         testdb.Logger(),
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return harness{svc: svc.(*service), sessions: sessions}
}

func admin() pkgAuth.Actor {
	return pkgAuth.Actor{StaffID: uuid.New(), Name: "Admin", Role: enums.StaffRoleAdmin}
}

func (h harness) createNurse(t *testing.T, number string) *StaffDTO {
	t.Helper()
	created, err := h.svc.CreateStaff(context.Background(), admin(), CreateStaffRequest{
		StaffNumber: number,
		DisplayName: "Nurse Huda",
		Role:        enums.StaffRoleNurse,
		Password:    "correct-horse",
	})
	if err != nil {
		t.Fatalf("create staff: %v", err)
	}
	return created
}

func TestLoginIssuesTokensWithRole(t *testing.T) {
	h := newHarness(t)
	created := h.createNurse(t, "n-100")
	if created.StaffNumber != "N-100" {
		t.Fatalf("expected normalized staff number, got %q", created.StaffNumber)
	}

	resp, err := h.svc.Login(context.Background(), LoginRequest{StaffNumber: " n-100 ", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	claims, err := pkgAuth.ParseAccessToken(testJWT, resp.AccessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.Role != enums.StaffRoleNurse || claims.StaffID != created.ID {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if resp.RefreshToken == "" || resp.Staff.LastLoginAt == nil {
		t.Fatalf("expected refresh token and last login, got %+v", resp)
	}
	if len(resp.Capabilities) != 3 {
		t.Fatalf("expected nurse capabilities, got %v", resp.Capabilities)
	}
}

func TestLoginRejectsBadCredentialsAndInactive(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	created := h.createNurse(t, "N-200")

	if _, err := h.svc.Login(ctx, LoginRequest{StaffNumber: "N-200", Password: "wrong-password"}); !pkgerrors.Is(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized for wrong password, got %v", err)
	}
	if _, err := h.svc.Login(ctx, LoginRequest{StaffNumber: "N-999", Password: "correct-horse"}); !pkgerrors.Is(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized for unknown staff, got %v", err)
	}

	if _, err := h.svc.SetActive(ctx, admin(), created.ID, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if len(h.sessions.revoked) != 1 || h.sessions.revoked[0] != created.ID.String() {
		t.Fatalf("expected sessions revoked on deactivation, got %v", h.sessions.revoked)
	}
	if _, err := h.svc.Login(ctx, LoginRequest{StaffNumber: "N-200", Password: "correct-horse"}); !pkgerrors.Is(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized for inactive staff, got %v", err)
	}
}

func TestRefreshRotatesAndLogoutRevokes(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.createNurse(t, "N-300")

	resp, err := h.svc.Login(ctx, LoginRequest{StaffNumber: "N-300", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	h.svc.now = func() time.Time { return time.Now().Add(time.Second) }
	pair, err := h.svc.Refresh(ctx, resp.AccessToken, resp.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if pair.RefreshToken == resp.RefreshToken {
		t.Fatal("expected a rotated refresh token")
	}
	if _, err := h.svc.Refresh(ctx, resp.AccessToken, resp.RefreshToken); !pkgerrors.Is(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("old refresh token must be rejected, got %v", err)
	}

	if err := h.svc.Logout(ctx, pair.AccessToken); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := h.svc.Refresh(ctx, pair.AccessToken, pair.RefreshToken); !pkgerrors.Is(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("refresh after logout must fail, got %v", err)
	}
}

func TestCreateStaffValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.createNurse(t, "N-400")

	cases := []struct {
		name  string
		actor pkgAuth.Actor
		req   CreateStaffRequest
		code  pkgerrors.Code
	}{
		{"duplicate number", admin(), CreateStaffRequest{StaffNumber: "n-400", DisplayName: "Dup", Role: enums.StaffRoleNurse, Password: "long-enough"}, pkgerrors.CodeConflict},
		{"short password", admin(), CreateStaffRequest{StaffNumber: "N-401", DisplayName: "Short", Role: enums.StaffRoleNurse, Password: "abc"}, pkgerrors.CodeValidation},
		{"unknown role", admin(), CreateStaffRequest{StaffNumber: "N-402", DisplayName: "Role", Role: "janitor", Password: "long-enough"}, pkgerrors.CodeValidation},
		{"not a manager of staff", pkgAuth.Actor{StaffID: uuid.New(), Role: enums.StaffRoleNurseManager}, CreateStaffRequest{StaffNumber: "N-403", DisplayName: "X", Role: enums.StaffRoleNurse, Password: "long-enough"}, pkgerrors.CodeForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := h.svc.CreateStaff(ctx, tc.actor, tc.req); !pkgerrors.Is(err, tc.code) {
				t.Fatalf("expected %s, got %v", tc.code, err)
			}
		})
	}
}

func TestBootstrapAdminOnlyWhenEmpty(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	cfg := config.BootstrapConfig{AdminStaffNumber: "admin-1", AdminPassword: "bootstrap-pass", AdminName: "Unit Administrator"}

	created, err := h.svc.BootstrapAdmin(ctx, cfg)
	if err != nil || !created {
		t.Fatalf("expected bootstrap admin, created=%v err=%v", created, err)
	}
	created, err = h.svc.BootstrapAdmin(ctx, cfg)
	if err != nil || created {
		t.Fatalf("expected no second bootstrap, created=%v err=%v", created, err)
	}
	resp, err := h.svc.Login(ctx, LoginRequest{StaffNumber: "ADMIN-1", Password: "bootstrap-pass"})
	if err != nil {
		t.Fatalf("admin login: %v", err)
	}
	if resp.Staff.Role != enums.StaffRoleAdmin {
		t.Fatalf("expected admin role, got %s", resp.Staff.Role)
	}

	skipped, err := newHarness(t).svc.BootstrapAdmin(ctx, config.BootstrapConfig{})
	if err != nil || skipped {
		t.Fatalf("disabled bootstrap must be a no-op, got %v %v", skipped, err)
	}
}
