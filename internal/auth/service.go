package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgAuth "github.com/mashael7430-ux/MPADCS/pkg/auth"
	"github.com/mashael7430-ux/MPADCS/pkg/auth/session"
	"github.com/mashael7430-ux/MPADCS/pkg/config"
	"github.com/mashael7430-ux/MPADCS/pkg/db"
	"github.com/mashael7430-ux/MPADCS/pkg/db/models"
	"github.com/mashael7430-ux/MPADCS/pkg/enums"
	pkgerrors "github.com/mashael7430-ux/MPADCS/pkg/errors"
	"github.com/mashael7430-ux/MPADCS/pkg/logger"
	"github.com/mashael7430-ux/MPADCS/pkg/security"
)

const (
	invalidCredentialsMessage = "invalid credentials"
	staffNumberConstraint     = "ux_staff_staff_number"
)

// Service defines staff sign-in and account management.
type Service interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	Refresh(ctx context.Context, accessToken, refreshToken string) (*TokenPair, error)
	Logout(ctx context.Context, accessToken string) error
	CreateStaff(ctx context.Context, actor pkgAuth.Actor, req CreateStaffRequest) (*StaffDTO, error)
	SetActive(ctx context.Context, actor pkgAuth.Actor, id uuid.UUID, active bool) (*StaffDTO, error)
	ListStaff(ctx context.Context, actor pkgAuth.Actor) ([]StaffDTO, error)
	BootstrapAdmin(ctx context.Context, cfg config.BootstrapConfig) (bool, error)
}

type sessionManager interface {
	Generate(ctx context.Context, staffID, accessID string) (string, error)
	Rotate(ctx context.Context, staffID, oldAccessID, provided string) (string, string, error)
	Revoke(ctx context.Context, staffID, accessID string) error
	RevokeAll(ctx context.Context, staffID string) error
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	StaffRepo      StaffRepository
	SessionManager sessionManager
	JWTConfig      config.JWTConfig
	PasswordConfig config.PasswordConfig
	Logger         *logger.Logger
}

type service struct {
	staff       StaffRepository
	session     sessionManager
	jwtCfg      config.JWTConfig
	passwordCfg config.PasswordConfig
	logg        *logger.Logger
	now         func() time.Time
}

// NewService constructs the staff auth service.
func NewService(params ServiceParams) (Service, error) {
	if params.StaffRepo == nil {
		return nil, fmt.Errorf("staff repository is required")
	}
	if params.SessionManager == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{
		staff:       params.StaffRepo,
		session:     params.SessionManager,
		jwtCfg:      params.JWTConfig,
		passwordCfg: params.PasswordConfig,
		logg:        params.Logger,
		now:         time.Now,
	}, nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	staff, err := s.authenticate(ctx, req.StaffNumber, req.Password)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if err := s.staff.UpdateLastLogin(ctx, staff.ID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update last login")
	}
	staff.LastLoginAt = &now

	pair, err := s.issue(ctx, now, staff.ID, staff.StaffNumber, staff.DisplayName, staff.Role)
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithFields(ctx, map[string]any{"staff_id": staff.ID.String(), "actor_role": string(staff.Role)})
	s.logg.Info(ctx, "staff signed in")
	return &LoginResponse{
		TokenPair:    *pair,
		Staff:        FromModel(staff),
		Capabilities: pkgAuth.CapabilitiesFor(staff.Role),
	}, nil
}

// Refresh rotates the refresh token tied to the (possibly expired) access token.
// Deactivated staff cannot refresh.
func (s *service) Refresh(ctx context.Context, accessToken, refreshToken string) (*TokenPair, error) {
	claims, err := pkgAuth.ParseAccessTokenAllowExpired(s.jwtCfg, strings.TrimSpace(accessToken))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	if claims.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id")
	}

	staff, err := s.staff.FindByID(ctx, claims.StaffID)
	if err != nil {
		if pkgerrors.Is(err, pkgerrors.CodeNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup staff")
	}
	if !staff.Active {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "staff account inactive")
	}

	newAccessID, newRefresh, err := s.session.Rotate(ctx, staff.ID.String(), claims.ID, refreshToken)
	if err != nil {
		if errors.Is(err, session.ErrInvalidRefreshToken) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rotate session")
	}

	token, err := pkgAuth.MintAccessToken(s.jwtCfg, s.now().UTC(), pkgAuth.AccessTokenPayload{
		StaffID:     staff.ID,
		StaffNumber: staff.StaffNumber,
		DisplayName: staff.DisplayName,
		Role:        staff.Role,
		JTI:         newAccessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	return &TokenPair{AccessToken: token, RefreshToken: newRefresh}, nil
}

func (s *service) Logout(ctx context.Context, accessToken string) error {
	claims, err := pkgAuth.ParseAccessTokenAllowExpired(s.jwtCfg, strings.TrimSpace(accessToken))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	if claims.ID == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id")
	}
	if err := s.session.Revoke(ctx, claims.StaffID.String(), claims.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session")
	}
	return nil
}

func (s *service) CreateStaff(ctx context.Context, actor pkgAuth.Actor, req CreateStaffRequest) (*StaffDTO, error) {
	if err := actor.Require(enums.CapabilityManageStaff); err != nil {
		return nil, err
	}
	staff, err := s.newStaff(req)
	if err != nil {
		return nil, err
	}
	if err := s.staff.Create(ctx, staff); err != nil {
		if db.IsUniqueViolation(err, staffNumberConstraint) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "staff number already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create staff")
	}
	ctx = s.logg.WithFields(ctx, map[string]any{"staff_id": staff.ID.String(), "role": string(staff.Role)})
	s.logg.Info(ctx, "staff member created")
	return FromModel(staff), nil
}

// SetActive toggles an account. Deactivation revokes every live session.
func (s *service) SetActive(ctx context.Context, actor pkgAuth.Actor, id uuid.UUID, active bool) (*StaffDTO, error) {
	if err := actor.Require(enums.CapabilityManageStaff); err != nil {
		return nil, err
	}
	if !active && id == actor.StaffID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot deactivate your own account")
	}
	if err := s.staff.SetActive(ctx, id, active); err != nil {
		if pkgerrors.Is(err, pkgerrors.CodeNotFound) {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update staff")
	}
	if !active {
		if err := s.session.RevokeAll(ctx, id.String()); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke sessions")
		}
	}
	staff, err := s.staff.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromModel(staff), nil
}

func (s *service) ListStaff(ctx context.Context, actor pkgAuth.Actor) ([]StaffDTO, error) {
	if err := actor.Require(enums.CapabilityManageStaff); err != nil {
		return nil, err
	}
	staff, err := s.staff.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list staff")
	}
	out := make([]StaffDTO, len(staff))
	for i := range staff {
		out[i] = *FromModel(&staff[i])
	}
	return out, nil
}

// BootstrapAdmin creates the first administrator when the staff table is empty.
// It reports whether an account was created.
func (s *service) BootstrapAdmin(ctx context.Context, cfg config.BootstrapConfig) (bool, error) {
	if !cfg.Enabled() {
		return false, nil
	}
	count, err := s.staff.Count(ctx)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count staff")
	}
	if count > 0 {
		return false, nil
	}
	staff, err := s.newStaff(CreateStaffRequest{
		StaffNumber: cfg.AdminStaffNumber,
		DisplayName: cfg.AdminName,
		Role:        enums.StaffRoleAdmin,
		Password:    cfg.AdminPassword,
	})
	if err != nil {
		return false, err
	}
	if err := s.staff.Create(ctx, staff); err != nil {
		if db.IsUniqueViolation(err, staffNumberConstraint) {
			return false, nil
		}
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create bootstrap admin")
	}
	s.logg.Info(s.logg.WithField(ctx, "staff_number", staff.StaffNumber), "bootstrap administrator created")
	return true, nil
}

func (s *service) newStaff(req CreateStaffRequest) (*models.Staff, error) {
	number := strings.ToUpper(strings.TrimSpace(req.StaffNumber))
	if number == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "staffNumber is required")
	}
	name := strings.TrimSpace(req.DisplayName)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "displayName is required")
	}
	if !req.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role").
			WithDetails(map[string]any{"role": string(req.Role)})
	}
	if err := security.ValidatePassword(req.Password); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}
	hash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	return &models.Staff{
		StaffNumber:  number,
		DisplayName:  name,
		Role:         req.Role,
		PasswordHash: hash,
		Active:       true,
	}, nil
}

func (s *service) authenticate(ctx context.Context, staffNumber, password string) (*models.Staff, error) {
	number := strings.ToUpper(strings.TrimSpace(staffNumber))
	if number == "" || password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	staff, err := s.staff.FindByStaffNumber(ctx, number)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup staff")
	}

	valid, err := security.VerifyPassword(password, staff.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	if !staff.Active {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "staff account inactive")
	}
	return staff, nil
}

func (s *service) issue(ctx context.Context, now time.Time, id uuid.UUID, number, name string, role enums.StaffRole) (*TokenPair, error) {
	accessID := session.NewAccessID()
	token, err := pkgAuth.MintAccessToken(s.jwtCfg, now, pkgAuth.AccessTokenPayload{
		StaffID:     id,
		StaffNumber: number,
		DisplayName: name,
		Role:        role,
		JTI:         accessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	refresh, err := s.session.Generate(ctx, id.String(), accessID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store refresh token")
	}
	return &TokenPair{AccessToken: token, RefreshToken: refresh}, nil
}
