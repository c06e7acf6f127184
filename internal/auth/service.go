package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	pkgauth "github.com/printloom/storefront/pkg/auth"
	"github.com/printloom/storefront/pkg/auth/session"
	"github.com/printloom/storefront/pkg/config"
	pkgerrors "github.com/printloom/storefront/pkg/errors"
	"github.com/printloom/storefront/pkg/logger"

	"github.com/printloom/storefront/internal/users"
)

// AuthResult carries the signed token pair and the account it belongs to.
type AuthResult struct {
	User         *users.UserDTO `json:"user"`
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
}

// Service issues and rotates shopper credentials.
type Service interface {
	Register(ctx context.Context, input users.RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	Refresh(ctx context.Context, accessToken, refreshToken string) (*AuthResult, error)
	Logout(ctx context.Context, accessID string) error
}

type sessioner interface {
	Generate(ctx context.Context, accessID string) (string, error)
	Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error)
	Revoke(ctx context.Context, accessID string) error
}

type service struct {
	users    users.Service
	sessions sessioner
	cfg      config.JWTConfig
	logger   *logger.Logger
	now      func() time.Time
}

// NewService constructs the auth service.
func NewService(userSvc users.Service, sessions sessioner, cfg config.JWTConfig, logg *logger.Logger) (Service, error) {
	if userSvc == nil {
		return nil, fmt.Errorf("user service required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{users: userSvc, sessions: sessions, cfg: cfg, logger: logg, now: time.Now}, nil
}

func (s *service) Register(ctx context.Context, input users.RegisterInput) (*AuthResult, error) {
	user, err := s.users.Register(ctx, input)
	if err != nil {
		return nil, err
	}
	return s.issue(ctx, user)
}

func (s *service) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return s.issue(ctx, user)
}

func (s *service) Refresh(ctx context.Context, accessToken, refreshToken string) (*AuthResult, error) {
	claims, err := pkgauth.ParseAccessTokenAllowExpired(s.cfg, accessToken)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid access token")
	}

	newAccessID, newRefreshToken, err := s.sessions.Rotate(ctx, claims.ID, refreshToken)
	if err != nil {
		if errors.Is(err, session.ErrInvalidRefreshToken) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rotate session")
	}

	user, err := s.users.GetUser(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}

	signed, err := pkgauth.MintAccessToken(s.cfg, s.now(), pkgauth.AccessTokenPayload{
		UserID: user.ID,
		Email:  user.Email,
		JTI:    newAccessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint access token")
	}

	return &AuthResult{User: user, AccessToken: signed, RefreshToken: newRefreshToken}, nil
}

func (s *service) Logout(ctx context.Context, accessID string) error {
	if err := s.sessions.Revoke(ctx, accessID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session")
	}
	s.logger.Info(ctx, "session revoked")
	return nil
}

func (s *service) issue(ctx context.Context, user *users.UserDTO) (*AuthResult, error) {
	accessID := session.NewAccessID()
	signed, err := pkgauth.MintAccessToken(s.cfg, s.now(), pkgauth.AccessTokenPayload{
		UserID: user.ID,
		Email:  user.Email,
		JTI:    accessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint access token")
	}

	refreshToken, err := s.sessions.Generate(ctx, accessID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create session")
	}

	ctx = s.logger.WithUserID(ctx, user.ID.String())
	s.logger.Info(ctx, "credentials issued")
	return &AuthResult{User: user, AccessToken: signed, RefreshToken: refreshToken}, nil
}
