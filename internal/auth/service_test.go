package auth

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgauth "github.com/printloom/storefront/pkg/auth"
	"github.com/printloom/storefront/pkg/auth/session"
	"github.com/printloom/storefront/pkg/config"
	pkgerrors "github.com/printloom/storefront/pkg/errors"
	"github.com/printloom/storefront/pkg/logger"

	"github.com/printloom/storefront/internal/users"
)

type stubUserService struct {
	user     *users.UserDTO
	password string
}

func (s *stubUserService) Register(ctx context.Context, input users.RegisterInput) (*users.UserDTO, error) {
	s.user = &users.UserDTO{ID: uuid.New(), Email: input.Email, FirstName: input.FirstName, LastName: input.LastName}
	s.password = input.Password
	return s.user, nil
}

func (s *stubUserService) Authenticate(ctx context.Context, email, password string) (*users.UserDTO, error) {
	if s.user != nil && s.user.Email == email && s.password == password {
		return s.user, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
}

func (s *stubUserService) GetUser(ctx context.Context, id uuid.UUID) (*users.UserDTO, error) {
	if s.user != nil && s.user.ID == id {
		return s.user, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
}

func (s *stubUserService) EnsureAccount(ctx context.Context, input users.RegisterInput) (*users.UserDTO, error) {
	if s.user != nil {
		return s.Authenticate(ctx, input.Email, input.Password)
	}
	return s.Register(ctx, input)
}

type fakeSessions struct {
	tokens map[string]string
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{tokens: make(map[string]string)}
}

func (f *fakeSessions) Generate(ctx context.Context, accessID string) (string, error) {
	token := "refresh-" + accessID
	f.tokens[accessID] = token
	return token, nil
}

func (f *fakeSessions) Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error) {
	stored, ok := f.tokens[oldAccessID]
	if !ok || stored != provided {
		return "", "", session.ErrInvalidRefreshToken
	}
	delete(f.tokens, oldAccessID)
	newAccessID := session.NewAccessID()
	token := "refresh-" + newAccessID
	f.tokens[newAccessID] = token
	return newAccessID, token, nil
}

func (f *fakeSessions) Revoke(ctx context.Context, accessID string) error {
	delete(f.tokens, accessID)
	return nil
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret",
		Issuer:            "storefront-test",
		ExpirationMinutes: 15,
		SessionTTLMinutes: 60,
	}
}

func newAuthService(t *testing.T) (Service, *stubUserService, *fakeSessions) {
	t.Helper()
	userSvc := &stubUserService{}
	sessions := newFakeSessions()
	logg := logger.New(logger.Options{ServiceName: "auth-test", Output: io.Discard})
	svc, err := NewService(userSvc, sessions, testJWTConfig(), logg)
	require.NoError(t, err)
	return svc, userSvc, sessions
}

func registerInput() users.RegisterInput {
	return users.RegisterInput{
		Email:     "jamie@example.com",
		Password:  "hunter2hunter2",
		FirstName: "Jamie",
		LastName:  "Rivera",
	}
}

func TestRegisterIssuesTokenPair(t *testing.T) {
	svc, _, sessions := newAuthService(t)

	result, err := svc.Register(context.Background(), registerInput())
	require.NoError(t, err)
	require.NotEmpty(t, result.AccessToken)
	require.NotEmpty(t, result.RefreshToken)

	claims, err := pkgauth.ParseAccessToken(testJWTConfig(), result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, claims.UserID)
	assert.Contains(t, sessions.tokens, claims.ID, "session keyed by the token jti")
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, _, _ := newAuthService(t)
	_, err := svc.Register(context.Background(), registerInput())
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), "jamie@example.com", "wrong")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.As(err).Code())
}

func TestRefreshRotatesSession(t *testing.T) {
	svc, _, sessions := newAuthService(t)
	ctx := context.Background()

	first, err := svc.Register(ctx, registerInput())
	require.NoError(t, err)

	second, err := svc.Refresh(ctx, first.AccessToken, first.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.AccessToken, second.AccessToken)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
	assert.Len(t, sessions.tokens, 1, "old session revoked on rotation")

	// the first refresh token is now dead
	_, err = svc.Refresh(ctx, first.AccessToken, first.RefreshToken)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.As(err).Code())
}

func TestRefreshAcceptsExpiredAccessToken(t *testing.T) {
	svc, userSvc, sessions := newAuthService(t)
	ctx := context.Background()

	result, err := svc.Register(ctx, registerInput())
	require.NoError(t, err)

	claims, err := pkgauth.ParseAccessToken(testJWTConfig(), result.AccessToken)
	require.NoError(t, err)

	expired, err := pkgauth.MintAccessToken(testJWTConfig(), time.Now().Add(-time.Hour), pkgauth.AccessTokenPayload{
		UserID: userSvc.user.ID,
		Email:  userSvc.user.Email,
		JTI:    claims.ID,
	})
	require.NoError(t, err)

	refreshed, err := svc.Refresh(ctx, expired, result.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)
	assert.Len(t, sessions.tokens, 1)
}

func TestLogoutRevokesSession(t *testing.T) {
	svc, _, sessions := newAuthService(t)
	ctx := context.Background()

	result, err := svc.Register(ctx, registerInput())
	require.NoError(t, err)

	claims, err := pkgauth.ParseAccessToken(testJWTConfig(), result.AccessToken)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, claims.ID))
	assert.Empty(t, sessions.tokens)
}
