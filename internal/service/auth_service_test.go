package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/council-portal-api/internal/models"
	appErrors "github.com/noah-isme/council-portal-api/pkg/errors"
)

// fakeSessionStore keeps admins, sessions and audit rows in memory.
type fakeSessionStore struct {
	users      map[string]*models.User
	sessions   map[string]*models.RefreshToken
	audit      []*models.AuditLog
	lastLogin  map[string]time.Time
	revokedAll []string
}

func newFakeSessionStore(users ...*models.User) *fakeSessionStore {
	store := &fakeSessionStore{
		users:     make(map[string]*models.User),
		sessions:  make(map[string]*models.RefreshToken),
		lastLogin: make(map[string]time.Time),
	}
	for _, u := range users {
		store.users[u.ID] = u
	}
	return store
}

func (f *fakeSessionStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range f.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeSessionStore) FindByID(_ context.Context, id string) (*models.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeSessionStore) UpdateLastLogin(_ context.Context, id string, ts time.Time) error {
	f.lastLogin[id] = ts
	return nil
}

func (f *fakeSessionStore) UpdatePassword(_ context.Context, id, hash string, _ time.Time) error {
	if u, ok := f.users[id]; ok {
		u.PasswordHash = hash
	}
	return nil
}

func (f *fakeSessionStore) RevokeUserRefreshTokens(_ context.Context, userID string) error {
	f.revokedAll = append(f.revokedAll, userID)
	for _, s := range f.sessions {
		if s.UserID == userID {
			s.Revoked = true
		}
	}
	return nil
}

func (f *fakeSessionStore) CreateRefreshToken(_ context.Context, token *models.RefreshToken) error {
	f.sessions[token.TokenHash] = token
	return nil
}

func (f *fakeSessionStore) FindRefreshToken(_ context.Context, tokenHash string) (*models.RefreshToken, error) {
	if s, ok := f.sessions[tokenHash]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeSessionStore) RevokeRefreshToken(_ context.Context, id string, at time.Time) error {
	for _, s := range f.sessions {
		if s.ID == id {
			s.Revoked, s.RevokedAt = true, &at
		}
	}
	return nil
}

func (f *fakeSessionStore) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	f.audit = append(f.audit, log)
	return nil
}

func (f *fakeSessionStore) seedSession(id, userID, raw string, ttl time.Duration) *models.RefreshToken {
	s := &models.RefreshToken{ID: id, UserID: userID, TokenHash: hashRefreshToken(raw), ExpiresAt: time.Now().Add(ttl)}
	f.sessions[s.TokenHash] = s
	return s
}

func adminWithPassword(t *testing.T, id, email, password string, role models.UserRole) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &models.User{ID: id, Email: email, PasswordHash: string(hash), Active: true, Role: role}
}

func newTestAuth(store *fakeSessionStore, tweak ...func(*AuthConfig)) *AuthService {
	cfg := AuthConfig{AccessTokenSecret: "secret", AccessTokenExpiry: time.Hour, RefreshTokenExpiry: 24 * time.Hour}
	for _, fn := range tweak {
		fn(&cfg)
	}
	return NewAuthService(store, validator.New(), nil, cfg)
}

func TestLoginIssuesHashedSession(t *testing.T) {
	store := newFakeSessionStore(adminWithPassword(t, "a1", "chair@council.org", "password", models.RoleAdmin))
	svc := newTestAuth(store)

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "Chair@Council.org", Password: "password"})
	require.NoError(t, err)

	assert.NotEmpty(t, res.AccessToken)
	require.Contains(t, store.sessions, hashRefreshToken(res.RefreshToken))
	assert.NotContains(t, store.sessions, res.RefreshToken)
	assert.Contains(t, store.lastLogin, "a1")
	require.NotNil(t, res.User.LastLogin)
	require.Len(t, store.audit, 1)
	assert.Equal(t, models.AuditActionLogin, store.audit[0].Action)
}

func TestLoginRefusals(t *testing.T) {
	inactive := adminWithPassword(t, "a2", "gone@council.org", "password", models.RoleAdmin)
	inactive.Active = false
	store := newFakeSessionStore(
		adminWithPassword(t, "a1", "chair@council.org", "password", models.RoleAdmin),
		inactive,
		adminWithPassword(t, "v1", "viewer@council.org", "password", models.UserRole("VIEWER")),
	)
	svc := newTestAuth(store)

	cases := []struct {
		name     string
		req      models.LoginRequest
		wantCode string
	}{
		{"wrong password", models.LoginRequest{Email: "chair@council.org", Password: "guess"}, appErrors.ErrInvalidCredentials.Code},
		{"unknown email", models.LoginRequest{Email: "nobody@council.org", Password: "password"}, appErrors.ErrInvalidCredentials.Code},
		{"inactive", models.LoginRequest{Email: "gone@council.org", Password: "password"}, appErrors.ErrInactiveAccount.Code},
		{"not an admin", models.LoginRequest{Email: "viewer@council.org", Password: "password"}, appErrors.ErrForbidden.Code},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Login(context.Background(), tc.req)
			require.Error(t, err)
			assert.Equal(t, tc.wantCode, appErrors.FromError(err).Code)
		})
	}
	assert.Empty(t, store.sessions)
	assert.Empty(t, store.lastLogin)
}

func TestLoginWrongPasswordIsAudited(t *testing.T) {
	store := newFakeSessionStore(adminWithPassword(t, "a1", "chair@council.org", "password", models.RoleAdmin))
	svc := newTestAuth(store)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "chair@council.org", Password: "guess"})
	require.Error(t, err)
	assert.Equal(t, 401, appErrors.FromError(err).Status)
	require.Len(t, store.audit, 1)
	assert.Equal(t, models.AuditActionLoginFailed, store.audit[0].Action)
	assert.JSONEq(t, `{"reason":"password"}`, string(store.audit[0].NewValues))
}

func TestLoginSingleSessionRevokesPrevious(t *testing.T) {
	store := newFakeSessionStore(adminWithPassword(t, "a1", "chair@council.org", "password", models.RoleAdmin))
	old := store.seedSession("rt0", "a1", "earlier", time.Hour)
	svc := newTestAuth(store, func(c *AuthConfig) { c.SingleSession = true })

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "chair@council.org", Password: "password"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a1"}, store.revokedAll)
	assert.True(t, old.Revoked)
}

func TestRefreshRotatesAndRejectsReuse(t *testing.T) {
	store := newFakeSessionStore(&models.User{ID: "a1", Email: "chair@council.org", Active: true, Role: models.RoleAdmin})
	presented := store.seedSession("rt1", "a1", "token", time.Hour)
	svc := newTestAuth(store)

	pair, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "token"})
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEqual(t, "token", pair.RefreshToken)
	assert.True(t, presented.Revoked)
	assert.Contains(t, store.sessions, hashRefreshToken(pair.RefreshToken))

	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "token"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestRefreshRejectsExpiredSession(t *testing.T) {
	store := newFakeSessionStore(&models.User{ID: "a1", Active: true, Role: models.RoleAdmin})
	store.seedSession("rt1", "a1", "stale", -time.Minute)

	_, err := newTestAuth(store).RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "stale"})
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestChangePasswordRevokesSessions(t *testing.T) {
	user := adminWithPassword(t, "a1", "chair@council.org", "old-password", models.RoleAdmin)
	store := newFakeSessionStore(user)
	session := store.seedSession("rt1", "a1", "r1", time.Hour)
	before := user.PasswordHash

	err := newTestAuth(store).ChangePassword(context.Background(), "a1", models.ChangePasswordRequest{OldPassword: "old-password", NewPassword: "new-password"})
	require.NoError(t, err)
	assert.NotEqual(t, before, user.PasswordHash)
	assert.True(t, session.Revoked)
}

func TestLogoutChecksOwnershipAndIsIdempotent(t *testing.T) {
	store := newFakeSessionStore()
	session := store.seedSession("rt1", "owner", "r1", time.Hour)
	svc := newTestAuth(store)

	err := svc.Logout(context.Background(), "r1", "intruder", models.ClientMeta{})
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.False(t, session.Revoked)

	require.NoError(t, svc.Logout(context.Background(), "r1", "owner", models.ClientMeta{IP: "10.0.0.1"}))
	assert.True(t, session.Revoked)
	require.Len(t, store.audit, 1)
	assert.Equal(t, "10.0.0.1", store.audit[0].IPAddress)

	require.NoError(t, svc.Logout(context.Background(), "r1", "owner", models.ClientMeta{}))
	assert.Len(t, store.audit, 1)

	err = svc.Logout(context.Background(), "unknown", "owner", models.ClientMeta{})
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestMe(t *testing.T) {
	store := newFakeSessionStore(&models.User{ID: "a1", Email: "chair@council.org", FullName: "Chair", Role: models.RoleSuperAdmin})
	svc := newTestAuth(store)

	info, err := svc.Me(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, models.RoleSuperAdmin, info.Role)

	_, err = svc.Me(context.Background(), "missing")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestValidateToken(t *testing.T) {
	user := &models.User{ID: "a1", Email: "chair@council.org", Role: models.RoleAdmin}
	svc := newTestAuth(newFakeSessionStore(), func(c *AuthConfig) { c.Issuer = "council-portal"; c.AccessTokenExpiry = time.Minute })

	token, err := svc.signAccessToken(user, time.Now().UTC())
	require.NoError(t, err)
	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "a1", claims.UserID)

	foreign := newTestAuth(newFakeSessionStore(), func(c *AuthConfig) { c.Issuer = "elsewhere" })
	other, err := foreign.signAccessToken(user, time.Now().UTC())
	require.NoError(t, err)
	_, err = svc.ValidateToken(other)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)

	svc.now = func() time.Time { return time.Now().UTC().Add(2 * time.Minute) }
	_, err = svc.ValidateToken(token)
	assert.Error(t, err)
}

func TestHashPassword(t *testing.T) {
	_, err := HashPassword("short")
	require.Error(t, err)

	hash, err := HashPassword("long-enough")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("long-enough")))
}
