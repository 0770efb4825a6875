package middleware

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"github.com/taskvault/backend/domain"
	"github.com/taskvault/backend/internal/token"
)

type stubUsers struct {
	users map[string]*domain.User
}

func (s *stubUsers) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	return user, nil
}

func (s *stubUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	out := *user
	return &out, nil
}

func (s *stubUsers) GetByEmail(_ context.Context, _ string) (*domain.User, error) {
	return nil, domain.ErrUserNotFound
}

func (s *stubUsers) UpdateLastLogin(_ context.Context, _ string, _ time.Time) error {
	return nil
}

func (s *stubUsers) SetActive(_ context.Context, _ string, _ bool) error {
	return nil
}

type stubDenylist struct {
	revoked map[string]bool
}

func (s *stubDenylist) Revoke(_ context.Context, tokenID string, _ time.Duration) error {
	s.revoked[tokenID] = true
	return nil
}

func (s *stubDenylist) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	return s.revoked[tokenID], nil
}

func newTestGuard(t *testing.T) (*Guard, *stubUsers, *stubDenylist, *token.Manager) {
	t.Helper()
	tokens, err := token.NewManager(token.Config{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		AccessTTL:     time.Hour,
		RefreshTTL:    2 * time.Hour,
	})
	require.NoError(t, err)

	users := &stubUsers{users: make(map[string]*domain.User)}
	denylist := &stubDenylist{revoked: make(map[string]bool)}
	return NewGuard(tokens, users, denylist, time.Second, nil), users, denylist, tokens
}

func seedUser(users *stubUsers, role domain.Role, active bool) *domain.User {
	user := &domain.User{
		ID:     "user-" + string(role),
		Email:  "user@example.com",
		Role:   role,
		Active: active,
	}
	users.users[user.ID] = user
	return user
}

func requestWithBearer(tok string) *fasthttp.RequestCtx {
	ctx := &fasthttp.RequestCtx{}
	if tok != "" {
		ctx.Request.Header.Set("Authorization", "Bearer "+tok)
	}
	return ctx
}

func TestAuthenticate(t *testing.T) {
	guard, users, _, tokens := newTestGuard(t)
	user := seedUser(users, domain.RoleUser, true)

	pair, err := tokens.Issue(user.ID, user.Role)
	require.NoError(t, err)

	var seen *domain.User
	handler := guard.Authenticate(func(ctx *fasthttp.RequestCtx) {
		seen, _ = Identity(ctx)
	})

	ctx := requestWithBearer(pair.AccessToken)
	handler(ctx)

	require.NotNil(t, seen)
	assert.Equal(t, user.ID, seen.ID)
}

func TestAuthenticateRejections(t *testing.T) {
	guard, users, denylist, tokens := newTestGuard(t)
	active := seedUser(users, domain.RoleUser, true)

	activePair, err := tokens.Issue(active.ID, active.Role)
	require.NoError(t, err)

	ghostPair, err := tokens.Issue("no-such-user", domain.RoleUser)
	require.NoError(t, err)

	inactive := &domain.User{ID: "inactive", Role: domain.RoleUser, Active: false}
	users.users[inactive.ID] = inactive
	inactivePair, err := tokens.Issue(inactive.ID, inactive.Role)
	require.NoError(t, err)

	revokedPair, err := tokens.Issue(active.ID, active.Role)
	require.NoError(t, err)
	denylist.revoked[revokedPair.AccessID] = true

	cases := []struct {
		name       string
		token      string
		wantStatus int
	}{
		{"missing token", "", http.StatusUnauthorized},
		{"garbage token", "not.a.jwt", http.StatusUnauthorized},
		{"refresh as access", activePair.RefreshToken, http.StatusUnauthorized},
		{"unknown subject", ghostPair.AccessToken, http.StatusUnauthorized},
		{"revoked token", revokedPair.AccessToken, http.StatusUnauthorized},
		{"deactivated user", inactivePair.AccessToken, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			called := false
			handler := guard.Authenticate(func(ctx *fasthttp.RequestCtx) {
				called = true
			})

			ctx := requestWithBearer(tc.token)
			handler(ctx)

			assert.False(t, called)
			assert.Equal(t, tc.wantStatus, ctx.Response.StatusCode())
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	guard, users, _, tokens := newTestGuard(t)
	user := seedUser(users, domain.RoleUser, true)

	pair, err := tokens.Issue(user.ID, user.Role)
	require.NoError(t, err)

	t.Run("valid token attaches identity", func(t *testing.T) {
		var seen *domain.User
		handler := guard.OptionalAuth(func(ctx *fasthttp.RequestCtx) {
			seen, _ = Identity(ctx)
		})
		handler(requestWithBearer(pair.AccessToken))
		require.NotNil(t, seen)
		assert.Equal(t, user.ID, seen.ID)
	})

	t.Run("invalid token proceeds anonymously", func(t *testing.T) {
		called := false
		handler := guard.OptionalAuth(func(ctx *fasthttp.RequestCtx) {
			called = true
			_, ok := Identity(ctx)
			assert.False(t, ok)
		})

		ctx := requestWithBearer("not.a.jwt")
		handler(ctx)

		assert.True(t, called)
		assert.Equal(t, http.StatusOK, ctx.Response.StatusCode())
	})
}

func TestRequireRoles(t *testing.T) {
	guard, users, _, tokens := newTestGuard(t)
	user := seedUser(users, domain.RoleUser, true)
	admin := seedUser(users, domain.RoleAdmin, true)

	userPair, err := tokens.Issue(user.ID, user.Role)
	require.NoError(t, err)
	adminPair, err := tokens.Issue(admin.ID, admin.Role)
	require.NoError(t, err)

	adminOnly := guard.RequireRoles(domain.RoleAdmin)

	t.Run("admin passes", func(t *testing.T) {
		called := false
		handler := guard.Authenticate(adminOnly(func(ctx *fasthttp.RequestCtx) {
			called = true
		}))
		handler(requestWithBearer(adminPair.AccessToken))
		assert.True(t, called)
	})

	t.Run("non-admin is forbidden", func(t *testing.T) {
		called := false
		handler := guard.Authenticate(adminOnly(func(ctx *fasthttp.RequestCtx) {
			called = true
		}))

		ctx := requestWithBearer(userPair.AccessToken)
		handler(ctx)

		assert.False(t, called)
		assert.Equal(t, http.StatusForbidden, ctx.Response.StatusCode())
	})

	t.Run("no identity at all", func(t *testing.T) {
		called := false
		handler := adminOnly(func(ctx *fasthttp.RequestCtx) {
			called = true
		})

		ctx := &fasthttp.RequestCtx{}
		handler(ctx)

		assert.False(t, called)
		assert.Equal(t, http.StatusUnauthorized, ctx.Response.StatusCode())
	})
}
