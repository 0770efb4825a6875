package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskvault/backend/domain"
)

func newTestManager(t *testing.T, accessTTL, refreshTTL time.Duration) *Manager {
	t.Helper()
	m, err := NewManager(Config{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		AccessTTL:     accessTTL,
		RefreshTTL:    refreshTTL,
		Issuer:        "taskvault-test",
	})
	require.NoError(t, err)
	return m
}

func TestNewManager_RequiresBothSecrets(t *testing.T) {
	_, err := NewManager(Config{AccessSecret: "only-one"})
	assert.Error(t, err)

	_, err = NewManager(Config{RefreshSecret: "only-one"})
	assert.Error(t, err)
}

func TestNewManager_DefaultsOnlyUnsetTTLs(t *testing.T) {
	m, err := NewManager(Config{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
	})
	require.NoError(t, err)

	pair, err := m.Issue("user-0", domain.RoleUser)
	require.NoError(t, err)
	now := time.Now()
	assert.WithinDuration(t, now.Add(168*time.Hour), pair.AccessExpiresAt, time.Minute)
	assert.WithinDuration(t, now.Add(720*time.Hour), pair.RefreshExpiresAt, time.Minute)

	// A negative TTL is not replaced; the pair comes out already expired.
	expired := newTestManager(t, -time.Minute, -time.Minute)
	pair, err = expired.Issue("user-0", domain.RoleUser)
	require.NoError(t, err)
	assert.True(t, pair.AccessExpiresAt.Before(now))
}

func TestIssueAndVerifyAccess(t *testing.T) {
	m := newTestManager(t, time.Hour, 2*time.Hour)

	pair, err := m.Issue("user-1", domain.RoleUser)
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	assert.NotEqual(t, pair.AccessID, pair.RefreshID)

	identity, err := m.VerifyAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", identity.UserID)
	assert.Equal(t, domain.RoleUser, identity.Role)
	assert.Equal(t, pair.AccessID, identity.TokenID)
}

func TestIssueAndVerifyRefresh(t *testing.T) {
	m := newTestManager(t, time.Hour, 2*time.Hour)

	pair, err := m.Issue("user-2", domain.RoleAdmin)
	require.NoError(t, err)

	identity, err := m.VerifyRefresh(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "user-2", identity.UserID)
	assert.Equal(t, pair.RefreshID, identity.TokenID)
}

func TestVerifyAccess_Expired(t *testing.T) {
	m := newTestManager(t, -time.Minute, time.Hour)

	pair, err := m.Issue("user-3", domain.RoleUser)
	require.NoError(t, err)

	_, err = m.VerifyAccess(pair.AccessToken)
	assert.ErrorIs(t, err, domain.ErrTokenExpired)
}

func TestVerifyRefresh_Expired(t *testing.T) {
	m := newTestManager(t, time.Hour, -time.Minute)

	pair, err := m.Issue("user-4", domain.RoleUser)
	require.NoError(t, err)

	_, err = m.VerifyRefresh(pair.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrTokenExpired)
}

func TestVerifyRefresh_RejectsAccessToken(t *testing.T) {
	m := newTestManager(t, time.Hour, time.Hour)

	pair, err := m.Issue("user-5", domain.RoleUser)
	require.NoError(t, err)

	// A syntactically valid access token must fail the discriminator check,
	// not the signature check.
	_, err = m.VerifyRefresh(pair.AccessToken)
	assert.ErrorIs(t, err, domain.ErrWrongTokenType)
}

func TestVerifyAccess_RejectsRefreshToken(t *testing.T) {
	m := newTestManager(t, time.Hour, time.Hour)

	pair, err := m.Issue("user-6", domain.RoleUser)
	require.NoError(t, err)

	// Different signing key, so the refresh token never validates as access.
	_, err = m.VerifyAccess(pair.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestVerify_CrossKeyForgery(t *testing.T) {
	m := newTestManager(t, time.Hour, time.Hour)
	other, err := NewManager(Config{
		AccessSecret:  "different-access",
		RefreshSecret: "different-refresh",
		AccessTTL:     time.Hour,
		RefreshTTL:    time.Hour,
	})
	require.NoError(t, err)

	pair, err := other.Issue("user-7", domain.RoleAdmin)
	require.NoError(t, err)

	_, err = m.VerifyAccess(pair.AccessToken)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	_, err = m.VerifyRefresh(pair.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestVerify_Malformed(t *testing.T) {
	m := newTestManager(t, time.Hour, time.Hour)

	_, err := m.VerifyAccess("not.a.jwt")
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	_, err = m.VerifyRefresh("not.a.jwt")
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}
