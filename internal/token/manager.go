package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"github.com/taskvault/backend/domain"
)

const refreshTokenType = "refresh"

// Manager issues and verifies the stateless session token pair. Access and
// refresh tokens are signed with independent secrets, so leaking one signing
// key does not let an attacker mint the other kind.
type Manager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
}

// Config carries the two signing secrets and token lifetimes.
type Config struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
}

// NewManager validates the config and builds a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, errors.New("token: both signing secrets are required")
	}
	// Only an unset TTL gets the default; a negative TTL passes through and
	// mints tokens that are already expired.
	if cfg.AccessTTL == 0 {
		cfg.AccessTTL = 168 * time.Hour
	}
	if cfg.RefreshTTL == 0 {
		cfg.RefreshTTL = 720 * time.Hour
	}
	return &Manager{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		issuer:        cfg.Issuer,
	}, nil
}

type accessClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type refreshClaims struct {
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// Pair is one issued access/refresh token couple.
type Pair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessID         string    `json:"-"`
	RefreshID        string    `json:"-"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// AccessIdentity is the verified content of an access token.
type AccessIdentity struct {
	UserID    string
	Role      domain.Role
	TokenID   string
	ExpiresAt time.Time
}

// RefreshIdentity is the verified content of a refresh token.
type RefreshIdentity struct {
	UserID    string
	TokenID   string
	ExpiresAt time.Time
}

// Issue mints a fresh token pair for the subject. No store access happens
// here; callers are responsible for checking the subject first.
func (m *Manager) Issue(userID string, role domain.Role) (Pair, error) {
	now := time.Now().UTC()

	accessID := uuid.NewString()
	accessExp := now.Add(m.accessTTL)
	access := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        accessID,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(accessExp),
		},
	})
	accessToken, err := access.SignedString(m.accessSecret)
	if err != nil {
		return Pair{}, err
	}

	refreshID := uuid.NewString()
	refreshExp := now.Add(m.refreshTTL)
	refresh := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims{
		TokenType: refreshTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        refreshID,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(refreshExp),
		},
	})
	refreshToken, err := refresh.SignedString(m.refreshSecret)
	if err != nil {
		return Pair{}, err
	}

	return Pair{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		AccessID:         accessID,
		RefreshID:        refreshID,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// VerifyAccess checks the signature and expiry of an access token and returns
// the embedded identity.
func (m *Manager) VerifyAccess(tokenString string) (*AccessIdentity, error) {
	claims := &accessClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrInvalidToken
		}
		return m.accessSecret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		return nil, domain.ErrInvalidToken
	}
	if !token.Valid || claims.Subject == "" {
		return nil, domain.ErrInvalidToken
	}

	role := domain.Role(claims.Role)
	if !role.Valid() {
		return nil, domain.ErrInvalidToken
	}

	return &AccessIdentity{
		UserID:    claims.Subject,
		Role:      role,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// VerifyRefresh checks a refresh token. The type discriminator is inspected
// before the signature so that a well-formed access token handed in as a
// refresh token surfaces as a wrong-type failure rather than a signature
// failure.
func (m *Manager) VerifyRefresh(tokenString string) (*RefreshIdentity, error) {
	unverified := &refreshClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, unverified); err != nil {
		return nil, domain.ErrInvalidToken
	}
	if unverified.TokenType != refreshTokenType {
		return nil, domain.ErrWrongTokenType
	}

	claims := &refreshClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrInvalidToken
		}
		return m.refreshSecret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		return nil, domain.ErrInvalidToken
	}
	if !token.Valid || claims.Subject == "" {
		return nil, domain.ErrInvalidToken
	}

	return &RefreshIdentity{
		UserID:    claims.Subject,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
