package auth

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/taskvault/backend/domain"
	"github.com/taskvault/backend/internal/audit"
	"github.com/taskvault/backend/internal/token"
	"github.com/taskvault/backend/internal/tokencache"
	"github.com/taskvault/backend/repository"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 128
)

// UseCase implements the session lifecycle: registration, login, refresh and
// logout. Tokens themselves are stateless; the only server-side session state
// is the revocation denylist.
type UseCase struct {
	users    repository.UserRepository
	tokens   *token.Manager
	denylist tokencache.Denylist
	recorder audit.Recorder
	logger   *zap.Logger
}

func New(users repository.UserRepository, tokens *token.Manager, denylist tokencache.Denylist, recorder audit.Recorder, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		users:    users,
		tokens:   tokens,
		denylist: denylist,
		recorder: recorder,
		logger:   logger,
	}
}

// RegisterInput is the field set accepted at registration. Role is not part
// of it; every new account starts as USER.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// Register creates an account and signs the new user in.
func (uc *UseCase) Register(ctx context.Context, input RegisterInput) (*domain.User, token.Pair, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if err := validateEmail(email); err != nil {
		return nil, token.Pair{}, err
	}
	if err := validatePassword(input.Password); err != nil {
		return nil, token.Pair{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, token.Pair{}, err
	}

	user, err := uc.users.Create(ctx, &domain.User{
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Role:         domain.RoleUser,
		Active:       true,
	})
	if err != nil {
		return nil, token.Pair{}, err
	}

	pair, err := uc.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return nil, token.Pair{}, err
	}

	uc.record(audit.Event{ActorID: user.ID, Action: "auth.register", Outcome: audit.OutcomeAllowed})
	return user, pair, nil
}

// Login verifies the credentials and issues a fresh pair. The stored
// last-login timestamp is updated on success.
func (uc *UseCase) Login(ctx context.Context, email, password string) (*domain.User, token.Pair, error) {
	user, err := uc.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if domain.IsDomainError(err, domain.ErrCodeNotFound) {
			uc.record(audit.Event{Action: "auth.login", Outcome: audit.OutcomeDenied, Detail: "unknown email"})
			return nil, token.Pair{}, domain.ErrInvalidCredentials
		}
		return nil, token.Pair{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		uc.record(audit.Event{ActorID: user.ID, Action: "auth.login", Outcome: audit.OutcomeDenied, Detail: "bad password"})
		return nil, token.Pair{}, domain.ErrInvalidCredentials
	}

	if !user.IsActive() {
		uc.record(audit.Event{ActorID: user.ID, Action: "auth.login", Outcome: audit.OutcomeDenied, Detail: "deactivated"})
		return nil, token.Pair{}, domain.ErrAccountDeactivated
	}

	now := time.Now().UTC()
	if err := uc.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, token.Pair{}, err
	}
	user.LastLoginAt = &now

	pair, err := uc.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return nil, token.Pair{}, err
	}

	uc.record(audit.Event{ActorID: user.ID, Action: "auth.login", Outcome: audit.OutcomeAllowed})
	return user, pair, nil
}

// Refresh exchanges a refresh token for a fresh pair. The subject's current
// role and active flag are re-read from the store, so a role change or a
// deactivation takes effect here even while older access tokens are still
// running out their clock.
func (uc *UseCase) Refresh(ctx context.Context, refreshToken string) (token.Pair, error) {
	identity, err := uc.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return token.Pair{}, err
	}

	if uc.denylist != nil {
		revoked, err := uc.denylist.IsRevoked(ctx, identity.TokenID)
		if err != nil {
			return token.Pair{}, domain.WrapError(domain.ErrCodeInternal, "revocation check failed", err)
		}
		if revoked {
			return token.Pair{}, domain.ErrInvalidToken
		}
	}

	user, err := uc.users.GetByID(ctx, identity.UserID)
	if err != nil {
		if domain.IsDomainError(err, domain.ErrCodeNotFound) {
			return token.Pair{}, domain.ErrInvalidUser
		}
		return token.Pair{}, err
	}
	if !user.IsActive() {
		uc.record(audit.Event{ActorID: user.ID, Action: "auth.refresh", Outcome: audit.OutcomeDenied, Detail: "deactivated"})
		return token.Pair{}, domain.ErrInvalidUser
	}

	pair, err := uc.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return token.Pair{}, err
	}

	uc.record(audit.Event{ActorID: user.ID, Action: "auth.refresh", Outcome: audit.OutcomeAllowed})
	return pair, nil
}

// Logout revokes both tokens of the presented pair for their remaining
// lifetimes. Without a denylist configured this is a no-op and logout stays
// client-side only.
func (uc *UseCase) Logout(ctx context.Context, accessToken, refreshToken string) error {
	if uc.denylist == nil {
		return nil
	}

	var actorID string
	if identity, err := uc.tokens.VerifyAccess(accessToken); err == nil {
		actorID = identity.UserID
		if err := uc.denylist.Revoke(ctx, identity.TokenID, time.Until(identity.ExpiresAt)); err != nil {
			return domain.WrapError(domain.ErrCodeInternal, "revoking access token failed", err)
		}
	}
	if identity, err := uc.tokens.VerifyRefresh(refreshToken); err == nil {
		if err := uc.denylist.Revoke(ctx, identity.TokenID, time.Until(identity.ExpiresAt)); err != nil {
			return domain.WrapError(domain.ErrCodeInternal, "revoking refresh token failed", err)
		}
	}

	uc.record(audit.Event{ActorID: actorID, Action: "auth.logout", Outcome: audit.OutcomeAllowed})
	return nil
}

func (uc *UseCase) record(event audit.Event) {
	if uc.recorder == nil {
		return
	}
	if err := uc.recorder.Append(event); err != nil {
		uc.logger.Warn("audit append failed", zap.String("action", event.Action), zap.Error(err))
	}
}

func validateEmail(email string) error {
	at := strings.Index(email, "@")
	if len(email) < 3 || len(email) > 254 || at <= 0 || at == len(email)-1 {
		return domain.NewError(domain.ErrCodeInvalid, "invalid email address")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < minPasswordLength || len(password) > maxPasswordLength {
		return domain.NewError(domain.ErrCodeInvalid, "password must be between 8 and 128 characters")
	}
	return nil
}
