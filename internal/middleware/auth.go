package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/taskvault/backend/api/transport"
	"github.com/taskvault/backend/domain"
	"github.com/taskvault/backend/internal/token"
	"github.com/taskvault/backend/internal/tokencache"
	"github.com/taskvault/backend/repository"
)

const identityKey = "auth_identity"

// Guard verifies bearer tokens and resolves the acting identity before a
// handler runs. Every decision is re-derived per request from store state;
// nothing is cached between requests.
type Guard struct {
	tokens   *token.Manager
	users    repository.UserRepository
	denylist tokencache.Denylist
	timeout  time.Duration
	logger   *zap.Logger
}

// NewGuard wires the guard. denylist may be nil when revocation is disabled.
func NewGuard(tokens *token.Manager, users repository.UserRepository, denylist tokencache.Denylist, timeout time.Duration, logger *zap.Logger) *Guard {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{
		tokens:   tokens,
		users:    users,
		denylist: denylist,
		timeout:  timeout,
		logger:   logger,
	}
}

// Authenticate rejects the request unless a valid access token resolves to an
// active user. The resolved identity is attached to the request for
// downstream handlers.
func (g *Guard) Authenticate(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, err := g.resolve(ctx)
		if err != nil {
			g.logger.Debug("authentication rejected", zap.Error(err))
			transport.WriteError(ctx, err)
			return
		}
		ctx.SetUserValue(identityKey, user)
		next(ctx)
	}
}

// OptionalAuth attaches the identity when a valid token is present and
// silently proceeds anonymously on any failure. That degradation is the whole
// contract; nothing is reported to the caller.
func (g *Guard) OptionalAuth(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if user, err := g.resolve(ctx); err == nil {
			ctx.SetUserValue(identityKey, user)
		}
		next(ctx)
	}
}

// RequireRoles gates a handler to the given role set. It must run after
// Authenticate; the not-authenticated branch is defensive.
func (g *Guard) RequireRoles(roles ...domain.Role) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	allowed := make(map[domain.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			user, ok := Identity(ctx)
			if !ok {
				transport.WriteError(ctx, domain.ErrNotAuthenticated)
				return
			}
			if _, ok := allowed[user.Role]; !ok {
				g.logger.Debug("role gate rejected",
					zap.String("user_id", user.ID),
					zap.String("role", string(user.Role)))
				transport.WriteError(ctx, domain.ErrForbidden)
				return
			}
			next(ctx)
		}
	}
}

// Identity returns the authenticated user attached by Authenticate or
// OptionalAuth.
func Identity(ctx *fasthttp.RequestCtx) (*domain.User, bool) {
	user, ok := ctx.UserValue(identityKey).(*domain.User)
	return user, ok
}

func (g *Guard) resolve(ctx *fasthttp.RequestCtx) (*domain.User, error) {
	tokenString := extractBearer(ctx)
	if tokenString == "" {
		return nil, domain.ErrNoToken
	}

	identity, err := g.tokens.VerifyAccess(tokenString)
	if err != nil {
		return nil, err
	}

	stdCtx, cancel := context.WithTimeout(context.Background(), g.timeout)
	defer cancel()

	if g.denylist != nil {
		revoked, err := g.denylist.IsRevoked(stdCtx, identity.TokenID)
		if err != nil {
			return nil, domain.WrapError(domain.ErrCodeInternal, "revocation check failed", err)
		}
		if revoked {
			return nil, domain.ErrInvalidToken
		}
	}

	user, err := g.users.GetByID(stdCtx, identity.UserID)
	if err != nil {
		if domain.IsDomainError(err, domain.ErrCodeNotFound) {
			// Token subject vanished; the token is as good as forged.
			return nil, domain.ErrInvalidToken
		}
		return nil, err
	}
	if !user.IsActive() {
		return nil, domain.ErrAccountDeactivated
	}
	return user, nil
}

func extractBearer(ctx *fasthttp.RequestCtx) string {
	header := string(ctx.Request.Header.Peek("Authorization"))
	if header == "" {
		return ""
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}
