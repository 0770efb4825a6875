package admin

import (
	"context"

	"go.uber.org/zap"

	"github.com/taskvault/backend/domain"
	"github.com/taskvault/backend/internal/audit"
	"github.com/taskvault/backend/repository"
)

// AuditLog is the read side of the audit trail.
type AuditLog interface {
	Recent(limit int) ([]audit.Event, error)
}

// UseCase covers administrative actions outside the normal tenant scope:
// account activation and the audit feed. The HTTP layer already gates these
// behind the ADMIN role; the checks here are defensive.
type UseCase struct {
	users    repository.UserRepository
	log      AuditLog
	recorder audit.Recorder
	logger   *zap.Logger
}

func New(users repository.UserRepository, log AuditLog, recorder audit.Recorder, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		users:    users,
		log:      log,
		recorder: recorder,
		logger:   logger,
	}
}

// SetUserActive toggles a user's active flag. A deactivated user keeps any
// unexpired access token working until expiry; refresh is where the change
// bites.
func (uc *UseCase) SetUserActive(ctx context.Context, actor *domain.User, userID string, active bool) (*domain.User, error) {
	if !actor.IsAdmin() {
		return nil, domain.ErrAdminRequired
	}

	if err := uc.users.SetActive(ctx, userID, active); err != nil {
		return nil, err
	}

	user, err := uc.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	action := "admin.user.deactivate"
	if active {
		action = "admin.user.activate"
	}
	uc.record(audit.Event{ActorID: actor.ID, Action: action, Resource: userID, Outcome: audit.OutcomeAllowed})
	return user, nil
}

// RecentAudit returns the newest audit events.
func (uc *UseCase) RecentAudit(ctx context.Context, actor *domain.User, limit int) ([]audit.Event, error) {
	if !actor.IsAdmin() {
		return nil, domain.ErrAdminRequired
	}
	if uc.log == nil {
		return nil, nil
	}
	return uc.log.Recent(limit)
}

func (uc *UseCase) record(event audit.Event) {
	if uc.recorder == nil {
		return
	}
	if err := uc.recorder.Append(event); err != nil {
		uc.logger.Warn("audit append failed", zap.String("action", event.Action), zap.Error(err))
	}
}
