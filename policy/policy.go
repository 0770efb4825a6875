package policy

import (
	"github.com/taskvault/backend/domain"
)

// Operation enumerates the task operations the policy rules on.
type Operation string

const (
	OperationList   Operation = "list"
	OperationCreate Operation = "create"
	OperationRead   Operation = "read"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
	OperationStats  Operation = "stats"
)

// Actor is the minimal identity the policy needs to decide.
type Actor struct {
	ID   string
	Role domain.Role
}

// Decision is the outcome of a policy evaluation. Reason is nil when Allowed.
type Decision struct {
	Allowed bool
	Reason  error
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(reason error) Decision {
	return Decision{Reason: reason}
}

// Decide is the pure access decision for a single actor/operation/task triple.
// It performs no I/O; callers load the task first and pass nil when it does
// not exist.
//
// For read/update/delete, existence is checked before ownership: a missing
// task yields not-found for everyone, while an existing task owned by someone
// else yields forbidden. The 404-vs-403 distinction is observable contract,
// not an accident.
func Decide(actor Actor, op Operation, task *domain.Task) Decision {
	switch op {
	case OperationCreate:
		// Any authenticated actor may create; ownership is forced to the
		// actor by the use case, never taken from the request.
		return allow()

	case OperationList:
		// Listing is scoped, not denied; see Scope.
		return allow()

	case OperationRead, OperationUpdate, OperationDelete:
		if task == nil {
			return deny(domain.ErrTaskNotFound)
		}
		if actor.Role == domain.RoleAdmin || task.OwnerID == actor.ID {
			return allow()
		}
		return deny(domain.ErrForbidden)

	case OperationStats:
		if actor.Role == domain.RoleAdmin {
			return allow()
		}
		return deny(domain.ErrAdminRequired)

	default:
		return deny(domain.ErrForbidden)
	}
}

// Scope is the ownership constraint a list query must carry. An empty OwnerID
// means unrestricted (admin).
type Scope struct {
	OwnerID string
}

// ListScope returns the filter that must constrain the store query itself.
// Non-admin results are narrowed at the query, never filtered after the
// fetch, so the count of other tenants' tasks is not observable.
func ListScope(actor Actor) Scope {
	if actor.Role == domain.RoleAdmin {
		return Scope{}
	}
	return Scope{OwnerID: actor.ID}
}
