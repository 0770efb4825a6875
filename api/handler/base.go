package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/taskvault/backend/api/transport"
	"github.com/taskvault/backend/domain"
	"github.com/taskvault/backend/internal/middleware"
	"github.com/taskvault/backend/pkg/httpcontext"
)

type baseHandler struct {
	adapter *httpcontext.Adapter
	logger  *zap.Logger
}

func newBaseHandler(adapter *httpcontext.Adapter, logger *zap.Logger) baseHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return baseHandler{adapter: adapter, logger: logger}
}

func (h baseHandler) requestContext(ctx *fasthttp.RequestCtx) (context.Context, context.CancelFunc) {
	if h.adapter != nil {
		return h.adapter.Attach(ctx)
	}
	return context.WithCancel(context.Background())
}

func (h baseHandler) respondSuccess(ctx *fasthttp.RequestCtx, status int, data interface{}) {
	transport.WriteJSON(ctx, status, transport.NewSuccess(data, nil))
}

func (h baseHandler) respondError(ctx *fasthttp.RequestCtx, err error) {
	var dErr *domain.Error
	if !errors.As(err, &dErr) || dErr.Code == domain.ErrCodeInternal {
		h.logger.Error("request failed", zap.Error(err))
	}
	transport.WriteError(ctx, err)
}

func (h baseHandler) respondInvalid(ctx *fasthttp.RequestCtx, message string) {
	transport.WriteJSON(ctx, http.StatusBadRequest,
		transport.NewError(string(domain.ErrCodeInvalid), message, nil))
}

// identity returns the authenticated user or writes the failure. Routes
// behind the guard always carry one; this is the defensive branch.
func (h baseHandler) identity(ctx *fasthttp.RequestCtx) (*domain.User, bool) {
	user, ok := middleware.Identity(ctx)
	if !ok {
		transport.WriteError(ctx, domain.ErrNotAuthenticated)
		return nil, false
	}
	return user, true
}
