package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/taskvault/backend/api/transport"
	"github.com/taskvault/backend/pkg/httpcontext"
	adminUC "github.com/taskvault/backend/usecase/admin"
	taskUC "github.com/taskvault/backend/usecase/task"
)

type AdminHandler struct {
	baseHandler
	admin *adminUC.UseCase
	tasks *taskUC.UseCase
}

func NewAdminHandler(admin *adminUC.UseCase, tasks *taskUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		baseHandler: newBaseHandler(adapter, logger),
		admin:       admin,
		tasks:       tasks,
	}
}

// @Summary Aggregate task counts across all tenants
// @Tags admin
// @Router /api/v1/admin/stats [get]
func (h *AdminHandler) Stats(ctx *fasthttp.RequestCtx) {
	actor, ok := h.identity(ctx)
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	report, err := h.tasks.Stats(stdCtx, actor)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, report)
}

// @Summary Recent audit events
// @Tags admin
// @Router /api/v1/admin/audit [get]
func (h *AdminHandler) Audit(ctx *fasthttp.RequestCtx) {
	actor, ok := h.identity(ctx)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(string(ctx.QueryArgs().Peek("limit")))

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	events, err := h.admin.RecentAudit(stdCtx, actor, limit)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, events)
}

// @Summary Activate or deactivate an account
// @Tags admin
// @Router /api/v1/admin/users/{id}/active [patch]
func (h *AdminHandler) SetUserActive(ctx *fasthttp.RequestCtx) {
	actor, ok := h.identity(ctx)
	if !ok {
		return
	}

	userID, ok := ctx.UserValue("id").(string)
	if !ok || userID == "" {
		h.respondInvalid(ctx, "missing user id")
		return
	}

	var req transport.UserActiveRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondInvalid(ctx, "invalid payload")
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	user, err := h.admin.SetUserActive(stdCtx, actor, userID, req.Active)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, user)
}
