package handler

import (
	"context"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"go.uber.org/zap"

	"TripGuard/internal/model"
	"TripGuard/pkg/errors"
	"TripGuard/pkg/response"
)

// LaunchTrip 发起行程，离线时入队并返回 202
func (h *Handler) LaunchTrip(ctx context.Context, c *app.RequestContext) {
	var req model.TripLaunchRequest
	if err := c.BindJSON(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	result, err := h.deps.Trips.Launch(ctx, req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}
	if result.Queued {
		response.Accepted(ctx, c, result)
		return
	}
	response.Success(ctx, c, result)
}

// ListPendingTrips 查询离线队列
func (h *Handler) ListPendingTrips(ctx context.Context, c *app.RequestContext) {
	items, err := h.deps.Queue.List(ctx)
	if err != nil {
		h.log.Error("Failed to list pending trips", zap.Error(err))
		response.Error(ctx, c, errors.StorageUnavailable)
		return
	}

	meta := map[string]interface{}{"count": len(items)}
	if at, last := h.deps.Syncer.LastRun(); !at.IsZero() {
		meta["last_sync_at"] = at.UTC().Format(time.RFC3339)
		meta["last_sync"] = last
	}
	response.SuccessWithMeta(ctx, c, items, meta)
}

// SyncPendingTrips 立即同步一次离线队列
func (h *Handler) SyncPendingTrips(ctx context.Context, c *app.RequestContext) {
	result, ran := h.deps.Syncer.RunOnce(ctx)
	response.SuccessWithMeta(ctx, c, result, map[string]interface{}{"ran": ran})
}

// GetActiveTrip 查询进行中的行程
func (h *Handler) GetActiveTrip(ctx context.Context, c *app.RequestContext) {
	session, err := h.deps.Trips.Active(ctx)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.Success(ctx, c, session)
}

// EndActiveTrip 结束进行中的行程
func (h *Handler) EndActiveTrip(ctx context.Context, c *app.RequestContext) {
	session, err := h.deps.Trips.End(ctx)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.Success(ctx, c, session)
}
