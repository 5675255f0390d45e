package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"go.uber.org/zap"

	"TripGuard/internal/model"
	"TripGuard/pkg/errors"
	"TripGuard/pkg/response"
)

// GetForgottenTripConfig 查询遗忘行程检测配置
func (h *Handler) GetForgottenTripConfig(ctx context.Context, c *app.RequestContext) {
	cfg, err := h.deps.Settings.GetForgottenTripConfig(ctx)
	if err != nil {
		h.log.Error("Failed to load forgotten trip config", zap.Error(err))
		response.Error(ctx, c, errors.StorageUnavailable)
		return
	}
	response.Success(ctx, c, cfg)
}

// UpdateForgottenTripConfig 保存配置（夹紧后），并让检测循环立即刷新
func (h *Handler) UpdateForgottenTripConfig(ctx context.Context, c *app.RequestContext) {
	var req model.ForgottenTripConfig
	if err := c.BindJSON(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	saved, err := h.deps.Settings.SetForgottenTripConfig(ctx, req)
	if err != nil {
		h.log.Error("Failed to save forgotten trip config", zap.Error(err))
		response.Error(ctx, c, errors.StorageUnavailable)
		return
	}
	h.deps.Detection.Invalidate()
	response.Success(ctx, c, saved)
}

// ListFavorites 查询收藏地址
func (h *Handler) ListFavorites(ctx context.Context, c *app.RequestContext) {
	favorites, err := h.deps.Settings.GetFavorites(ctx)
	if err != nil {
		h.log.Error("Failed to load favorites", zap.Error(err))
		response.Error(ctx, c, errors.StorageUnavailable)
		return
	}
	response.SuccessWithMeta(ctx, c, favorites, map[string]interface{}{"count": len(favorites)})
}

// ReplaceFavorites 整体替换收藏地址
func (h *Handler) ReplaceFavorites(ctx context.Context, c *app.RequestContext) {
	var req []model.FavoriteAddress
	if err := c.BindJSON(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	saved, err := h.deps.Settings.SetFavorites(ctx, req)
	if err != nil {
		h.log.Error("Failed to save favorites", zap.Error(err))
		response.Error(ctx, c, errors.StorageUnavailable)
		return
	}
	h.deps.Detection.Invalidate()
	response.SuccessWithMeta(ctx, c, saved, map[string]interface{}{"count": len(saved)})
}
