package handler

import (
	"context"
	"time"

	"github.com/cloudwego/hertz/pkg/app"

	"TripGuard/internal/model"
	"TripGuard/pkg/errors"
	"TripGuard/pkg/response"
)

type locationRequest struct {
	Latitude       *float64  `json:"latitude"`
	Longitude      *float64  `json:"longitude"`
	AccuracyMeters float64   `json:"accuracy_meters"`
	RecordedAt     time.Time `json:"recorded_at"`
}

type detectionStatus struct {
	InsidePlaceID *string                `json:"inside_place_id"`
	LastAlertAt   *time.Time             `json:"last_alert_at"`
	Places        []model.PreferredPlace `json:"places"`
}

// ListPlaces 当前生效的常用地点（已地理编码）与检测状态
func (h *Handler) ListPlaces(ctx context.Context, c *app.RequestContext) {
	status := detectionStatus{Places: h.deps.Detection.Places()}
	state := h.deps.Detection.State()
	if id, ok := state.InsidePlace(); ok {
		status.InsidePlaceID = &id
	}
	if at, ok := state.LastAlert(); ok {
		status.LastAlertAt = &at
	}
	response.Success(ctx, c, status)
}

// PushLocation 接收一条定位采样，转发给订阅者
func (h *Handler) PushLocation(ctx context.Context, c *app.RequestContext) {
	var req locationRequest
	if err := c.BindJSON(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}
	if req.Latitude == nil || req.Longitude == nil ||
		*req.Latitude < -90 || *req.Latitude > 90 ||
		*req.Longitude < -180 || *req.Longitude > 180 {
		response.ErrorWithDetails(ctx, c, errors.InvalidRequest, map[string]interface{}{"field": "latitude/longitude"})
		return
	}

	sample := model.LocationSample{
		Coordinates:    model.Coordinates{Latitude: *req.Latitude, Longitude: *req.Longitude},
		AccuracyMeters: req.AccuracyMeters,
		RecordedAt:     req.RecordedAt,
	}
	delivered := h.deps.Locations.Push(sample)
	response.Accepted(ctx, c, map[string]interface{}{"delivered": delivered})
}

// StartBackgroundTracking 显式开启后台定位
func (h *Handler) StartBackgroundTracking(ctx context.Context, c *app.RequestContext) {
	h.trackingMu.Lock()
	defer h.trackingMu.Unlock()

	if h.stopTracking != nil {
		response.Success(ctx, c, map[string]interface{}{"tracking": true})
		return
	}

	// 监听的生命周期跟随进程而不是本次请求
	stop, err := h.deps.Detection.StartBackgroundTracking(context.WithoutCancel(ctx))
	if err != nil {
		response.Error(ctx, c, err)
		return
	}
	h.stopTracking = stop
	response.Success(ctx, c, map[string]interface{}{"tracking": true})
}
