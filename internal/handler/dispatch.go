package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"TripGuard/internal/dispatch"
	"TripGuard/internal/model"
	"TripGuard/pkg/response"
)

// BuildDispatchPlan 根据联系人与模式生成分发链接，不做任何发送
func (h *Handler) BuildDispatchPlan(ctx context.Context, c *app.RequestContext) {
	var req model.DispatchRequest
	if err := c.BindJSON(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	plan := dispatch.CreateNotificationDispatchPlan(req)
	h.deps.Metrics.RecordDispatchPlan(ctx, string(plan.Mode), len(plan.Issues))
	response.Success(ctx, c, plan)
}
