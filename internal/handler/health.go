package handler

import (
	"context"
	"time"

	"github.com/cloudwego/hertz/pkg/app"

	"TripGuard/pkg/response"
)

// Health 存活检查
func (h *Handler) Health(ctx context.Context, c *app.RequestContext) {
	h.trackingMu.Lock()
	tracking := h.stopTracking != nil
	h.trackingMu.Unlock()

	response.Success(ctx, c, map[string]interface{}{
		"status":   "ok",
		"time":     h.deps.Clock().UTC().Format(time.RFC3339),
		"tracking": tracking,
	})
}
