package router

import (
	"github.com/cloudwego/hertz/pkg/app/server"

	"TripGuard/internal/handler"
	"TripGuard/internal/middleware"
)

func Register(h *server.Hertz, hd *handler.Handler) {
	h.Use(middleware.RecoverMiddleware())
	h.Use(middleware.CORSMiddleware())
	h.Use(middleware.OpenTelemetryMiddleware())

	h.GET("/health", hd.Health)

	v1 := h.Group("/v1")

	// 遗忘行程检测配置与收藏地址
	forgotten := v1.Group("/forgotten-trip")
	{
		forgotten.GET("/config", hd.GetForgottenTripConfig)
		forgotten.PUT("/config", hd.UpdateForgottenTripConfig)
	}
	v1.GET("/favorites", hd.ListFavorites)
	v1.PUT("/favorites", hd.ReplaceFavorites)
	v1.GET("/places", hd.ListPlaces)

	// 定位采样与后台定位
	v1.POST("/locations", hd.PushLocation)
	v1.POST("/tracking/background", hd.StartBackgroundTracking)

	// 行程发起与离线队列
	trips := v1.Group("/trips")
	{
		trips.POST("", middleware.LaunchRateLimitMiddleware(), hd.LaunchTrip)
		trips.GET("/pending", hd.ListPendingTrips)
		trips.POST("/sync", hd.SyncPendingTrips)
		trips.GET("/active", hd.GetActiveTrip)
		trips.DELETE("/active", hd.EndActiveTrip)
	}

	// 通知分发计划
	v1.POST("/dispatch/plan", hd.BuildDispatchPlan)
}
