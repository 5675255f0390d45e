package middleware

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"golang.org/x/time/rate"

	"TripGuard/config"
	"TripGuard/pkg/errors"
	"TripGuard/pkg/response"
)

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	// 补充一个令牌的间隔
	Every time.Duration
	// 桶容量
	Burst int
	// 空闲多久后回收客户端的限流器
	IdleTTL time.Duration
	// 超限时返回的错误
	Err errors.Definition
}

// LaunchRateLimitConfig 行程发起限流，防止连续点击重复入队
func LaunchRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Every:   time.Duration(config.Cfg.LaunchRateLimitSecs) * time.Second,
		Burst:   config.Cfg.LaunchRateLimitBurst,
		IdleTTL: 10 * time.Minute,
		Err:     errors.LaunchRateLimited,
	}
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter 按客户端 IP 的令牌桶限流器（进程内）
type RateLimiter struct {
	config RateLimitConfig
	now    func() time.Time

	mu      sync.Mutex
	clients map[string]*clientLimiter
}

func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	if cfg.Every <= 0 {
		cfg.Every = time.Second
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 10 * time.Minute
	}
	if cfg.Err.Code == "" {
		cfg.Err = errors.LaunchRateLimited
	}
	return &RateLimiter{
		config:  cfg,
		now:     time.Now,
		clients: make(map[string]*clientLimiter),
	}
}

// Allow 检查 key 是否还有令牌，同时回收空闲的限流器
func (rl *RateLimiter) Allow(key string) (bool, *rate.Limiter) {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for k, cl := range rl.clients {
		if now.Sub(cl.lastSeen) > rl.config.IdleTTL {
			delete(rl.clients, k)
		}
	}

	cl, ok := rl.clients[key]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(rate.Every(rl.config.Every), rl.config.Burst)}
		rl.clients[key] = cl
	}
	cl.lastSeen = now
	return cl.limiter.AllowN(now, 1), cl.limiter
}

// RateLimitMiddleware 创建限流中间件
func RateLimitMiddleware(cfg RateLimitConfig) app.HandlerFunc {
	limiter := NewRateLimiter(cfg)

	return func(ctx context.Context, c *app.RequestContext) {
		allowed, l := limiter.Allow(c.ClientIP())

		c.Response.Header.Set("X-RateLimit-Limit", strconv.Itoa(limiter.config.Burst))
		c.Response.Header.Set("X-RateLimit-Remaining", strconv.Itoa(int(l.TokensAt(limiter.now()))))

		if !allowed {
			c.Response.Header.Set("Retry-After", strconv.Itoa(int(limiter.config.Every.Seconds())))
			response.Error(ctx, c, limiter.config.Err)
			c.Abort()
			return
		}

		c.Next(ctx)
	}
}

// LaunchRateLimitMiddleware 行程发起接口限流
func LaunchRateLimitMiddleware() app.HandlerFunc {
	return RateLimitMiddleware(LaunchRateLimitConfig())
}
