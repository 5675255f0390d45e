package netprobe

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/cloudwego/hertz/pkg/app/client"
	"github.com/cloudwego/hertz/pkg/protocol"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"go.uber.org/zap"

	"TripGuard/internal/model"
)

type Config struct {
	// URL 可达性探测地址，为空时 IsInternetReachable 为未知
	URL     string
	Timeout time.Duration
}

// Prober 网络状态探测：本地网卡状态 + HTTP 探测
type Prober struct {
	cfg        Config
	client     *client.Client
	log        *zap.Logger
	interfaces func() ([]net.Interface, error)
}

func New(cfg Config, log *zap.Logger) (*Prober, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	c, err := client.NewClient(client.WithDialTimeout(cfg.Timeout))
	if err != nil {
		return nil, fmt.Errorf("create probe http client: %w", err)
	}
	return &Prober{cfg: cfg, client: c, log: log, interfaces: net.Interfaces}, nil
}

// Probe 任何一项无法判断时对应字段为 nil
func (p *Prober) Probe(ctx context.Context) model.NetworkState {
	var state model.NetworkState

	connected, known := p.hasActiveInterface()
	if known {
		state.IsConnected = &connected
	}
	if known && !connected {
		reachable := false
		state.IsInternetReachable = &reachable
		return state
	}

	if p.cfg.URL == "" {
		return state
	}
	reachable := p.reachable(ctx)
	state.IsInternetReachable = &reachable
	return state
}

func (p *Prober) hasActiveInterface() (connected bool, known bool) {
	ifaces, err := p.interfaces()
	if err != nil {
		p.log.Debug("Failed to list network interfaces", zap.Error(err))
		return false, false
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp != 0 && iface.Flags&net.FlagLoopback == 0 {
			return true, true
		}
	}
	return false, true
}

func (p *Prober) reachable(ctx context.Context) bool {
	req := protocol.AcquireRequest()
	resp := protocol.AcquireResponse()
	defer protocol.ReleaseRequest(req)
	defer protocol.ReleaseResponse(resp)

	req.SetRequestURI(p.cfg.URL)
	req.SetMethod(consts.MethodGet)

	if err := p.client.DoTimeout(ctx, req, resp, p.cfg.Timeout); err != nil {
		p.log.Debug("Reachability probe failed", zap.String("url", p.cfg.URL), zap.Error(err))
		return false
	}
	code := resp.StatusCode()
	return code >= 200 && code < 400
}
