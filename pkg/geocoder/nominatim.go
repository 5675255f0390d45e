package geocoder

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/hertz/pkg/app/client"
	"github.com/cloudwego/hertz/pkg/protocol"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"golang.org/x/time/rate"

	"TripGuard/internal/model"
)

const defaultBaseURL = "https://nominatim.openstreetmap.org"

type Config struct {
	BaseURL   string
	UserAgent string
	// RequestsPerSecond Nominatim 使用条款要求不超过 1
	RequestsPerSecond float64
	Timeout           time.Duration
}

// Nominatim 正向地理编码客户端
type Nominatim struct {
	cfg     Config
	client  *client.Client
	limiter *rate.Limiter
}

func NewNominatim(cfg Config) (*Nominatim, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.UserAgent == "" {
		cfg.UserAgent = "TripGuard/1.0"
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	c, err := client.NewClient(
		client.WithDialTimeout(cfg.Timeout),
		client.WithClientReadTimeout(cfg.Timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("create geocoder http client: %w", err)
	}

	return &Nominatim{
		cfg:     cfg,
		client:  c,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
	}, nil
}

type searchResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// GeocodeAddress 没有匹配结果时返回 (nil, nil)
func (n *Nominatim) GeocodeAddress(ctx context.Context, address string) (*model.Coordinates, error) {
	if err := n.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("q", address)
	query.Set("format", "jsonv2")
	query.Set("limit", "1")

	req := protocol.AcquireRequest()
	resp := protocol.AcquireResponse()
	defer protocol.ReleaseRequest(req)
	defer protocol.ReleaseResponse(resp)

	req.SetRequestURI(n.cfg.BaseURL + "/search?" + query.Encode())
	req.SetMethod(consts.MethodGet)
	req.Header.Set("User-Agent", n.cfg.UserAgent)
	req.Header.Set("Accept", "application/json")

	if err := n.client.DoTimeout(ctx, req, resp, n.cfg.Timeout); err != nil {
		return nil, fmt.Errorf("nominatim request failed: %w", err)
	}
	if resp.StatusCode() != consts.StatusOK {
		return nil, fmt.Errorf("nominatim returned status %d", resp.StatusCode())
	}

	var results []searchResult
	if err := json.Unmarshal(resp.Body(), &results); err != nil {
		return nil, fmt.Errorf("failed to parse nominatim response: %w", err)
	}
	if len(results) == 0 {
		return nil, nil
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid latitude %q: %w", results[0].Lat, err)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid longitude %q: %w", results[0].Lon, err)
	}
	return &model.Coordinates{Latitude: lat, Longitude: lon}, nil
}
