package settings

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"TripGuard/internal/model"
	"TripGuard/storage/kv"
)

var (
	forgottenTripConfigKey = kv.Key("forgotten_trip", "config")
	favoritesKey           = kv.Key("favorites")
	activeSessionKey       = kv.Key("trip", "active_session")
)

// Store 用户设置、收藏地址与当前行程会话的本地持久化
type Store struct {
	kv  kv.Store
	log *zap.Logger
}

func NewStore(store kv.Store, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{kv: store, log: log}
}

// GetForgottenTripConfig 读取配置，缺失或损坏时返回默认值，结果总是夹紧过的
func (s *Store) GetForgottenTripConfig(ctx context.Context) (model.ForgottenTripConfig, error) {
	cfg := model.DefaultForgottenTripConfig()
	ok, err := kv.GetJSON(ctx, s.kv, forgottenTripConfigKey, &cfg)
	if err != nil {
		if errors.Is(err, kv.ErrCorrupt) {
			s.log.Warn("Forgotten trip config is corrupt, using defaults", zap.Error(err))
			return model.DefaultForgottenTripConfig(), nil
		}
		return model.DefaultForgottenTripConfig(), err
	}
	if !ok {
		return model.DefaultForgottenTripConfig(), nil
	}
	return cfg.Clamped(), nil
}

// SetForgottenTripConfig 夹紧后保存，返回实际保存的配置
func (s *Store) SetForgottenTripConfig(ctx context.Context, cfg model.ForgottenTripConfig) (model.ForgottenTripConfig, error) {
	clamped := cfg.Clamped()
	if err := kv.SetJSON(ctx, s.kv, forgottenTripConfigKey, clamped); err != nil {
		return clamped, fmt.Errorf("save forgotten trip config: %w", err)
	}
	return clamped, nil
}

// GetFavorites 读取收藏地址，损坏时返回空列表
func (s *Store) GetFavorites(ctx context.Context) ([]model.FavoriteAddress, error) {
	var favorites []model.FavoriteAddress
	_, err := kv.GetJSON(ctx, s.kv, favoritesKey, &favorites)
	if err != nil {
		if errors.Is(err, kv.ErrCorrupt) {
			s.log.Warn("Favorites are corrupt, using empty list", zap.Error(err))
			return []model.FavoriteAddress{}, nil
		}
		return nil, err
	}
	if favorites == nil {
		favorites = []model.FavoriteAddress{}
	}
	return favorites, nil
}

// SetFavorites 整体替换收藏地址，丢弃 ID 为空的条目
func (s *Store) SetFavorites(ctx context.Context, favorites []model.FavoriteAddress) ([]model.FavoriteAddress, error) {
	cleaned := make([]model.FavoriteAddress, 0, len(favorites))
	seen := make(map[string]struct{}, len(favorites))
	for _, f := range favorites {
		if f.ID == "" {
			continue
		}
		if _, dup := seen[f.ID]; dup {
			continue
		}
		seen[f.ID] = struct{}{}
		if f.RadiusMeters < 0 {
			f.RadiusMeters = 0
		}
		cleaned = append(cleaned, f)
	}
	if err := kv.SetJSON(ctx, s.kv, favoritesKey, cleaned); err != nil {
		return nil, fmt.Errorf("save favorites: %w", err)
	}
	return cleaned, nil
}

// GetActiveSession 返回当前行程会话，没有时第二个返回值为 false
func (s *Store) GetActiveSession(ctx context.Context) (model.Session, bool, error) {
	var session model.Session
	ok, err := kv.GetJSON(ctx, s.kv, activeSessionKey, &session)
	if err != nil {
		if errors.Is(err, kv.ErrCorrupt) {
			s.log.Warn("Active session record is corrupt, treating as none", zap.Error(err))
			return model.Session{}, false, nil
		}
		return model.Session{}, false, err
	}
	if !ok || session.ID == "" || session.Status != model.SessionStatusActive {
		return model.Session{}, false, nil
	}
	return session, true, nil
}

// GetActiveSessionID 没有进行中的行程时返回空字符串
func (s *Store) GetActiveSessionID(ctx context.Context) (string, error) {
	session, ok, err := s.GetActiveSession(ctx)
	if err != nil || !ok {
		return "", err
	}
	return session.ID, nil
}

// HasActiveSession 供检测循环查询
func (s *Store) HasActiveSession(ctx context.Context) (bool, error) {
	_, ok, err := s.GetActiveSession(ctx)
	return ok, err
}

func (s *Store) SetActiveSession(ctx context.Context, session model.Session) error {
	if err := kv.SetJSON(ctx, s.kv, activeSessionKey, session); err != nil {
		return fmt.Errorf("save active session: %w", err)
	}
	return nil
}

func (s *Store) ClearActiveSession(ctx context.Context) error {
	return s.kv.Remove(ctx, activeSessionKey)
}
