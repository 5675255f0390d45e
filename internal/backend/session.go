package backend

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"TripGuard/internal/model"
	"TripGuard/pkg/errors"
)

// SessionRepository 远端行程会话存储（PostgreSQL）
type SessionRepository struct {
	db  *gorm.DB
	log *zap.Logger
	now func() time.Time
}

func NewSessionRepository(db *gorm.DB, log *zap.Logger) *SessionRepository {
	if log == nil {
		log = zap.NewNop()
	}
	return &SessionRepository{db: db, log: log, now: time.Now}
}

// newSessionRecord 组装会话及其联系人，联系人按 ID 去重
func newSessionRecord(publicID string, req model.CreateSessionRequest) model.TripSessionRecord {
	record := model.TripSessionRecord{
		PublicID:            publicID,
		FromAddress:         req.FromAddress,
		ToAddress:           req.ToAddress,
		ExpectedArrivalTime: req.ExpectedArrivalTime,
		ShareLiveLocation:   req.ShareLiveLocation,
		Status:              model.SessionStatusActive,
	}
	seen := make(map[string]struct{}, len(req.ContactIDs))
	for _, id := range req.ContactIDs {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		record.Contacts = append(record.Contacts, model.TripSessionContact{ContactID: id})
	}
	return record
}

// CreateSessionWithContacts 在一个事务内创建会话与联系人
func (r *SessionRepository) CreateSessionWithContacts(ctx context.Context, req model.CreateSessionRequest) (model.Session, error) {
	if req.FromAddress == "" || req.ToAddress == "" {
		return model.Session{}, errors.InvalidRequest
	}

	record := newSessionRecord(uuid.NewString(), req)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&record).Error
	})
	if err != nil {
		r.log.Error("Failed to create trip session",
			zap.String("from", req.FromAddress),
			zap.String("to", req.ToAddress),
			zap.Error(err),
		)
		return model.Session{}, fmt.Errorf("%w: %v", errors.TripCreationFailed, err)
	}

	r.log.Info("Trip session created",
		zap.String("session_id", record.PublicID),
		zap.Int("contacts", len(record.Contacts)),
	)
	return record.ToSession(), nil
}

// EndSession 结束会话，不存在或已结束时返回 NoActiveSession
func (r *SessionRepository) EndSession(ctx context.Context, sessionID string) error {
	now := r.now()
	res := r.db.WithContext(ctx).
		Model(&model.TripSessionRecord{}).
		Where("public_id = ? AND status = ?", sessionID, model.SessionStatusActive).
		Updates(map[string]interface{}{
			"status":     model.SessionStatusEnded,
			"ended_at":   now,
			"updated_at": now,
		})
	if res.Error != nil {
		return fmt.Errorf("end trip session %s: %w", sessionID, res.Error)
	}
	if res.RowsAffected == 0 {
		return errors.NoActiveSession
	}
	return nil
}

// MarkSignalled 记录守护人信号已发送
func (r *SessionRepository) MarkSignalled(ctx context.Context, sessionID string, at time.Time) error {
	sub := r.db.Model(&model.TripSessionRecord{}).Select("id").Where("public_id = ?", sessionID)
	return r.db.WithContext(ctx).
		Model(&model.TripSessionContact{}).
		Where("session_id = (?)", sub).
		Update("signalled_at", at).Error
}
