package model

import "time"

// TripSessionRecord 行程会话表
type TripSessionRecord struct {
	BaseModel
	PublicID            string        `gorm:"type:varchar(36);uniqueIndex;not null" json:"public_id"`
	FromAddress         string        `gorm:"type:text;not null" json:"from_address"`
	ToAddress           string        `gorm:"type:text;not null" json:"to_address"`
	ExpectedArrivalTime *time.Time    `gorm:"type:timestamptz" json:"expected_arrival_time,omitempty"`
	ShareLiveLocation   bool          `gorm:"not null;default:false" json:"share_live_location"`
	Status              SessionStatus `gorm:"type:varchar(16);not null;index" json:"status"`
	EndedAt             *time.Time    `gorm:"type:timestamptz" json:"ended_at,omitempty"`

	Contacts []TripSessionContact `gorm:"foreignKey:SessionID" json:"contacts,omitempty"`
}

func (TripSessionRecord) TableName() string {
	return "trip_sessions"
}

// TripSessionContact 行程会话关联的守护联系人
type TripSessionContact struct {
	BaseModel
	SessionID int64  `gorm:"not null;index" json:"session_id"`
	ContactID string `gorm:"type:varchar(64);not null" json:"contact_id"`
	// SignalledAt 守护人信号成功发布的时间
	SignalledAt *time.Time `gorm:"type:timestamptz" json:"signalled_at,omitempty"`
}

func (TripSessionContact) TableName() string {
	return "trip_session_contacts"
}

// ToSession 转换为领域对象
func (r TripSessionRecord) ToSession() Session {
	ids := make([]string, 0, len(r.Contacts))
	for _, c := range r.Contacts {
		ids = append(ids, c.ContactID)
	}
	return Session{
		ID:                  r.PublicID,
		FromAddress:         r.FromAddress,
		ToAddress:           r.ToAddress,
		ContactIDs:          ids,
		ExpectedArrivalTime: r.ExpectedArrivalTime,
		ShareLiveLocation:   r.ShareLiveLocation,
		Status:              r.Status,
		CreatedAt:           r.CreatedAt,
	}
}
