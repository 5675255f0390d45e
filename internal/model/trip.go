package model

import "time"

// PendingTripLaunch 离线时排队的行程发起请求
// 只有远端创建成功后才会出队，失败则保留等待下一次同步
type PendingTripLaunch struct {
	ID                string     `json:"id"`
	FromAddress       string     `json:"from_address"`
	ToAddress         string     `json:"to_address"`
	ContactIDs        []string   `json:"contact_ids"`
	ExpectedArrival   *time.Time `json:"expected_arrival_iso"`
	ShareLiveLocation bool       `json:"share_live_location"`
	QueuedAt          time.Time  `json:"queued_at_iso"`

	// 重试记录，不影响出队判定
	Attempts      int        `json:"attempts,omitempty"`
	LastError     string     `json:"last_error,omitempty"`
	LastAttemptAt *time.Time `json:"last_attempt_at,omitempty"`
}

// TripLaunchRequest 发起行程的请求（在线直发或离线入队）
type TripLaunchRequest struct {
	FromAddress       string     `json:"from_address"`
	ToAddress         string     `json:"to_address"`
	ContactIDs        []string   `json:"contact_ids"`
	ExpectedArrival   *time.Time `json:"expected_arrival_iso,omitempty"`
	ShareLiveLocation bool       `json:"share_live_location"`
}

// SyncResult 一次同步的统计结果
type SyncResult struct {
	SyncedCount    int  `json:"synced_count"`
	FailedCount    int  `json:"failed_count"`
	RemainingCount int  `json:"remaining_count"`
	Skipped        bool `json:"skipped,omitempty"` // 网络未就绪，本次未尝试
}

// NetworkState 网络探测结果，nil 表示未知
type NetworkState struct {
	IsConnected         *bool `json:"is_connected"`
	IsInternetReachable *bool `json:"is_internet_reachable"`
}

// Ready 只有两项都明确为 true 时才认为可以同步
func (s NetworkState) Ready() bool {
	return s.IsConnected != nil && *s.IsConnected &&
		s.IsInternetReachable != nil && *s.IsInternetReachable
}

// CreateSessionRequest 远端创建行程会话的参数
type CreateSessionRequest struct {
	FromAddress         string     `json:"from_address"`
	ToAddress           string     `json:"to_address"`
	ContactIDs          []string   `json:"contact_ids"`
	ExpectedArrivalTime *time.Time `json:"expected_arrival_time"`
	ShareLiveLocation   bool       `json:"share_live_location"`
}

// SessionStatus 行程会话状态
type SessionStatus string

const (
	SessionStatusActive SessionStatus = "active"
	SessionStatusEnded  SessionStatus = "ended"
)

// Session 远端创建成功的行程会话
type Session struct {
	ID                  string        `json:"id"`
	FromAddress         string        `json:"from_address"`
	ToAddress           string        `json:"to_address"`
	ContactIDs          []string      `json:"contact_ids"`
	ExpectedArrivalTime *time.Time    `json:"expected_arrival_time,omitempty"`
	ShareLiveLocation   bool          `json:"share_live_location"`
	Status              SessionStatus `json:"status"`
	CreatedAt           time.Time     `json:"created_at"`
}

// TripStartedSignal 通知守护人行程已开始
type TripStartedSignal struct {
	SessionID           string     `json:"session_id"`
	FromAddress         string     `json:"from_address"`
	ToAddress           string     `json:"to_address"`
	ContactIDs          []string   `json:"contact_ids"`
	ExpectedArrivalTime *time.Time `json:"expected_arrival_time,omitempty"`
	ShareLiveLocation   bool       `json:"share_live_location"`
	StartedAt           time.Time  `json:"started_at"`
}

// SignalResult 守护人信号的发送结果
type SignalResult struct {
	Conversations int `json:"conversations"`
}
