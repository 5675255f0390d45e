package model

import "time"

// LocalNotification 本地通知，立即调度，不等待送达确认
type LocalNotification struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	PlaceID    string    `json:"place_id,omitempty"`
	PlaceLabel string    `json:"place_label"`
	FiredAt    time.Time `json:"fired_at"`
}
