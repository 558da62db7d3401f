package model

import "time"

// Notification types.
const (
	NotificationStatusUpdate = "status-update"
	NotificationNewReport    = "new-report"
)

// Notification is an in-app message delivered to a report owner.
type Notification struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"not null;index"`
	Message   string    `json:"message" gorm:"size:500;not null"`
	Type      string    `json:"type" gorm:"size:50;not null"`
	IsRead    bool      `json:"is_read" gorm:"default:false"`
	CreatedAt time.Time `json:"created_at"`
}
