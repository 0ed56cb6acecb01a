package model

import "time"

// NotificationLog worker 侧的投递流水，记录每次邮件投递的结果。
type NotificationLog struct {
	ID        int       `json:"id"`
	JobID     string    `json:"job_id"`
	Kind      string    `json:"kind"`
	Recipient string    `json:"recipient"`
	Status    string    `json:"status"` // sent / failed / exhausted
	Error     string    `json:"error,omitempty"`
	Attempt   int       `json:"attempt"`
	CreatedAt time.Time `json:"created_at"`
}
