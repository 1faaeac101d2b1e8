package model

import "time"

// 通知类型
const (
	TypeComment = "comment"
	TypeReply   = "reply"
	TypeVote    = "vote"
	TypeMention = "mention"
)

// Notification 站内通知
type Notification struct {
	ID        string    `json:"id" validate:"required"`
	Type      string    `json:"type"`
	Actor     string    `json:"actor"`
	TopicID   string    `json:"topic_id,omitempty"`
	CommentID string    `json:"comment_id,omitempty"`
	Content   string    `json:"content"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// UnreadCounts 两个相互独立的未读计数
type UnreadCounts struct {
	Chat          int `json:"chat"`
	Notifications int `json:"notifications"`
}

// Total 角标总数
func (c UnreadCounts) Total() int {
	return c.Chat + c.Notifications
}

// NotificationsResponse GET /v1.0/notifications
type NotificationsResponse struct {
	Notifications []Notification `json:"notifications" validate:"required,dive"`
	Page          int            `json:"page"`
	TotalPages    int            `json:"total_pages"`
}

// CountResponse 未读数, 缺少 count 视为响应格式错误
type CountResponse struct {
	Count *int `json:"count" validate:"required,min=0"`
}
