package model

import "time"

// Conversation 私信会话
type Conversation struct {
	ID          string    `json:"id" validate:"required"`
	Title       string    `json:"title"`
	Participant string    `json:"participant"`
	LastMessage string    `json:"last_message"`
	UnreadCount int       `json:"unread_count"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Message 私信消息
type Message struct {
	ID             string    `json:"id" validate:"required"`
	ConversationID string    `json:"conversation_id"`
	Sender         string    `json:"sender"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
	// Pending 乐观插入、尚未被服务端确认, 不写入缓存
	Pending bool `json:"-"`
}

// ConversationsResponse GET /v1.0/chat/conversations
type ConversationsResponse struct {
	Conversations []Conversation `json:"conversations" validate:"required,dive"`
}

// MessagesResponse GET /v1.0/chat/conversations/{id}/messages
type MessagesResponse struct {
	Messages   []Message `json:"messages" validate:"required,dive"`
	Page       int       `json:"page"`
	TotalPages int       `json:"total_pages"`
}

// CountResponse 未读数, 缺少 count 视为响应格式错误
type CountResponse struct {
	Count *int `json:"count" validate:"required,min=0"`
}

type SendMessageInput struct {
	Content string `json:"content"`
}

type StartConversationInput struct {
	Username string `json:"username"`
}
