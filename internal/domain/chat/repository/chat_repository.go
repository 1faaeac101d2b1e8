package repository

import (
	"context"
	"net/url"

	"forum_client/internal/domain/chat/model"
	"forum_client/internal/pkg/apiclient"
)

// ChatRepository 私信接口
type ChatRepository interface {
	GetConversations(ctx context.Context) ([]model.Conversation, error)
	StartConversation(ctx context.Context, username string) (*model.Conversation, error)
	// GetMessages 只取第一页
	GetMessages(ctx context.Context, conversationID string) ([]model.Message, error)
	SendMessage(ctx context.Context, conversationID, content string) (*model.Message, error)
	UnreadCount(ctx context.Context) (int, error)
}

type chatRepository struct {
	api *apiclient.Client
}

func NewChatRepository(api *apiclient.Client) ChatRepository {
	return &chatRepository{api: api}
}

func conversationPath(id string) string {
	return "/v1.0/chat/conversations/" + url.PathEscape(id)
}

func (r *chatRepository) GetConversations(ctx context.Context) ([]model.Conversation, error) {
	var resp model.ConversationsResponse
	if err := r.api.Get(ctx, "/v1.0/chat/conversations", &resp); err != nil {
		return nil, err
	}
	return resp.Conversations, nil
}

func (r *chatRepository) StartConversation(ctx context.Context, username string) (*model.Conversation, error) {
	var conv model.Conversation
	if err := r.api.Post(ctx, "/v1.0/chat/conversations", model.StartConversationInput{Username: username}, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *chatRepository) GetMessages(ctx context.Context, conversationID string) ([]model.Message, error) {
	var resp model.MessagesResponse
	if err := r.api.Get(ctx, conversationPath(conversationID)+"/messages?page=1", &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

func (r *chatRepository) SendMessage(ctx context.Context, conversationID, content string) (*model.Message, error) {
	var msg model.Message
	if err := r.api.Post(ctx, conversationPath(conversationID)+"/messages", model.SendMessageInput{Content: content}, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *chatRepository) UnreadCount(ctx context.Context) (int, error) {
	var resp model.CountResponse
	if err := r.api.Get(ctx, "/v1.0/chat/unread-count", &resp); err != nil {
		return 0, err
	}
	return *resp.Count, nil
}
