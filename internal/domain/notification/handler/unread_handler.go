package handler

import (
	"forum_client/internal/domain/notification/service"
	"forum_client/pkg/response"

	"github.com/gin-gonic/gin"
)

type UnreadHandler struct {
	aggregator *service.UnreadAggregator
}

func NewUnreadHandler(aggregator *service.UnreadAggregator) *UnreadHandler {
	return &UnreadHandler{aggregator: aggregator}
}

type UnreadView struct {
	Chat          int    `json:"chat"`
	Notifications int    `json:"notifications"`
	Total         int    `json:"total"`
	AppState      string `json:"app_state"`
}

// GetUnread 返回本地聚合的未读数, 不触发网络请求
// @Summary 未读数
// @Tags Notification
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=UnreadView}
// @Router /v1/unread [get]
func (h *UnreadHandler) GetUnread(c *gin.Context) {
	counts := h.aggregator.Counts()
	response.Success(c, UnreadView{
		Chat:          counts.Chat,
		Notifications: counts.Notifications,
		Total:         counts.Total(),
		AppState:      h.aggregator.AppState().String(),
	})
}
