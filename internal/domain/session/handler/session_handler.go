package handler

import (
	"forum_client/internal/domain/session/service"
	"forum_client/pkg/response"

	"github.com/gin-gonic/gin"
)

type SessionHandler struct {
	service *service.SessionService
}

func NewSessionHandler(service *service.SessionService) *SessionHandler {
	return &SessionHandler{service: service}
}

// SessionView 不包含 token
type SessionView struct {
	LoggedIn    bool   `json:"logged_in"`
	UserID      string `json:"user_id,omitempty"`
	Username    string `json:"username,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

// GetSession 当前登录状态
// @Summary 当前会话
// @Tags Session
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=SessionView}
// @Router /v1/session [get]
func (h *SessionHandler) GetSession(c *gin.Context) {
	sess := h.service.Current()
	if !sess.LoggedIn {
		response.Success(c, SessionView{})
		return
	}
	response.Success(c, SessionView{
		LoggedIn:    true,
		UserID:      sess.User.ID,
		Username:    sess.User.Username,
		DisplayName: sess.User.DisplayName,
	})
}
