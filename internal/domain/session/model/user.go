package model

// User 登录用户信息, 以 JSON 形式保存在本地缓存
type User struct {
	ID          string `json:"id" validate:"required"`
	Username    string `json:"username" validate:"required"`
	DisplayName string `json:"display_name"`
	Avatar      string `json:"avatar"`
}

// Session 当前会话
type Session struct {
	Token    string `json:"-"`
	User     User   `json:"user"`
	LoggedIn bool   `json:"logged_in"`
}

// LoginResponse 登录接口响应
type LoginResponse struct {
	Token string `json:"token" validate:"required"`
	User  User   `json:"user" validate:"required"`
}

// LoginInput 账号密码登录
type LoginInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// OAuthInput 第三方登录
type OAuthInput struct {
	Provider    string `json:"provider"`
	AccessToken string `json:"access_token"`
}
