package utils

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims 后端签发的 token 中客户端关心的字段
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// ParseTokenUnverified 读取 token 的 claims, 不校验签名
// 客户端没有签名密钥, 只用于判断本地保存的 token 是否已过期
func ParseTokenUnverified(tokenString string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// TokenExpired 判断 token 在 now 时是否已过期
// 非 JWT 或没有 exp 的 token 视为未过期, 交给服务端判断
func TokenExpired(tokenString string, now time.Time) bool {
	claims, err := ParseTokenUnverified(tokenString)
	if err != nil || claims.ExpiresAt == nil {
		return false
	}
	return !now.Before(claims.ExpiresAt.Time)
}
