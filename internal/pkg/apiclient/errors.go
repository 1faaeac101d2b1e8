package apiclient

import (
	"errors"
	"fmt"
)

// FallbackMessage 没有结构化错误信息时展示给用户的文案
const FallbackMessage = "Đã có lỗi xảy ra, vui lòng thử lại sau."

var (
	// ErrMalformedResponse 响应体无法解析或缺少必填字段
	ErrMalformedResponse = errors.New("malformed response")
	// ErrNotLoggedIn 需要登录的操作在未登录时调用
	ErrNotLoggedIn = errors.New("not logged in")
	// ErrEmptyField 必填字段为空
	ErrEmptyField = errors.New("required field is empty")
)

// Kind 错误分类
type Kind int

const (
	KindNetwork   Kind = iota + 1 // 传输层错误
	KindServer                    // 服务端返回非 2xx
	KindMalformed                 // 2xx 但响应体不符合约定
	KindGuard                     // 客户端校验失败, 未发出请求
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindServer:
		return "server"
	case KindMalformed:
		return "malformed"
	case KindGuard:
		return "guard"
	default:
		return "unknown"
	}
}

// APIError 统一的请求错误
type APIError struct {
	Kind       Kind
	StatusCode int
	Message    string // 服务端返回的 message/error 字段, 可能为空
	Err        error
}

func (e *APIError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Message != "":
		return fmt.Sprintf("%s error (%d): %s", e.Kind, e.StatusCode, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s error (%d)", e.Kind, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
	}
}

func (e *APIError) Unwrap() error { return e.Err }

// Guard 构造客户端校验错误
func Guard(err error, message string) error {
	return &APIError{Kind: KindGuard, Message: message, Err: err}
}

// KindOf 返回 err 的分类, 非 APIError 返回 0
func KindOf(err error) Kind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return 0
}

// StatusCode 返回服务端状态码, 没有则为 0
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// UserMessage 返回适合直接展示的错误文案
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return FallbackMessage
}
