package response

// 业务状态码
const (
	CodeSuccess = 0

	// 访问令牌错误 100xx
	ErrTokenInvalid = 10002

	// 帖子模块错误 200xx
	ErrTopicNotFound = 20001

	// 系统错误 500xx
	ErrServerInternal  = 50001
	ErrTooManyRequests = 50003
)
