package model

// State 推送注册状态: unregistered -> registering -> registered | failed
type State int

const (
	Unregistered State = iota
	Registering
	Registered
	Failed
)

func (s State) String() string {
	switch s {
	case Registering:
		return "registering"
	case Registered:
		return "registered"
	case Failed:
		return "failed"
	default:
		return "unregistered"
	}
}

// 平台
const (
	PlatformIOS     = "ios"
	PlatformAndroid = "android"
)

// DeviceInput POST /v1.0/notifications/devices
type DeviceInput struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
}
