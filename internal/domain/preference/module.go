package preference

import (
	"forum_client/internal/domain/preference/service"
	"forum_client/internal/pkg/registry"
)

// PreferenceModule 本地偏好设置模块
type PreferenceModule struct{}

func init() {
	registry.Register(&PreferenceModule{})
}

func (m *PreferenceModule) Name() string {
	return "preference"
}

func (m *PreferenceModule) Priority() int {
	return 5
}

func (m *PreferenceModule) Init(ctx *registry.ModuleContext) error {
	ctx.Services.Preference = service.NewPreferenceService(ctx.Cache, ctx.Logger.Named("preference"))
	return nil
}
