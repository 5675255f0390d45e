package runner

import "context"

// Capabilities 运行环境能力检查，沙箱/预览运行时两项都不支持
type Capabilities interface {
	SupportsBackgroundLocation() bool
	SupportsLocalNotifications() bool
}

// Permissions 平台权限请求
type Permissions interface {
	RequestLocation(ctx context.Context) (bool, error)
	RequestNotifications(ctx context.Context) (bool, error)
}

// StaticCapabilities 由进程配置决定的能力
type StaticCapabilities struct {
	Sandboxed bool
}

func (c StaticCapabilities) SupportsBackgroundLocation() bool { return !c.Sandboxed }
func (c StaticCapabilities) SupportsLocalNotifications() bool { return !c.Sandboxed }

// StaticPermissions 由进程配置决定的权限授予结果
type StaticPermissions struct {
	Location      bool
	Notifications bool
}

func (p StaticPermissions) RequestLocation(context.Context) (bool, error) {
	return p.Location, nil
}

func (p StaticPermissions) RequestNotifications(context.Context) (bool, error) {
	return p.Notifications, nil
}
