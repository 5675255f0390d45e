package model

// DispatchMode 通知分发模式
type DispatchMode string

const (
	DispatchModeSMS      DispatchMode = "sms"
	DispatchModeEmail    DispatchMode = "email"
	DispatchModeWhatsApp DispatchMode = "whatsapp"
	DispatchModeApp      DispatchMode = "app"
	DispatchModeAuto     DispatchMode = "auto"
)

// Platform 客户端平台，影响 sms: URI 的 body 分隔符
type Platform string

const (
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
)

// ContactChannel 联系人偏好的接收渠道
type ContactChannel string

const (
	ContactChannelSMS      ContactChannel = "sms"
	ContactChannelEmail    ContactChannel = "email"
	ContactChannelWhatsApp ContactChannel = "whatsapp"
	ContactChannelApp      ContactChannel = "app"
)

// DispatchContact 参与分发的联系人
type DispatchContact struct {
	ID      string         `json:"id"`
	Name    string         `json:"name"`
	Phone   string         `json:"phone,omitempty"`
	Email   string         `json:"email,omitempty"`
	Channel ContactChannel `json:"channel,omitempty"`
}

// DispatchRequest 构建分发计划的输入
type DispatchRequest struct {
	Mode     DispatchMode      `json:"mode"`
	Contacts []DispatchContact `json:"contacts"`
	Subject  string            `json:"subject"`
	Body     string            `json:"body"`
	Platform Platform          `json:"platform"`
}

// NotificationDispatchPlan 每次分发时重新计算，不持久化
type NotificationDispatchPlan struct {
	Mode            DispatchMode `json:"mode"`
	SMSURL          *string      `json:"sms_url"`
	MailURL         *string      `json:"mail_url"`
	WhatsAppURL     *string      `json:"whatsapp_url"`
	NeedsInAppAlert bool         `json:"needs_in_app_alert"`
	Issues          []string     `json:"issues"`
}
