package dispatch

import (
	"net/url"
	"strings"

	"TripGuard/internal/model"
)

// 问题描述会直接展示给用户
const (
	IssueNoPhone     = "Aucun numéro de téléphone valide pour l'envoi par SMS."
	IssueNoEmail     = "Aucune adresse e-mail valide pour l'envoi par e-mail."
	IssueNoWhatsApp  = "Aucun contact WhatsApp avec un numéro valide."
	IssueNoAutoSMS   = "Aucun contact SMS avec un numéro valide en mode automatique."
	IssueUnknownMode = "Mode de notification inconnu."
)

// CreateNotificationDispatchPlan 把通知模式与联系人列表映射成具体的深链接
func CreateNotificationDispatchPlan(req model.DispatchRequest) model.NotificationDispatchPlan {
	plan := model.NotificationDispatchPlan{
		Mode:   req.Mode,
		Issues: []string{},
	}

	switch req.Mode {
	case model.DispatchModeSMS:
		plan.SMSURL = buildSMSURL(phonesOf(req.Contacts, ""), req.Body, req.Platform)
		if plan.SMSURL == nil {
			plan.Issues = append(plan.Issues, IssueNoPhone)
		}

	case model.DispatchModeEmail:
		plan.MailURL = buildMailURL(emailsOf(req.Contacts), req.Subject, req.Body)
		if plan.MailURL == nil {
			plan.Issues = append(plan.Issues, IssueNoEmail)
		}

	case model.DispatchModeWhatsApp:
		plan.WhatsAppURL = buildWhatsAppURL(req.Contacts, req.Body)
		if plan.WhatsAppURL == nil {
			plan.Issues = append(plan.Issues, IssueNoWhatsApp)
		}

	case model.DispatchModeApp:
		plan.NeedsInAppAlert = true

	case model.DispatchModeAuto:
		plan.NeedsInAppAlert = true
		plan.SMSURL = buildSMSURL(phonesOf(req.Contacts, model.ContactChannelSMS), req.Body, req.Platform)
		if plan.SMSURL == nil && hasChannel(req.Contacts, model.ContactChannelSMS) {
			plan.Issues = append(plan.Issues, IssueNoAutoSMS)
		}
		if hasChannel(req.Contacts, model.ContactChannelWhatsApp) {
			plan.WhatsAppURL = buildWhatsAppURL(req.Contacts, req.Body)
			if plan.WhatsAppURL == nil {
				plan.Issues = append(plan.Issues, IssueNoWhatsApp)
			}
		}

	default:
		plan.Issues = append(plan.Issues, IssueUnknownMode)
	}

	return plan
}

// NormalizePhone 只保留数字与加号
func NormalizePhone(raw string) string {
	var sb strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '+' {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func digitsOnly(raw string) string {
	return strings.ReplaceAll(NormalizePhone(raw), "+", "")
}

// phonesOf 收集去重后的号码，channel 为空时不按渠道过滤
func phonesOf(contacts []model.DispatchContact, channel model.ContactChannel) []string {
	seen := make(map[string]struct{}, len(contacts))
	phones := make([]string, 0, len(contacts))
	for _, c := range contacts {
		if channel != "" && c.Channel != channel {
			continue
		}
		phone := NormalizePhone(c.Phone)
		if phone == "" {
			continue
		}
		if _, dup := seen[phone]; dup {
			continue
		}
		seen[phone] = struct{}{}
		phones = append(phones, phone)
	}
	return phones
}

func emailsOf(contacts []model.DispatchContact) []string {
	seen := make(map[string]struct{}, len(contacts))
	emails := make([]string, 0, len(contacts))
	for _, c := range contacts {
		email := strings.TrimSpace(c.Email)
		if !strings.Contains(email, "@") {
			continue
		}
		key := strings.ToLower(email)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		emails = append(emails, email)
	}
	return emails
}

func hasChannel(contacts []model.DispatchContact, channel model.ContactChannel) bool {
	for _, c := range contacts {
		if c.Channel == channel {
			return true
		}
	}
	return false
}

// uriComponentFixups 把 QueryEscape 的结果修正为 encodeURIComponent 的字符集
var uriComponentFixups = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// encodeComponent 与浏览器 encodeURIComponent 的编码结果一致
func encodeComponent(s string) string {
	return uriComponentFixups.Replace(url.QueryEscape(s))
}

func buildSMSURL(phones []string, body string, platform model.Platform) *string {
	if len(phones) == 0 {
		return nil
	}
	u := "sms:" + strings.Join(phones, ",")
	if body != "" {
		sep := "?"
		if platform == model.PlatformIOS {
			sep = "&"
		}
		u += sep + "body=" + encodeComponent(body)
	}
	return &u
}

func buildMailURL(emails []string, subject, body string) *string {
	if len(emails) == 0 {
		return nil
	}
	params := make([]string, 0, 2)
	if subject != "" {
		params = append(params, "subject="+encodeComponent(subject))
	}
	if body != "" {
		params = append(params, "body="+encodeComponent(body))
	}
	u := "mailto:" + strings.Join(emails, ",")
	if len(params) > 0 {
		u += "?" + strings.Join(params, "&")
	}
	return &u
}

// buildWhatsAppURL 使用第一个 whatsapp 渠道且有号码的联系人
func buildWhatsAppURL(contacts []model.DispatchContact, body string) *string {
	for _, c := range contacts {
		if c.Channel != model.ContactChannelWhatsApp {
			continue
		}
		digits := digitsOnly(c.Phone)
		if digits == "" {
			continue
		}
		u := "https://wa.me/" + digits + "?text=" + encodeComponent(body)
		return &u
	}
	return nil
}
