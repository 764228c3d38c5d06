package email

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/qs3c/datafair_server/config"
)

type Service struct {
	cfg *config.EmailConfig
}

func NewService(cfg *config.EmailConfig) *Service {
	return &Service{cfg: cfg}
}

// Enabled 未配置 SMTP 时跳过发送
func (s *Service) Enabled() bool {
	return s != nil && s.cfg != nil && s.cfg.SMTPHost != ""
}

// SendWelcome 发送欢迎邮件
func (s *Service) SendWelcome(to, firstName string) error {
	subject := "Willkommen bei DataFair"
	body := wrapHTML("欢迎加入！", fmt.Sprintf(`
        <p>您好，%s！</p>
        <p>感谢您注册 DataFair。完成问卷或开启数据共享即可获得收益。</p>`, firstName))

	return s.sendHTML(to, subject, body)
}

// SendPayoutCompleted 提现到账通知
func (s *Service) SendPayoutCompleted(to string, amount float64, method, externalID string) error {
	subject := "Auszahlung erfolgreich - DataFair"
	body := wrapHTML("提现已到账", fmt.Sprintf(`
        <p>您的提现申请已处理完成。</p>
        <div style="background-color: #f3f4f6; padding: 15px; text-align: center; font-size: 24px; font-weight: bold; margin: 20px 0;">
            &euro;%.2f
        </div>
        <p>方式：%s</p>
        <p>交易号：%s</p>`, amount, method, externalID))

	return s.sendHTML(to, subject, body)
}

// SendPayoutFailed 提现失败通知，金额会退回可用余额
func (s *Service) SendPayoutFailed(to string, amount float64, reason string) error {
	subject := "Auszahlung fehlgeschlagen - DataFair"
	body := wrapHTML("提现失败", fmt.Sprintf(`
        <p>您的 &euro;%.2f 提现申请处理失败，金额已退回账户余额。</p>
        <p>原因：%s</p>`, amount, reason))

	return s.sendHTML(to, subject, body)
}

func wrapHTML(title, content string) string {
	return fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h2 style="color: #2563eb;">%s</h2>%s
        <hr style="border: none; border-top: 1px solid #e5e7eb; margin: 20px 0;">
        <p style="color: #6b7280; font-size: 12px;">此邮件由系统自动发送，请勿回复。</p>
    </div>
</body>
</html>
`, title, content)
}

// buildMessage 组装邮件头与正文
func (s *Service) buildMessage(to, subject, body string) string {
	headers := [][2]string{
		{"From", s.cfg.From},
		{"To", to},
		{"Subject", subject},
		{"MIME-Version", "1.0"},
		{"Content-Type", "text/html; charset=UTF-8"},
	}

	var msg strings.Builder
	for _, h := range headers {
		msg.WriteString(fmt.Sprintf("%s: %s\r\n", h[0], h[1]))
	}
	msg.WriteString("\r\n")
	msg.WriteString(body)
	return msg.String()
}

// sendHTML 发送 HTML 邮件
func (s *Service) sendHTML(to, subject, body string) error {
	if !s.Enabled() {
		return nil
	}

	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.SMTPHost)
	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)

	return smtp.SendMail(addr, auth, s.cfg.From, []string{to}, []byte(s.buildMessage(to, subject, body)))
}
