package notify

import (
	"fmt"
	"log/slog"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/krzysztof-programista/NotesApp/internal/config"
)

// EmailNotifier 通过 SMTP 发送账号激活邮件。
type EmailNotifier struct {
	cfg    *config.EmailConfig
	logger *slog.Logger
}

// NewEmailNotifier 创建邮件通知器。
func NewEmailNotifier(cfg *config.EmailConfig, logger *slog.Logger) *EmailNotifier {
	return &EmailNotifier{
		cfg:    cfg,
		logger: logger,
	}
}

// SendActivationLink 发送账号激活邮件。
//
// 发送是尽力而为的：失败由调用方记录，不会回滚已创建的账号。
func (n *EmailNotifier) SendActivationLink(toEmail string, activationLink string) error {
	if n.cfg.SMTPHost == "" || n.cfg.SMTPUser == "" || n.cfg.FromEmail == "" {
		return fmt.Errorf("email config missing")
	}
	if strings.TrimSpace(toEmail) == "" {
		return fmt.Errorf("empty recipient")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.cfg.FromEmail)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", "[NotesApp] Activate your account")
	m.SetBody("text/plain", fmt.Sprintf(
		"Your email was used to register an account.\nClick the link below to activate it: %s", activationLink))
	m.AddAlternative("text/html", buildActivationHTML(activationLink))

	d := gomail.NewDialer(n.cfg.SMTPHost, n.cfg.SMTPPort, n.cfg.SMTPUser, n.cfg.SMTPPass)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	n.logger.Info("activation email sent", slog.String("to", toEmail))
	return nil
}

func buildActivationHTML(activationLink string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <div style="max-width: 600px; margin: auto; padding: 20px; border: 1px solid #ddd; border-radius: 8px; background-color: #f9f9f9;">
    <h1 style="color: #4CAF50; text-align: center;">NotesApp</h1>
    <p style="font-size: 16px;">Thanks for registering! Click the button below to activate your account:</p>
    <div style="text-align: center; margin: 20px 0;">
      <a href="%s" style="display: inline-block; padding: 10px 20px; font-size: 16px; color: white; background-color: #4CAF50; text-decoration: none; border-radius: 5px;">Activate account</a>
    </div>
    <p style="font-size: 14px;">If the button does not work, copy and paste this link into your browser:</p>
    <p style="font-size: 14px; word-wrap: break-word; color: #007BFF;">%s</p>
    <hr style="border: 0; border-top: 1px solid #ddd; margin: 20px 0;">
    <p style="font-size: 12px; color: #555;">If you did not register, please ignore this e-mail.</p>
  </div>
</body>
</html>`, activationLink, activationLink)
}
