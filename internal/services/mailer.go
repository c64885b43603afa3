package services

import (
	"fmt"

	"github.com/ahmetk3436/chatnest/internal/config"
	"gopkg.in/gomail.v2"
)

// OTPSender delivers one-time passwords to an email address.
type OTPSender interface {
	SendOTP(to, code string) error
}

// Mailer sends transactional mail through the configured SMTP relay.
type Mailer struct {
	cfg    *config.Config
	dialer *gomail.Dialer
}

func NewMailer(cfg *config.Config) *Mailer {
	return &Mailer{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword),
	}
}

func (m *Mailer) SendOTP(to, code string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.SMTPFrom)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "Your Login OTP")
	msg.SetBody("text/plain", fmt.Sprintf("Your login OTP is: %s. It expires in 10 minutes.", code))
	msg.AddAlternative("text/html", fmt.Sprintf(`
		<div style="font-family:sans-serif;max-width:520px;margin:0 auto">
			<h2>Verify your login</h2>
			<p>Use the following one-time password to complete your login. It is valid for <strong>10 minutes</strong>.</p>
			<div style="font-size:32px;font-weight:700;letter-spacing:10px;text-align:center;padding:20px;background:#f8fafc;border-radius:12px">%s</div>
			<p>Do not share this code with anyone. If you didn't request this login, you can safely ignore this email.</p>
		</div>`, code))

	return m.dialer.DialAndSend(msg)
}
