package email

import (
	"crypto/rand"
	"fmt"
	"html"
	"math/big"
	"strings"

	"github.com/rs/zerolog"
)

// EmailService sends the transactional mails of the guidance office
type EmailService interface {
	SendPasswordResetEmail(toEmail, toName, token string) error
	SendGuidanceNoticeEmail(toEmail, toName, subject, message string) error
	SendTeacherDecisionEmail(toEmail, toName string, approved bool, reason string) error
}

// Message is one rendered HTML mail
type Message struct {
	ToEmail string
	ToName  string
	Subject string
	HTML    string
}

// Sender delivers rendered messages
type Sender interface {
	Send(msg Message) error
}

// Config selects and configures the delivery backend
type Config struct {
	SMTP           SMTPConfig
	SendGridAPIKey string
	FromName       string
	FromEmail      string
	BaseURL        string
}

type emailService struct {
	sender  Sender
	baseURL string
	logger  zerolog.Logger
}

// NewEmailService picks SendGrid when an API key is set, SMTP when credentials
// are set, and otherwise a sender that only logs.
func NewEmailService(cfg Config, logger zerolog.Logger) EmailService {
	var sender Sender
	switch {
	case cfg.SendGridAPIKey != "":
		sender = NewSendGridSender(cfg.SendGridAPIKey, cfg.FromName, cfg.FromEmail, logger)
	case cfg.SMTP.Host != "" && cfg.SMTP.Username != "" && cfg.SMTP.Password != "":
		cfg.SMTP.FromName = cfg.FromName
		cfg.SMTP.FromEmail = cfg.FromEmail
		sender = NewSMTPSender(cfg.SMTP, logger)
	default:
		sender = &LogSender{logger: logger}
	}
	return newEmailService(sender, cfg.BaseURL, logger)
}

func newEmailService(sender Sender, baseURL string, logger zerolog.Logger) *emailService {
	return &emailService{sender: sender, baseURL: strings.TrimRight(baseURL, "/"), logger: logger}
}

func layout(toName, heading, body string) string {
	return fmt.Sprintf(`
		<html>
		<body>
			<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
				<h2 style="color: #333;">%s</h2>
				<p>Hello %s,</p>
				%s
				<p>Regards,<br>The Guidance Office</p>
			</div>
		</body>
		</html>
	`, html.EscapeString(heading), html.EscapeString(toName), body)
}

func paragraphs(text string) string {
	var b strings.Builder
	for _, p := range strings.Split(text, "\n\n") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		b.WriteString("<p>")
		b.WriteString(strings.ReplaceAll(html.EscapeString(p), "\n", "<br>"))
		b.WriteString("</p>")
	}
	return b.String()
}

func (s *emailService) SendPasswordResetEmail(toEmail, toName, token string) error {
	resetURL := fmt.Sprintf("%s/reset-password?token=%s", s.baseURL, token)
	body := fmt.Sprintf(`
				<p>We received a request to reset your password. Use the button below to choose a new one:</p>
				<div style="text-align: center; margin: 30px 0;">
					<a href="%s" style="background-color: #2e7d32; color: white; padding: 12px 24px; text-decoration: none; border-radius: 4px; font-weight: bold;">Reset Password</a>
				</div>
				<p>Or use this code: <strong>%s</strong></p>
				<p>If you did not ask for a reset you can ignore this email.</p>`,
		html.EscapeString(resetURL), html.EscapeString(token))

	return s.sender.Send(Message{
		ToEmail: toEmail,
		ToName:  toName,
		Subject: "Reset your password - Guidance Office",
		HTML:    layout(toName, "Password reset", body),
	})
}

func (s *emailService) SendGuidanceNoticeEmail(toEmail, toName, subject, message string) error {
	return s.sender.Send(Message{
		ToEmail: toEmail,
		ToName:  toName,
		Subject: subject,
		HTML:    layout(toName, subject, paragraphs(message)),
	})
}

func (s *emailService) SendTeacherDecisionEmail(toEmail, toName string, approved bool, reason string) error {
	subject := "Your teacher account has been approved"
	text := "Your registration has been approved. You can now log in."
	if !approved {
		subject = "Your teacher registration was not approved"
		text = "Your registration was not approved."
		if reason != "" {
			text += "\n\nReason: " + reason
		}
	}
	return s.sender.Send(Message{
		ToEmail: toEmail,
		ToName:  toName,
		Subject: subject,
		HTML:    layout(toName, subject, paragraphs(text)),
	})
}

// LogSender logs messages instead of sending them. Used in development.
type LogSender struct {
	logger zerolog.Logger
}

func (l *LogSender) Send(msg Message) error {
	l.logger.Warn().
		Str("toEmail", msg.ToEmail).
		Str("subject", msg.Subject).
		Msg("Email delivery not configured - message logged only")
	return nil
}

const tokenChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateToken returns a random 32 character token for emailed links
func GenerateToken() (string, error) {
	result := make([]byte, 32)
	max := big.NewInt(int64(len(tokenChars)))
	for i := range result {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate token: %w", err)
		}
		result[i] = tokenChars[n.Int64()]
	}
	return string(result), nil
}
