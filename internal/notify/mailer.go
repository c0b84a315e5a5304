package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/smtp"
	"regexp"
	"strings"
	"time"
)

const defaultSenderName = "Call Intelligence Platform"

var (
	ErrInvalidRecipient = errors.New("notify: invalid recipient")
	ErrEmptyMessage     = errors.New("notify: empty subject or body")
)

// Delivery statuses.
const (
	StatusSent    = "sent"
	StatusSkipped = "skipped"
	StatusFailed  = "failed"
)

type MailConfig struct {
	Host       string
	Port       int
	Username   string
	Password   string
	From       string
	SenderName string
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer sends HTML mail over SMTP. smtp.SendMail upgrades to STARTTLS when
// the server offers it. With no password configured the mailer runs in
// disabled mode and reports every send as skipped.
type Mailer struct {
	cfg    MailConfig
	send   sendFunc
	logger *slog.Logger
	clock  func() time.Time
}

func NewMailer(cfg MailConfig, logger *slog.Logger) *Mailer {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.SenderName == "" {
		cfg.SenderName = defaultSenderName
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Mailer{cfg: cfg, send: smtp.SendMail, logger: logger, clock: time.Now}
}

func (m *Mailer) Enabled() bool {
	return m != nil && m.cfg.Host != "" && m.cfg.Password != ""
}

// Result reports one mail send.
type Result struct {
	Status    string `json:"status"`
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Message   string `json:"message"`
}

// Send delivers one HTML message. A disabled mailer returns a skipped result
// and no error.
func (m *Mailer) Send(ctx context.Context, to, subject, html string) (Result, error) {
	to = strings.TrimSpace(to)
	res := Result{Recipient: to, Subject: subject}
	if !validEmail(to) {
		res.Status = StatusFailed
		res.Message = ErrInvalidRecipient.Error()
		return res, ErrInvalidRecipient
	}
	if strings.TrimSpace(subject) == "" || strings.TrimSpace(html) == "" {
		res.Status = StatusFailed
		res.Message = ErrEmptyMessage.Error()
		return res, ErrEmptyMessage
	}
	if !m.Enabled() {
		m.logger.Info("notify: email skipped (SMTP not configured)", "to", to, "subject", subject)
		res.Status = StatusSkipped
		res.Message = "email service disabled: SMTP credentials not configured"
		return res, nil
	}
	if err := ctx.Err(); err != nil {
		res.Status = StatusFailed
		res.Message = err.Error()
		return res, err
	}

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	if err := m.send(addr, auth, m.cfg.From, []string{to}, m.message(to, subject, html)); err != nil {
		res.Status = StatusFailed
		res.Message = err.Error()
		return res, fmt.Errorf("notify: smtp send: %w", err)
	}
	res.Status = StatusSent
	res.Message = "email sent to " + to
	return res, nil
}

func (m *Mailer) message(to, subject, html string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s <%s>\r\n", mime.QEncoding.Encode("utf-8", m.cfg.SenderName), m.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	fmt.Fprintf(&b, "Date: %s\r\n", m.clock().UTC().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(html)
	return []byte(b.String())
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

func validEmail(s string) bool {
	return emailRegex.MatchString(s)
}
