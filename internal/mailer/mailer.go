// Package mailer 邮件传输能力。核心只依赖 Deliver 这一个操作，
// SMTP 是生产实现，测试用假实现。
package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"

	"buildboard/internal/config"
)

// Mailer 邮件传输契约
type Mailer interface {
	Deliver(ctx context.Context, to, subject, htmlBody string) error
}

// SMTP 基于 net/smtp 的生产实现
type SMTP struct {
	addr   string
	auth   smtp.Auth
	from   string
	logger *zap.Logger
}

func NewSMTP(cfg config.SMTPConfig, logger *zap.Logger) *SMTP {
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	from := cfg.From
	if from == "" {
		from = cfg.Username
	}
	return &SMTP{
		addr:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		auth:   auth,
		from:   from,
		logger: logger,
	}
}

func (s *SMTP) Deliver(ctx context.Context, to, subject, htmlBody string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", s.from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(htmlBody)

	if err := smtp.SendMail(s.addr, s.auth, s.from, []string{to}, []byte(b.String())); err != nil {
		s.logger.Error("SMTP delivery failed",
			zap.String("to", to),
			zap.String("subject", subject),
			zap.Error(err),
		)
		return fmt.Errorf("smtp send: %w", err)
	}

	s.logger.Info("Email delivered",
		zap.String("to", to),
		zap.String("subject", subject),
	)
	return nil
}
