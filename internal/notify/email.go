package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"
)

// EmailConfig holds SMTP settings for the admin notification mail.
type EmailConfig struct {
	Host       string
	Port       int
	Username   string
	Password   string
	UseTLS     bool
	From       string
	FromName   string
	AdminEmail string
	// Timeout bounds the whole SMTP exchange for one message.
	Timeout time.Duration
}

// EmailNotifier sends the popular-profile mail to the configured admin
// address over SMTP.
type EmailNotifier struct {
	cfg EmailConfig
}

func NewEmailNotifier(cfg EmailConfig) *EmailNotifier {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.FromName == "" {
		cfg.FromName = "Matchbox"
	}
	return &EmailNotifier{cfg: cfg}
}

func (n *EmailNotifier) NotifyPopularProfile(ctx context.Context, p PopularProfile) error {
	ctx, cancel := context.WithTimeout(ctx, n.cfg.Timeout)
	defer cancel()
	msg := buildMessage(n.cfg, p)
	if err := n.sendSMTP(ctx, msg); err != nil {
		return fmt.Errorf("send popular profile mail for %q: %w", p.Name, err)
	}
	return nil
}

// buildMessage assembles headers and a plain-text body carrying the
// profile name, age, location and like count.
func buildMessage(cfg EmailConfig, p PopularProfile) string {
	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("From: %s <%s>\r\n", cfg.FromName, cfg.From))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", cfg.AdminEmail))
	msg.WriteString(fmt.Sprintf("Subject: Popular profile alert: %s\r\n", p.Name))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(fmt.Sprintf("%s has reached %d likes.\r\n\r\n", p.Name, p.LikeCount))
	msg.WriteString(fmt.Sprintf("Name:     %s\r\n", p.Name))
	msg.WriteString(fmt.Sprintf("Age:      %d\r\n", p.Age))
	msg.WriteString(fmt.Sprintf("Location: %s\r\n", p.Location))
	msg.WriteString(fmt.Sprintf("Likes:    %d\r\n", p.LikeCount))
	return msg.String()
}

func (n *EmailNotifier) sendSMTP(ctx context.Context, msg string) error {
	cfg := n.cfg
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	dialer := &net.Dialer{Timeout: cfg.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("connect to SMTP server: %w", err)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, cfg.Host)
	if err != nil {
		return fmt.Errorf("create SMTP client: %w", err)
	}
	defer client.Close()

	if cfg.UseTLS {
		tlsConfig := &tls.Config{
			ServerName: cfg.Host,
			MinVersion: tls.VersionTLS12,
		}
		if err := client.StartTLS(tlsConfig); err != nil {
			return fmt.Errorf("start TLS: %w", err)
		}
	}

	if cfg.Username != "" && cfg.Password != "" {
		auth := smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication: %w", err)
		}
	}

	if err := client.Mail(cfg.From); err != nil {
		return fmt.Errorf("set sender: %w", err)
	}
	if err := client.Rcpt(cfg.AdminEmail); err != nil {
		return fmt.Errorf("set recipient: %w", err)
	}
	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("start message: %w", err)
	}
	if _, err := writer.Write([]byte(msg)); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close message: %w", err)
	}
	// Quit failures after a delivered message are not worth surfacing.
	_ = client.Quit()
	return nil
}
