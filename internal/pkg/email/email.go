package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/echonow/echonow_server/config"
)

// sendFunc 投递一封已编码的邮件
type sendFunc func(ctx context.Context, to string, msg []byte) error

type Service struct {
	cfg        *config.EmailConfig
	send       sendFunc
	newBackOff func() backoff.BackOff
}

func NewService(cfg *config.EmailConfig) *Service {
	s := &Service{cfg: cfg}
	s.send = s.deliver
	s.newBackOff = func() backoff.BackOff {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = 500 * time.Millisecond
		b.MaxInterval = 5 * time.Second
		return b
	}
	return s
}

// SendOTP 发送邮箱验证码
func (s *Service) SendOTP(ctx context.Context, to, code string, ttl time.Duration) error {
	subject := "Your EchoNow verification code"
	body := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h2 style="color: #2563eb;">Verify your email</h2>
        <p>Your one-time code is:</p>
        <div style="background-color: #f3f4f6; padding: 15px; text-align: center; font-size: 24px; font-weight: bold; letter-spacing: 5px; margin: 20px 0;">
            %s
        </div>
        <p>The code expires in %s and can be used once.</p>
        <p>If you did not request this, you can ignore this email.</p>
    </div>
</body>
</html>
`, code, ttl.Round(time.Second))

	return s.sendHTML(ctx, to, subject, body)
}

// sendHTML 发送 HTML 邮件，失败时指数退避重试
func (s *Service) sendHTML(ctx context.Context, to, subject, body string) error {
	msg := buildMessage(s.cfg.From, to, subject, "text/html", body)

	maxTries := s.cfg.MaxAttempts
	if maxTries == 0 {
		maxTries = 1
	}

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attemptCtx := ctx
		if s.cfg.Timeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
			defer cancel()
		}
		return struct{}{}, s.send(attemptCtx, to, msg)
	}, backoff.WithBackOff(s.newBackOff()), backoff.WithMaxTries(maxTries))
	return err
}

func buildMessage(from, to, subject, contentType, body string) []byte {
	var msg strings.Builder
	msg.WriteString("From: " + from + "\r\n")
	msg.WriteString("To: " + to + "\r\n")
	msg.WriteString("Subject: " + subject + "\r\n")
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: " + contentType + "; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)
	return []byte(msg.String())
}

// deliver 通过 SMTP 投递，连接受 ctx 截止时间约束
func (s *Service) deliver(ctx context.Context, to string, msg []byte) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	c, err := smtp.NewClient(conn, s.cfg.SMTPHost)
	if err != nil {
		conn.Close()
		return err
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: s.cfg.SMTPHost}); err != nil {
			return err
		}
	}
	if s.cfg.Username != "" {
		if err := c.Auth(smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.SMTPHost)); err != nil {
			return backoff.Permanent(err)
		}
	}
	if err := c.Mail(envelopeAddress(s.cfg.From)); err != nil {
		return err
	}
	if err := c.Rcpt(to); err != nil {
		return backoff.Permanent(err)
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}

// envelopeAddress 从 "Name <addr>" 中取出地址
func envelopeAddress(from string) string {
	if i := strings.LastIndex(from, "<"); i >= 0 {
		if j := strings.LastIndex(from, ">"); j > i {
			return from[i+1 : j]
		}
	}
	return from
}
