package alert

import (
	"bytes"
	"fmt"
	"net/smtp"
	"strings"
)

// MailConfig holds SMTP settings.
type MailConfig struct {
	Host string
	Port int
	User string
	Pass string
	From string
	To   []string
}

// Message is a single email to send.
type Message struct {
	To      []string
	Subject string
	HTML    string
}

// Sender sends emails via SMTP.
type Sender struct {
	cfg  MailConfig
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSender(cfg MailConfig) *Sender {
	return &Sender{cfg: cfg, send: smtp.SendMail}
}

// Send dispatches msg. Recipients default to the configured ones.
func (s *Sender) Send(msg Message) error {
	to := msg.To
	if len(to) == 0 {
		to = s.cfg.To
	}
	if len(to) == 0 {
		return fmt.Errorf("send %q: no recipients", msg.Subject)
	}
	port := s.cfg.Port
	if port == 0 {
		port = 587
	}
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, port)

	from := s.cfg.From
	if from == "" {
		from = s.cfg.User
	}

	var auth smtp.Auth
	if s.cfg.User != "" {
		auth = smtp.PlainAuth("", s.cfg.User, s.cfg.Pass, s.cfg.Host)
	}
	if err := s.send(addr, auth, from, to, buildMessage(from, to, msg)); err != nil {
		return fmt.Errorf("smtp send to %s: %w", addr, err)
	}
	return nil
}

func buildMessage(from string, to []string, msg Message) []byte {
	var body bytes.Buffer
	body.WriteString("MIME-Version: 1.0\r\n")
	body.WriteString(fmt.Sprintf("From: %s\r\n", from))
	body.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(to, ", ")))
	body.WriteString(fmt.Sprintf("Subject: %s\r\n", msg.Subject))
	body.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	body.WriteString("\r\n")
	body.WriteString(msg.HTML)
	return body.Bytes()
}
