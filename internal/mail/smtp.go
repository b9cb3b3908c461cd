package mail

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	gomail "github.com/emersion/go-message/mail"
	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/google/uuid"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
}

// SMTPSender delivers over SMTP with STARTTLS. Construction is cheap; every
// Send validates configuration before touching the network.
type SMTPSender struct {
	cfg SMTPConfig

	// swappable for tests
	sendMail func(addr string, a sasl.Client, from string, to []string, r io.Reader) error
}

func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &SMTPSender{cfg: cfg, sendMail: smtp.SendMail}
}

func fail(format string, args ...any) SendResult {
	return SendResult{OK: false, Error: fmt.Sprintf(format, args...)}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message, from Identity) SendResult {
	// pre-flight: anything missing here is a configuration problem, not a
	// transport one, and must not cost a network call
	switch {
	case strings.TrimSpace(s.cfg.Host) == "":
		return fail("smtp host not configured")
	case strings.TrimSpace(s.cfg.Username) == "" || s.cfg.Password == "":
		return fail("smtp credentials not configured")
	case strings.TrimSpace(from.Address) == "":
		return fail("sender identity not configured")
	case strings.TrimSpace(msg.To) == "":
		return fail("recipient is empty")
	case strings.TrimSpace(msg.ReplyTo) == "":
		return fail("reply-to is empty")
	}

	msgID := uuid.NewString()
	raw, err := buildMessage(msg, from, msgID)
	if err != nil {
		return fail("build message: %v", err)
	}

	if err := ctx.Err(); err != nil {
		return fail("send cancelled: %v", err)
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	auth := sasl.NewPlainClient("", s.cfg.Username, s.cfg.Password)
	if err := s.sendMail(addr, auth, from.Address, []string{msg.To}, bytes.NewReader(raw)); err != nil {
		return fail("smtp send: %v", err)
	}
	return SendResult{OK: true, ID: msgID}
}

func buildMessage(msg Message, from Identity, msgID string) ([]byte, error) {
	var h gomail.Header
	h.SetDate(time.Now())
	h.SetMessageID(msgID)
	h.SetAddressList("From", []*gomail.Address{{Name: from.Name, Address: from.Address}})
	h.SetAddressList("To", []*gomail.Address{{Address: msg.To}})
	h.SetAddressList("Reply-To", []*gomail.Address{{Address: msg.ReplyTo}})
	h.SetSubject(msg.Subject)
	h.SetContentType("text/html", map[string]string{"charset": "utf-8"})

	var buf bytes.Buffer
	w, err := gomail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, err
	}
	if _, err := io.WriteString(w, msg.HTML); err != nil {
		_ = w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
