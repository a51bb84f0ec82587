package notify

import (
	"errors"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"

	"lawdesk/internal/models"
	"lawdesk/internal/util"
)

const (
	implicitTLSPort = 465
	sendTimeout     = 30 * time.Second
)

// ErrNotConfigured means the tenant has not filled in every SMTP field.
var ErrNotConfigured = errors.New("SMTP not configured")

// Message is one outgoing email.
type Message struct {
	From    string
	To      []string
	Subject string
	Body    string
}

// Sender delivers a message.
type Sender interface {
	Send(msg Message) error
}

// SMTPSender sends through an authenticated SMTP relay.
type SMTPSender struct {
	Host     string
	Port     int
	Username string
	Password string
}

// SenderFromSettings decrypts the stored SMTP password and builds a sender.
func SenderFromSettings(s *models.TenantSettings, encryptionKey string) (*SMTPSender, error) {
	if !s.SMTPConfigured() {
		return nil, ErrNotConfigured
	}
	pw, err := util.DecryptString(encryptionKey, s.SMTPPasswordEnc)
	if err != nil {
		return nil, fmt.Errorf("decrypt smtp password: %w", err)
	}
	return &SMTPSender{Host: s.SMTPHost, Port: s.SMTPPort, Username: s.SMTPUser, Password: pw}, nil
}

// Send dials the relay and delivers msg. Port 465 uses implicit TLS; any
// other port must offer STARTTLS before credentials are sent.
func (s *SMTPSender) Send(msg Message) error {
	m, err := BuildMessage(msg)
	if err != nil {
		return err
	}
	client, err := s.client()
	if err != nil {
		return err
	}
	if err := client.DialAndSend(m); err != nil {
		return fmt.Errorf("send mail via %s:%d: %w", s.Host, s.Port, err)
	}
	return nil
}

func (s *SMTPSender) client() (*mail.Client, error) {
	opts := []mail.Option{
		mail.WithPort(s.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.Username),
		mail.WithPassword(s.Password),
		mail.WithTimeout(sendTimeout),
	}
	if s.Port == implicitTLSPort {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	}
	client, err := mail.NewClient(s.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return client, nil
}

// BuildMessage validates the addresses and returns a UTF-8 plain text mail.
func BuildMessage(msg Message) (*mail.Msg, error) {
	if len(msg.To) == 0 {
		return nil, errors.New("no recipients")
	}
	m := mail.NewMsg()
	if err := m.From(msg.From); err != nil {
		return nil, fmt.Errorf("from address: %w", err)
	}
	if err := m.To(msg.To...); err != nil {
		return nil, fmt.Errorf("recipient address: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetDate()
	m.SetBodyString(mail.TypeTextPlain, msg.Body)
	return m, nil
}
