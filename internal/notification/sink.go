package notification

import (
	"context"
	"errors"
	"fmt"
	"html"

	"github.com/gofrs/uuid"
	"gopkg.in/gomail.v2"

	"github.com/vasiliy-maslov/groupbuy-service/internal/config"
)

// Sink delivers a notification somewhere the user will see it.
type Sink interface {
	Notify(ctx context.Context, n Notification) error
}

type SinkFunc func(ctx context.Context, n Notification) error

func (f SinkFunc) Notify(ctx context.Context, n Notification) error {
	return f(ctx, n)
}

// StoreSink persists notifications for the in-app inbox.
type StoreSink struct {
	Repo Repository
}

func (s StoreSink) Notify(ctx context.Context, n Notification) error {
	return s.Repo.Create(ctx, &n)
}

// Fanout delivers to every sink and joins their errors.
type Fanout []Sink

func (f Fanout) Notify(ctx context.Context, n Notification) error {
	var errs []error
	for _, s := range f {
		if err := s.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Recipients resolves a user id to a mailbox.
type Recipients interface {
	EmailFor(ctx context.Context, userID uuid.UUID) (address, name string, err error)
}

type mailer interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailSink mails notifications through an SMTP relay.
type EmailSink struct {
	from       string
	mailer     mailer
	recipients Recipients
}

func NewEmailSink(cfg config.SMTPConfig, recipients Recipients) *EmailSink {
	return &EmailSink{
		from:       cfg.From,
		mailer:     gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		recipients: recipients,
	}
}

func (s *EmailSink) Notify(ctx context.Context, n Notification) error {
	address, name, err := s.recipients.EmailFor(ctx, n.UserID)
	if err != nil {
		return fmt.Errorf("email sink: resolve recipient %s: %w", n.UserID, err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetAddressHeader("To", address, name)
	m.SetHeader("Subject", n.Title)
	m.SetBody("text/plain", n.Message)
	m.AddAlternative("text/html", "<p>"+html.EscapeString(n.Message)+"</p>")

	if err := s.mailer.DialAndSend(m); err != nil {
		return fmt.Errorf("email sink: send to %s: %w", address, err)
	}
	return nil
}
