package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/groupbuy-service/internal/apperror"
)

type Service interface {
	ListMine(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]Notification, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int, error)
	MarkRead(ctx context.Context, userID, id uuid.UUID) error
	// SendMessage stores a direct admin message for a user and forwards it to the other sinks.
	SendMessage(ctx context.Context, userID uuid.UUID, title, message string, severity Severity) (*Notification, error)
}

type service struct {
	repo       Repository
	dispatcher *Dispatcher
}

// NewService builds the inbox service. The dispatcher, when not nil, is used
// for out-of-band delivery (email) of admin messages after they are stored.
func NewService(repo Repository, dispatcher *Dispatcher) Service {
	return &service{repo: repo, dispatcher: dispatcher}
}

func (s *service) ListMine(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]Notification, error) {
	list, err := s.repo.ListByUser(ctx, userID, unreadOnly)
	if err != nil {
		log.Error().Err(err).Stringer("user_id", userID).Msg("service: failed to list notifications")
		return nil, fmt.Errorf("service: failed to list notifications: %w", err)
	}
	return list, nil
}

func (s *service) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}

func (s *service) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	if err := s.repo.MarkRead(ctx, userID, id); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return err
		}
		log.Error().Err(err).Stringer("notification_id", id).Msg("service: failed to mark notification read")
		return fmt.Errorf("service: failed to mark notification read: %w", err)
	}
	return nil
}

func (s *service) SendMessage(ctx context.Context, userID uuid.UUID, title, message string, severity Severity) (*Notification, error) {
	title, message = strings.TrimSpace(title), strings.TrimSpace(message)
	if title == "" || message == "" {
		return nil, fmt.Errorf("%w: title and message are required", apperror.ErrValidation)
	}
	switch severity {
	case "":
		severity = SeverityInfo
	case SeverityInfo, SeveritySuccess, SeverityWarning, SeverityError:
	default:
		return nil, fmt.Errorf("%w: unknown severity %q", apperror.ErrValidation, severity)
	}

	n := Notification{
		UserID:   userID,
		Category: CategoryMessage,
		Title:    title,
		Message:  message,
		Severity: severity,
	}
	if err := s.repo.Create(ctx, &n); err != nil {
		log.Error().Err(err).Stringer("user_id", userID).Msg("service: failed to store admin message")
		return nil, fmt.Errorf("service: failed to store message: %w", err)
	}
	if s.dispatcher != nil {
		s.dispatcher.Send(ctx, n)
	}

	log.Info().Stringer("user_id", userID).Stringer("notification_id", n.ID).Msg("service: admin message sent")
	return &n, nil
}
