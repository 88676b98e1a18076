package user

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/vasiliy-maslov/groupbuy-service/internal/apperror"
	"github.com/vasiliy-maslov/groupbuy-service/internal/auth"
)

var ErrInvalidCredentials = fmt.Errorf("%w: invalid email or password", apperror.ErrUnauthenticated)

// TokenIssuer signs access tokens for authenticated users.
type TokenIssuer interface {
	Issue(id auth.Identity) (string, time.Time, error)
}

type RegisterInput struct {
	Name     string `json:"name" validate:"required,min=2,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"omitempty,max=32"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      *User     `json:"user"`
}

type Service interface {
	Register(ctx context.Context, in RegisterInput) (*Session, error)
	Login(ctx context.Context, in LoginInput) (*Session, error)
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	EmailFor(ctx context.Context, userID uuid.UUID) (string, string, error)
}

type service struct {
	repo     Repository
	tokens   TokenIssuer
	validate *validator.Validate
}

func NewService(repo Repository, tokens TokenIssuer) Service {
	return &service{repo: repo, tokens: tokens, validate: validator.New()}
}

func (s *service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %w", apperror.ErrValidation, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to hash password")
		return nil, fmt.Errorf("service: failed to hash password: %w", err)
	}

	u := &User{Name: in.Name, Email: in.Email, Phone: in.Phone, PasswordHash: string(hash)}
	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, ErrEmailExists) {
			log.Warn().Str("email", in.Email).Msg("service: registration with existing email")
			return nil, ErrEmailExists
		}
		log.Error().Err(err).Msg("service: failed to create user in repository")
		return nil, fmt.Errorf("service: failed to create user: %w", err)
	}

	log.Info().Stringer("user_id", u.ID).Msg("service: user registered")
	return s.session(u)
}

func (s *service) Login(ctx context.Context, in LoginInput) (*Session, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %w", apperror.ErrValidation, err)
	}

	u, err := s.repo.GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		log.Error().Err(err).Msg("service: failed to fetch user by email")
		return nil, fmt.Errorf("service: failed to fetch user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)); err != nil {
		log.Warn().Stringer("user_id", u.ID).Msg("service: password mismatch")
		return nil, ErrInvalidCredentials
	}

	return s.session(u)
}

func (s *service) session(u *User) (*Session, error) {
	token, expires, err := s.tokens.Issue(auth.Identity{UserID: u.ID, IsAdmin: u.IsAdmin})
	if err != nil {
		log.Error().Err(err).Stringer("user_id", u.ID).Msg("service: failed to issue token")
		return nil, fmt.Errorf("service: failed to issue token: %w", err)
	}
	return &Session{Token: token, ExpiresAt: expires, User: u}, nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		log.Error().Err(err).Stringer("user_id", id).Msg("service: failed to fetch user")
		return nil, fmt.Errorf("service: failed to fetch user: %w", err)
	}
	return u, nil
}

// EmailFor resolves a notification recipient.
func (s *service) EmailFor(ctx context.Context, userID uuid.UUID) (string, string, error) {
	u, err := s.GetByID(ctx, userID)
	if err != nil {
		return "", "", err
	}
	if _, err := mail.ParseAddress(u.Email); err != nil {
		return "", "", fmt.Errorf("%w: user %s has no deliverable email", apperror.ErrValidation, userID)
	}
	return u.Email, u.Name, nil
}
