package content

import (
	"context"
	"fmt"
	"strings"

	"github.com/gosimple/slug"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/groupbuy-service/internal/apperror"
)

type Service interface {
	Create(ctx context.Context, in PageInput) (*Page, error)
	// Published returns the page only when it is published.
	Published(ctx context.Context, slug string) (*Page, error)
	List(ctx context.Context) ([]Page, error)
	Update(ctx context.Context, slug string, in PageInput) (*Page, error)
	Delete(ctx context.Context, slug string) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Create(ctx context.Context, in PageInput) (*Page, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", apperror.ErrValidation)
	}
	source := in.Slug
	if strings.TrimSpace(source) == "" {
		source = title
	}
	p := &Page{Slug: slug.Make(source), Title: title, Body: in.Body, Published: in.Published}
	if p.Slug == "" {
		return nil, fmt.Errorf("%w: slug is empty", apperror.ErrValidation)
	}

	if err := s.repo.Create(ctx, p); err != nil {
		log.Warn().Err(err).Str("slug", p.Slug).Msg("service: failed to create page")
		return nil, err
	}
	log.Info().Str("slug", p.Slug).Msg("service: page created")
	return p, nil
}

func (s *service) Published(ctx context.Context, sl string) (*Page, error) {
	p, err := s.repo.GetBySlug(ctx, sl)
	if err != nil {
		return nil, err
	}
	if !p.Published {
		return nil, fmt.Errorf("%w: page %q", apperror.ErrNotFound, sl)
	}
	return p, nil
}

func (s *service) List(ctx context.Context) ([]Page, error) {
	return s.repo.List(ctx)
}

func (s *service) Update(ctx context.Context, sl string, in PageInput) (*Page, error) {
	p, err := s.repo.GetBySlug(ctx, sl)
	if err != nil {
		return nil, err
	}
	if title := strings.TrimSpace(in.Title); title != "" {
		p.Title = title
	}
	p.Body = in.Body
	p.Published = in.Published

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *service) Delete(ctx context.Context, sl string) error {
	return s.repo.Delete(ctx, sl)
}
