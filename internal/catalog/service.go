package catalog

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/gosimple/slug"
	"github.com/jinzhu/copier"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/vasiliy-maslov/groupbuy-service/internal/apperror"
)

type Service interface {
	CreateCampaign(ctx context.Context, in CampaignInput) (*Campaign, error)
	GetCampaign(ctx context.Context, id uuid.UUID) (*Campaign, error)
	ListCampaigns(ctx context.Context, activeOnly bool) ([]Campaign, error)
	UpdateCampaign(ctx context.Context, id uuid.UUID, in CampaignInput) (*Campaign, error)
	DeleteCampaign(ctx context.Context, id uuid.UUID) error

	CreateProduct(ctx context.Context, in ProductInput) (*Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*Product, error)
	ListProducts(ctx context.Context, filter ProductFilter) ([]Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, in ProductInput) (*Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error

	CreatePremiumCampaign(ctx context.Context, in PremiumCampaignInput) (*PremiumCampaign, error)
	GetPremiumCampaign(ctx context.Context, id uuid.UUID) (*PremiumCampaign, error)
	ListPremiumCampaigns(ctx context.Context, activeOnly bool) ([]PremiumCampaign, error)
	UpdatePremiumCampaign(ctx context.Context, id uuid.UUID, in PremiumCampaignInput) (*PremiumCampaign, error)
	DeletePremiumCampaign(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo            Repository
	validate        *validator.Validate
	defaultAirCargo decimal.Decimal
}

// NewService builds the catalog service. defaultAirCargo applies to premium
// campaigns created without an air cargo cost.
func NewService(repo Repository, defaultAirCargo decimal.Decimal) Service {
	return &service{repo: repo, validate: validator.New(), defaultAirCargo: defaultAirCargo}
}

func deref[T any]() copier.TypeConverter {
	var zero T
	return copier.TypeConverter{
		SrcType: &zero,
		DstType: zero,
		Fn: func(src interface{}) (interface{}, error) {
			p, _ := src.(*T)
			if p == nil {
				return zero, nil
			}
			return *p, nil
		},
	}
}

func clone[T any]() copier.TypeConverter {
	return copier.TypeConverter{
		SrcType: new(T),
		DstType: new(T),
		Fn: func(src interface{}) (interface{}, error) {
			p, _ := src.(*T)
			if p == nil {
				return (*T)(nil), nil
			}
			v := *p
			return &v, nil
		},
	}
}

// patchOptions copies only the fields a client actually sent.
var patchOptions = copier.Option{
	IgnoreEmpty: true,
	Converters: []copier.TypeConverter{
		deref[string](),
		deref[int](),
		deref[bool](),
		deref[decimal.Decimal](),
		clone[uuid.UUID](),
		clone[time.Time](),
	},
}

func (s *service) patch(dst, in any) error {
	if err := s.validate.Struct(in); err != nil {
		return fmt.Errorf("%w: %w", apperror.ErrValidation, err)
	}
	if err := copier.CopyWithOption(dst, in, patchOptions); err != nil {
		return fmt.Errorf("service: failed to apply update: %w", err)
	}
	return nil
}

func missing(fields map[string]bool) error {
	var names []string
	for name, absent := range fields {
		if absent {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil
	}
	slices.Sort(names)
	return fmt.Errorf("%w: missing %s", apperror.ErrValidation, strings.Join(names, ", "))
}

func checkMoney(name string, v decimal.Decimal) error {
	if v.IsNegative() {
		return fmt.Errorf("%w: %s must not be negative", apperror.ErrValidation, name)
	}
	return nil
}

// withSlug retries once with a random suffix when the title-derived slug is
// taken.
func withSlug(title string, create func(slug string) error) error {
	base := slug.Make(title)
	if base == "" {
		return fmt.Errorf("%w: title has no sluggable characters", apperror.ErrValidation)
	}
	err := create(base)
	if !errors.Is(err, ErrSlugExists) {
		return err
	}
	suffix, genErr := uuid.NewV4()
	if genErr != nil {
		return fmt.Errorf("service: failed to generate slug suffix: %w", genErr)
	}
	return create(base + "-" + suffix.String()[:8])
}

func (s *service) CreateCampaign(ctx context.Context, in CampaignInput) (*Campaign, error) {
	if err := missing(map[string]bool{"title": in.Title == nil}); err != nil {
		return nil, err
	}
	c := &Campaign{Active: true}
	if err := s.patch(c, in); err != nil {
		return nil, err
	}

	err := withSlug(c.Title, func(sl string) error {
		c.Slug = sl
		return s.repo.CreateCampaign(ctx, c)
	})
	if err != nil {
		log.Error().Err(err).Str("title", c.Title).Msg("service: failed to create campaign")
		return nil, fmt.Errorf("service: failed to create campaign: %w", err)
	}
	log.Info().Stringer("campaign_id", c.ID).Str("slug", c.Slug).Msg("service: campaign created")
	return c, nil
}

func (s *service) GetCampaign(ctx context.Context, id uuid.UUID) (*Campaign, error) {
	return s.repo.GetCampaign(ctx, id)
}

func (s *service) ListCampaigns(ctx context.Context, activeOnly bool) ([]Campaign, error) {
	return s.repo.ListCampaigns(ctx, activeOnly)
}

func (s *service) UpdateCampaign(ctx context.Context, id uuid.UUID, in CampaignInput) (*Campaign, error) {
	c, err := s.repo.GetCampaign(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.patch(c, in); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateCampaign(ctx, c); err != nil {
		log.Error().Err(err).Stringer("campaign_id", id).Msg("service: failed to update campaign")
		return nil, fmt.Errorf("service: failed to update campaign: %w", err)
	}
	return c, nil
}

func (s *service) DeleteCampaign(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteCampaign(ctx, id); err != nil {
		return fmt.Errorf("service: failed to delete campaign: %w", err)
	}
	log.Info().Stringer("campaign_id", id).Msg("service: campaign deleted")
	return nil
}

func (s *service) CreateProduct(ctx context.Context, in ProductInput) (*Product, error) {
	err := missing(map[string]bool{
		"title":          in.Title == nil,
		"price":          in.Price == nil,
		"total_quantity": in.TotalQuantity == nil,
	})
	if err != nil {
		return nil, err
	}
	p := &Product{Active: true}
	if err := s.patch(p, in); err != nil {
		return nil, err
	}
	if err := checkMoney("price", p.Price); err != nil {
		return nil, err
	}
	if p.CampaignID != nil {
		if _, err := s.repo.GetCampaign(ctx, *p.CampaignID); err != nil {
			return nil, err
		}
	}

	if err := s.repo.CreateProduct(ctx, p); err != nil {
		log.Error().Err(err).Str("title", p.Title).Msg("service: failed to create product")
		return nil, fmt.Errorf("service: failed to create product: %w", err)
	}
	log.Info().Stringer("product_id", p.ID).Msg("service: product created")
	return p, nil
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*Product, error) {
	return s.repo.GetProduct(ctx, id)
}

func (s *service) ListProducts(ctx context.Context, filter ProductFilter) ([]Product, error) {
	return s.repo.ListProducts(ctx, filter)
}

func (s *service) UpdateProduct(ctx context.Context, id uuid.UUID, in ProductInput) (*Product, error) {
	p, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.patch(p, in); err != nil {
		return nil, err
	}
	if err := checkMoney("price", p.Price); err != nil {
		return nil, err
	}
	if p.TotalQuantity < p.OrderedQuantity {
		log.Warn().Stringer("product_id", id).Int("total_quantity", p.TotalQuantity).Int("ordered_quantity", p.OrderedQuantity).
			Msg("service: total quantity below ordered quantity")
		return nil, fmt.Errorf("%w: total quantity %d is below ordered quantity %d", apperror.ErrValidation, p.TotalQuantity, p.OrderedQuantity)
	}

	if err := s.repo.UpdateProduct(ctx, p); err != nil {
		log.Error().Err(err).Stringer("product_id", id).Msg("service: failed to update product")
		return nil, fmt.Errorf("service: failed to update product: %w", err)
	}
	return p, nil
}

func (s *service) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return fmt.Errorf("service: failed to delete product: %w", err)
	}
	log.Info().Stringer("product_id", id).Msg("service: product deleted")
	return nil
}

func (s *service) CreatePremiumCampaign(ctx context.Context, in PremiumCampaignInput) (*PremiumCampaign, error) {
	err := missing(map[string]bool{
		"title":          in.Title == nil,
		"price":          in.Price == nil,
		"total_quantity": in.TotalQuantity == nil,
	})
	if err != nil {
		return nil, err
	}
	c := &PremiumCampaign{Active: true, AirCargoCost: s.defaultAirCargo}
	if err := s.patch(c, in); err != nil {
		return nil, err
	}
	if err := errors.Join(checkMoney("price", c.Price), checkMoney("air_cargo_cost", c.AirCargoCost)); err != nil {
		return nil, err
	}

	err = withSlug(c.Title, func(sl string) error {
		c.Slug = sl
		return s.repo.CreatePremiumCampaign(ctx, c)
	})
	if err != nil {
		log.Error().Err(err).Str("title", c.Title).Msg("service: failed to create premium campaign")
		return nil, fmt.Errorf("service: failed to create premium campaign: %w", err)
	}
	log.Info().Stringer("premium_campaign_id", c.ID).Str("slug", c.Slug).Msg("service: premium campaign created")
	return c, nil
}

func (s *service) GetPremiumCampaign(ctx context.Context, id uuid.UUID) (*PremiumCampaign, error) {
	return s.repo.GetPremiumCampaign(ctx, id)
}

func (s *service) ListPremiumCampaigns(ctx context.Context, activeOnly bool) ([]PremiumCampaign, error) {
	return s.repo.ListPremiumCampaigns(ctx, activeOnly)
}

func (s *service) UpdatePremiumCampaign(ctx context.Context, id uuid.UUID, in PremiumCampaignInput) (*PremiumCampaign, error) {
	c, err := s.repo.GetPremiumCampaign(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.patch(c, in); err != nil {
		return nil, err
	}
	if err := errors.Join(checkMoney("price", c.Price), checkMoney("air_cargo_cost", c.AirCargoCost)); err != nil {
		return nil, err
	}
	if c.TotalQuantity < c.OrderedQuantity {
		return nil, fmt.Errorf("%w: total quantity %d is below ordered quantity %d", apperror.ErrValidation, c.TotalQuantity, c.OrderedQuantity)
	}

	if err := s.repo.UpdatePremiumCampaign(ctx, c); err != nil {
		log.Error().Err(err).Stringer("premium_campaign_id", id).Msg("service: failed to update premium campaign")
		return nil, fmt.Errorf("service: failed to update premium campaign: %w", err)
	}
	return c, nil
}

func (s *service) DeletePremiumCampaign(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeletePremiumCampaign(ctx, id); err != nil {
		return fmt.Errorf("service: failed to delete premium campaign: %w", err)
	}
	log.Info().Stringer("premium_campaign_id", id).Msg("service: premium campaign deleted")
	return nil
}
