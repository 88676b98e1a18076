package content

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vasiliy-maslov/groupbuy-service/internal/apperror"
)

var ErrSlugExists = fmt.Errorf("%w: page slug already in use", apperror.ErrConflict)

type Repository interface {
	Create(ctx context.Context, p *Page) error
	GetBySlug(ctx context.Context, slug string) (*Page, error)
	List(ctx context.Context) ([]Page, error)
	Update(ctx context.Context, p *Page) error
	Delete(ctx context.Context, slug string) error
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

const pageColumns = `id, slug, title, body, published, created_at, updated_at`

func scanPage(row pgx.Row) (*Page, error) {
	var p Page
	if err := row.Scan(&p.ID, &p.Slug, &p.Title, &p.Body, &p.Published, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *postgresRepository) Create(ctx context.Context, p *Page) error {
	id, err := uuid.NewV4()
	if err != nil {
		return fmt.Errorf("repository: failed to generate page id: %w", err)
	}
	now := time.Now().UTC()
	p.ID, p.CreatedAt, p.UpdatedAt = id, now, now

	_, err = r.db.Exec(ctx, `INSERT INTO pages (`+pageColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, p.Slug, p.Title, p.Body, p.Published, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrSlugExists
		}
		return fmt.Errorf("repository: failed to insert page: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetBySlug(ctx context.Context, s string) (*Page, error) {
	p, err := scanPage(r.db.QueryRow(ctx, `SELECT `+pageColumns+` FROM pages WHERE slug = $1`, s))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: page %q", apperror.ErrNotFound, s)
		}
		return nil, fmt.Errorf("repository: failed to select page %q: %w", s, err)
	}
	return p, nil
}

func (r *postgresRepository) List(ctx context.Context) ([]Page, error) {
	rows, err := r.db.Query(ctx, `SELECT `+pageColumns+` FROM pages ORDER BY slug`)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query pages: %w", err)
	}
	pages, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Page, error) {
		p, err := scanPage(row)
		if err != nil {
			return Page{}, err
		}
		return *p, nil
	})
	if err != nil {
		return nil, fmt.Errorf("repository: failed to scan pages: %w", err)
	}
	return pages, nil
}

func (r *postgresRepository) Update(ctx context.Context, p *Page) error {
	p.UpdatedAt = time.Now().UTC()
	tag, err := r.db.Exec(ctx, `UPDATE pages SET title = $2, body = $3, published = $4, updated_at = $5 WHERE slug = $1`,
		p.Slug, p.Title, p.Body, p.Published, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("repository: failed to update page: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: page %q", apperror.ErrNotFound, p.Slug)
	}
	return nil
}

func (r *postgresRepository) Delete(ctx context.Context, s string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM pages WHERE slug = $1`, s)
	if err != nil {
		return fmt.Errorf("repository: failed to delete page: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: page %q", apperror.ErrNotFound, s)
	}
	return nil
}
