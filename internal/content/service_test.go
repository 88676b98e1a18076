package content_test

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vasiliy-maslov/groupbuy-service/internal/apperror"
	"github.com/vasiliy-maslov/groupbuy-service/internal/content"
)

type memoryRepository struct {
	pages map[string]content.Page
}

func (m *memoryRepository) Create(ctx context.Context, p *content.Page) error {
	if _, ok := m.pages[p.Slug]; ok {
		return content.ErrSlugExists
	}
	m.pages[p.Slug] = *p
	return nil
}

func (m *memoryRepository) GetBySlug(ctx context.Context, slug string) (*content.Page, error) {
	p, ok := m.pages[slug]
	if !ok {
		return nil, fmt.Errorf("%w: page %q", apperror.ErrNotFound, slug)
	}
	return &p, nil
}

func (m *memoryRepository) List(ctx context.Context) ([]content.Page, error) {
	var out []content.Page
	for _, p := range m.pages {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out, nil
}

func (m *memoryRepository) Update(ctx context.Context, p *content.Page) error {
	if _, ok := m.pages[p.Slug]; !ok {
		return fmt.Errorf("%w: page %q", apperror.ErrNotFound, p.Slug)
	}
	m.pages[p.Slug] = *p
	return nil
}

func (m *memoryRepository) Delete(ctx context.Context, slug string) error {
	if _, ok := m.pages[slug]; !ok {
		return fmt.Errorf("%w: page %q", apperror.ErrNotFound, slug)
	}
	delete(m.pages, slug)
	return nil
}

func TestContentService_Create(t *testing.T) {
	tests := []struct {
		name      string
		input     content.PageInput
		wantSlug  string
		wantErrIs error
	}{
		{name: "slug_from_title", input: content.PageInput{Title: "How Group Buys Work"}, wantSlug: "how-group-buys-work"},
		{name: "explicit_slug", input: content.PageInput{Title: "FAQ", Slug: "Frequently Asked"}, wantSlug: "frequently-asked"},
		{name: "blank_title", input: content.PageInput{Title: "   "}, wantErrIs: apperror.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := content.NewService(&memoryRepository{pages: map[string]content.Page{}})
			p, err := svc.Create(context.Background(), tt.input)
			if tt.wantErrIs != nil {
				assert.ErrorIs(t, err, tt.wantErrIs)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSlug, p.Slug)
		})
	}
}

func TestContentService_Published(t *testing.T) {
	repo := &memoryRepository{pages: map[string]content.Page{}}
	svc := content.NewService(repo)
	ctx := context.Background()

	_, err := svc.Create(ctx, content.PageInput{Title: "Terms", Body: "draft"})
	require.NoError(t, err)

	_, err = svc.Published(ctx, "terms")
	assert.ErrorIs(t, err, apperror.ErrNotFound, "drafts are hidden from the public")

	updated, err := svc.Update(ctx, "terms", content.PageInput{Body: "final", Published: true})
	require.NoError(t, err)
	assert.Equal(t, "Terms", updated.Title)

	p, err := svc.Published(ctx, "terms")
	require.NoError(t, err)
	assert.Equal(t, "final", p.Body)

	_, err = svc.Create(ctx, content.PageInput{Title: "Terms"})
	assert.ErrorIs(t, err, apperror.ErrConflict)

	require.NoError(t, svc.Delete(ctx, "terms"))
	assert.ErrorIs(t, svc.Delete(ctx, "terms"), apperror.ErrNotFound)
}
