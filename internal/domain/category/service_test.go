package category

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
)

type memoryCategoryRepo struct {
	mu     sync.Mutex
	cats   map[int64]*Category
	nextID int64
}

func newMemoryCategoryRepo() *memoryCategoryRepo {
	return &memoryCategoryRepo{cats: make(map[int64]*Category), nextID: 1}
}

func (r *memoryCategoryRepo) Create(ctx context.Context, c *Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.ID = r.nextID
	r.nextID++
	copyCat := *c
	r.cats[c.ID] = &copyCat
	return nil
}

func (r *memoryCategoryRepo) List(ctx context.Context) ([]Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := make([]Category, 0, len(r.cats))
	for _, c := range r.cats {
		res = append(res, *c)
	}
	return res, nil
}

func (r *memoryCategoryRepo) GetBySlug(ctx context.Context, slug string) (*Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.cats {
		if c.Slug == slug {
			copyCat := *c
			return &copyCat, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memoryCategoryRepo) SlugExists(ctx context.Context, slug string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.cats {
		if c.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryCategoryRepo) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.cats[id]; !ok {
		return ErrNotFound
	}
	delete(r.cats, id)
	return nil
}

func TestCreateCategory(t *testing.T) {
	svc := NewService(newMemoryCategoryRepo())
	ctx := context.Background()

	if _, err := svc.Create(ctx, "", "no name"); !errors.Is(err, ErrNameRequired) {
		t.Fatalf("expected ErrNameRequired, got %v", err)
	}

	first, err := svc.Create(ctx, "Tech & Gadgets", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if first.Slug != "tech-gadgets" {
		t.Fatalf("unexpected slug %q", first.Slug)
	}

	second, err := svc.Create(ctx, "Tech & Gadgets", "")
	if err != nil {
		t.Fatalf("create duplicate name: %v", err)
	}
	if second.Slug == first.Slug || !strings.HasPrefix(second.Slug, "tech-gadgets-") {
		t.Fatalf("expected suffixed slug, got %q", second.Slug)
	}
}

func TestDeleteCategory(t *testing.T) {
	svc := NewService(newMemoryCategoryRepo())
	ctx := context.Background()

	c, err := svc.Create(ctx, "Food", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Delete(ctx, c.Slug); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.Delete(ctx, c.Slug); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
