package postgres

import (
	"context"
	"database/sql"
	"errors"

	"voting-service/internal/domain/category"
)

type CategoryRepo struct {
	db *sql.DB
}

func NewCategoryRepo(db *sql.DB) *CategoryRepo {
	return &CategoryRepo{db: db}
}

func (r *CategoryRepo) Create(ctx context.Context, c *category.Category) error {
	return r.db.QueryRowContext(ctx, `
        INSERT INTO categories (name, slug, description)
        VALUES ($1, $2, $3)
        RETURNING id
    `, c.Name, c.Slug, c.Description).Scan(&c.ID)
}

func (r *CategoryRepo) List(ctx context.Context) ([]category.Category, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT id, name, slug, description
        FROM categories ORDER BY name
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []category.Category
	for rows.Next() {
		var c category.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.Description); err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func (r *CategoryRepo) GetBySlug(ctx context.Context, slug string) (*category.Category, error) {
	c := &category.Category{}
	err := r.db.QueryRowContext(ctx, `
        SELECT id, name, slug, description
        FROM categories WHERE slug = $1
    `, slug).Scan(&c.ID, &c.Name, &c.Slug, &c.Description)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, category.ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

func (r *CategoryRepo) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM categories WHERE slug = $1)`, slug,
	).Scan(&exists)
	return exists, err
}

// Delete removes the category; polls referencing it keep existing with a
// nulled category_id (ON DELETE SET NULL).
func (r *CategoryRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return category.ErrNotFound
	}
	return nil
}
