package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	"voting-service/internal/domain/poll"
)

type PollRepo struct {
	db *sql.DB
}

func NewPollRepo(db *sql.DB) *PollRepo {
	return &PollRepo{db: db}
}

func (r *PollRepo) Create(ctx context.Context, p *poll.Poll, choices []poll.Choice) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	queryPoll := `
        INSERT INTO polls (title, description, slug, creator_id, category_id,
                           start_date, end_date, is_active, is_archived, is_public, allow_multiple_votes)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        RETURNING id, created_at, updated_at
    `

	err = tx.QueryRowContext(ctx, queryPoll,
		p.Title,
		p.Description,
		p.Slug,
		p.CreatorID,
		p.CategoryID,
		p.StartDate,
		p.EndDate,
		p.IsActive,
		p.IsArchived,
		p.IsPublic,
		p.AllowMultipleVotes,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return 0, err
	}

	if err := insertChoices(ctx, tx, p.ID, choices); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}

	return p.ID, nil
}

func (r *PollRepo) GetBySlug(ctx context.Context, slug string) (*poll.Poll, []poll.Choice, error) {
	p := &poll.Poll{}
	err := r.db.QueryRowContext(ctx, `
        SELECT id, title, description, slug, creator_id, category_id,
               start_date, end_date, is_active, is_archived, is_public, allow_multiple_votes,
               created_at, updated_at
        FROM polls WHERE slug = $1
    `, slug).Scan(
		&p.ID, &p.Title, &p.Description, &p.Slug, &p.CreatorID, &p.CategoryID,
		&p.StartDate, &p.EndDate, &p.IsActive, &p.IsArchived, &p.IsPublic, &p.AllowMultipleVotes,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, poll.ErrNotFound
		}
		return nil, nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
        SELECT id, poll_id, text, ord, created_at
        FROM choices WHERE poll_id = $1
        ORDER BY ord, id
    `, p.ID)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var choices []poll.Choice
	for rows.Next() {
		var c poll.Choice
		if err := rows.Scan(&c.ID, &c.PollID, &c.Text, &c.Order, &c.CreatedAt); err != nil {
			return nil, nil, err
		}
		choices = append(choices, c)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	return p, choices, nil
}

func (r *PollRepo) List(ctx context.Context, f poll.ListFilter) ([]poll.Poll, error) {
	query := `
        SELECT id, title, description, slug, creator_id, category_id,
               start_date, end_date, is_active, is_archived, is_public, allow_multiple_votes,
               created_at, updated_at
        FROM polls p
        WHERE is_active AND NOT is_archived
          AND EXISTS (SELECT 1 FROM choices c WHERE c.poll_id = p.id)
    `
	args := []any{}
	if f.CategoryID != nil {
		args = append(args, *f.CategoryID)
		query += ` AND category_id = $1`
	}
	args = append(args, f.Limit, f.Offset)
	query += ` ORDER BY created_at DESC LIMIT $` + itoa(len(args)-1) + ` OFFSET $` + itoa(len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []poll.Poll
	for rows.Next() {
		var p poll.Poll
		if err := rows.Scan(
			&p.ID, &p.Title, &p.Description, &p.Slug, &p.CreatorID, &p.CategoryID,
			&p.StartDate, &p.EndDate, &p.IsActive, &p.IsArchived, &p.IsPublic, &p.AllowMultipleVotes,
			&p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

// Update rewrites the poll row inside a transaction, replacing the choice
// set when a new one is supplied. Replacing choices cascades away any votes
// referencing the old rows, which is only reachable for admin edits.
func (r *PollRepo) Update(ctx context.Context, id int64, in poll.UpdateInput, choices []poll.Choice) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	p := poll.Poll{}
	err = tx.QueryRowContext(ctx, `
        SELECT title, description, category_id, start_date, end_date,
               is_active, is_archived, is_public, allow_multiple_votes
        FROM polls WHERE id = $1 FOR UPDATE
    `, id).Scan(
		&p.Title, &p.Description, &p.CategoryID, &p.StartDate, &p.EndDate,
		&p.IsActive, &p.IsArchived, &p.IsPublic, &p.AllowMultipleVotes,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return poll.ErrNotFound
		}
		return err
	}

	applyUpdate(&p, in)

	_, err = tx.ExecContext(ctx, `
        UPDATE polls
        SET title = $1, description = $2, category_id = $3, start_date = $4, end_date = $5,
            is_active = $6, is_archived = $7, is_public = $8, allow_multiple_votes = $9,
            updated_at = now()
        WHERE id = $10
    `, p.Title, p.Description, p.CategoryID, p.StartDate, p.EndDate,
		p.IsActive, p.IsArchived, p.IsPublic, p.AllowMultipleVotes, id)
	if err != nil {
		return err
	}

	if choices != nil {
		if _, err := tx.ExecContext(ctx, `DELETE FROM choices WHERE poll_id = $1`, id); err != nil {
			return err
		}
		if err := insertChoices(ctx, tx, id, choices); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *PollRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM polls WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return poll.ErrNotFound
	}
	return nil
}

func (r *PollRepo) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM polls WHERE slug = $1)`, slug,
	).Scan(&exists)
	return exists, err
}

func (r *PollRepo) HasVotes(ctx context.Context, pollID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM votes WHERE poll_id = $1)`, pollID,
	).Scan(&exists)
	return exists, err
}

func insertChoices(ctx context.Context, tx *sql.Tx, pollID int64, choices []poll.Choice) error {
	query := `
        INSERT INTO choices (poll_id, text, ord)
        VALUES ($1, $2, $3)
        RETURNING id, created_at
    `
	for i := range choices {
		choices[i].PollID = pollID
		if err := tx.QueryRowContext(ctx, query, pollID, choices[i].Text, choices[i].Order).
			Scan(&choices[i].ID, &choices[i].CreatedAt); err != nil {
			return err
		}
	}
	return nil
}

func itoa(n int) string {
	return strconv.Itoa(n)
}

func applyUpdate(p *poll.Poll, in poll.UpdateInput) {
	if in.Title != nil {
		p.Title = *in.Title
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.CategoryID != nil {
		p.CategoryID = in.CategoryID
	}
	if in.StartDate != nil {
		p.StartDate = *in.StartDate
	}
	if in.EndDate != nil {
		p.EndDate = in.EndDate
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
	if in.IsArchived != nil {
		p.IsArchived = *in.IsArchived
	}
	if in.IsPublic != nil {
		p.IsPublic = *in.IsPublic
	}
	if in.AllowMultipleVotes != nil {
		p.AllowMultipleVotes = *in.AllowMultipleVotes
	}
}
